package apisvc

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/activity"
	logsvc "github.com/trezcool/mergington/services/logger"
)

const (
	defaultTimeout        = 60 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultTLSTimeout     = 5 * time.Second

	maxBodySize = 4 << 20

	requestIDHeader = "X-Request-ID"
)

// operation names, used as metric labels
const (
	opListActivities = "list_activities"
	opLogin          = "login"
	opSignup         = "signup"
	opUnregister     = "unregister"
)

type (
	LoginResult struct {
		AccessToken string `json:"access_token"`
		TeacherName string `json:"teacher_name"`
		Email       string `json:"email"`
	}

	MessageResult struct {
		Message string `json:"message"`
	}

	Options struct {
		BaseURL        string
		Timeout        time.Duration
		ConnectTimeout time.Duration
		HTTPClient     *http.Client // overrides Timeout and ConnectTimeout
		Logger         core.Logger
	}
)

// OptionsFromConfig builds client options from the app configuration.
func OptionsFromConfig(conf *core.Config, logger core.Logger) Options {
	return Options{
		BaseURL:        conf.API.BaseURL,
		Timeout:        conf.API.Timeout,
		ConnectTimeout: conf.API.ConnectTimeout,
		Logger:         logger,
	}
}

// Client is the only component talking to the backend.
// It is safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	logger core.Logger
}

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing base url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("unsupported base url scheme %q", base.Scheme)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = defaultClient(opts.Timeout, opts.ConnectTimeout)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logsvc.NewDiscardLogger()
	}
	return &Client{base: base, http: httpClient, logger: logger}, nil
}

func defaultClient(timeout, connectTimeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultTLSTimeout,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// ListActivities fetches the whole activity collection, in server order.
func (c *Client) ListActivities(ctx context.Context) (coll activity.Collection, err error) {
	defer func(started time.Time) { recordRequest(opListActivities, started, err) }(time.Now())
	err = c.do(ctx, http.MethodGet, "/activities", nil, "", &coll)
	return coll, err
}

func (c *Client) Login(ctx context.Context, email, password string) (res LoginResult, err error) {
	defer func(started time.Time) { recordRequest(opLogin, started, err) }(time.Now())
	q := url.Values{"email": {email}, "password": {password}}
	if err = c.do(ctx, http.MethodPost, "/login", q, "", &res); err != nil {
		return res, err
	}
	if res.AccessToken == "" {
		err = c.fail(opLogin, newFailure(KindUnknown, http.StatusOK, "", errors.New("login response without access_token")))
	}
	return res, err
}

func (c *Client) Signup(ctx context.Context, name, email string) (res MessageResult, err error) {
	defer func(started time.Time) { recordRequest(opSignup, started, err) }(time.Now())
	err = c.do(ctx, http.MethodPost, activityPath(name, "signup"), url.Values{"email": {email}}, "", &res)
	return res, err
}

// Unregister removes email from the roster of name; it requires an instructor's bearer token.
func (c *Client) Unregister(ctx context.Context, name, email, token string) (res MessageResult, err error) {
	defer func(started time.Time) { recordRequest(opUnregister, started, err) }(time.Now())
	err = c.do(ctx, http.MethodDelete, activityPath(name, "unregister"), url.Values{"email": {email}}, token, &res)
	return res, err
}

func activityPath(name, action string) string {
	return "/activities/" + url.PathEscape(name) + "/" + action
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base.String() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do performs the request and decodes a 2xx JSON body into out; every error it returns is a *Failure.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, out interface{}) error {
	op := method + " " + path
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), nil)
	if err != nil {
		return c.fail(op, newFailure(KindUnknown, 0, "", errors.Wrap(err, "building request")))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(op, newFailure(KindNetwork, 0, "", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return c.fail(op, newFailure(KindNetwork, resp.StatusCode, "", errors.Wrap(err, "reading response")))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(op, newFailure(KindFromStatus(resp.StatusCode), resp.StatusCode, detailOf(body), errors.Errorf("unexpected status %s", resp.Status)))
	}
	if err = json.Unmarshal(body, out); err != nil {
		return c.fail(op, newFailure(KindUnknown, resp.StatusCode, "", errors.Wrap(err, "decoding response")))
	}
	return nil
}

func (c *Client) fail(op string, f *Failure) *Failure {
	c.logger.Warn("backend request failed: "+op, f.Err, map[string]interface{}{
		"kind":   f.Kind,
		"status": f.Status,
	})
	return f
}

// detailOf extracts the string `detail` of an error body; any other shape yields "".
func detailOf(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil {
		return ""
	}
	return strings.TrimSpace(detail)
}
