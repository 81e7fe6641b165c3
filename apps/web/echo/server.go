package echoweb

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/mergington/core"
	"github.com/trezcool/mergington/core/dashboard"
	"github.com/trezcool/mergington/core/view"
)

// Layouts are the pages served; the controller must keep all of them in sync.
var Layouts = []view.Layout{view.LayoutDashboard, view.LayoutList, view.LayoutHome, view.LayoutDetail}

type (
	// Controller is the part of *dashboard.Controller the pages are served from.
	Controller interface {
		Do(ctx context.Context, ev dashboard.Event) error
		View(ctx context.Context, layout view.Layout, fn func(doc *view.Document) error) error
	}

	Options struct {
		Address        string
		AppName        string
		Debug          bool
		DisableReqLogs bool
		Controller     Controller
		Logger         core.Logger
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV mode
	if !s.opts.Debug {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger)
	s.app.Debug = s.opts.Debug

	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	registerPages(s.app, s.opts.Controller, s.opts.AppName)
}

func (s *server) Start() error {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}
