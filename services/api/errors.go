package apisvc

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a gateway failure.
type Kind string

const (
	KindNetwork      Kind = "network"      // request could not be completed
	KindUnauthorized Kind = "unauthorized" // 401, session expired
	KindForbidden    Kind = "forbidden"    // 403
	KindValidation   Kind = "validation"   // any other 4xx
	KindUnknown      Kind = "unknown"      // everything else, malformed bodies included
)

var defaultMessages = map[Kind]string{
	KindNetwork:      "Could not reach the server. Please try again.",
	KindUnauthorized: "Your session has expired. Please log in again.",
	KindForbidden:    "You are not authorized to perform this action.",
	KindValidation:   "The request was rejected.",
	KindUnknown:      "An error occurred. Please try again.",
}

// Failure is the only error type returned by Client methods.
type Failure struct {
	Kind    Kind
	Status  int    // 0 when no response was received
	Message string // human readable; sourced from the response `detail` when present
	// HasDetail reports whether Message came from the server.
	HasDetail bool
	Err       error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", f.Kind, f.Status, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

func newFailure(kind Kind, status int, detail string, err error) *Failure {
	f := &Failure{Kind: kind, Status: status, Message: detail, HasDetail: detail != "", Err: err}
	if !f.HasDetail {
		f.Message = defaultMessages[kind]
	}
	return f
}

// KindFromStatus maps a non-2xx status code to a failure kind.
func KindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status >= 400 && status < 500:
		return KindValidation
	}
	return KindUnknown
}

// KindOf returns the kind of a *Failure found in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindUnknown
}

func IsUnauthorized(err error) bool { return err != nil && KindOf(err) == KindUnauthorized }

func IsForbidden(err error) bool { return err != nil && KindOf(err) == KindForbidden }
