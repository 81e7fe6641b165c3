package dashboard

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core/activity"
)

// EventKind names a UI event.
type EventKind string

const (
	EventLoad       EventKind = "load"
	EventRefresh    EventKind = "refresh"
	EventLogin      EventKind = "login"
	EventLogout     EventKind = "logout"
	EventSignup     EventKind = "signup"
	EventUnregister EventKind = "unregister"
	EventFilter     EventKind = "filter"
	EventFocus      EventKind = "focus"
)

// Event is a UI event with its payload.
type Event struct {
	Kind     EventKind
	Activity string
	Email    string
	Password string
	Filter   activity.FilterSort
	// FromCard scopes the resulting message to the activity card instead of the page banner.
	FromCard bool
	// Done, when set, receives the outcome once the event is fully handled. It must be buffered.
	Done chan error

	ctx context.Context
}

func (ev Event) reply(err error) {
	if ev.Done == nil {
		return
	}
	select {
	case ev.Done <- err:
	default:
	}
}

func (ev Event) context(fallback context.Context) context.Context {
	if ev.ctx != nil {
		return ev.ctx
	}
	return fallback
}

var (
	ErrInProgress    = errors.New("a request is already in progress")
	ErrLoginRequired = errors.New("login required")
	ErrActivityFull  = errors.New("activity is full")
)

// NotFoundError is returned for an activity missing even after a refetch.
type NotFoundError struct {
	Name       string
	Suggestion string
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("activity %q not found", err.Name)
}

// user facing texts
const (
	msgInProgress        = "A request for %s is already in progress"
	msgLoadInProgress    = "Activities are already loading"
	msgLoginInProgress   = "Login already in progress"
	msgLoginRequired     = "You must be logged in to unregister students"
	msgActivityFull      = "Activity is full"
	msgNotFound          = "Activity not found"
	msgDidYouMean        = "Did you mean %q?"
	msgSessionExpired    = "Session expired. Please login again."
	msgNotAuthorized     = "You are not authorized to unregister from this activity"
	msgGenericError      = "An error occurred"
	msgLoginFailed       = "Login failed"
	msgLoginNetwork      = "Network error. Please try again."
	msgSignupFailed      = "Failed to sign up. Please try again."
	msgUnregisterFailed  = "Failed to unregister. Please try again."
	msgRefreshFailed     = "Failed to load activities. Please try again later."
	msgWelcome           = "Welcome, %s"
	msgLoggedOut         = "Logged out"
	msgSignedUp          = "Signed up %s for %s"
	msgUnregistered      = "Unregistered %s from %s"
	msgSessionNotPersist = "Logged in, but the session could not be saved"
)
