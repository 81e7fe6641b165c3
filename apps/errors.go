package apps

import (
	"fmt"
	"strings"
)

// ArgumentError reports a command line or query argument with an unsupported value.
type ArgumentError struct {
	Arg   string
	Value string
	Want  []string
}

func NewArgumentError(arg, value string, want ...string) *ArgumentError {
	return &ArgumentError{Arg: arg, Value: value, Want: want}
}

func (err *ArgumentError) Error() string {
	msg := fmt.Sprintf("invalid %s %q", err.Arg, err.Value)
	switch len(err.Want) {
	case 0:
		return msg
	case 1, 2:
		return msg + ": want " + strings.Join(err.Want, " or ")
	}
	return msg + ": want one of " + strings.Join(err.Want, ", ")
}
