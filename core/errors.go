package core

import (
	"sort"
	"strings"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if len(err.Fields) > 0 {
		msgs := make([]string, 0, len(err.Fields))
		for _, fld := range err.Fields {
			msgs = append(msgs, fld.Error)
		}
		sort.Strings(msgs)
		return strings.Join(msgs, "; ")
	}
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }
