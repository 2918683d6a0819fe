package explain

import (
	"errors"
	"fmt"
)

// Kind distinguishes explanation failures so callers can render a specific message
type Kind string

const (
	Unauthenticated Kind = "unauthenticated"
	InvalidArgument Kind = "invalid_argument"
	Internal        Kind = "internal"
)

// Error is returned by Service.Explain
type Error struct {
	Err     error
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, Internal for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
