// Package apperr carries the error taxonomy shared by the stores and the
// HTTP layer: validation, not-found and conflict errors map to 4xx statuses,
// everything else is treated as an internal storage failure.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for HTTP status mapping.
type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	Conflict
)

// Error is a classified application error.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Validationf builds a validation error (malformed or incomplete input).
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: Validation, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: NotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error (uniqueness violation).
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: Conflict, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or Internal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
