// Package apperr carries the single service-level error kind. Every error has
// a human readable message and wraps one of the sentinel categories below so
// the HTTP layer can pick a status code with errors.Is.
package apperr

import "errors"

var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)

type Error struct {
	kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.kind }

func Validation(msg string) error      { return &Error{kind: ErrValidation, Msg: msg} }
func Unauthenticated(msg string) error { return &Error{kind: ErrUnauthenticated, Msg: msg} }
func Forbidden(msg string) error       { return &Error{kind: ErrForbidden, Msg: msg} }
func NotFound(msg string) error        { return &Error{kind: ErrNotFound, Msg: msg} }
func Conflict(msg string) error        { return &Error{kind: ErrConflict, Msg: msg} }

// Message returns the client-facing text for err and whether err is an
// *Error at all.
func Message(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg, true
	}
	return "", false
}
