package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Services return errors that match one of these under
// errors.Is; anything that matches none of them is an internal failure.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

// kindError carries a user-facing message while unwrapping to its kind.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Invalidf returns an ErrInvalidArgument with the given message.
func Invalidf(format string, args ...any) error {
	return newKind(ErrInvalidArgument, format, args...)
}

// NotFoundf returns an ErrNotFound with the given message.
func NotFoundf(format string, args ...any) error {
	return newKind(ErrNotFound, format, args...)
}

// Conflictf returns an ErrConflict with the given message.
func Conflictf(format string, args ...any) error {
	return newKind(ErrConflict, format, args...)
}

// Unauthenticatedf returns an ErrUnauthenticated with the given message.
func Unauthenticatedf(format string, args ...any) error {
	return newKind(ErrUnauthenticated, format, args...)
}
