// Package apperr defines the error kinds shared by services and handlers.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	InternalKind Kind = iota
	ValidationKind
	UnauthenticatedKind
	InvalidCredentialKind
	ForbiddenKind
	NotFoundKind
	ConflictKind
	RateLimitedKind
)

func (k Kind) String() string {
	switch k {
	case ValidationKind:
		return "validation"
	case UnauthenticatedKind:
		return "unauthenticated"
	case InvalidCredentialKind:
		return "invalid_credential"
	case ForbiddenKind:
		return "forbidden"
	case NotFoundKind:
		return "not_found"
	case ConflictKind:
		return "conflict"
	case RateLimitedKind:
		return "rate_limited"
	default:
		return "internal"
	}
}

// HTTPStatus maps a kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case ValidationKind, ConflictKind:
		return http.StatusBadRequest
	case UnauthenticatedKind, InvalidCredentialKind:
		return http.StatusUnauthorized
	case ForbiddenKind:
		return http.StatusForbidden
	case NotFoundKind:
		return http.StatusNotFound
	case RateLimitedKind:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind, a client-safe message and an optional cause.
// Only Msg is ever written to a response.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap attaches a kind and message to a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Validation(msg string) *Error { return New(ValidationKind, msg) }
func NotFound(msg string) *Error   { return New(NotFoundKind, msg) }
func Forbidden(msg string) *Error  { return New(ForbiddenKind, msg) }

// KindOf reports the kind of err, InternalKind if it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return InternalKind
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != InternalKind {
		return e.Msg
	}
	return "Server error"
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
