// Package apperr classifies failures so the HTTP layer can map them to status
// codes without string matching.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindNotFound      Kind = "not_found"
	KindForbidden     Kind = "forbidden"
	KindValidation    Kind = "validation"
	KindStateMismatch Kind = "state_mismatch"
	KindConflict      Kind = "conflict"
	KindFetch         Kind = "fetch"
	KindPersistence   Kind = "persistence"
)

// Error carries a human-readable reason safe to return to callers.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Reason + ": " + e.cause.Error()
	}
	return e.Reason
}

func (e *Error) Cause() error  { return e.cause }
func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and reason to an underlying error. The cause is kept for
// logs but never rendered to API clients.
func Wrap(err error, kind Kind, reason string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Reason: reason, cause: errors.WithStack(err)}
}

func NotFound(format string, args ...interface{}) error {
	return New(KindNotFound, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return New(KindForbidden, format, args...)
}

func Validation(format string, args ...interface{}) error {
	return New(KindValidation, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return New(KindConflict, format, args...)
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Reason returns the client-facing message for err.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return "Internal server error"
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation, KindStateMismatch:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
