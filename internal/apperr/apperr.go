package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and logging.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthRequired
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
	KindUnavailable
)

// Error is an application error with a stable kind and a user-facing message.
// The wrapped cause stays server-side; handlers only expose Message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an application error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error  { return New(KindValidation, message) }
func Forbidden(message string) *Error   { return New(KindForbidden, message) }
func NotFound(message string) *Error    { return New(KindNotFound, message) }
func Conflict(message string) *Error    { return New(KindConflict, message) }
func RateLimited(message string) *Error { return New(KindRateLimited, message) }

// KindOf returns the kind of err, or KindInternal if err is not an *Error.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err. Unclassified errors get a
// generic message so internal details never reach a response.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// StatusCode maps an error to its HTTP status.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthRequired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
