// Package apperr defines the tagged application errors surfaced by every
// operation. Errors carry a stable code and a human-readable message; the
// HTTP layer maps codes to statuses.
package apperr

import (
	"errors"
	"fmt"
	"time"
)

const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeBadRequest      = "BAD_REQUEST"
	CodeConflict        = "CONFLICT"
	CodeLimitExceeded   = "LIMIT_EXCEEDED"
	CodeRateLimited     = "RATE_LIMITED"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// Error is the single error shape crossing the operation boundary.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`

	// RetryAfter is set only for RATE_LIMITED errors.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches errors by code so sentinel comparisons work across wrapping.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Unauthenticated() *Error {
	return New(CodeUnauthenticated, "Not authenticated")
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

func BadRequest(message string) *Error {
	return New(CodeBadRequest, message)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

func LimitExceeded(message string) *Error {
	return New(CodeLimitExceeded, message)
}

func RateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Code:       CodeRateLimited,
		Message:    "Rate limit exceeded",
		RetryAfter: retryAfter,
	}
}

func Internal(message string) *Error {
	return New(CodeInternal, message)
}

// CodeOf returns the application code carried by err, or empty when err is
// not an application error.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
