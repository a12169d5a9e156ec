package errors

import (
	"net/http"
	"strings"
	"time"
)

// Kind discriminates error categories. Callers branch on Kind, never on
// concrete runtime types.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindRateLimited    Kind = "rate_limited"
	KindStorageFailure Kind = "storage_failure"
)

// AppError is the error type crossing component boundaries. It carries an
// HTTP status code plus a structured payload per kind: Fields lists the
// violated rules for validation errors, RetryAfter is set when rate limited.
type AppError struct {
	Kind       Kind          `json:"kind"`
	Code       int           `json:"code"`
	Message    string        `json:"message"`
	Fields     []string      `json:"fields,omitempty"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
}

func (e *AppError) Error() string {
	if len(e.Fields) > 0 {
		return e.Message + ": " + strings.Join(e.Fields, "; ")
	}
	return e.Message
}

// Helper functions to create specific errors

func Validation(msg string, fields ...string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    http.StatusBadRequest,
		Message: msg,
		Fields:  fields,
	}
}

func NotFound(msg string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    http.StatusNotFound,
		Message: msg,
	}
}

func RateLimited(msg string, retryAfter time.Duration) *AppError {
	return &AppError{
		Kind:       KindRateLimited,
		Code:       http.StatusTooManyRequests,
		Message:    msg,
		RetryAfter: retryAfter,
	}
}

func Storage(msg string) *AppError {
	return &AppError{
		Kind:    KindStorageFailure,
		Code:    http.StatusInternalServerError,
		Message: msg,
	}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Kind == kind
}
