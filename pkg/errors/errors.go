package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType classifies failures into the transient/permanent split the
// fetcher's retry loop relies on.
type ErrorType string

const (
	// Transient: worth retrying with the configured delay.
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeServerError   ErrorType = "server_error"
	ErrorTypeEmptyResponse ErrorType = "empty_response"
	ErrorTypeParsing       ErrorType = "parsing"

	// Permanent: retrying cannot change the outcome.
	ErrorTypeNotFound ErrorType = "not_found"
	ErrorTypePrivate  ErrorType = "private"
	ErrorTypeAuth     ErrorType = "auth"

	// Storage failures abort one account's batch, never the whole run.
	ErrorTypeStorage ErrorType = "storage"

	ErrorTypeUnknown ErrorType = "unknown"
)

// Error is a typed API or storage error. Code carries the HTTP status
// when one applies, 0 otherwise.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap builds a typed error around an underlying cause.
func Wrap(t ErrorType, msg string, err error) *Error {
	return &Error{Type: t, Message: msg, Err: err}
}

// IsRetryable reports whether an error type is transient.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError,
		ErrorTypeEmptyResponse, ErrorTypeParsing:
		return true
	default:
		return false
	}
}

// IsPermanent reports whether an error type short-circuits the retry
// budget entirely.
func IsPermanent(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNotFound, ErrorTypePrivate, ErrorTypeAuth:
		return true
	default:
		return false
	}
}

// IsRetryableErr unwraps err and reports whether it is transient.
// Untyped errors default to retryable.
func IsRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return IsRetryable(apiErr.Type)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// IsStorageErr reports whether err originated in the persistence layer.
func IsStorageErr(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Type == ErrorTypeStorage
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504: // Server errors
		return true
	case 401, 403, 404: // Client errors that won't change
		return false
	default:
		return statusCode >= 500
	}
}
