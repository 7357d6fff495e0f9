// Package errors provides the standardized error system used at the HTTP
// boundary of the conversation runtime: a structured AppError with a
// stable error code, an HTTP status mapping, a request ID for tracing, and
// a timestamp. Core packages (tagparser, message, conversation, ...) never
// import this package — they return plain Go errors, and internal/httpapi
// is the single place that translates them into an AppError, mirroring how
// the teacher's ChatHandler.errorResponse is the sole HTTP-status mapper.
package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorCode is a stable, machine-readable identifier for one error
// condition, used by callers across the HTTP boundary for programmatic
// handling instead of string-matching messages.
type ErrorCode string

const (
	// Client errors (400-499)
	ErrBadRequest        ErrorCode = "BAD_REQUEST"        // malformed request body or invalid JSON
	ErrValidationFailed  ErrorCode = "VALIDATION_ERROR"   // input validation failed
	ErrInvalidChoice     ErrorCode = "INVALID_CHOICE"     // CHOOSE index out of range or no choices pending
	ErrRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Authentication & authorization (401-403)
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrForbidden    ErrorCode = "FORBIDDEN"

	// Not found (404)
	ErrResourceNotFound     ErrorCode = "RESOURCE_NOT_FOUND"
	ErrSessionNotFound      ErrorCode = "SESSION_NOT_FOUND"
	ErrStoryNotFound        ErrorCode = "STORY_NOT_FOUND"
	ErrSessionAlreadyLoaded ErrorCode = "SESSION_ALREADY_LOADED" // 409 in spirit; mapped to 400 below

	// Server errors (500-599)
	ErrInternalServer     ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrDatabaseError      ErrorCode = "DATABASE_ERROR"
	ErrCacheError         ErrorCode = "CACHE_ERROR"
	ErrStoryLoadFailed    ErrorCode = "STORY_LOAD_FAILED"
	ErrSnapshotFailed     ErrorCode = "SNAPSHOT_FAILED"

	// Configuration errors
	ErrMissingEnvVar         ErrorCode = "MISSING_ENV_VAR"
	ErrInvalidConfiguration  ErrorCode = "INVALID_CONFIGURATION"
	ErrServiceNotInitialized ErrorCode = "SERVICE_NOT_INITIALIZED"
)

// StatusCodes maps every ErrorCode to the HTTP status internal/httpapi
// responds with.
var StatusCodes = map[ErrorCode]int{
	ErrBadRequest:        http.StatusBadRequest,
	ErrValidationFailed:  http.StatusBadRequest,
	ErrInvalidChoice:     http.StatusBadRequest,
	ErrRateLimitExceeded: http.StatusTooManyRequests,

	ErrUnauthorized: http.StatusUnauthorized,
	ErrForbidden:    http.StatusForbidden,

	ErrResourceNotFound:     http.StatusNotFound,
	ErrSessionNotFound:      http.StatusNotFound,
	ErrStoryNotFound:        http.StatusNotFound,
	ErrSessionAlreadyLoaded: http.StatusBadRequest,

	ErrInternalServer:     http.StatusInternalServerError,
	ErrServiceUnavailable: http.StatusServiceUnavailable,
	ErrDatabaseError:      http.StatusInternalServerError,
	ErrCacheError:         http.StatusInternalServerError,
	ErrStoryLoadFailed:    http.StatusBadGateway,
	ErrSnapshotFailed:     http.StatusInternalServerError,

	ErrMissingEnvVar:         http.StatusInternalServerError,
	ErrInvalidConfiguration:  http.StatusInternalServerError,
	ErrServiceNotInitialized: http.StatusServiceUnavailable,
}

// AppError is the structured error format returned by every HTTP endpoint.
type AppError struct {
	Code      ErrorCode   `json:"error"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StatusCode returns the HTTP status for this error, falling back to 500
// for a code with no mapping.
func (e *AppError) StatusCode() int {
	if code, ok := StatusCodes[e.Code]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// New creates an AppError with no extra context.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Timestamp: time.Now()}
}

// NewWithDetails creates an AppError carrying additional structured
// context (e.g. validation failures).
func NewWithDetails(code ErrorCode, message string, details interface{}) *AppError {
	return &AppError{Code: code, Message: message, Details: details, Timestamp: time.Now()}
}

// WithRequestID attaches a request id for tracing and returns the same
// error for chaining.
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// Wrap converts any error into an AppError, passing an already-wrapped
// AppError through unchanged.
func Wrap(err error, code ErrorCode) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return New(code, err.Error())
}

// IsAppError reports whether err is an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	appErr, ok := err.(*AppError)
	return appErr, ok
}
