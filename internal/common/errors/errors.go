// Package errors provides the standardized error taxonomy surfaced by the API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeConflict             ErrorCode = "CONFLICT"
	ErrCodeUnsupportedMediaType ErrorCode = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodePayloadTooLarge      ErrorCode = "PAYLOAD_TOO_LARGE"

	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeStorageTimeout     ErrorCode = "STORAGE_TIMEOUT"

	ErrCodeUpstreamNotificationFailed ErrorCode = "UPSTREAM_NOTIFICATION_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
	status    int
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error so errors.Is keeps working through the wrapper.
func (e *StandardError) WithCause(err error) *StandardError {
	e.cause = err
	return e
}

// WithStatus overrides the HTTP status derived from Code.
func (e *StandardError) WithStatus(status int) *StandardError {
	e.status = status
	return e
}

// Status returns the HTTP status for this error.
func (e *StandardError) Status() int {
	if e.status != 0 {
		return e.status
	}
	return HTTPStatus(e.Code)
}

func NewInvalidInputError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewNotFoundError(resource, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewConflictError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnsupportedMediaTypeError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedMediaType,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewPayloadTooLargeError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadTooLarge,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageUnavailableError keeps the internal detail out of Message; callers only see Message.
func NewStorageUnavailableError(message string, err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeStorageUnavailable,
		Message:   message,
		Details:   errString(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewStorageTimeoutError(message string, err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeStorageTimeout,
		Message:   message,
		Details:   errString(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

func NewUpstreamNotificationError(target string, err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeUpstreamNotificationFailed,
		Message:   fmt.Sprintf("notification to %s failed", target),
		Details:   errString(err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

// NewInternalError echoes the raw error text in Message.
func NewInternalError(err error) *StandardError {
	return (&StandardError{
		Code:      ErrCodeInternal,
		Message:   errString(err),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}).WithCause(err)
}

// HTTPStatus maps an error code onto the response status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		// Rollback refusals have always been reported as 400.
		return http.StatusBadRequest
	case ErrCodeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeStorageTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// AsStandard extracts a *StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "STORAGE"):
		return "STORAGE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case code == ErrCodeInvalidInput, code == ErrCodeUnsupportedMediaType, code == ErrCodePayloadTooLarge:
		return "VALIDATION"
	case code == ErrCodeNotFound, code == ErrCodeConflict:
		return "STATE"
	default:
		return "OTHER"
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// CodeOf returns the code carried by err. It is empty for nil and
// INTERNAL_ERROR for errors outside the taxonomy.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if stdErr, ok := AsStandard(err); ok {
		return string(stdErr.Code)
	}
	return string(ErrCodeInternal)
}
