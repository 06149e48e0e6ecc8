package errors

import (
	"fmt"
	"net/http"
)

// Kind is the machine-checkable category of an application error.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindUpload          Kind = "upload"
	KindPollTimeout     Kind = "poll_timeout"
	KindAssetNotReady   Kind = "asset_not_ready"
	KindInference       Kind = "inference"
	KindEmptyResponse   Kind = "empty_response"
	KindNoJSONFound     Kind = "no_json_found"
	KindMalformedJSON   Kind = "malformed_json"
	KindSchemaViolation Kind = "schema_violation"
	KindNotFound        Kind = "not_found"
	KindInternal        Kind = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"status_code"`
	Cause      error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewUploadError creates an error for a failed media upload
func NewUploadError(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindUpload,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewPollTimeoutError creates an error for a readiness wait that overran its bound
func NewPollTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindPollTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewAssetNotReadyError creates an error for analysis requested on a non-ready asset
func NewAssetNotReadyError(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindAssetNotReady,
		Message:    message,
		StatusCode: http.StatusConflict,
		Cause:      cause,
	}
}

// NewInferenceError creates an error for a failed model generation call
func NewInferenceError(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindInference,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewEmptyResponseError creates an error for a blank model response
func NewEmptyResponseError(message string) *AppError {
	return &AppError{
		Kind:       KindEmptyResponse,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewNoJSONFoundError creates an error for responses that contain no JSON array.
// Details carries a truncated prefix of the original text for diagnostics.
func NewNoJSONFoundError(message, details string) *AppError {
	return &AppError{
		Kind:       KindNoJSONFound,
		Message:    message,
		Details:    details,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewMalformedJSONError creates an error for extracted text that fails to parse
func NewMalformedJSONError(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindMalformedJSON,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewSchemaViolationError creates a per-item annotation schema error
func NewSchemaViolationError(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindSchemaViolation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// IsKind checks if the error is of a specific kind
func IsKind(err error, kind Kind) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Kind == kind
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
