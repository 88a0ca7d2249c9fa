package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents different categories of service errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeTooLarge   ErrorType = "too_large"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured error raised outside the verification pipeline
// (request validation, image fetching, report lookup).
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNetwork,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
		Cause:      cause,
	}
}

// NewTooLargeError creates an error for request bodies over the configured limit
func NewTooLargeError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTooLarge,
		Message:    message,
		StatusCode: http.StatusRequestEntityTooLarge,
		Cause:      cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
		Cause:      cause,
	}
}

// Kind classifies a verification pipeline failure.
type Kind string

const (
	KindImageDecode          Kind = "ImageDecodeError"
	KindResolutionExceeded   Kind = "ResolutionExceededError"
	KindSymbolNotFound       Kind = "SymbolNotFoundError"
	KindSamplingOutOfBounds  Kind = "SamplingOutOfBoundsError"
	KindDecode               Kind = "DecodeError"
	KindUnsupportedSymbology Kind = "UnsupportedSymbologyError"
	KindInternal             Kind = "InternalError"
)

// ReasonCancelled is the reason attached to an InternalError raised on context cancellation.
const ReasonCancelled = "cancelled"

// PipelineError is returned by every stage of the verification pipeline.
type PipelineError struct {
	Kind   Kind
	Stage  string
	Reason string
	Cause  error
}

func (e *PipelineError) Error() string {
	msg := string(e.Kind)
	if e.Stage != "" {
		msg += " [" + e.Stage + "]"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError builds a PipelineError for the given stage.
func NewPipelineError(kind Kind, stage, reason string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Reason: reason, Cause: cause}
}

// Cancelled builds the InternalError reported when a run is cancelled between stages.
func Cancelled(stage string, cause error) *PipelineError {
	return &PipelineError{Kind: KindInternal, Stage: stage, Reason: ReasonCancelled, Cause: cause}
}

// IsKind reports whether err wraps a PipelineError of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// IsType checks if the error is an AppError of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// GetStatusCode extracts the HTTP status code from an error
func GetStatusCode(err error) int {
	var pe *PipelineError
	if errors.As(err, &pe) {
		switch pe.Kind {
		case KindSymbolNotFound, KindSamplingOutOfBounds, KindDecode:
			return http.StatusUnprocessableEntity
		case KindResolutionExceeded:
			return http.StatusRequestEntityTooLarge
		case KindImageDecode, KindUnsupportedSymbology:
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
