package common

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeExtraction for failures reaching or reading the page
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeBackend for analysis service failures
	ErrorTypeBackend ErrorType = "backend"
	// ErrorTypeValidation for client-side rejections before any work
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration for configuration-related errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeStorage for storage/persistence errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeInternal for internal system errors
	ErrorTypeInternal ErrorType = "internal"
)

// Error codes used where the popup needs to distinguish cases of a type
const (
	CodeAnalysisInProgress = "ANALYSIS_IN_PROGRESS"
	CodeInvalidURL         = "INVALID_URL"
	CodeNotAnalyzable      = "NOT_ANALYZABLE"
	CodeInvalidPayload     = "INVALID_PAYLOAD"
)

// CompanionError represents a structured error with context
type CompanionError struct {
	Type      ErrorType              `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
}

// Error implements the error interface
func (e *CompanionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *CompanionError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *CompanionError) WithContext(key string, value interface{}) *CompanionError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *CompanionError) WithCause(cause error) *CompanionError {
	e.Cause = cause
	return e
}

// WithDetails sets the details string
func (e *CompanionError) WithDetails(details string) *CompanionError {
	e.Details = details
	return e
}

// NewError creates a new CompanionError
func NewError(errorType ErrorType, code, message string) *CompanionError {
	return &CompanionError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewExtractionError creates an extraction error
func NewExtractionError(code, message string) *CompanionError {
	return NewError(ErrorTypeExtraction, code, message)
}

// NewBackendError creates a backend error
func NewBackendError(code, message string) *CompanionError {
	return NewError(ErrorTypeBackend, code, message)
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *CompanionError {
	return NewError(ErrorTypeValidation, code, message)
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(code, message string) *CompanionError {
	return NewError(ErrorTypeConfiguration, code, message)
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *CompanionError {
	return NewError(ErrorTypeStorage, code, message)
}

// NewInternalError creates an internal system error
func NewInternalError(code, message string) *CompanionError {
	return NewError(ErrorTypeInternal, code, message)
}

// NewBusyError signals that an analysis run is already outstanding
func NewBusyError() *CompanionError {
	return NewError(ErrorTypeValidation, CodeAnalysisInProgress, "an analysis is already in progress")
}

// WrapError wraps an existing error with CompanionError context
func WrapError(err error, errorType ErrorType, code, message string) *CompanionError {
	return &CompanionError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
	}
}

// AsCompanionError extracts a CompanionError from an error chain
func AsCompanionError(err error) (*CompanionError, bool) {
	var ce *CompanionError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsErrorType reports whether err carries the given taxonomy type
func IsErrorType(err error, errorType ErrorType) bool {
	if ce, ok := AsCompanionError(err); ok {
		return ce.Type == errorType
	}
	return false
}
