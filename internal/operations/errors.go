package operations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bizpulse/internal/dataprocessing"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnsupported  ErrorType = "unsupported"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeFatal        ErrorType = "fatal"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeInvalidState ErrorType = "invalid_state"
)

// OperationError is the error type of runs and jobs. Stage names the part of
// the run that failed, usually the industry handler.
type OperationError struct {
	Type      ErrorType              `json:"type"`
	Stage     string                 `json:"stage,omitempty"`
	Message   string                 `json:"message"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	if e.Stage != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Stage, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(stage, message string) *OperationError {
	return &OperationError{
		Type:      ErrorTypeValidation,
		Stage:     stage,
		Message:   message,
		Retryable: false,
	}
}

// NewUnsupportedIndustryError reports an industry no handler exists for
func NewUnsupportedIndustryError(industry string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeUnsupported,
		Message: fmt.Sprintf("unsupported industry %q", industry),
		Context: map[string]interface{}{
			"industry": industry,
		},
	}
}

// NewExecutionError creates a new execution error
func NewExecutionError(stage string, cause error, retryable bool) *OperationError {
	message := "processing failed"
	if cause != nil {
		message = cause.Error()
	}
	return &OperationError{
		Type:      ErrorTypeExecution,
		Stage:     stage,
		Message:   message,
		Cause:     cause,
		Retryable: retryable,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(stage string, timeout time.Duration) *OperationError {
	return &OperationError{
		Type:    ErrorTypeTimeout,
		Stage:   stage,
		Message: fmt.Sprintf("run exceeded timeout of %s", timeout),
		Context: map[string]interface{}{
			"timeout": timeout.String(),
		},
		Retryable: true,
	}
}

// NewCancellationError creates a new cancellation error
func NewCancellationError(stage string) *OperationError {
	return &OperationError{
		Type:      ErrorTypeCancellation,
		Stage:     stage,
		Message:   "run was cancelled",
		Retryable: false,
	}
}

// NewFatalError creates a new fatal error
func NewFatalError(message string, cause error) *OperationError {
	return &OperationError{
		Type:      ErrorTypeFatal,
		Message:   message,
		Cause:     cause,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Retryable
	}
	return false
}

// GetErrorType returns the type of the error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeExecution
}

// classify turns a handler error into an OperationError. Validation failures
// carry every itemized message under the "errors" context key.
func classify(stage string, err error, timeout time.Duration) *OperationError {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr
	}

	var validationErr *dataprocessing.ValidationError
	var processingErr *dataprocessing.ProcessingError
	var fetchErr *dataprocessing.StreamFetchError

	switch {
	case errors.As(err, &validationErr):
		e := NewValidationError(stage, fmt.Sprintf("validation failed with %d errors", len(validationErr.Errors)))
		e.Cause = err
		e.Context = map[string]interface{}{"errors": validationErr.Errors}
		return e
	case errors.Is(err, context.DeadlineExceeded):
		e := NewTimeoutError(stage, timeout)
		e.Cause = err
		return e
	case errors.Is(err, context.Canceled):
		e := NewCancellationError(stage)
		e.Cause = err
		return e
	case errors.As(err, &fetchErr):
		e := NewExecutionError(stage, err, true)
		e.Message = fetchErr.Error()
		e.Context = map[string]interface{}{"offset": fetchErr.Offset}
		return e
	case errors.As(err, &processingErr):
		e := NewExecutionError(stage, err, false)
		e.Message = processingErr.Error()
		e.Context = map[string]interface{}{"chunk_index": processingErr.ChunkIndex}
		return e
	default:
		return NewExecutionError(stage, err, false)
	}
}

// ErrorMessages flattens err for a run result: the summary message first,
// followed by the itemized list of a validation failure.
func ErrorMessages(err error) []string {
	if err == nil {
		return nil
	}
	messages := []string{err.Error()}

	var opErr *OperationError
	if errors.As(err, &opErr) {
		if items, ok := opErr.Context["errors"].([]string); ok {
			messages = append(messages, items...)
		}
	}
	return messages
}

// Common operation errors
var (
	// ErrJobNotFound is returned when a job cannot be found
	ErrJobNotFound = &OperationError{
		Type:    ErrorTypeNotFound,
		Message: "job not found",
	}

	// ErrJobFinished is returned when trying to cancel a job that already ended
	ErrJobFinished = &OperationError{
		Type:    ErrorTypeInvalidState,
		Message: "job has already finished",
	}

	// ErrQueueFull is returned when the job queue cannot accept more work
	ErrQueueFull = &OperationError{
		Type:      ErrorTypeInvalidState,
		Message:   "job queue is full",
		Retryable: true,
	}

	// ErrQueueStopped is returned when enqueueing after Stop
	ErrQueueStopped = &OperationError{
		Type:    ErrorTypeInvalidState,
		Message: "job queue is stopped",
	}
)
