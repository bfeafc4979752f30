package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeImport     ErrorType = "IMPORT"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeRun        ErrorType = "RUN"
)

// Exit codes from sysexits.h used by the command line tools
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitDataErr = 65
	ExitNoInput = 66
	ExitIOErr   = 74
	ExitConfig  = 78
)

// AppError represents an application-specific error outside the HTTP layer
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewImportError reports a dataset file that could not be imported
func NewImportError(path string, cause error) *AppError {
	return NewAppError(ErrTypeImport, "failed to import dataset", cause).WithContext("path", path)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// NewRunError reports a processing run that finished as failed
func NewRunError(runID string, messages []string) *AppError {
	msg := "processing run failed"
	if len(messages) > 0 {
		msg = messages[0]
	}
	return NewAppError(ErrTypeRun, msg, nil).
		WithContext("run_id", runID).
		WithContext("errors", messages)
}

// ExitCode maps err to a process exit status
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		return ExitFailure
	}

	switch appErr.Type {
	case ErrTypeImport, ErrTypeValidation:
		return ExitDataErr
	case ErrTypeNotFound:
		return ExitNoInput
	case ErrTypeStorage:
		return ExitIOErr
	case ErrTypeConfig:
		return ExitConfig
	default:
		return ExitFailure
	}
}
