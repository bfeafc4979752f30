package dataprocessing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidChunkSize is returned when Options.ChunkSize is not positive
	ErrInvalidChunkSize = errors.New("chunk size must be positive")

	// ErrInvalidBatchSize is returned when StreamOptions.BatchSize is not positive
	ErrInvalidBatchSize = errors.New("batch size must be positive")
)

// ValidationError is returned when the validation gate rejects the input.
// Nothing has been processed when it is returned.
type ValidationError struct {
	Errors []string `json:"errors"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return fmt.Sprintf("validation failed: %s", e.Errors[0])
	default:
		return fmt.Sprintf("validation failed: %d errors (first: %s)", len(e.Errors), e.Errors[0])
	}
}

// ProcessingError is returned when a chunk processor fails.
// Chunks before ChunkIndex have already been applied.
type ProcessingError struct {
	ChunkIndex int   `json:"chunk_index"`
	Cause      error `json:"-"`
}

// Error implements the error interface
func (e *ProcessingError) Error() string {
	return fmt.Sprintf("chunk %d failed: %v", e.ChunkIndex, e.Cause)
}

// Unwrap returns the processor's error
func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// StreamFetchError is returned when the paginated fetch function fails
type StreamFetchError struct {
	Offset int   `json:"offset"`
	Cause  error `json:"-"`
}

// Error implements the error interface
func (e *StreamFetchError) Error() string {
	return fmt.Sprintf("fetch at offset %d failed: %v", e.Offset, e.Cause)
}

// Unwrap returns the fetch function's error
func (e *StreamFetchError) Unwrap() error {
	return e.Cause
}
