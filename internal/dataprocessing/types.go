package dataprocessing

import (
	"context"
	"log/slog"
)

// Chunk is a bounded, ordered slice of the input handed to a processor
type Chunk[T any] struct {
	Index       int  `json:"index"`
	Items       []T  `json:"items"`
	TotalChunks int  `json:"total_chunks"`
	IsLast      bool `json:"is_last"`
}

// ValidationResult is the outcome of validating a record set
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidationResult builds a result whose Valid flag always matches the error list
func NewValidationResult(errors []string) ValidationResult {
	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

// Source yields the records to process. It is resolved exactly once per call.
type Source[T any] interface {
	Resolve(ctx context.Context) ([]T, error)
}

// SourceFunc adapts a producer function to the Source interface
type SourceFunc[T any] func(ctx context.Context) ([]T, error)

// Resolve calls f
func (f SourceFunc[T]) Resolve(ctx context.Context) ([]T, error) {
	return f(ctx)
}

type sliceSource[T any] []T

func (s sliceSource[T]) Resolve(context.Context) ([]T, error) {
	return s, nil
}

// FromSlice wraps an already materialized record set
func FromSlice[T any](items []T) Source[T] {
	return sliceSource[T](items)
}

// Processor handles one chunk of records
type Processor[T any] func(ctx context.Context, items []T) error

// ValidateFunc checks a whole record set before processing starts
type ValidateFunc[T any] func(items []T) ValidationResult

// Options configures ProcessInChunks
type Options[T any] struct {
	// ChunkSize is the maximum number of records per chunk. Required.
	ChunkSize int

	// OnProgress receives the completed percentage (0-100) after each chunk
	OnProgress func(percent int)

	// OnChunkProcessed receives each chunk after its processor returned
	OnChunkProcessed func(chunk Chunk[T])

	// Validate runs once over the entire input before any chunk is processed
	Validate ValidateFunc[T]

	// Workers above 1 processes chunks concurrently (completion order is not guaranteed)
	Workers int

	// Logger receives debug output; nil uses slog.Default()
	Logger *slog.Logger
}

func (o Options[T]) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options[T]) report(chunk Chunk[T], percent int) {
	if o.OnProgress != nil {
		o.OnProgress(percent)
	}
	if o.OnChunkProcessed != nil {
		o.OnChunkProcessed(chunk)
	}
}
