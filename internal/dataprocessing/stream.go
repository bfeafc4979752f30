package dataprocessing

import (
	"context"
	"fmt"
	"iter"
	"time"

	"golang.org/x/time/rate"
)

// DefaultStreamDelay is the minimum spacing between two successive fetches
const DefaultStreamDelay = 50 * time.Millisecond

// DefaultStreamBatchSize is the page size used when none is configured
const DefaultStreamBatchSize = 100

// StreamBatch is one page returned by a paginated collaborator
type StreamBatch[T any] struct {
	Items   []T  `json:"items"`
	HasMore bool `json:"has_more"`
}

// FetchFunc returns up to limit records starting at offset
type FetchFunc[T any] func(ctx context.Context, offset, limit int) (StreamBatch[T], error)

// StreamOptions configures StreamBatches
type StreamOptions struct {
	// BatchSize is the limit passed to every fetch. Required.
	BatchSize int

	// Delay throttles successive fetches; zero disables throttling
	Delay time.Duration

	// StartOffset is the offset of the first fetch
	StartOffset int
}

// DefaultStreamOptions returns the default paging configuration
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BatchSize: DefaultStreamBatchSize,
		Delay:     DefaultStreamDelay,
	}
}

// StreamBatches returns a lazy, single-pass sequence of batches pulled from fetch.
//
// Exactly one fetch happens per batch the consumer pulls; nothing is prefetched.
// The offset advances by the number of items actually returned. The sequence ends
// after a batch with HasMore=false, or at the first empty batch regardless of
// HasMore (the empty batch is not yielded). A fetch failure is yielded once as
// *StreamFetchError and ends the sequence.
func StreamBatches[T any](ctx context.Context, fetch FetchFunc[T], opts StreamOptions) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		if opts.BatchSize <= 0 {
			yield(nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, opts.BatchSize))
			return
		}

		var limiter *rate.Limiter
		if opts.Delay > 0 {
			limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
		}

		offset := opts.StartOffset
		for {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					yield(nil, fmt.Errorf("stream interrupted at offset %d: %w", offset, err))
					return
				}
			} else if err := ctx.Err(); err != nil {
				yield(nil, fmt.Errorf("stream interrupted at offset %d: %w", offset, err))
				return
			}

			batch, err := fetch(ctx, offset, opts.BatchSize)
			if err != nil {
				yield(nil, &StreamFetchError{Offset: offset, Cause: err})
				return
			}
			if len(batch.Items) == 0 {
				return
			}

			offset += len(batch.Items)
			if !yield(batch.Items, nil) {
				return
			}
			if !batch.HasMore {
				return
			}
		}
	}
}

// FetchFromSlice serves items page by page; useful for in-memory repositories
func FetchFromSlice[T any](items []T) FetchFunc[T] {
	return func(_ context.Context, offset, limit int) (StreamBatch[T], error) {
		if offset < 0 || limit <= 0 || offset >= len(items) {
			return StreamBatch[T]{}, nil
		}
		end := min(offset+limit, len(items))
		return StreamBatch[T]{
			Items:   items[offset:end:end],
			HasMore: end < len(items),
		}, nil
	}
}
