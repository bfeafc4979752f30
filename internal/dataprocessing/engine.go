package dataprocessing

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ProcessInChunks resolves src once, optionally validates the whole record set,
// then hands it to process in chunks of at most opts.ChunkSize records.
//
// Progress is reported after every chunk as floor(processed*100/total). An empty
// input processes nothing and reports no progress. The first processor error stops
// the run and is returned as *ProcessingError; completed chunks are not undone.
func ProcessInChunks[T any](ctx context.Context, src Source[T], process Processor[T], opts Options[T]) error {
	if opts.ChunkSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, opts.ChunkSize)
	}
	if process == nil {
		return fmt.Errorf("processor is required")
	}
	if src == nil {
		src = FromSlice[T](nil)
	}

	items, err := src.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve source: %w", err)
	}

	if opts.Validate != nil {
		result := opts.Validate(items)
		if !result.Valid {
			return &ValidationError{Errors: result.Errors}
		}
	}

	total := len(items)
	if total == 0 {
		return nil
	}

	logger := opts.logger()
	logger.DebugContext(ctx, "chunked processing started",
		slog.Int("total_records", total),
		slog.Int("chunk_size", opts.ChunkSize),
		slog.Int("total_chunks", ChunkCount(total, opts.ChunkSize)),
		slog.Int("workers", opts.Workers))

	if opts.Workers > 1 {
		return processConcurrently(ctx, items, process, opts)
	}

	processed := 0
	for chunk := range Chunks(items, opts.ChunkSize) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("processing cancelled before chunk %d: %w", chunk.Index, err)
		}

		if err := runChunk(ctx, process, chunk); err != nil {
			logger.DebugContext(ctx, "chunk failed",
				slog.Int("chunk_index", chunk.Index),
				slog.String("error", err.Error()))
			return err
		}

		processed += len(chunk.Items)
		opts.report(chunk, Percent(processed, total))

		// Let other goroutines run between chunks
		runtime.Gosched()
	}

	return nil
}

// processConcurrently runs chunks on a bounded errgroup. Progress updates are
// serialized so callers still observe non-decreasing percentages.
func processConcurrently[T any](ctx context.Context, items []T, process Processor[T], opts Options[T]) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(opts.Workers)

	var (
		mu        sync.Mutex
		processed int
		total     = len(items)
	)

	for chunk := range Chunks(items, opts.ChunkSize) {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			if err := runChunk(groupCtx, process, chunk); err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			processed += len(chunk.Items)
			opts.report(chunk, Percent(processed, total))
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("processing cancelled: %w", err)
	}
	return nil
}

// runChunk calls process for one chunk. A failure or panic comes back as a
// ProcessingError labelled with the chunk index.
func runChunk[T any](ctx context.Context, process Processor[T], chunk Chunk[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ProcessingError{ChunkIndex: chunk.Index, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := process(ctx, chunk.Items); err != nil {
		return &ProcessingError{ChunkIndex: chunk.Index, Cause: err}
	}
	return nil
}

// Chunks lazily partitions items into consecutive chunks of at most size records.
// The chunk items share the backing array of items.
func Chunks[T any](items []T, size int) iter.Seq[Chunk[T]] {
	return func(yield func(Chunk[T]) bool) {
		if size <= 0 {
			return
		}
		totalChunks := ChunkCount(len(items), size)
		for index := 0; index < totalChunks; index++ {
			start := index * size
			end := min(start+size, len(items))
			chunk := Chunk[T]{
				Index:       index,
				Items:       items[start:end:end],
				TotalChunks: totalChunks,
				IsLast:      index == totalChunks-1,
			}
			if !yield(chunk) {
				return
			}
		}
	}
}

// ChunkCount returns ceil(total/size)
func ChunkCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Percent returns floor(done*100/total), clamped to 0-100
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	pct := done * 100 / total
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
