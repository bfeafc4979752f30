package industry

import (
	"log/slog"

	"bizpulse/internal/dataprocessing"
)

// Settings is the resolved configuration of a handler invocation
type Settings struct {
	ChunkSize int
	Workers   int
	Logger    *slog.Logger

	// OnChunk observes every processed chunk by index and chunk count
	OnChunk func(index, total int)
}

// Option customizes a handler invocation
type Option func(*Settings)

// WithChunkSize overrides the handler's default chunk size. Values below 1 are ignored.
func WithChunkSize(n int) Option {
	return func(s *Settings) {
		if n >= 1 {
			s.ChunkSize = n
		}
	}
}

// WithWorkers processes chunks concurrently with n workers. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(s *Settings) {
		if n >= 1 {
			s.Workers = n
		}
	}
}

// WithLogger sets the logger handed to the chunk engine
func WithLogger(logger *slog.Logger) Option {
	return func(s *Settings) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// WithChunkObserver registers fn to be called once per processed chunk
func WithChunkObserver(fn func(index, total int)) Option {
	return func(s *Settings) {
		s.OnChunk = fn
	}
}

// Apply resolves opts on top of the handler's default chunk size
func Apply(defaultChunkSize int, opts ...Option) Settings {
	s := Settings{
		ChunkSize: defaultChunkSize,
		Workers:   1,
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// ChunkHook adapts the configured chunk observer to the engine callback and
// chains it after next. It returns nil when there is nothing to call.
func ChunkHook[T any](s Settings, next func(dataprocessing.Chunk[T])) func(dataprocessing.Chunk[T]) {
	if s.OnChunk == nil {
		return next
	}
	return func(chunk dataprocessing.Chunk[T]) {
		if next != nil {
			next(chunk)
		}
		s.OnChunk(chunk.Index, chunk.TotalChunks)
	}
}
