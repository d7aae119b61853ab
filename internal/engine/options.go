package engine

import (
	"log/slog"
	"time"

	"github.com/iudanet/offsync/internal/conflict"
	"github.com/iudanet/offsync/internal/models"
	"github.com/iudanet/offsync/internal/queue"
)

// Option configures an Engine.
type Option func(*Engine)

// WithQueue replaces the default operation queue.
func WithQueue(q *queue.Queue) Option {
	return func(e *Engine) {
		e.queue = q
	}
}

// WithResolver replaces the default conflict resolver.
func WithResolver(r *conflict.Resolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithStrategy sets the strategy used for conflicts detected during sync.
func WithStrategy(s models.Strategy) Option {
	return func(e *Engine) {
		if s.Valid() {
			e.strategy = s
		}
	}
}

// WithMaxRetries bounds RetryOperation per operation.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithApplier sets the host store receiving remote and resolved entities.
func WithApplier(a Applier) Option {
	return func(e *Engine) {
		e.applier = a
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLastSyncTime restores the time of the last successful pull so the
// next pull can be a delta.
func WithLastSyncTime(t time.Time) Option {
	return func(e *Engine) {
		if !t.IsZero() {
			e.lastSync = &t
		}
	}
}
