package runner

import (
	"context"
	"log/slog"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithObserver registers a callback run after every successful turn.
// Observers run in registration order on the caller's goroutine.
func WithObserver(fn func(ctx context.Context, res *Result)) Option {
	return func(r *Runner) {
		r.observers = append(r.observers, fn)
	}
}
