// Package janitor prunes idle sessions on a cron schedule.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	rcron "github.com/robfig/cron/v3"
)

// Pruner removes sessions idle for longer than maxIdle.
type Pruner interface {
	Prune(ctx context.Context, maxIdle time.Duration) (int, error)
}

// Janitor runs a Pruner on a schedule. Runs never overlap.
type Janitor struct {
	cron    *rcron.Cron
	pruner  Pruner
	idleTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Janitor.
type Option func(*Janitor)

// WithLogger sets a structured logger for the janitor.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Janitor) {
		j.logger = logger
	}
}

// New schedules pruner with a cron expression ("@every 5m", "*/10 * * * *").
func New(pruner Pruner, schedule string, idleTTL time.Duration, opts ...Option) (*Janitor, error) {
	if idleTTL <= 0 {
		return nil, fmt.Errorf("idle ttl must be positive, got %s", idleTTL)
	}
	j := &Janitor{
		pruner:  pruner,
		idleTTL: idleTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}

	logger := cronLogger{j.logger}
	j.cron = rcron.New(
		rcron.WithLogger(logger),
		rcron.WithChain(rcron.Recover(logger), rcron.SkipIfStillRunning(logger)),
	)
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins the schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running prune, or for ctx.
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce prunes immediately.
func (j *Janitor) RunOnce(ctx context.Context) (int, error) {
	removed, err := j.pruner.Prune(ctx, j.idleTTL)
	if err != nil {
		j.logger.Error("Session prune failed", "err", err, "removed", removed)
		return removed, err
	}
	if removed > 0 {
		j.logger.Info("Pruned idle sessions", "removed", removed, "idle_ttl", j.idleTTL)
	}
	return removed, nil
}

// cronLogger adapts slog to the cron logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"err", err}, keysAndValues...)...)
}
