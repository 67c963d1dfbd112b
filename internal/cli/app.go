// Package cli assembles the application from configuration. Commands under
// cmd/tendril stay thin and delegate here.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/aretw0/tendril/internal/config"
	"github.com/aretw0/tendril/internal/janitor"
	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/adapters/apicall"
	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/adapters/postgres"
	"github.com/aretw0/tendril/pkg/adapters/redis"
	"github.com/aretw0/tendril/pkg/apikey"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/metrics"
	"github.com/aretw0/tendril/pkg/persistence/middleware"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/session"
)

// App holds the wired components.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Repo   ports.BotRepository
	// Store is the session store, wrapped with the configured privacy middleware.
	Store    ports.StateStore
	Sessions *session.Manager
	Engine   *runtime.Engine
	Runner   *runner.Runner
	Metrics  *metrics.Metrics
	// Keys is nil when no auth secret is configured.
	Keys *apikey.Keys

	pruner  janitor.Pruner
	closers []func() error
}

// BuildOption tweaks the assembly.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logger  *slog.Logger
	debug   bool
	fetcher ports.APIExecutor
}

// WithLogger overrides the logger built from cfg.Log.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

// WithDebugHooks logs every lifecycle event at debug level.
func WithDebugHooks(enabled bool) BuildOption {
	return func(o *buildOptions) {
		o.debug = enabled
	}
}

// WithAPIExecutor replaces the HTTP fetcher used by api nodes.
func WithAPIExecutor(api ports.APIExecutor) BuildOption {
	return func(o *buildOptions) {
		o.fetcher = api
	}
}

// Build wires the repository, session store, engine and runner described by cfg.
// Call Close when done.
func Build(ctx context.Context, cfg *config.Config, opts ...BuildOption) (*App, error) {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.Build(logging.Options{Level: cfg.Log.Level, Backend: cfg.Log.Backend, Format: cfg.Log.Format})
	}

	app := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}
	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}

	if err := app.buildRepository(ctx); err != nil {
		return fail(err)
	}
	if err := app.seed(ctx); err != nil {
		return fail(err)
	}
	locker, err := app.buildStore(ctx)
	if err != nil {
		return fail(err)
	}
	if err := app.protectStore(); err != nil {
		return fail(err)
	}

	if cfg.Auth.Secret != "" {
		keys, err := apikey.New(cfg.Auth.Secret, cfg.Auth.Issuer)
		if err != nil {
			return fail(err)
		}
		app.Keys = keys
	}

	policy, err := runtime.ParseRetryPolicy(cfg.Runtime.RetryPolicy)
	if err != nil {
		return fail(err)
	}
	fetcher := o.fetcher
	if fetcher == nil {
		fetcher = apicall.New(apicall.WithLogger(logger))
	}
	var hooks domain.LifecycleHooks
	if o.debug {
		hooks = debugHooks(logger)
	}
	app.Engine = runtime.NewEngine(
		runtime.WithAPIExecutor(fetcher),
		runtime.WithAPITimeout(cfg.Runtime.APITimeout),
		runtime.WithRetryPolicy(policy, cfg.Runtime.FallbackNode),
		runtime.WithLifecycleHooks(app.Metrics.Hooks(hooks)),
		runtime.WithLogger(logger),
	)

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(app.Store, sessionOpts...)
	app.Runner = runner.New(app.Repo, app.Engine, app.Sessions, runner.WithLogger(logger))

	logger.Debug("application assembled",
		"store", cfg.Store,
		"repository", cfg.Repository,
		"auth", app.Keys != nil,
		"retry_policy", policy,
	)
	return app, nil
}

func (a *App) buildRepository(ctx context.Context) error {
	switch a.Config.Repository {
	case "file":
		a.Repo = file.NewRepository(a.Config.File.BotsDir)
	case "postgres":
		db, err := postgres.Open(ctx, a.Config.Postgres.DSN, a.Config.Postgres.MaxOpenConns)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		repo, err := postgres.NewRepository(db, postgres.WithLogger(a.Logger))
		if err != nil {
			return err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		a.Repo = repo
	default:
		a.Repo = memory.NewRepository()
	}
	return nil
}

// seed loads the configured bot documents. A document without an id takes
// its file name.
func (a *App) seed(ctx context.Context) error {
	for _, path := range a.Config.Seed.Bots {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		bot, err := file.LoadDocument(path)
		if err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
		if bot.ID == "" {
			bot.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		if err := a.Repo.Save(ctx, bot); err != nil {
			return fmt.Errorf("seed %s: %w", path, err)
		}
		a.Logger.Info("bot seeded", "bot_id", bot.ID, "nodes", len(bot.Nodes))
	}
	return nil
}

func (a *App) buildStore(ctx context.Context) (ports.DistributedLocker, error) {
	switch a.Config.Store {
	case "redis":
		store, err := redis.NewFromURL(a.Config.Redis.URL,
			redis.WithPrefix(a.Config.Redis.Prefix),
			redis.WithTTL(a.Config.Redis.TTL),
		)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.Store = store
		return redis.NewLocker(store.Client(), a.Config.Redis.Prefix), nil
	case "file":
		a.Store = file.New(a.Config.File.SessionsDir)
	default:
		a.Store = memory.NewStore()
	}
	return nil, nil
}

// protectStore wraps the session store with redaction and encryption.
// Redaction runs first so masked values are sealed too.
func (a *App) protectStore() error {
	if pruner, ok := a.Store.(janitor.Pruner); ok {
		a.pruner = pruner
	}

	var mws []middleware.Middleware
	if len(a.Config.Privacy.RedactKeys) > 0 {
		mw, err := middleware.NewRedactMiddleware(a.Config.Privacy.RedactKeys)
		if err != nil {
			return err
		}
		mws = append(mws, mw)
	}
	if a.Config.Privacy.EncryptionKey != "" {
		keys, err := middleware.ParseKeys(a.Config.Privacy.EncryptionKey, a.Config.Privacy.FallbackKeys...)
		if err != nil {
			return err
		}
		mw, err := middleware.NewEncryptionMiddleware(keys)
		if err != nil {
			return err
		}
		mws = append(mws, mw)
	}
	a.Store = middleware.Chain(a.Store, mws...)
	return nil
}

// Janitor returns the idle-session pruner for the configured store, or nil
// when the store expires sessions on its own.
func (a *App) Janitor() (*janitor.Janitor, error) {
	if a.pruner == nil {
		return nil, nil
	}
	return janitor.New(a.pruner, a.Config.Janitor.Schedule, a.Config.Janitor.IdleTTL, janitor.WithLogger(a.Logger))
}

// HTTPServer builds the http.Server serving handler on the configured address.
func (a *App) HTTPServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         a.Config.Server.Addr,
		Handler:      handler,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Close releases database and redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Enter Node", "session_id", e.SessionID, "node_id", e.NodeID, "output", e.OutputType)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Leave Node", "session_id", e.SessionID, "node_id", e.NodeID)
		},
		OnExecutor: func(ctx context.Context, e *domain.ExecutorEvent) {
			logger.Debug("Executor", "node_id", e.NodeID, "executor", e.Executor, "duration", e.Duration, "error", e.IsError)
		},
		OnSessionEnd: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("Session End", "session_id", e.SessionID, "node_id", e.NodeID)
		},
	}
}
