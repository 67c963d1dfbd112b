package tendril

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/presentation/graph"
	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/adapters/apicall"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/runner"
	"github.com/aretw0/tendril/pkg/session"
	"github.com/aretw0/tendril/pkg/validator"
)

// Version is the release of the library and CLI. Overridden at build time with
// -ldflags "-X github.com/aretw0/tendril.Version=...".
var Version = "dev"

// Engine is the high-level entry point for the Tendril library.
// It wires a bot repository, a session store and the conversation runtime.
type Engine struct {
	repo     ports.BotRepository
	store    ports.StateStore
	api      ports.APIExecutor
	locker   ports.DistributedLocker
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	policy   string
	fallback string

	runtime  *runtime.Engine
	sessions *session.Manager
	runner   *runner.Runner
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithRepository sets where bots are stored (default: in memory).
func WithRepository(repo ports.BotRepository) Option {
	return func(e *Engine) {
		e.repo = repo
	}
}

// WithStateStore sets where sessions are stored (default: in memory).
func WithStateStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithDistributedLocker serializes turns of a session across processes.
func WithDistributedLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithAPIExecutor replaces the HTTP fetcher used by api nodes.
func WithAPIExecutor(api ports.APIExecutor) Option {
	return func(e *Engine) {
		e.api = api
	}
}

// WithRetryPolicy chooses what happens when an input node exhausts its retries:
// "end" (default), "reprompt" or "fallback" to fallbackNodeID.
func WithRetryPolicy(policy, fallbackNodeID string) Option {
	return func(e *Engine) {
		e.policy = policy
		e.fallback = fallbackNodeID
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New initializes a new Tendril Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.repo == nil {
		eng.repo = memory.NewRepository()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.api == nil {
		eng.api = apicall.New(apicall.WithLogger(eng.logger))
	}

	policy, err := runtime.ParseRetryPolicy(eng.policy)
	if err != nil {
		return nil, err
	}
	if policy == runtime.RetryFallback && eng.fallback == "" {
		return nil, fmt.Errorf("fallback retry policy requires a fallback node")
	}

	eng.runtime = runtime.NewEngine(
		runtime.WithAPIExecutor(eng.api),
		runtime.WithRetryPolicy(policy, eng.fallback),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
	)

	sessionOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)
	eng.runner = runner.New(eng.repo, eng.runtime, eng.sessions, runner.WithLogger(eng.logger))
	return eng, nil
}

// Import normalizes a server-format document (JSON, optionally wrapped in a load
// response) and saves it. Structural errors reject the document; the returned
// report carries the integrity warnings.
func (e *Engine) Import(ctx context.Context, document []byte) (*domain.Bot, validator.Report, error) {
	bot, err := codec.DecodeJSON(document)
	if err != nil {
		return nil, validator.Report{}, err
	}
	return e.Save(ctx, bot)
}

// Save validates and stores bot.
func (e *Engine) Save(ctx context.Context, bot *domain.Bot) (*domain.Bot, validator.Report, error) {
	if bot.ID == "" {
		return nil, validator.Report{}, fmt.Errorf("bot missing ID")
	}
	report := validator.Check(bot)
	if err := report.Err(); err != nil {
		return nil, report, err
	}
	if err := e.repo.Save(ctx, bot); err != nil {
		return nil, report, err
	}
	return bot, report, nil
}

// Bot returns a stored bot.
func (e *Engine) Bot(ctx context.Context, botID string) (*domain.Bot, error) {
	return e.repo.Get(ctx, botID)
}

// Export returns the stored bot in the server format.
func (e *Engine) Export(ctx context.Context, botID string) (map[string]any, error) {
	bot, err := e.repo.Get(ctx, botID)
	if err != nil {
		return nil, err
	}
	return codec.Serialize(bot), nil
}

// Validate runs the integrity check on a stored bot.
func (e *Engine) Validate(ctx context.Context, botID string) (validator.Report, error) {
	bot, err := e.repo.Get(ctx, botID)
	if err != nil {
		return validator.Report{}, err
	}
	return validator.Check(bot), nil
}

// Graph renders a stored bot as a Mermaid diagram, flagging nodes with issues.
func (e *Engine) Graph(ctx context.Context, botID string) (string, error) {
	bot, err := e.repo.Get(ctx, botID)
	if err != nil {
		return "", err
	}
	overlay := &graph.GraphOverlay{FlaggedNodes: validator.Check(bot).NodeIDs()}
	return graph.GenerateMermaid(bot, overlay), nil
}

// Turn advances a conversation. An empty sessionID starts a new session.
func (e *Engine) Turn(ctx context.Context, botID, sessionID, input string) (*runner.Result, error) {
	return e.runner.Turn(ctx, botID, sessionID, input)
}

// Act applies the back or end control to a conversation.
func (e *Engine) Act(ctx context.Context, botID, sessionID string, action domain.ActionType) (*runner.Result, error) {
	return e.runner.Act(ctx, botID, sessionID, action)
}

// Run drives a whole conversation through handler.
func (e *Engine) Run(ctx context.Context, botID, sessionID string, handler runner.IOHandler) (string, error) {
	return e.runner.Run(ctx, botID, sessionID, handler)
}

// Start enters the first node of bot. Start, Navigate and Render serve hosts
// that keep session state themselves.
func (e *Engine) Start(ctx context.Context, bot *domain.Bot, state *domain.State) (*domain.State, error) {
	return e.runtime.Start(ctx, bot, state)
}

// Navigate applies one input to state and returns the next state.
func (e *Engine) Navigate(ctx context.Context, bot *domain.Bot, state *domain.State, input string) (*domain.State, error) {
	return e.runtime.Navigate(ctx, bot, state, input)
}

// Control applies the back or end affordance to state.
func (e *Engine) Control(ctx context.Context, bot *domain.Bot, state *domain.State, action domain.ActionType) (*domain.State, error) {
	return e.runtime.Control(ctx, bot, state, action)
}

// Render builds the turn shown for state.
func (e *Engine) Render(bot *domain.Bot, state *domain.State) (domain.Turn, error) {
	return e.runtime.Render(bot, state)
}

// Runner returns the session-aware runner.
func (e *Engine) Runner() *runner.Runner {
	return e.runner
}

// Sessions returns the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Repository returns the bot repository.
func (e *Engine) Repository() ports.BotRepository {
	return e.repo
}
