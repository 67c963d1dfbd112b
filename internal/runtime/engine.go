package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
)

var _ ports.StatelessEngine = (*Engine)(nil)

// Engine is the conversation state machine interpreter.
// It holds no session state: every call takes a State and returns a new one.
type Engine struct {
	api            ports.APIExecutor
	apiTimeout     time.Duration
	retryPolicy    RetryPolicy
	fallbackNodeID string
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithAPIExecutor sets the executor used by api nodes.
func WithAPIExecutor(api ports.APIExecutor) Option {
	return func(e *Engine) {
		e.api = api
	}
}

// WithAPITimeout bounds every api executor call.
func WithAPITimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.apiTimeout = d
	}
}

// WithRetryPolicy sets what happens when an input node runs out of retries.
// The fallback node is only used by RetryFallback.
func WithRetryPolicy(policy RetryPolicy, fallbackNodeID string) Option {
	return func(e *Engine) {
		e.retryPolicy = policy
		e.fallbackNodeID = fallbackNodeID
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a new engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		retryPolicy: RetryEnd,
		logger:      logging.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start moves a fresh session to the bot's entry node.
// Starting an already started session returns it unchanged.
func (e *Engine) Start(ctx context.Context, bot *domain.Bot, state *domain.State) (*domain.State, error) {
	if state == nil {
		return nil, domain.ErrSessionNotFound
	}
	if state.Status != domain.StatusAwaitingStart {
		return state.Snapshot(), nil
	}

	entry, ok := bot.EntryNode()
	if !ok {
		return nil, fmt.Errorf("bot %s: %w", bot.ID, domain.ErrMalformedGraph)
	}

	next := state.Snapshot()
	next.BotID = bot.ID
	if next.Context == nil {
		next.Context = make(map[string]any)
	}
	if err := e.enter(ctx, bot, next, entry.ID, true); err != nil {
		return nil, err
	}
	e.logger.Debug("session started", "session_id", next.SessionID, "bot_id", bot.ID, "node_id", entry.ID)
	return next, nil
}

// enter makes nodeID the current node of state, running its executor.
// push is false when returning to a node already on the history stack.
func (e *Engine) enter(ctx context.Context, bot *domain.Bot, state *domain.State, nodeID string, push bool) error {
	node, ok := bot.FindNode(nodeID)
	if !ok {
		return fmt.Errorf("enter %s: %w", nodeID, domain.ErrNodeNotFound)
	}

	state.CurrentNodeID = node.ID
	if push {
		state.History = append(state.History, node.ID)
	}
	state.Retries = 0
	state.Generated = nil
	state.Notice = ""
	state.UpdatedAt = e.now().UTC()

	e.emitNodeEnter(ctx, state, node)

	if node.Executor != nil && node.Executor.Type == domain.ExecutorAPI {
		resp, err := e.callAPI(ctx, state, node)
		if err != nil {
			return err
		}
		state.Context[node.ID] = resp
		if node.IsDynamic() {
			generated, err := generateOptions(node, resp)
			if err != nil {
				return err
			}
			state.Generated = generated
		}
	}

	switch {
	case node.IsTerminal():
		state.Status = domain.StatusEnded
		e.emitSessionEnd(ctx, state, node)
	case node.IsInput():
		state.Status = domain.StatusAwaitingInput
	default:
		state.Status = domain.StatusAtNode
	}
	return nil
}

// callAPI runs the api executor of node with templated params.
func (e *Engine) callAPI(ctx context.Context, state *domain.State, node *domain.Node) (any, error) {
	cfg := node.Executor.API
	if cfg == nil || cfg.Endpoint == "" {
		return nil, &UnhandledExecutorError{NodeID: node.ID, Executor: domain.ExecutorAPI, Cause: "no endpoint configured"}
	}
	if cfg.Method != "" && cfg.Method != domain.MethodGET {
		return nil, fmt.Errorf("node %s: %w", node.ID, domain.ErrMethodNotAllowed)
	}
	if e.api == nil {
		return nil, &UnhandledExecutorError{NodeID: node.ID, Executor: domain.ExecutorAPI, Cause: "no api executor configured"}
	}

	call := *cfg
	call.Method = domain.MethodGET
	call.Endpoint = interpolate(cfg.Endpoint, state.Context)
	call.Params = make([]domain.Param, len(cfg.Params))
	for i, p := range cfg.Params {
		call.Params[i] = domain.Param{Key: p.Key, Value: interpolate(p.Value, state.Context)}
	}

	if e.apiTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.apiTimeout)
		defer cancel()
	}

	started := e.now()
	resp, err := e.api.Fetch(ctx, call)
	e.emitExecutor(ctx, state, node, e.now().Sub(started), err != nil)
	if err != nil {
		e.logger.Warn("api executor failed", "node_id", node.ID, "endpoint", call.Endpoint, "err", err)
		return nil, &UnhandledExecutorError{NodeID: node.ID, Executor: domain.ExecutorAPI, Cause: err.Error(), Err: err}
	}
	return resp, nil
}
