package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/internal/runtime"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/aretw0/tendril/pkg/session"
)

// Result is the outcome of one conversation turn.
type Result struct {
	SessionID string
	BotID     string
	// Created reports whether the session was minted by this turn.
	Created bool
	State   *domain.State
	Turn    domain.Turn
	// Diff is the state change caused by the turn, nil when nothing changed.
	Diff *domain.StateDiff
}

// Runner runs conversation turns against stored bots and sessions.
type Runner struct {
	repo      ports.BotRepository
	engine    ports.StatelessEngine
	sessions  *session.Manager
	observers []func(ctx context.Context, res *Result)
	logger    *slog.Logger
}

// New creates a Runner.
func New(repo ports.BotRepository, engine ports.StatelessEngine, sessions *session.Manager, opts ...Option) *Runner {
	r := &Runner{
		repo:     repo,
		engine:   engine,
		sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sessions returns the session manager the runner persists through.
func (r *Runner) Sessions() *session.Manager {
	return r.sessions
}

// Turn runs one transition and renders the next turn.
//
// An empty sessionID mints and starts a new session. A given sessionID must exist
// and belong to botID, otherwise domain.ErrSessionNotFound is returned.
// When the transition fails the stored session is unchanged.
func (r *Runner) Turn(ctx context.Context, botID, sessionID, input string) (*Result, error) {
	clean, err := SanitizeInput(input)
	if err != nil {
		return nil, err
	}
	return r.step(ctx, botID, sessionID, func(ctx context.Context, bot *domain.Bot, state *domain.State) (*domain.State, error) {
		return r.engine.Navigate(ctx, bot, state, clean)
	})
}

// Act applies the back or end control to a session and renders the next turn.
// Session handling is the same as Turn.
func (r *Runner) Act(ctx context.Context, botID, sessionID string, action domain.ActionType) (*Result, error) {
	return r.step(ctx, botID, sessionID, func(ctx context.Context, bot *domain.Bot, state *domain.State) (*domain.State, error) {
		return r.engine.Control(ctx, bot, state, action)
	})
}

// Answer dispatches a reply to Act or Turn.
func (r *Runner) Answer(ctx context.Context, botID, sessionID string, reply Reply) (*Result, error) {
	if reply.Action != "" {
		return r.Act(ctx, botID, sessionID, reply.Action)
	}
	return r.Turn(ctx, botID, sessionID, reply.Input)
}

type transitionFunc func(ctx context.Context, bot *domain.Bot, state *domain.State) (*domain.State, error)

func (r *Runner) step(ctx context.Context, botID, sessionID string, move transitionFunc) (*Result, error) {
	bot, err := r.repo.Get(ctx, botID)
	if err != nil {
		return nil, err
	}

	res := &Result{BotID: botID, SessionID: sessionID}
	if sessionID == "" {
		state, _, err := r.sessions.LoadOrStart(ctx, "", botID)
		if err != nil {
			return nil, err
		}
		res.SessionID, res.Created = state.SessionID, true
		r.logger.Info("Session created", "session_id", res.SessionID, "bot_id", botID)
	}

	var before *domain.State
	next, err := r.sessions.Update(ctx, res.SessionID, func(ctx context.Context, state *domain.State) (*domain.State, error) {
		if state.BotID != botID {
			return nil, fmt.Errorf("session %s belongs to another bot: %w", res.SessionID, domain.ErrSessionNotFound)
		}
		before = state
		return move(ctx, bot, state)
	})
	if err != nil {
		r.logger.Debug("Turn rejected", "session_id", res.SessionID, "bot_id", botID, "err", err)
		return nil, err
	}

	turn, err := r.engine.Render(bot, next)
	if err != nil {
		return nil, fmt.Errorf("render error: %w", err)
	}

	res.State = next
	res.Turn = turn
	res.Diff = domain.Diff(before, next)
	for _, observe := range r.observers {
		observe(ctx, res)
	}
	return res, nil
}

// Run drives an interactive conversation until it ends or input is exhausted.
// It returns the session id so the conversation can be resumed later.
// Typing "exit" or "quit" stops the loop; rejected answers are reported and asked again.
func (r *Runner) Run(ctx context.Context, botID, sessionID string, handler IOHandler) (string, error) {
	res, err := r.Turn(ctx, botID, sessionID, "")
	if err != nil {
		return sessionID, err
	}

	for {
		if err := handler.Output(ctx, res.Turn); err != nil {
			return res.SessionID, fmt.Errorf("output error: %w", err)
		}
		if res.Turn.SessionEnded {
			return res.SessionID, nil
		}

		next, err := r.answer(ctx, res, handler)
		if errors.Is(err, io.EOF) {
			return res.SessionID, nil
		}
		if err != nil {
			return res.SessionID, err
		}
		res = next
	}
}

// answer reads input until a turn succeeds.
func (r *Runner) answer(ctx context.Context, res *Result, handler IOHandler) (*Result, error) {
	for {
		reply, err := handler.Input(ctx)
		if err != nil {
			return nil, err
		}
		if cmd := strings.ToLower(strings.TrimSpace(reply.Input)); reply.Action == "" && (cmd == "exit" || cmd == "quit") {
			return nil, io.EOF
		}

		next, err := r.Answer(ctx, res.BotID, res.SessionID, reply)
		if err == nil {
			return next, nil
		}
		if !Recoverable(err) {
			return nil, err
		}
		if err := handler.SystemOutput(ctx, err.Error()); err != nil {
			return nil, err
		}
	}
}

// Recoverable reports whether a turn error leaves the conversation usable,
// so the same node can be answered again.
func Recoverable(err error) bool {
	var execErr *runtime.UnhandledExecutorError
	return errors.Is(err, domain.ErrUnknownOption) ||
		errors.Is(err, domain.ErrDanglingReference) ||
		errors.Is(err, domain.ErrMethodNotAllowed) ||
		errors.Is(err, ErrInputTooLarge) ||
		errors.Is(err, ErrInvalidUTF8) ||
		errors.As(err, &execErr)
}
