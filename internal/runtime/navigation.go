package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/schema"
)

// Notices shown on the next render after a retry-policy decision.
const (
	NoticeRetriesExhausted = "Too many invalid attempts."
	NoticeTryAgain         = "Let's try that again."
)

// Navigate progresses the session with an option id or a free-form submission.
// At an input node every non-empty input is a submission, reserved option ids
// included; use Control for the back and end affordances there.
// On error the given state is untouched and remains the current state.
func (e *Engine) Navigate(ctx context.Context, bot *domain.Bot, state *domain.State, input string) (*domain.State, error) {
	node, started, err := e.current(ctx, bot, state)
	if err != nil || started != nil {
		return started, err
	}

	input = strings.TrimSpace(input)
	if input == "" {
		// Re-render without transitioning.
		next := state.Snapshot()
		next.Notice = ""
		return next, nil
	}

	if state.Status == domain.StatusAwaitingInput {
		return e.submit(ctx, bot, state, node, input)
	}

	switch input {
	case domain.BackOptionID:
		return e.back(ctx, bot, state, node)
	case domain.EndOptionID:
		return e.end(ctx, state, node)
	}
	return e.choose(ctx, bot, state, node, input)
}

// Control applies a back or end affordance at the current node, whether it
// waits for an option or for free-form input.
func (e *Engine) Control(ctx context.Context, bot *domain.Bot, state *domain.State, action domain.ActionType) (*domain.State, error) {
	node, started, err := e.current(ctx, bot, state)
	if err != nil || started != nil {
		return started, err
	}

	switch action {
	case domain.ActionBack:
		return e.back(ctx, bot, state, node)
	case domain.ActionEnd:
		return e.end(ctx, state, node)
	}
	return nil, fmt.Errorf("%w: control '%s' at node '%s'", domain.ErrUnknownOption, action, node.ID)
}

// current resolves the node a session waits at. A session awaiting start is
// started instead and returned as started.
func (e *Engine) current(ctx context.Context, bot *domain.Bot, state *domain.State) (node *domain.Node, started *domain.State, err error) {
	if state == nil {
		return nil, nil, domain.ErrSessionNotFound
	}
	switch state.Status {
	case domain.StatusEnded:
		return nil, nil, domain.ErrSessionEnded
	case domain.StatusAwaitingStart:
		started, err = e.Start(ctx, bot, state)
		return nil, started, err
	}

	node, ok := bot.FindNode(state.CurrentNodeID)
	if !ok {
		return nil, nil, fmt.Errorf("current node %s: %w", state.CurrentNodeID, domain.ErrNodeNotFound)
	}
	return node, nil, nil
}

// choose follows the option (authored or generated) selected at an options node.
func (e *Engine) choose(ctx context.Context, bot *domain.Bot, state *domain.State, node *domain.Node, optionID string) (*domain.State, error) {
	for _, g := range state.Generated {
		if g.ID != optionID {
			continue
		}
		return e.transition(ctx, bot, state, node, g.ID, g.NextNodeID, func(next *domain.State) {
			if g.Value != nil {
				next.Context[SelectedKey] = g.Value
			} else {
				next.Context[SelectedKey] = g.Label
			}
		})
	}

	opt, ok := node.FindOption(optionID)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' at node '%s'", domain.ErrUnknownOption, optionID, node.ID)
	}
	switch opt.ActionType {
	case domain.ActionBack:
		return e.back(ctx, bot, state, node)
	case domain.ActionEnd:
		return e.end(ctx, state, node)
	}
	return e.transition(ctx, bot, state, node, opt.ID, opt.NextNodeID, nil)
}

// submit validates free-form input at an input node.
func (e *Engine) submit(ctx context.Context, bot *domain.Bot, state *domain.State, node *domain.Node, raw string) (*domain.State, error) {
	value, err := e.parseInput(ctx, state, node, raw)
	if err != nil {
		var rejected *InputValidationError
		if !errors.As(err, &rejected) {
			return nil, err
		}
		return e.reject(ctx, bot, state, node, rejected)
	}

	key := inputConfig(node).Key
	return e.transition(ctx, bot, state, node, "", node.InputNextNodeID, func(next *domain.State) {
		next.Context[key] = value
	})
}

// parseInput checks raw against the node's input constraint.
// Rejections are returned as *InputValidationError.
func (e *Engine) parseInput(ctx context.Context, state *domain.State, node *domain.Node, raw string) (any, error) {
	cfg := inputConfig(node)
	in, err := schema.CompileInput(cfg.Key, string(cfg.Type), cfg.Validation)
	if err != nil {
		return nil, &UnhandledExecutorError{NodeID: node.ID, Executor: domain.ExecutorInput, Cause: err.Error(), Err: err}
	}

	value, err := in.Parse(raw)
	e.emitExecutor(ctx, state, node, 0, err != nil)
	if err == nil {
		return value, nil
	}

	reason := err.Error()
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		reason = verr.Reason
	}
	return nil, &InputValidationError{
		NodeID:    node.ID,
		Reason:    reason,
		Remaining: max(cfg.RetryLimit-state.Retries, 0),
	}
}

// reject records a failed submission and applies the retry policy once the limit is exceeded.
func (e *Engine) reject(ctx context.Context, bot *domain.Bot, state *domain.State, node *domain.Node, rejected *InputValidationError) (*domain.State, error) {
	e.logger.Debug("input rejected", "node_id", node.ID, "reason", rejected.Reason, "remaining", rejected.Remaining)

	next := state.Snapshot()
	next.Retries++
	next.Notice = rejected.Reason
	next.UpdatedAt = e.now().UTC()

	if next.Retries <= inputConfig(node).RetryLimit {
		return next, nil
	}

	e.logger.Debug("input retries exhausted", "session_id", state.SessionID, "node_id", node.ID, "policy", e.retryPolicy)

	switch e.retryPolicy {
	case RetryReprompt:
		next.Retries = 0
		next.Notice = NoticeTryAgain
		return next, nil
	case RetryFallback:
		if e.fallbackNodeID != "" && bot.HasNode(e.fallbackNodeID) {
			e.emitNodeLeave(ctx, next, node)
			if err := e.enter(ctx, bot, next, e.fallbackNodeID, true); err != nil {
				return nil, err
			}
			next.Notice = NoticeRetriesExhausted
			return next, nil
		}
		e.logger.Warn("fallback node missing, ending session", "fallback_node_id", e.fallbackNodeID)
	}

	e.emitNodeLeave(ctx, next, node)
	next.Status = domain.StatusEnded
	next.Notice = NoticeRetriesExhausted
	e.emitSessionEnd(ctx, next, node)
	return next, nil
}

// transition leaves node and enters target. apply mutates the new state before entering.
func (e *Engine) transition(ctx context.Context, bot *domain.Bot, state *domain.State, node *domain.Node, optionID, target string, apply func(*domain.State)) (*domain.State, error) {
	if target == "" || !bot.HasNode(target) {
		return nil, &domain.DanglingReferenceError{NodeID: node.ID, OptionID: optionID, TargetID: target}
	}

	next := state.Snapshot()
	if apply != nil {
		apply(next)
	}
	e.emitNodeLeave(ctx, next, node)
	if err := e.enter(ctx, bot, next, target, true); err != nil {
		return nil, err
	}
	return next, nil
}

// back returns to the previous node on the history stack.
func (e *Engine) back(ctx context.Context, bot *domain.Bot, state *domain.State, node *domain.Node) (*domain.State, error) {
	if !node.Output.BackEnabled() || !state.CanGoBack() {
		return nil, fmt.Errorf("%w: back is not available at node '%s'", domain.ErrUnknownOption, node.ID)
	}

	next := state.Snapshot()
	next.History = next.History[:len(next.History)-1]
	previous := next.History[len(next.History)-1]
	if !bot.HasNode(previous) {
		return nil, &domain.DanglingReferenceError{NodeID: node.ID, OptionID: domain.BackOptionID, TargetID: previous}
	}

	e.emitNodeLeave(ctx, next, node)
	if err := e.enter(ctx, bot, next, previous, false); err != nil {
		return nil, err
	}
	return next, nil
}

// end terminates the session from node.
func (e *Engine) end(ctx context.Context, state *domain.State, node *domain.Node) (*domain.State, error) {
	if !node.Output.EndEnabled() {
		return nil, fmt.Errorf("%w: end is not available at node '%s'", domain.ErrUnknownOption, node.ID)
	}

	next := state.Snapshot()
	next.Status = domain.StatusEnded
	next.Notice = ""
	next.UpdatedAt = e.now().UTC()
	e.emitNodeLeave(ctx, next, node)
	e.emitSessionEnd(ctx, next, node)
	return next, nil
}

// inputConfig returns the node's input config, defaulted when absent.
func inputConfig(node *domain.Node) domain.InputConfig {
	if node.Executor != nil && node.Executor.Input != nil {
		cfg := *node.Executor.Input
		if cfg.Key == "" {
			cfg.Key = domain.DefaultInputKey
		}
		if cfg.Type == "" {
			cfg.Type = domain.InputText
		}
		return cfg
	}
	return *domain.NewExecutor(domain.ExecutorInput).Input
}
