package runtime

import (
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// DefaultEndMessage is shown when a session ends at a node that is not terminal.
const DefaultEndMessage = "Conversation ended."

// Render calculates the turn response for a state without advancing it.
func (e *Engine) Render(bot *domain.Bot, state *domain.State) (domain.Turn, error) {
	if state == nil {
		return domain.Turn{}, domain.ErrSessionNotFound
	}
	if state.Status == domain.StatusAwaitingStart {
		return domain.Turn{}, ErrNotStarted
	}

	node, ok := bot.FindNode(state.CurrentNodeID)
	if state.Status == domain.StatusEnded {
		return e.renderEnd(node, ok, state), nil
	}
	if !ok {
		return domain.Turn{}, fmt.Errorf("current node %s: %w", state.CurrentNodeID, domain.ErrNodeNotFound)
	}

	if state.Status == domain.StatusAwaitingInput {
		cfg := inputConfig(node)
		return domain.Turn{
			Type:        domain.TurnInput,
			Node:        turnNode(node, state),
			InputConfig: &domain.TurnInputConfig{RetryLimit: cfg.RetryLimit, Type: cfg.Type},
			Options:     affordances(node, state, 0),
			Notice:      state.Notice,
		}, nil
	}

	if node.Output.Type == domain.OutputText {
		back, end := canGoBack(node, state), node.Output.EndEnabled()
		return domain.Turn{
			Type:    domain.TurnText,
			Text:    nodeText(node, state),
			Options: affordances(node, state, 0),
			Back:    back,
			End:     end,
			Notice:  state.Notice,
		}, nil
	}

	var options []domain.TurnOption
	if node.IsDynamic() {
		for i, g := range state.Generated {
			options = append(options, domain.TurnOption{OptionID: g.ID, Intent: g.Label, Order: i + 1})
		}
	} else {
		for i, opt := range node.Options {
			label := opt.Label
			if label == "" {
				label = domain.FallbackOptionLabel
			}
			to := domain.TurnOption{OptionID: opt.ID, Intent: label, Order: i + 1}
			if !opt.IsNavigation() {
				to.ActionType = opt.ActionType
			}
			options = append(options, to)
		}
	}
	options = append(options, affordances(node, state, len(options))...)

	return domain.Turn{
		Type:           domain.TurnOptions,
		Node:           turnNode(node, state),
		Options:        options,
		IsAPIGenerated: node.IsDynamic(),
		Notice:         state.Notice,
	}, nil
}

func (e *Engine) renderEnd(node *domain.Node, found bool, state *domain.State) domain.Turn {
	text := DefaultEndMessage
	if found && node.IsTerminal() {
		text = nodeText(node, state)
	}
	return domain.Turn{
		Type:         domain.TurnText,
		Text:         text,
		Options:      []domain.TurnOption{},
		SessionEnded: true,
		Notice:       state.Notice,
	}
}

func turnNode(node *domain.Node, state *domain.State) *domain.TurnNode {
	tn := &domain.TurnNode{
		ID:      node.ID,
		Title:   node.Title,
		Message: interpolate(node.Message, state.Context),
		Output:  node.Output,
	}
	if node.Executor != nil {
		tn.Executor = node.Executor.Type
	}
	return tn
}

// nodeText is the custom text of a node, or its message.
func nodeText(node *domain.Node, state *domain.State) string {
	if node.Output.CustomText != "" {
		return interpolate(node.Output.CustomText, state.Context)
	}
	return interpolate(node.Message, state.Context)
}

func canGoBack(node *domain.Node, state *domain.State) bool {
	return node.Output.BackEnabled() && state.CanGoBack()
}

// affordances are the runtime-injected back/end options, numbered after offset.
func affordances(node *domain.Node, state *domain.State, offset int) []domain.TurnOption {
	var out []domain.TurnOption
	if canGoBack(node, state) {
		offset++
		out = append(out, domain.TurnOption{
			OptionID:   domain.BackOptionID,
			Intent:     domain.BackOptionLabel,
			Order:      offset,
			ActionType: domain.ActionBack,
		})
	}
	if node.Output.EndEnabled() {
		offset++
		out = append(out, domain.TurnOption{
			OptionID:   domain.EndOptionID,
			Intent:     domain.EndOptionLabel,
			Order:      offset,
			ActionType: domain.ActionEnd,
		})
	}
	return out
}
