// Package editor implements the mutation surface of the flow editor.
//
// Every operation is a pure transformation: it takes a Bot value, never mutates it,
// and returns a modified deep copy. Structural violations are rejected before any
// change is made. Referential integrity is not enforced here; see package validator.
package editor

import (
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// AddNode appends a default node and returns its id.
func AddNode(bot domain.Bot, gen IDGenerator) (domain.Bot, string) {
	out := bot.Clone()
	id := gen.NodeID()
	out.Nodes = append(out.Nodes, domain.Node{
		ID:            id,
		Title:         domain.DefaultNodeTitle,
		Message:       domain.DefaultNodeMessage,
		Output:        domain.Output{Type: domain.OutputOptions},
		OptionsSource: domain.SourceStatic,
		Options:       []domain.Option{},
	})
	return out, id
}

// DeleteNode removes a node. Options elsewhere that target it are left dangling.
func DeleteNode(bot domain.Bot, nodeID string) (domain.Bot, error) {
	idx := bot.NodeIndex(nodeID)
	if idx < 0 {
		return bot, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	if len(bot.Nodes) <= domain.MinNodesPerBot {
		return bot, domain.ErrMinimumNodeCount
	}

	out := bot.Clone()
	out.Nodes = append(out.Nodes[:idx], out.Nodes[idx+1:]...)
	return out, nil
}

// AddOption appends a default option to a node and returns its id.
func AddOption(bot domain.Bot, nodeID string, gen IDGenerator) (domain.Bot, string, error) {
	idx := bot.NodeIndex(nodeID)
	if idx < 0 {
		return bot, "", fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	if len(bot.Nodes[idx].Options) >= domain.MaxOptionsPerNode {
		return bot, "", domain.ErrMaxOptionsReached
	}

	out := bot.Clone()
	id := gen.OptionID()
	out.Nodes[idx].Options = append(out.Nodes[idx].Options, domain.Option{
		ID:         id,
		Label:      domain.DefaultOptionLabel,
		NextNodeID: "",
		ActionType: domain.ActionNormal,
	})
	return out, id, nil
}

// DeleteOption removes an option from a node.
func DeleteOption(bot domain.Bot, nodeID, optionID string) (domain.Bot, error) {
	idx, optIdx, err := locateOption(&bot, nodeID, optionID)
	if err != nil {
		return bot, err
	}

	out := bot.Clone()
	opts := out.Nodes[idx].Options
	out.Nodes[idx].Options = append(opts[:optIdx], opts[optIdx+1:]...)
	return out, nil
}

// SetExecutorType replaces a node's executor with a freshly defaulted one.
// The previous configuration is discarded, never merged.
func SetExecutorType(bot domain.Bot, nodeID string, t domain.ExecutorType) (domain.Bot, error) {
	idx := bot.NodeIndex(nodeID)
	if idx < 0 {
		return bot, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	t, err := domain.ParseExecutorType(string(t))
	if err != nil {
		return bot, err
	}

	out := bot.Clone()
	out.Nodes[idx].Executor = domain.NewExecutor(t)
	return out, nil
}

func locateOption(bot *domain.Bot, nodeID, optionID string) (int, int, error) {
	idx := bot.NodeIndex(nodeID)
	if idx < 0 {
		return -1, -1, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	for i, o := range bot.Nodes[idx].Options {
		if o.ID == optionID {
			return idx, i, nil
		}
	}
	return -1, -1, fmt.Errorf("%w: %s/%s", domain.ErrOptionNotFound, nodeID, optionID)
}
