package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/tendril/internal/logging"
	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/validator"
)

// Saver persists the serialized bot through the "set config" endpoint or a repository.
type Saver interface {
	SaveConfig(ctx context.Context, botID string, payload map[string]any) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, botID string, payload map[string]any) error

func (f SaverFunc) SaveConfig(ctx context.Context, botID string, payload map[string]any) error {
	return f(ctx, botID, payload)
}

// Editor holds a loaded bot together with the editing context: the selected
// node and option and whether there are unsaved changes.
// An Editor is owned by a single author and is not safe for concurrent use.
type Editor struct {
	bot domain.Bot

	selectedNode   string
	selectedOption string
	dirty          bool

	gen    IDGenerator
	logger *slog.Logger
}

// Option configures the Editor.
type Option func(*Editor)

// WithIDGenerator overrides the default timestamp-based generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(e *Editor) {
		e.gen = gen
	}
}

// WithLogger configures a logger for save diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// Open starts an editing session from the result of a load.
// Loads that failed as not found or malformed block the editor; a stub is never
// synthesized over real but unparsed data.
func Open(bot *domain.Bot, loadErr error, opts ...Option) (*Editor, error) {
	if loadErr != nil {
		if errors.Is(loadErr, domain.ErrMalformedGraph) || errors.Is(loadErr, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", domain.ErrMalformedGraph, loadErr)
		}
		return nil, loadErr
	}
	if bot == nil || len(bot.Nodes) == 0 {
		return nil, domain.ErrMalformedGraph
	}

	e := &Editor{
		bot:    bot.Clone(),
		gen:    NewTimestampGenerator(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.selectedNode = e.bot.Nodes[0].ID
	return e, nil
}

// Bot returns a copy of the current bot.
func (e *Editor) Bot() domain.Bot {
	return e.bot.Clone()
}

// Dirty reports whether there are unsaved changes.
func (e *Editor) Dirty() bool {
	return e.dirty
}

// Selection returns the selected node and option ids.
func (e *Editor) Selection() (nodeID, optionID string) {
	return e.selectedNode, e.selectedOption
}

// Select moves the selection to a node, clearing the option selection.
func (e *Editor) Select(nodeID string) error {
	if !e.bot.HasNode(nodeID) {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	e.selectedNode = nodeID
	e.selectedOption = ""
	return nil
}

// SelectOption selects an option of the selected node.
func (e *Editor) SelectOption(optionID string) error {
	n, ok := e.bot.FindNode(e.selectedNode)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, e.selectedNode)
	}
	if _, ok := n.FindOption(optionID); !ok {
		return fmt.Errorf("%w: %s/%s", domain.ErrOptionNotFound, e.selectedNode, optionID)
	}
	e.selectedOption = optionID
	return nil
}

func (e *Editor) apply(next domain.Bot, err error) error {
	if err != nil {
		return err
	}
	e.bot = next
	e.dirty = true
	return nil
}

// AddNode appends a default node and selects it.
func (e *Editor) AddNode() string {
	next, id := AddNode(e.bot, e.gen)
	_ = e.apply(next, nil)
	e.selectedNode, e.selectedOption = id, ""
	return id
}

// DeleteNode removes a node. A deleted selection falls back to the first remaining node.
func (e *Editor) DeleteNode(nodeID string) error {
	if err := e.apply(DeleteNode(e.bot, nodeID)); err != nil {
		return err
	}
	if e.selectedNode == nodeID {
		e.selectedNode, e.selectedOption = e.bot.Nodes[0].ID, ""
	}
	return nil
}

// AddOption appends a default option to a node.
func (e *Editor) AddOption(nodeID string) (string, error) {
	next, id, err := AddOption(e.bot, nodeID, e.gen)
	if err := e.apply(next, err); err != nil {
		return "", err
	}
	return id, nil
}

// DeleteOption removes an option, clearing it from the selection.
func (e *Editor) DeleteOption(nodeID, optionID string) error {
	if err := e.apply(DeleteOption(e.bot, nodeID, optionID)); err != nil {
		return err
	}
	if e.selectedNode == nodeID && e.selectedOption == optionID {
		e.selectedOption = ""
	}
	return nil
}

// UpdateNode sets one field of a node.
func (e *Editor) UpdateNode(nodeID, field string, value any) error {
	return e.apply(UpdateNode(e.bot, nodeID, field, value))
}

// UpdateOption sets one field of an option.
func (e *Editor) UpdateOption(nodeID, optionID, field string, value any) error {
	return e.apply(UpdateOption(e.bot, nodeID, optionID, field, value))
}

// SetExecutorType replaces a node's executor with a defaulted one.
func (e *Editor) SetExecutorType(nodeID string, t domain.ExecutorType) error {
	return e.apply(SetExecutorType(e.bot, nodeID, t))
}

// Save checks integrity, serializes the whole bot and hands it to the saver.
// Warnings are logged and returned but never block the save. On failure the
// editor keeps its bot and stays dirty.
func (e *Editor) Save(ctx context.Context, saver Saver) (validator.Report, error) {
	report := validator.Check(&e.bot)
	for _, w := range report.Warnings {
		e.logger.Warn("integrity warning", "bot_id", e.bot.ID, "code", w.Code, "node_id", w.NodeID, "msg", w.Message)
	}

	if err := saver.SaveConfig(ctx, e.bot.ID, codec.Serialize(&e.bot)); err != nil {
		e.logger.Error("save failed", "bot_id", e.bot.ID, "error", err)
		return report, fmt.Errorf("save bot %s: %w", e.bot.ID, err)
	}

	e.dirty = false
	e.logger.Info("bot saved", "bot_id", e.bot.ID, "nodes", len(e.bot.Nodes))
	return report, nil
}
