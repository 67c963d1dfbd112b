package runner

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents a turn to the user.
	Output(ctx context.Context, turn domain.Turn) error

	// Input reads the next answer: an option id, free-form text or a control.
	Input(ctx context.Context) (Reply, error)

	// SystemOutput presents a meta-message (e.g. a rejected option).
	// This is distinct from content rendering.
	SystemOutput(ctx context.Context, msg string) error
}

// Reply is one answer read from the user.
// A non-empty Action takes precedence over Input.
type Reply struct {
	Input  string
	Action domain.ActionType
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)
