package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// StatelessEngine defines the interface for conversation interpreters that do not maintain internal state.
// Adapters (HTTP, MCP, CLI) load the state, call the engine and persist the result.
type StatelessEngine interface {
	// Start moves a fresh session to the bot's entry node.
	Start(ctx context.Context, bot *domain.Bot, state *domain.State) (*domain.State, error)

	// Navigate progresses the session with an option id or a free-form submission.
	// The given state is never mutated; on error it remains the current state.
	Navigate(ctx context.Context, bot *domain.Bot, state *domain.State, input string) (*domain.State, error)

	// Control applies the back or end affordance, including at input nodes
	// where Navigate treats every answer as free-form text.
	Control(ctx context.Context, bot *domain.Bot, state *domain.State, action domain.ActionType) (*domain.State, error)

	// Render calculates the turn response for a state without advancing it.
	Render(bot *domain.Bot, state *domain.State) (domain.Turn, error)
}
