package ports

import (
	"context"

	"github.com/aretw0/tendril/pkg/domain"
)

// BotRepository stores whole bots. Saves are last-writer-wins at bot granularity.
type BotRepository interface {
	// Get returns the bot with the given id.
	// Returns domain.ErrNotFound when it does not exist and domain.ErrMalformedGraph
	// when the stored document has no usable node list.
	Get(ctx context.Context, botID string) (*domain.Bot, error)

	// Save replaces the stored bot.
	Save(ctx context.Context, bot *domain.Bot) error

	// List returns the ids of the stored bots.
	List(ctx context.Context) ([]string, error)
}
