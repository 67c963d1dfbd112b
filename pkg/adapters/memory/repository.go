package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
)

// Repository implements ports.BotRepository using an in-memory map.
// Bots are cloned on the way in and out. Safe for concurrent use.
type Repository struct {
	mu   sync.RWMutex
	bots map[string]domain.Bot
}

// NewRepository creates a repository seeded with the given bots.
func NewRepository(bots ...domain.Bot) *Repository {
	r := &Repository{bots: make(map[string]domain.Bot, len(bots))}
	for _, b := range bots {
		r.bots[b.ID] = b.Clone()
	}
	return r
}

// NewFromDocuments creates a repository from raw JSON load responses keyed by bot id.
// This handles normalization automatically, improving DX for tests and seeding.
func NewFromDocuments(docs map[string]string) (*Repository, error) {
	r := NewRepository()
	for id, doc := range docs {
		bot, err := codec.DecodeJSON([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("bot %s: %w", id, err)
		}
		if bot.ID == "" {
			bot.ID = id
		}
		r.bots[bot.ID] = *bot
	}
	return r, nil
}

// Get returns a copy of the stored bot.
func (r *Repository) Get(ctx context.Context, botID string) (*domain.Bot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bot, ok := r.bots[botID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, botID)
	}
	out := bot.Clone()
	return &out, nil
}

// Save replaces the stored bot.
func (r *Repository) Save(ctx context.Context, bot *domain.Bot) error {
	if bot.ID == "" {
		return fmt.Errorf("bot missing ID")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bots[bot.ID] = bot.Clone()
	return nil
}

// List returns all stored bot ids.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.bots))
	for k := range r.bots {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}
