package memory

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, NewStore())
}

func TestMemoryStore_Prune(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	require.NoError(t, store.Save(ctx, "old", domain.NewState("old", "b")))
	clock = clock.Add(time.Hour)
	require.NoError(t, store.Save(ctx, "fresh", domain.NewState("fresh", "b")))

	removed, err := store.Prune(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.Load(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = store.Load(ctx, "fresh")
	assert.NoError(t, err)
}

func TestMemoryRepository_Contract(t *testing.T) {
	ports.RunBotRepositoryContract(t, NewRepository())
}

func TestNewFromDocuments(t *testing.T) {
	repo, err := NewFromDocuments(map[string]string{
		"legacy": `{"data": {"botName": "Old", "node": [{"_id": "n1", "options": [{"intent": "Go", "next": "n1"}]}]}}`,
	})
	require.NoError(t, err)

	bot, err := repo.Get(context.Background(), "legacy")
	require.NoError(t, err)
	assert.Equal(t, "Old", bot.Name)
	assert.Equal(t, "n1", bot.Nodes[0].Options[0].NextNodeID)

	_, err = NewFromDocuments(map[string]string{"broken": `{"data": {"name": "x"}}`})
	assert.ErrorIs(t, err, domain.ErrMalformedGraph)
}
