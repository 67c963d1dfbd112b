package ports

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "bot-1")
		state.Status = domain.StatusAtNode
		state.CurrentNodeID = "welcome"
		state.History = []string{"welcome"}
		state.Context["foo"] = "bar"
		state.Context["count"] = 42
		state.Generated = []domain.GeneratedOption{{ID: "gen-0", Label: "A", NextNodeID: "next"}}

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, "bot-1", loaded.BotID)
		assert.Equal(t, domain.StatusAtNode, loaded.Status)
		assert.Equal(t, state.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, []string{"welcome"}, loaded.History)
		assert.Equal(t, "bar", loaded.Context["foo"])
		// JSON-backed stores turn ints into float64; only existence is part of the contract.
		assert.NotNil(t, loaded.Context["count"])
		require.Len(t, loaded.Generated, 1)
		assert.Equal(t, "next", loaded.Generated[0].NextNodeID)
	})

	t.Run("Loaded State Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Context["foo"] = "mutated"
		loaded.History = append(loaded.History, "elsewhere")

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "bar", again.Context["foo"])
		assert.Equal(t, []string{"welcome"}, again.History)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID, "bot-1"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "bot-1"))
		_ = store.Save(ctx, id2, domain.NewState(id2, "bot-1"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunBotRepositoryContract verifies that a BotRepository implementation stores whole bots.
func RunBotRepositoryContract(t *testing.T, repo BotRepository) {
	ctx := context.Background()
	botID := "contract-bot-" + time.Now().Format("20060102150405")

	bot := &domain.Bot{
		ID:   botID,
		Name: "Contract",
		Nodes: []domain.Node{
			{
				ID: "welcome", Title: "Welcome", Message: "Hi",
				Output:  domain.Output{Type: domain.OutputOptions},
				Options: []domain.Option{{ID: "o1", Label: "Next", NextNodeID: "ask", ActionType: domain.ActionNormal}},
			},
			{
				ID: "ask", Title: "Ask", Message: "Email?",
				Executor:        domain.NewExecutor(domain.ExecutorInput),
				InputNextNodeID: "welcome",
				Output:          domain.Output{Type: domain.OutputText},
				Options:         []domain.Option{},
			},
		},
	}

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing-"+botID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Save and Get", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, bot))

		loaded, err := repo.Get(ctx, botID)
		require.NoError(t, err)
		assert.Equal(t, bot, loaded)
	})

	t.Run("Last Writer Wins", func(t *testing.T) {
		next := bot.Clone()
		next.Name = "Renamed"
		next.Nodes = next.Nodes[:1]
		require.NoError(t, repo.Save(ctx, &next))

		loaded, err := repo.Get(ctx, botID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Name)
		assert.Len(t, loaded.Nodes, 1)
	})

	t.Run("List", func(t *testing.T) {
		ids, err := repo.List(ctx)
		require.NoError(t, err)
		assert.True(t, sort.StringsAreSorted(ids), "ids are listed in order")
		assert.Contains(t, ids, botID)
	})
}
