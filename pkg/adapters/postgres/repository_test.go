package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/adapters/postgres"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRepository connects to TENDRIL_TEST_POSTGRES_DSN and uses a throwaway table.
func newRepository(t *testing.T) (*postgres.Repository, *sql.DB, string) {
	t.Helper()
	dsn := os.Getenv("TENDRIL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TENDRIL_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, dsn, 2)
	require.NoError(t, err)

	table := fmt.Sprintf("bots_test_%d", time.Now().UnixNano())
	repo, err := postgres.NewRepository(db, postgres.WithTable(table))
	require.NoError(t, err)
	require.NoError(t, repo.EnsureSchema(ctx))

	t.Cleanup(func() {
		_, _ = db.Exec("DROP TABLE IF EXISTS " + table)
		db.Close()
	})
	return repo, db, table
}

func TestRepository_Contract(t *testing.T) {
	repo, _, _ := newRepository(t)
	ports.RunBotRepositoryContract(t, repo)
}

func TestRepository_LegacyDocument(t *testing.T) {
	repo, db, table := newRepository(t)
	ctx := context.Background()

	legacy := `{"_id": "legacy", "botName": "Old", "node": [{"_id": "n1", "title": "Hi", "options": [{"optionId": "a", "intent": "Go", "next": "n1"}]}]}`
	_, err := db.ExecContext(ctx, "INSERT INTO "+table+" (id, document) VALUES ($1, $2)", "legacy", legacy)
	require.NoError(t, err)

	bot, err := repo.Get(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "Old", bot.Name)
	require.Len(t, bot.Nodes, 1)
	assert.Equal(t, "n1", bot.Nodes[0].Options[0].NextNodeID)

	_, err = db.ExecContext(ctx, "INSERT INTO "+table+" (id, document) VALUES ($1, $2)", "broken", `{"name": "no nodes"}`)
	require.NoError(t, err)
	_, err = repo.Get(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrMalformedGraph)

	require.NoError(t, repo.Delete(ctx, "broken"))
	_, err = repo.Get(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewRepository_RejectsUnsafeTable(t *testing.T) {
	_, err := postgres.NewRepository(nil, postgres.WithTable("bots; DROP TABLE x"))
	assert.Error(t, err)
}
