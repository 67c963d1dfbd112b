package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/tendril/pkg/adapters/file"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Contract(t *testing.T) {
	ports.RunBotRepositoryContract(t, file.NewRepository(t.TempDir()))
}

func TestRepository_ReadsYAMLAndLegacyJSON(t *testing.T) {
	dir := t.TempDir()
	yamlDoc := `
name: Pizza
nodes:
  - id: welcome
    title: Welcome
    message: Hungry?
    options:
      - label: Order
        nextNodeId: welcome
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pizza.yaml"), []byte(yamlDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.json"),
		[]byte(`{"data": {"bot": {"_id": "legacy", "node": [{"_id": "n1", "title": "Hi"}]}}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"name": "x"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("#"), 0o644))

	repo := file.NewRepository(dir)
	ctx := context.Background()

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "legacy", "pizza"}, ids)

	pizza, err := repo.Get(ctx, "pizza")
	require.NoError(t, err)
	assert.Equal(t, "pizza", pizza.ID)
	assert.Equal(t, "Pizza", pizza.Name)
	require.Len(t, pizza.Nodes[0].Options, 1)
	assert.Equal(t, "opt-welcome-0", pizza.Nodes[0].Options[0].ID)

	legacy, err := repo.Get(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "n1", legacy.Nodes[0].ID)

	_, err = repo.Get(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrMalformedGraph)

	_, err = repo.Get(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
