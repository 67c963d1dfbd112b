package tendril_test

import (
	"context"
	"testing"

	"github.com/aretw0/tendril"
	"github.com/aretw0/tendril/pkg/adapters/memory"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const supportDoc = `{"data": {"bot": {
	"_id": "support",
	"name": "Support",
	"nodes": [
		{"id": "welcome", "message": "How can we help?", "output": "options",
		 "options": [{"optionId": "o1", "intent": "Orders", "next": "orders"}, {"optionId": "o2", "intent": "Other"}]},
		{"id": "orders", "message": "Orders are shipped daily.", "output": {"type": "end"}}
	]
}}}`

func TestEngine_ImportExport(t *testing.T) {
	eng, err := tendril.New()
	require.NoError(t, err)
	ctx := context.Background()

	bot, report, err := eng.Import(ctx, []byte(supportDoc))
	require.NoError(t, err)
	assert.Equal(t, "support", bot.ID)
	assert.True(t, report.OK())
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, validator.CodeUnwiredOption, report.Warnings[0].Code)

	exported, err := eng.Export(ctx, "support")
	require.NoError(t, err)
	assert.Equal(t, "support", exported["id"])
	assert.Len(t, exported["nodes"], 2)

	mermaid, err := eng.Graph(ctx, "support")
	require.NoError(t, err)
	assert.Contains(t, mermaid, "graph TD")

	_, err = eng.Validate(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEngine_SaveRejectsStructuralErrors(t *testing.T) {
	repo := memory.NewRepository()
	eng, err := tendril.New(tendril.WithRepository(repo))
	require.NoError(t, err)

	bot := &domain.Bot{ID: "dup", Nodes: []domain.Node{
		{ID: "a", Output: domain.Output{Type: domain.OutputEnd}},
		{ID: "a", Output: domain.Output{Type: domain.OutputEnd}},
	}}
	_, report, err := eng.Save(context.Background(), bot)
	require.Error(t, err)
	assert.False(t, report.OK())

	ids, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNew_RetryPolicy(t *testing.T) {
	_, err := tendril.New(tendril.WithRetryPolicy("shrug", ""))
	assert.Error(t, err)

	_, err = tendril.New(tendril.WithRetryPolicy("fallback", ""))
	assert.Error(t, err)

	_, err = tendril.New(tendril.WithRetryPolicy("fallback", "help"))
	assert.NoError(t, err)
}
