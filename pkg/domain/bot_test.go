package domain_test

import (
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBot_CloneIsDeep(t *testing.T) {
	bot := domain.Bot{
		ID: "b1",
		Nodes: []domain.Node{{
			ID:       "n1",
			Executor: &domain.Executor{Type: domain.ExecutorAPI, API: &domain.APIConfig{Method: "GET", Params: []domain.Param{{Key: "q", Value: "1"}}}},
			Output:   domain.Output{Type: domain.OutputOptions, Controls: &domain.Controls{Back: true}},
			Options:  []domain.Option{{ID: "o1", Label: "A"}},
		}},
	}

	clone := bot.Clone()
	clone.Nodes[0].Options[0].Label = "changed"
	clone.Nodes[0].Executor.API.Params[0].Value = "2"
	clone.Nodes[0].Output.Controls.Back = false

	assert.Equal(t, "A", bot.Nodes[0].Options[0].Label)
	assert.Equal(t, "1", bot.Nodes[0].Executor.API.Params[0].Value)
	assert.True(t, bot.Nodes[0].Output.Controls.Back)
}

func TestBot_Lookup(t *testing.T) {
	bot := domain.Bot{Nodes: []domain.Node{{ID: "a"}, {ID: "b"}}}

	entry, ok := bot.EntryNode()
	require.True(t, ok)
	assert.Equal(t, "a", entry.ID)

	assert.Equal(t, 1, bot.NodeIndex("b"))
	assert.Equal(t, -1, bot.NodeIndex("ghost"))
	assert.False(t, bot.HasNode("ghost"))

	_, ok = (&domain.Bot{}).EntryNode()
	assert.False(t, ok)
}

func TestOutput_ControlsDefaultToEnabled(t *testing.T) {
	assert.True(t, domain.Output{}.BackEnabled())
	assert.True(t, domain.Output{}.EndEnabled())

	o := domain.Output{Controls: &domain.Controls{Back: false, End: true}}
	assert.False(t, o.BackEnabled())
	assert.True(t, o.EndEnabled())
}

func TestParseExecutorType(t *testing.T) {
	typ, err := domain.ParseExecutorType("")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutorNone, typ)

	typ, err = domain.ParseExecutorType("input")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutorInput, typ)

	_, err = domain.ParseExecutorType("webhook")
	assert.ErrorIs(t, err, domain.ErrInvalidExecutorType)
}
