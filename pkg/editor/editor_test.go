package editor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/tendril/pkg/codec"
	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_BlocksOnMalformedOrMissing(t *testing.T) {
	_, err := editor.Open(nil, domain.ErrMalformedGraph)
	assert.ErrorIs(t, err, domain.ErrMalformedGraph)

	_, err = editor.Open(nil, domain.ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	netErr := errors.New("connection refused")
	_, err = editor.Open(nil, netErr)
	assert.ErrorIs(t, err, netErr)

	_, err = editor.Open(&domain.Bot{}, nil)
	assert.ErrorIs(t, err, domain.ErrMalformedGraph)
}

func TestEditor_SelectionFollowsDeletes(t *testing.T) {
	bot := twoNodeBot()
	ed, err := editor.Open(&bot, nil, editor.WithIDGenerator(&seqGen{}))
	require.NoError(t, err)

	node, _ := ed.Selection()
	assert.Equal(t, "welcome", node)

	id := ed.AddNode()
	node, _ = ed.Selection()
	assert.Equal(t, id, node)
	assert.True(t, ed.Dirty())

	require.NoError(t, ed.Select("welcome"))
	require.NoError(t, ed.SelectOption("check"))
	require.NoError(t, ed.DeleteOption("welcome", "check"))
	_, opt := ed.Selection()
	assert.Empty(t, opt)

	require.NoError(t, ed.Select("order"))
	require.NoError(t, ed.DeleteNode("order"))
	node, _ = ed.Selection()
	assert.Equal(t, "welcome", node, "selection falls back to the first remaining node")

	require.NoError(t, ed.DeleteNode(id))
	assert.ErrorIs(t, ed.DeleteNode("welcome"), domain.ErrMinimumNodeCount)
	assert.Len(t, ed.Bot().Nodes, 1)
}

func TestEditor_SaveFailureKeepsState(t *testing.T) {
	bot := twoNodeBot()
	ed, err := editor.Open(&bot, nil, editor.WithIDGenerator(&seqGen{}))
	require.NoError(t, err)
	ed.AddNode()
	before := ed.Bot()

	failing := editor.SaverFunc(func(ctx context.Context, botID string, payload map[string]any) error {
		return errors.New("503 service unavailable")
	})

	_, err = ed.Save(context.Background(), failing)
	require.Error(t, err)
	assert.True(t, ed.Dirty())
	assert.Equal(t, before, ed.Bot())
}

// Scenario: add a node, rewire "Check Order" to it, save, reload.
func TestEditor_HappyPathEditSave(t *testing.T) {
	bot := twoNodeBot()
	ed, err := editor.Open(&bot, nil, editor.WithIDGenerator(&seqGen{}))
	require.NoError(t, err)

	newID := ed.AddNode()
	require.NoError(t, ed.UpdateOption("welcome", "check", editor.FieldNextNodeID, newID))

	var saved map[string]any
	saver := editor.SaverFunc(func(ctx context.Context, botID string, payload map[string]any) error {
		assert.Equal(t, "bot-1", botID)
		saved = payload
		return nil
	})

	report, err := ed.Save(context.Background(), saver)
	require.NoError(t, err)
	assert.False(t, ed.Dirty())
	assert.True(t, report.OK())

	reloaded, err := codec.Normalize(saved)
	require.NoError(t, err)
	require.Len(t, reloaded.Nodes, 3)

	newNode, ok := reloaded.FindNode(newID)
	require.True(t, ok)
	assert.Equal(t, domain.DefaultNodeTitle, newNode.Title)
	assert.Empty(t, newNode.Options)

	check, ok := reloaded.Nodes[0].FindOption("check")
	require.True(t, ok)
	assert.Equal(t, newID, check.NextNodeID)

	order, ok := reloaded.FindNode("order")
	require.True(t, ok, "the old target is kept, not auto-deleted")
	assert.Equal(t, "Order Details", order.Title)
	assert.NotEqual(t, "order", check.NextNodeID)
}
