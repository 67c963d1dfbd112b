package dsl

import (
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New("greeter", "Greeter")

	b.Node("hello").
		Message("Hello!").
		Option("o-name", "Tell me your name", "ask")

	b.Node("ask").
		Message("What is your name?").
		Input("name", "done").
		Validate(`^\w+$`, 2)

	b.Node("done").
		End("Nice to meet you, {{name}}.")

	bot, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, "greeter", bot.ID)
	assert.Equal(t, "Greeter", bot.Name)
	require.Len(t, bot.Nodes, 3)

	entry, ok := bot.EntryNode()
	require.True(t, ok)
	assert.Equal(t, "hello", entry.ID)
	assert.Equal(t, domain.OutputOptions, entry.Output.Type)
	assert.Equal(t, "ask", entry.Options[0].NextNodeID)

	ask := bot.Nodes[1]
	require.True(t, ask.IsInput())
	assert.Equal(t, "name", ask.Executor.Input.Key)
	assert.Equal(t, 2, ask.Executor.Input.RetryLimit)
	assert.Equal(t, "done", ask.InputNextNodeID)

	assert.True(t, bot.Nodes[2].IsTerminal())
	assert.Empty(t, validator.Check(bot).Warnings)
}

func TestBuilder_NodeIsReused(t *testing.T) {
	b := New("bot", "")
	b.Node("a").Message("first")
	b.Node("b").End("bye")
	b.Node("a").Option("o1", "Go", "b")

	bot := b.MustBuild()
	require.Len(t, bot.Nodes, 2)
	assert.Equal(t, "first", bot.Nodes[0].Message)
	assert.Len(t, bot.Nodes[0].Options, 1)
}

func TestBuilder_APIAndDynamic(t *testing.T) {
	b := New("catalog", "Catalog")
	b.Node("list").
		Message("Pick a product").
		API("https://example.com/products", "category", "{{category}}").
		Dynamic(domain.APIResponseMapping{DataField: "items", LabelField: "name", ValueField: "id", NextNodeID: "picked"}).
		Controls(false, true)
	b.Node("picked").Text("You picked {{selected}}.")

	bot, err := b.Build()
	require.NoError(t, err)

	list := bot.Nodes[0]
	require.NotNil(t, list.Executor)
	assert.Equal(t, domain.MethodGET, list.Executor.API.Method)
	assert.Equal(t, []domain.Param{{Key: "category", Value: "{{category}}"}}, list.Executor.API.Params)
	assert.True(t, list.IsDynamic())
	assert.False(t, list.Output.BackEnabled())
	assert.True(t, list.Output.EndEnabled())

	assert.Equal(t, domain.OutputText, bot.Nodes[1].Output.Type)
}

func TestBuilder_RejectsStructuralErrors(t *testing.T) {
	b := New("broken", "")
	b.Node("a").
		Option("o1", "One", "a").
		Option("o1", "Again", "a")

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")

	assert.Panics(t, func() { b.MustBuild() })
}

func TestBuilder_InvalidPattern(t *testing.T) {
	b := New("bad", "")
	b.Node("ask").Input("x", "ask").Validate("([", 1)

	_, err := b.Build()
	assert.Error(t, err)
}

func TestNodeBuilder_BuildCopies(t *testing.T) {
	nb := New("bot", "").Node("a").Option("o1", "One", "")
	n := nb.Build()
	n.Options[0].Label = "changed"
	assert.Equal(t, "One", nb.Build().Options[0].Label)
}
