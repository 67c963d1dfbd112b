package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandler_Output(t *testing.T) {
	out := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader(""), out, WithTextHandlerRenderer(func(s string) (string, error) {
		return "Rendered: " + s, nil
	}))

	err := handler.Output(context.Background(), domain.Turn{Type: domain.TurnText, Text: "Hello World"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Rendered: Hello World")
}

func TestTextHandler_ResolvesNumbersAndCommands(t *testing.T) {
	out := &bytes.Buffer{}
	handler := NewTextHandler(strings.NewReader("2\n:back\n9\n  :END \n"), out)
	ctx := context.Background()

	require.NoError(t, handler.Output(ctx, domain.Turn{
		Type:    domain.TurnOptions,
		Options: []domain.TurnOption{{OptionID: "o1", Intent: "One"}, {OptionID: "o2", Intent: "Two"}},
	}))

	want := []Reply{
		{Input: "o2"},
		{Action: domain.ActionBack},
		{Input: "9"},
		{Action: domain.ActionEnd},
	}
	for _, w := range want {
		got, err := handler.Input(ctx)
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}

	_, err := handler.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestTextHandler_InputTurnKeepsNumbers(t *testing.T) {
	handler := NewTextHandler(strings.NewReader("1\n"), &bytes.Buffer{})
	ctx := context.Background()

	require.NoError(t, handler.Output(ctx, domain.Turn{
		Type:    domain.TurnInput,
		Options: []domain.TurnOption{{OptionID: domain.BackOptionID, Intent: domain.BackOptionLabel}},
	}))

	got, err := handler.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, Reply{Input: "1"}, got)
}

func TestTextHandler_InputTurnKeepsReservedIds(t *testing.T) {
	handler := NewTextHandler(strings.NewReader("__end\n:end\n"), &bytes.Buffer{})
	ctx := context.Background()

	require.NoError(t, handler.Output(ctx, domain.Turn{Type: domain.TurnInput}))

	got, err := handler.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, Reply{Input: domain.EndOptionID}, got)

	got, err = handler.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, Reply{Action: domain.ActionEnd}, got)
}

func TestTextHandler_NumberedControls(t *testing.T) {
	handler := NewTextHandler(strings.NewReader("2\n"), &bytes.Buffer{})
	ctx := context.Background()

	require.NoError(t, handler.Output(ctx, domain.Turn{
		Type: domain.TurnOptions,
		Options: []domain.TurnOption{
			{OptionID: "o1", Intent: "One"},
			{OptionID: domain.EndOptionID, Intent: domain.EndOptionLabel},
		},
	}))

	got, err := handler.Input(ctx)
	require.NoError(t, err)
	assert.Equal(t, Reply{Action: domain.ActionEnd}, got)
}

func TestTextHandler_InputHonorsCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	handler := NewTextHandler(pr, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := handler.Input(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONHandler(t *testing.T) {
	out := &bytes.Buffer{}
	handler := NewJSONHandler(strings.NewReader("\"o1\"\n{\"input\": \"hello\"}\n{\"action\": \"end\"}\nraw text"), out)
	ctx := context.Background()

	require.NoError(t, handler.Output(ctx, domain.Turn{Type: domain.TurnText, Text: "Hi"}))
	require.NoError(t, handler.SystemOutput(ctx, "careful"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	var turn map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &turn))
	assert.Equal(t, "text", turn["type"])
	assert.JSONEq(t, `{"system":"careful"}`, lines[1])

	want := []Reply{{Input: "o1"}, {Input: "hello"}, {Action: domain.ActionEnd}, {Input: "raw text"}}
	for _, w := range want {
		got, err := handler.Input(ctx)
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
	_, err := handler.Input(ctx)
	assert.ErrorIs(t, err, io.EOF)
}
