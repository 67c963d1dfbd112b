package validator

import (
	"errors"
	"testing"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(issues []Issue) []Code {
	out := make([]Code, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}

func TestCheck_ValidGraph(t *testing.T) {
	// start -> ask (input) -> bye (end)
	bot := &domain.Bot{Nodes: []domain.Node{
		{ID: "start", Output: domain.Output{Type: domain.OutputOptions}, Options: []domain.Option{{ID: "o1", Label: "Go", NextNodeID: "ask"}}},
		{ID: "ask", Executor: domain.NewExecutor(domain.ExecutorInput), InputNextNodeID: "bye", Output: domain.Output{Type: domain.OutputText}},
		{ID: "bye", Output: domain.Output{Type: domain.OutputEnd}},
	}}

	report := Check(bot)
	assert.True(t, report.OK())
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
	assert.NoError(t, report.Err())
}

func TestCheck_DanglingAfterDelete(t *testing.T) {
	// "order" was deleted; "o1" still points at it.
	bot := &domain.Bot{Nodes: []domain.Node{
		{ID: "start", Output: domain.Output{Type: domain.OutputOptions}, Options: []domain.Option{
			{ID: "o1", Label: "Check Order", NextNodeID: "order"},
			{ID: "o2", Label: "Later"},
		}},
	}}

	report := Check(bot)
	assert.True(t, report.OK(), "dangling references are warnings only")
	assert.ElementsMatch(t, []Code{CodeDanglingTarget, CodeUnwiredOption}, codes(report.Warnings))
	assert.Equal(t, "o1", report.Warnings[0].OptionID)
	assert.Contains(t, report.Summary(), "targets missing node 'order'")
}

func TestCheck_OrphanAndUnreachable(t *testing.T) {
	// start -> a; b -> c; c is reachable only from the orphan b.
	bot := &domain.Bot{Nodes: []domain.Node{
		{ID: "start", Output: domain.Output{Type: domain.OutputOptions}, Options: []domain.Option{{ID: "o", Label: "A", NextNodeID: "a"}}},
		{ID: "a", Output: domain.Output{Type: domain.OutputEnd}},
		{ID: "b", Output: domain.Output{Type: domain.OutputOptions}, Options: []domain.Option{{ID: "o", Label: "C", NextNodeID: "c"}}},
		{ID: "c", Output: domain.Output{Type: domain.OutputEnd}},
	}}

	report := Check(bot)
	require.Len(t, report.Warnings, 2)
	assert.Equal(t, CodeOrphanNode, report.Warnings[0].Code)
	assert.Equal(t, "b", report.Warnings[0].NodeID)
	assert.Equal(t, CodeUnreachableNode, report.Warnings[1].Code)
	assert.Equal(t, "c", report.Warnings[1].NodeID)
	assert.Equal(t, []string{"b", "c"}, report.NodeIDs())
}

func TestCheck_StructuralErrors(t *testing.T) {
	tooMany := make([]domain.Option, domain.MaxOptionsPerNode+1)
	for i := range tooMany {
		tooMany[i] = domain.Option{ID: string(rune('a' + i)), Label: "x", NextNodeID: "start"}
	}

	api := domain.NewExecutor(domain.ExecutorAPI)
	api.API.Method = "POST"
	input := domain.NewExecutor(domain.ExecutorInput)
	input.Input.Validation = "(["

	bot := &domain.Bot{Nodes: []domain.Node{
		{ID: "start", Output: domain.Output{Type: domain.OutputOptions}, Options: tooMany},
		{ID: "start", Output: domain.Output{Type: domain.OutputOptions}},
		{ID: "post", Executor: api, Output: domain.Output{Type: domain.OutputOptions}},
		{ID: "ask", Executor: input, InputNextNodeID: "start", Output: domain.Output{Type: domain.OutputText},
			Options: []domain.Option{{ID: "x", Label: "stale", NextNodeID: "start"}}},
		{ID: "bye", Output: domain.Output{Type: domain.OutputEnd}, Options: []domain.Option{{ID: "x", Label: "y", NextNodeID: "start"}, {ID: "x", Label: "z", NextNodeID: "start"}}},
		{ID: "odd", Output: domain.Output{Type: "carousel"}},
	}}

	report := Check(bot)
	assert.False(t, report.OK())
	assert.ElementsMatch(t, []Code{
		CodeTooManyOptions,
		CodeDuplicateNode,
		CodeMethodNotAllowed,
		CodeInputWithOptions,
		CodeInvalidPattern,
		CodeTerminalOptions,
		CodeDuplicateOption,
		CodeInvalidOutput,
	}, codes(report.Errors))

	err := report.Err()
	require.Error(t, err)
	assert.Len(t, schema.ValidationErrors(err), len(report.Errors))

	var issue Issue
	assert.True(t, errors.As(err, &issue))
}

func TestCheck_InputNextWarnings(t *testing.T) {
	bot := &domain.Bot{Nodes: []domain.Node{
		{ID: "ask", Executor: domain.NewExecutor(domain.ExecutorInput), Output: domain.Output{Type: domain.OutputText}},
		{ID: "ask2", Executor: domain.NewExecutor(domain.ExecutorInput), InputNextNodeID: "ghost", Output: domain.Output{Type: domain.OutputText}},
	}}

	report := Check(bot)
	assert.Contains(t, codes(report.Warnings), CodeMissingInputNext)
	assert.Contains(t, codes(report.Warnings), CodeDanglingInputNext)
}
