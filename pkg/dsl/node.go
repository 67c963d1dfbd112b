package dsl

import "github.com/aretw0/tendril/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node domain.Node
}

// Title sets the editor title of the node.
func (n *NodeBuilder) Title(title string) *NodeBuilder {
	n.node.Title = title
	return n
}

// Message sets the message shown when the node is entered.
func (n *NodeBuilder) Message(msg string) *NodeBuilder {
	n.node.Message = msg
	return n
}

// Text turns the node into a text turn showing content instead of the options.
func (n *NodeBuilder) Text(content string) *NodeBuilder {
	n.node.Output.Type = domain.OutputText
	n.node.Output.CustomText = content
	return n
}

// End marks the node as terminal with a final message.
func (n *NodeBuilder) End(msg string) *NodeBuilder {
	n.node.Output = domain.Output{Type: domain.OutputEnd}
	n.node.Message = msg
	n.node.Options = []domain.Option{}
	return n
}

// Option adds a static option leading to next.
func (n *NodeBuilder) Option(id, label, next string) *NodeBuilder {
	n.node.Options = append(n.node.Options, domain.Option{
		ID:         id,
		Label:      label,
		NextNodeID: next,
		ActionType: domain.ActionNormal,
	})
	return n
}

// Input makes the node capture free-form text into key and continue at next.
func (n *NodeBuilder) Input(key, next string) *NodeBuilder {
	exec := domain.NewExecutor(domain.ExecutorInput)
	exec.Input.Key = key
	n.node.Executor = exec
	n.node.InputNextNodeID = next
	n.node.Options = []domain.Option{}
	return n
}

// Number restricts an input node to numeric values.
func (n *NodeBuilder) Number() *NodeBuilder {
	if n.node.IsInput() {
		n.node.Executor.Input.Type = domain.InputNumber
	}
	return n
}

// Validate sets the pattern and retry limit of an input node.
func (n *NodeBuilder) Validate(pattern string, retryLimit int) *NodeBuilder {
	if n.node.IsInput() {
		n.node.Executor.Input.Validation = pattern
		n.node.Executor.Input.RetryLimit = retryLimit
	}
	return n
}

// API makes the node call endpoint with GET before rendering.
// params alternate key and value.
func (n *NodeBuilder) API(endpoint string, params ...string) *NodeBuilder {
	exec := domain.NewExecutor(domain.ExecutorAPI)
	exec.API.Endpoint = endpoint
	for i := 0; i+1 < len(params); i += 2 {
		exec.API.Params = append(exec.API.Params, domain.Param{Key: params[i], Value: params[i+1]})
	}
	n.node.Executor = exec
	return n
}

// Dynamic generates the options from the API response.
func (n *NodeBuilder) Dynamic(mapping domain.APIResponseMapping) *NodeBuilder {
	n.node.OptionsSource = domain.SourceDynamic
	n.node.APIResponseMapping = &mapping
	n.node.Options = []domain.Option{}
	return n
}

// Controls toggles the back and end affordances.
func (n *NodeBuilder) Controls(back, end bool) *NodeBuilder {
	n.node.Output.Controls = &domain.Controls{Back: back, End: end}
	return n
}

// Build returns a copy of the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	return n.node.Clone()
}
