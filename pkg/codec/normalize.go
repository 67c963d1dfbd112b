package codec

import (
	"fmt"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// Normalize converts a server bot object into the canonical Bot.
//
// A payload whose node list is present but empty yields a single Welcome node.
// A payload carrying neither "nodes" nor "node" as a list yields ErrMalformedGraph,
// so that real but unparsed data is never replaced by a synthesized stub.
func Normalize(payload map[string]any) (*domain.Bot, error) {
	if payload == nil {
		return nil, domain.ErrMalformedGraph
	}

	rawNodes, err := nodeList(payload)
	if err != nil {
		return nil, err
	}

	var wb wireBot
	if err := decode(payload, &wb); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedGraph, err)
	}

	bot := &domain.Bot{
		ID:   firstString(wb.ID, wb.DBID, wb.BotID),
		Name: firstNonEmpty(wb.Name, wb.BotName),
	}

	if len(rawNodes) == 0 {
		bot.Nodes = []domain.Node{domain.NewWelcomeNode()}
		return bot, nil
	}

	bot.Nodes = make([]domain.Node, 0, len(rawNodes))
	for i, raw := range rawNodes {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: node %d is %T, not an object", domain.ErrMalformedGraph, i, raw)
		}
		node, err := normalizeNode(m, i)
		if err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", domain.ErrMalformedGraph, i, err)
		}
		bot.Nodes = append(bot.Nodes, node)
	}

	return bot, nil
}

// nodeList resolves the node collection: "nodes" first, then the older "node" key,
// preferring whichever is present and non-empty.
func nodeList(payload map[string]any) ([]any, error) {
	nodes, nodesOK := asList(payload["nodes"])
	legacy, legacyOK := asList(payload["node"])

	switch {
	case nodesOK && len(nodes) > 0:
		return nodes, nil
	case legacyOK && len(legacy) > 0:
		return legacy, nil
	case nodesOK || legacyOK:
		return []any{}, nil
	}
	return nil, domain.ErrMalformedGraph
}

func normalizeNode(m map[string]any, index int) (domain.Node, error) {
	var wn wireNode
	if err := decode(m, &wn); err != nil {
		return domain.Node{}, err
	}

	node := domain.Node{
		ID:                 firstString(wn.ID, wn.DBID),
		Title:              wn.Title,
		Message:            wn.Message,
		InputNextNodeID:    wn.InputNextNodeID,
		OptionsSource:      domain.OptionsSource(wn.OptionsSource),
		APIResponseMapping: wn.APIResponseMapping,
	}
	if node.ID == "" {
		node.ID = fmt.Sprintf("node-%d", index+1)
	}

	exec, err := normalizeExecutor(wn)
	if err != nil {
		return domain.Node{}, err
	}
	node.Executor = exec

	output, err := normalizeOutput(wn.Output)
	if err != nil {
		return domain.Node{}, err
	}
	node.Output = output

	node.Options = make([]domain.Option, 0, len(wn.Options))
	for i, wo := range wn.Options {
		node.Options = append(node.Options, normalizeOption(wo, node.ID, i))
	}

	return node, nil
}

func normalizeOption(wo wireOption, nodeID string, index int) domain.Option {
	opt := domain.Option{
		ID:         firstString(wo.ID, wo.OptionID),
		Label:      firstNonEmpty(wo.Label, wo.Intent, domain.FallbackOptionLabel),
		NextNodeID: firstNonEmpty(wo.NextNodeID, wo.Next),
		ActionType: domain.ActionType(wo.ActionType),
	}
	if opt.ID == "" {
		opt.ID = fmt.Sprintf("opt-%s-%d", nodeID, index)
	}
	return opt
}

// normalizeExecutor resolves the executor from either the flat discriminator
// (executor + apiConfig / input / apiConfig.inputConfig) or an object-shaped executor.
func normalizeExecutor(wn wireNode) (*domain.Executor, error) {
	var (
		kind      string
		apiRaw    = wn.APIConfig
		inputRaw  = wn.Input
		configRaw map[string]any
	)

	switch e := wn.Executor.(type) {
	case nil:
		return nil, nil
	case string:
		kind = e
	case map[string]any:
		var we wireExecutor
		if err := decode(e, &we); err != nil {
			return nil, fmt.Errorf("executor: %w", err)
		}
		kind = we.Type
		configRaw = we.Config
		if we.API != nil {
			apiRaw = we.API
		}
		if we.Input != nil {
			inputRaw = we.Input
		}
	default:
		return nil, fmt.Errorf("executor: unsupported shape %T", e)
	}

	t, err := domain.ParseExecutorType(strings.ToLower(strings.TrimSpace(kind)))
	if err != nil {
		return nil, err
	}

	switch t {
	case domain.ExecutorAPI:
		exec := domain.NewExecutor(domain.ExecutorAPI)
		src := apiRaw
		if configRaw != nil {
			src = configRaw
		}
		if src != nil {
			if err := decode(src, exec.API); err != nil {
				return nil, fmt.Errorf("apiConfig: %w", err)
			}
		}
		exec.API.Method = strings.ToUpper(exec.API.Method)
		if exec.API.Method == "" {
			exec.API.Method = domain.MethodGET
		}
		return exec, nil

	case domain.ExecutorInput:
		exec := &domain.Executor{Type: domain.ExecutorInput, Input: &domain.InputConfig{}}
		src := inputRaw
		if src == nil && configRaw != nil {
			src = configRaw
		}
		if src == nil && apiRaw != nil {
			if nested, ok := apiRaw["inputConfig"].(map[string]any); ok {
				src = nested
			}
		}
		if src != nil {
			if err := decode(src, exec.Input); err != nil {
				return nil, fmt.Errorf("input: %w", err)
			}
		}
		if exec.Input.Type == "" {
			exec.Input.Type = domain.InputText
		}
		return exec, nil
	}

	return nil, nil
}

func normalizeOutput(raw any) (domain.Output, error) {
	switch o := raw.(type) {
	case nil:
		return domain.Output{Type: domain.OutputOptions}, nil
	case string:
		if o == "" {
			return domain.Output{Type: domain.OutputOptions}, nil
		}
		return domain.Output{Type: domain.OutputType(o)}, nil
	case map[string]any:
		var out domain.Output
		if err := decode(o, &out); err != nil {
			return domain.Output{}, fmt.Errorf("output: %w", err)
		}
		if out.Type == "" {
			out.Type = domain.OutputOptions
		}
		return out, nil
	}
	return domain.Output{}, fmt.Errorf("output: unsupported shape %T", raw)
}
