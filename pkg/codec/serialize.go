package codec

import (
	"encoding/json"
	"strings"

	"github.com/aretw0/tendril/pkg/domain"
)

// Serialize produces the canonical server representation of a bot.
// Executors are written in the flat form: an "executor" discriminator plus
// "apiConfig" or "input".
//
// Executor configs are written as Normalize reads them back: an api method is
// upper-cased and defaults to GET, a missing api or input config is written
// as an empty one and an input type defaults to text. Normalize(Serialize(b))
// therefore equals b for canonical bots and is a fixed point for all others.
func Serialize(bot *domain.Bot) map[string]any {
	nodes := make([]any, 0, len(bot.Nodes))
	for i := range bot.Nodes {
		nodes = append(nodes, serializeNode(&bot.Nodes[i]))
	}
	return map[string]any{
		"id":    bot.ID,
		"name":  bot.Name,
		"nodes": nodes,
	}
}

// EncodeJSON serializes a bot and marshals it.
func EncodeJSON(bot *domain.Bot) ([]byte, error) {
	return json.Marshal(Serialize(bot))
}

func serializeNode(n *domain.Node) map[string]any {
	out := map[string]any{
		"id":      n.ID,
		"title":   n.Title,
		"message": n.Message,
		"output":  serializeOutput(n.Output),
	}

	if n.Executor != nil {
		out["executor"] = string(n.Executor.Type)
		switch n.Executor.Type {
		case domain.ExecutorAPI:
			cfg := n.Executor.API
			if cfg == nil {
				cfg = &domain.APIConfig{}
			}
			out["apiConfig"] = serializeAPIConfig(cfg)
		case domain.ExecutorInput:
			cfg := n.Executor.Input
			if cfg == nil {
				cfg = &domain.InputConfig{}
			}
			out["input"] = serializeInputConfig(cfg)
		}
	}
	if n.InputNextNodeID != "" {
		out["inputNextNodeId"] = n.InputNextNodeID
	}
	if n.OptionsSource != "" {
		out["optionsSource"] = string(n.OptionsSource)
	}
	if m := n.APIResponseMapping; m != nil {
		out["apiResponseMapping"] = map[string]any{
			"dataField":  m.DataField,
			"labelField": m.LabelField,
			"valueField": m.ValueField,
			"nextNodeId": m.NextNodeID,
		}
	}

	options := make([]any, 0, len(n.Options))
	for _, o := range n.Options {
		opt := map[string]any{
			"id":         o.ID,
			"label":      o.Label,
			"nextNodeId": o.NextNodeID,
		}
		if o.ActionType != "" {
			opt["actionType"] = string(o.ActionType)
		}
		options = append(options, opt)
	}
	out["options"] = options

	return out
}

func serializeOutput(o domain.Output) map[string]any {
	out := map[string]any{"type": string(o.Type)}
	if o.CustomText != "" {
		out["customText"] = o.CustomText
	}
	if o.Controls != nil {
		out["controls"] = map[string]any{
			"back": o.Controls.Back,
			"end":  o.Controls.End,
		}
	}
	return out
}

func serializeAPIConfig(c *domain.APIConfig) map[string]any {
	method := strings.ToUpper(c.Method)
	if method == "" {
		method = domain.MethodGET
	}
	out := map[string]any{
		"endpoint": c.Endpoint,
		"method":   method,
	}
	if len(c.Params) > 0 {
		params := make([]any, 0, len(c.Params))
		for _, p := range c.Params {
			params = append(params, map[string]any{"key": p.Key, "value": p.Value})
		}
		out["params"] = params
	}
	return out
}

func serializeInputConfig(c *domain.InputConfig) map[string]any {
	typ := c.Type
	if typ == "" {
		typ = domain.InputText
	}
	out := map[string]any{
		"key":  c.Key,
		"type": string(typ),
	}
	if c.Validation != "" {
		out["validation"] = c.Validation
	}
	if c.RetryLimit != 0 {
		out["retryLimit"] = c.RetryLimit
	}
	return out
}
