package codec

import (
	"fmt"
	"strconv"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// wireBot carries every field name a server bot has been seen with.
type wireBot struct {
	ID      any    `mapstructure:"id"`
	DBID    any    `mapstructure:"_id"`
	BotID   any    `mapstructure:"botId"`
	Name    string `mapstructure:"name"`
	BotName string `mapstructure:"botName"`
}

// wireNode carries every field name a server node has been seen with.
type wireNode struct {
	ID      any    `mapstructure:"id"`
	DBID    any    `mapstructure:"_id"`
	Title   string `mapstructure:"title"`
	Message string `mapstructure:"message"`

	// Executor is either the flat discriminator string or an object {type, config}.
	Executor  any            `mapstructure:"executor"`
	APIConfig map[string]any `mapstructure:"apiConfig"`
	Input     map[string]any `mapstructure:"input"`

	InputNextNodeID string `mapstructure:"inputNextNodeId"`

	// Output is either an object or, in older payloads, the bare type string.
	Output             any                        `mapstructure:"output"`
	OptionsSource      string                     `mapstructure:"optionsSource"`
	APIResponseMapping *domain.APIResponseMapping `mapstructure:"apiResponseMapping"`

	Options []wireOption `mapstructure:"options"`
}

// wireOption carries every field name a server option has been seen with.
type wireOption struct {
	ID         any    `mapstructure:"id"`
	OptionID   any    `mapstructure:"optionId"`
	Label      string `mapstructure:"label"`
	Intent     string `mapstructure:"intent"`
	NextNodeID string `mapstructure:"nextNodeId"`
	Next       string `mapstructure:"next"`
	ActionType string `mapstructure:"actionType"`
}

// wireExecutor is the object-shaped executor: {type, config}, or the
// canonical {type, api, input} form.
type wireExecutor struct {
	Type   string         `mapstructure:"type"`
	Config map[string]any `mapstructure:"config"`
	API    map[string]any `mapstructure:"api"`
	Input  map[string]any `mapstructure:"input"`
}

// decode runs mapstructure with the weak typing the server payloads need
// (numeric ids, numbers encoded as strings).
func decode(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// firstString returns the first candidate that resolves to a non-empty identifier.
func firstString(candidates ...any) string {
	for _, c := range candidates {
		if s := identifier(c); s != "" {
			return s
		}
	}
	return ""
}

// identifier flattens the shapes an identifier arrives in: strings, numbers and
// extended-JSON object ids ({"$oid": "..."}).
func identifier(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case map[string]any:
		if oid, ok := id["$oid"].(string); ok {
			return oid
		}
		return ""
	default:
		return fmt.Sprint(id)
	}
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

// asList accepts the list shapes produced by encoding/json, yaml.v3 and Go literals.
func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []map[string]any:
		out := make([]any, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}
