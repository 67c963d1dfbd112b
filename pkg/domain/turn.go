package domain

import (
	"encoding/json"
	"fmt"
)

// TurnType is the tag of a conversation turn response.
// The three tags are part of the wire contract with the playground client.
type TurnType string

const (
	// TurnOptions branches: the node offers options to choose from.
	TurnOptions TurnType = "options"
	// TurnInput gathers free-form input.
	TurnInput TurnType = "input"
	// TurnText shows plain text, or the final message of an ended session.
	TurnText TurnType = "text"
)

// TurnNode is the node summary embedded in options and input turns.
type TurnNode struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Message  string       `json:"message"`
	Executor ExecutorType `json:"executor,omitempty"`
	Output   Output       `json:"output"`
}

// TurnOption is one selectable option of a turn.
type TurnOption struct {
	OptionID   string     `json:"optionId"`
	Intent     string     `json:"intent"`
	Order      int        `json:"order,omitempty"`
	ActionType ActionType `json:"actionType,omitempty"`
}

// TurnInputConfig is the input constraint exposed to the client.
type TurnInputConfig struct {
	RetryLimit int            `json:"retryLimit"`
	Type       InputValueType `json:"type,omitempty"`
}

// Turn is the response of one conversation turn.
//
// Options live under nodeData.options for options turns and at the top level for
// input and text turns.
type Turn struct {
	Type TurnType

	Node           *TurnNode
	Options        []TurnOption
	IsAPIGenerated bool
	InputConfig    *TurnInputConfig

	Text      string
	Back, End bool

	SessionEnded bool
	Notice       string
}

// Clone returns a deep copy of the turn.
func (t Turn) Clone() Turn {
	out := t
	if t.Node != nil {
		n := *t.Node
		if t.Node.Output.Controls != nil {
			c := *t.Node.Output.Controls
			n.Output.Controls = &c
		}
		out.Node = &n
	}
	if t.Options != nil {
		out.Options = make([]TurnOption, len(t.Options))
		copy(out.Options, t.Options)
	}
	if t.InputConfig != nil {
		cfg := *t.InputConfig
		out.InputConfig = &cfg
	}
	return out
}

type optionsNodeData struct {
	Node           *TurnNode    `json:"node"`
	Options        []TurnOption `json:"options"`
	IsAPIGenerated bool         `json:"isApiGenerated"`
}

type inputNodeData struct {
	Node        *TurnNode        `json:"node"`
	InputConfig *TurnInputConfig `json:"inputConfig"`
}

type turnEnvelope struct {
	Type         TurnType        `json:"type"`
	NodeData     json.RawMessage `json:"nodeData"`
	Options      *[]TurnOption   `json:"options,omitempty"`
	Back         *bool           `json:"back,omitempty"`
	End          *bool           `json:"end,omitempty"`
	SessionEnded bool            `json:"sessionEnded,omitempty"`
	Notice       string          `json:"notice,omitempty"`
}

// MarshalJSON encodes the turn in its tagged wire shape.
func (t Turn) MarshalJSON() ([]byte, error) {
	env := turnEnvelope{
		Type:         t.Type,
		SessionEnded: t.SessionEnded,
		Notice:       t.Notice,
	}

	var data any
	switch t.Type {
	case TurnOptions:
		opts := t.Options
		if opts == nil {
			opts = []TurnOption{}
		}
		data = optionsNodeData{Node: t.Node, Options: opts, IsAPIGenerated: t.IsAPIGenerated}
	case TurnInput:
		data = inputNodeData{Node: t.Node, InputConfig: t.InputConfig}
		opts := nonNil(t.Options)
		env.Options = &opts
	case TurnText:
		data = t.Text
		opts := nonNil(t.Options)
		env.Options = &opts
		back, end := t.Back, t.End
		env.Back, env.End = &back, &end
	default:
		return nil, fmt.Errorf("unknown turn type %q", t.Type)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	env.NodeData = raw
	return json.Marshal(env)
}

// UnmarshalJSON decodes any of the three tagged wire shapes.
func (t *Turn) UnmarshalJSON(b []byte) error {
	var env turnEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}

	out := Turn{
		Type:         env.Type,
		SessionEnded: env.SessionEnded,
		Notice:       env.Notice,
	}

	switch env.Type {
	case TurnOptions:
		var data optionsNodeData
		if err := json.Unmarshal(env.NodeData, &data); err != nil {
			return fmt.Errorf("options turn: %w", err)
		}
		out.Node = data.Node
		out.Options = data.Options
		out.IsAPIGenerated = data.IsAPIGenerated
	case TurnInput:
		var data inputNodeData
		if err := json.Unmarshal(env.NodeData, &data); err != nil {
			return fmt.Errorf("input turn: %w", err)
		}
		out.Node = data.Node
		out.InputConfig = data.InputConfig
		if env.Options != nil {
			out.Options = *env.Options
		}
	case TurnText:
		if err := json.Unmarshal(env.NodeData, &out.Text); err != nil {
			return fmt.Errorf("text turn: %w", err)
		}
		if env.Options != nil {
			out.Options = *env.Options
		}
		if env.Back != nil {
			out.Back = *env.Back
		}
		if env.End != nil {
			out.End = *env.End
		}
	default:
		return fmt.Errorf("unknown turn type %q", env.Type)
	}

	*t = out
	return nil
}

func nonNil(opts []TurnOption) []TurnOption {
	if opts == nil {
		return []TurnOption{}
	}
	return opts
}
