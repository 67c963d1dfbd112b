package domain

import "fmt"

// ExecutorType discriminates the Executor tagged union.
type ExecutorType string

const (
	// ExecutorNone is the editor's name for "no executor"; it is never stored on a node.
	ExecutorNone  ExecutorType = "none"
	ExecutorAPI   ExecutorType = "api"
	ExecutorInput ExecutorType = "input"
)

// ParseExecutorType validates an executor discriminator.
// An empty string is treated as "none".
func ParseExecutorType(s string) (ExecutorType, error) {
	switch ExecutorType(s) {
	case "", ExecutorNone:
		return ExecutorNone, nil
	case ExecutorAPI:
		return ExecutorAPI, nil
	case ExecutorInput:
		return ExecutorInput, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidExecutorType, s)
}

// MethodGET is the only method bot-authored flows may call.
const MethodGET = "GET"

// Param is one query parameter of an API call.
type Param struct {
	Key   string `json:"key" yaml:"key" mapstructure:"key"`
	Value string `json:"value" yaml:"value" mapstructure:"value"`
}

// APIConfig configures a read-only external API call.
type APIConfig struct {
	Endpoint string  `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	Method   string  `json:"method" yaml:"method" mapstructure:"method"`
	Params   []Param `json:"params,omitempty" yaml:"params,omitempty" mapstructure:"params"`
}

// InputValueType is the kind of value an input executor accepts.
type InputValueType string

const (
	InputText   InputValueType = "text"
	InputNumber InputValueType = "number"
)

// InputConfig configures free-form input capture.
type InputConfig struct {
	// Key is the context variable the captured value is stored under.
	Key  string         `json:"key" yaml:"key" mapstructure:"key"`
	Type InputValueType `json:"type" yaml:"type" mapstructure:"type"`
	// Validation is a regular expression the raw input must match.
	Validation string `json:"validation,omitempty" yaml:"validation,omitempty" mapstructure:"validation"`
	RetryLimit int    `json:"retryLimit,omitempty" yaml:"retryLimit,omitempty" mapstructure:"retryLimit"`
}

// Executor describes what a node does before producing output.
// Exactly one of API or Input is set, matching Type.
type Executor struct {
	Type  ExecutorType `json:"type" yaml:"type"`
	API   *APIConfig   `json:"api,omitempty" yaml:"api,omitempty"`
	Input *InputConfig `json:"input,omitempty" yaml:"input,omitempty"`
}

// NewExecutor returns a freshly defaulted executor for t, or nil for "none".
func NewExecutor(t ExecutorType) *Executor {
	switch t {
	case ExecutorAPI:
		return &Executor{Type: ExecutorAPI, API: &APIConfig{Method: MethodGET}}
	case ExecutorInput:
		return &Executor{Type: ExecutorInput, Input: &InputConfig{
			Key:        DefaultInputKey,
			Type:       InputText,
			RetryLimit: DefaultRetryLimit,
		}}
	}
	return nil
}

// Clone returns a deep copy of the executor.
func (e Executor) Clone() Executor {
	out := e
	if e.API != nil {
		api := *e.API
		if e.API.Params != nil {
			api.Params = make([]Param, len(e.API.Params))
			copy(api.Params, e.API.Params)
		}
		out.API = &api
	}
	if e.Input != nil {
		in := *e.Input
		out.Input = &in
	}
	return out
}
