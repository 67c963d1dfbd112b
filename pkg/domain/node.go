package domain

// OutputType defines how a node presents itself after its executor runs.
type OutputType string

const (
	// OutputText shows CustomText (or the node message) plus back/end affordances.
	OutputText OutputType = "text"
	// OutputOptions lists the node options (static or dynamic) plus back/end affordances.
	OutputOptions OutputType = "options"
	// OutputEnd terminates the conversation with a final message.
	OutputEnd OutputType = "end"
)

// Valid reports whether t is a known output type.
func (t OutputType) Valid() bool {
	switch t {
	case OutputText, OutputOptions, OutputEnd:
		return true
	}
	return false
}

// OptionsSource defines where the options of a node come from.
type OptionsSource string

const (
	SourceStatic  OptionsSource = "static"
	SourceDynamic OptionsSource = "dynamic"
)

// Controls toggles the affordances the runtime injects next to a node's output.
type Controls struct {
	Back bool `json:"back" yaml:"back" mapstructure:"back"`
	End  bool `json:"end" yaml:"end" mapstructure:"end"`
}

// Output describes the presentation mode of a node.
type Output struct {
	Type       OutputType `json:"type" yaml:"type" mapstructure:"type"`
	CustomText string     `json:"customText,omitempty" yaml:"customText,omitempty" mapstructure:"customText"`

	// Controls is nil when the author never touched the toggles; both affordances are then enabled.
	Controls *Controls `json:"controls,omitempty" yaml:"controls,omitempty" mapstructure:"controls"`
}

// BackEnabled reports whether the "back" affordance should be offered.
func (o Output) BackEnabled() bool {
	return o.Controls == nil || o.Controls.Back
}

// EndEnabled reports whether the "end" affordance should be offered.
func (o Output) EndEnabled() bool {
	return o.Controls == nil || o.Controls.End
}

// APIResponseMapping projects an API response array into generated options.
type APIResponseMapping struct {
	// DataField is a dotted path to the array inside the response. Empty means the response is the array.
	DataField  string `json:"dataField" yaml:"dataField" mapstructure:"dataField"`
	LabelField string `json:"labelField" yaml:"labelField" mapstructure:"labelField"`
	ValueField string `json:"valueField" yaml:"valueField" mapstructure:"valueField"`
	// NextNodeID is the target of every generated option.
	NextNodeID string `json:"nextNodeId" yaml:"nextNodeId" mapstructure:"nextNodeId"`
}

// Node represents one conversational state of a controlled bot.
type Node struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Message string `json:"message" yaml:"message"`

	// Executor is nil for nodes that only display their message/output.
	Executor *Executor `json:"executor,omitempty" yaml:"executor,omitempty"`

	// InputNextNodeID is the single successor of an input node.
	InputNextNodeID string `json:"inputNextNodeId,omitempty" yaml:"inputNextNodeId,omitempty"`

	Output             Output              `json:"output" yaml:"output"`
	OptionsSource      OptionsSource       `json:"optionsSource,omitempty" yaml:"optionsSource,omitempty"`
	APIResponseMapping *APIResponseMapping `json:"apiResponseMapping,omitempty" yaml:"apiResponseMapping,omitempty"`

	Options []Option `json:"options" yaml:"options"`
}

// IsInput reports whether the node captures free-form input.
func (n *Node) IsInput() bool {
	return n.Executor != nil && n.Executor.Type == ExecutorInput
}

// IsTerminal reports whether reaching the node ends the conversation.
func (n *Node) IsTerminal() bool {
	return n.Output.Type == OutputEnd
}

// IsDynamic reports whether the node's options are generated from an API response.
func (n *Node) IsDynamic() bool {
	return n.OptionsSource == SourceDynamic
}

// FindOption returns the option with the given id.
func (n *Node) FindOption(id string) (*Option, bool) {
	for i := range n.Options {
		if n.Options[i].ID == id {
			return &n.Options[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.Executor != nil {
		exec := n.Executor.Clone()
		out.Executor = &exec
	}
	if n.Output.Controls != nil {
		c := *n.Output.Controls
		out.Output.Controls = &c
	}
	if n.APIResponseMapping != nil {
		m := *n.APIResponseMapping
		out.APIResponseMapping = &m
	}
	if n.Options != nil {
		out.Options = make([]Option, len(n.Options))
		copy(out.Options, n.Options)
	}
	return out
}
