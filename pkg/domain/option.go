package domain

// ActionType tags what selecting an option does.
type ActionType string

const (
	// ActionNormal moves to the option's NextNodeID.
	ActionNormal ActionType = "normal"
	// ActionBack returns to the previous node of the session history (runtime-injected).
	ActionBack ActionType = "back"
	// ActionEnd terminates the session (runtime-injected).
	ActionEnd ActionType = "end"
)

// Option is a labeled edge out of a node.
type Option struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`

	// NextNodeID may be empty until the author wires it.
	NextNodeID string     `json:"nextNodeId" yaml:"nextNodeId"`
	ActionType ActionType `json:"actionType,omitempty" yaml:"actionType,omitempty"`
}

// IsNavigation reports whether the option points at another node (as opposed to back/end).
func (o Option) IsNavigation() bool {
	return o.ActionType == "" || o.ActionType == ActionNormal
}

// IsWired reports whether the author has set a target.
func (o Option) IsWired() bool {
	return o.NextNodeID != ""
}
