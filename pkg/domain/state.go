package domain

import "time"

// Status defines where a session stands in the conversation state machine.
type Status string

const (
	StatusAwaitingStart Status = "awaiting_start" // Session created, no node entered yet
	StatusAtNode        Status = "at_node"        // Node rendered, waiting for an option selection
	StatusAwaitingInput Status = "awaiting_input" // Input node rendered, waiting for free-form input
	StatusEnded         Status = "ended"          // Sink state reached
)

// GeneratedOption is an option synthesized at runtime from an API response.
type GeneratedOption struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Value      any    `json:"value,omitempty"`
	NextNodeID string `json:"next_node_id"`
}

// State represents the current snapshot of one conversation.
type State struct {
	SessionID string `json:"session_id"`
	BotID     string `json:"bot_id"`

	Status        Status `json:"status"`
	CurrentNodeID string `json:"current_node_id,omitempty"`

	// History is the stack of visited nodes; the last element is the current node.
	History []string `json:"history,omitempty"`

	// Retries counts failed input submissions at the current input node.
	Retries int `json:"retries,omitempty"`

	// Context holds captured input values and api responses (keyed by node id).
	Context map[string]any `json:"context,omitempty"`

	// Generated holds the dynamic options offered by the current node.
	Generated []GeneratedOption `json:"generated,omitempty"`

	// Notice is a one-shot message for the next render (e.g. an input validation failure).
	Notice string `json:"notice,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewState creates a clean session waiting to be started.
func NewState(sessionID, botID string) *State {
	return &State{
		SessionID: sessionID,
		BotID:     botID,
		Status:    StatusAwaitingStart,
		Context:   make(map[string]any),
		History:   []string{},
		UpdatedAt: time.Now().UTC(),
	}
}

// Ended reports whether the session reached the sink state.
func (s *State) Ended() bool {
	return s.Status == StatusEnded
}

// CanGoBack reports whether the history holds a node before the current one.
func (s *State) CanGoBack() bool {
	return len(s.History) > 1
}

// Snapshot returns a deep copy of the state safe for independent mutation.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.Context = make(map[string]any, len(s.Context))
	for k, v := range s.Context {
		next.Context[k] = v
	}
	if s.History != nil {
		next.History = make([]string, len(s.History))
		copy(next.History, s.History)
	}
	if s.Generated != nil {
		next.Generated = make([]GeneratedOption, len(s.Generated))
		copy(next.Generated, s.Generated)
	}
	return &next
}
