package domain

import (
	"reflect"
)

// StateDiff represents the changes between two session states.
// It is serialized to JSON for partial updates on playground clients.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	CurrentNodeID *string `json:"current_node_id,omitempty"`
	Status        *Status `json:"status,omitempty"`

	// Context contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Context map[string]any `json:"context,omitempty"`

	// History is the full stack when it changed; back navigation pops, so it is not append-only.
	History []string `json:"history,omitempty"`

	Retries *int `json:"retries,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.CurrentNodeID != newState.CurrentNodeID {
		diff.CurrentNodeID = &newState.CurrentNodeID
	}
	if oldState == nil || oldState.Status != newState.Status {
		diff.Status = &newState.Status
	}
	if oldState == nil || oldState.Retries != newState.Retries {
		if oldState != nil || newState.Retries != 0 {
			diff.Retries = &newState.Retries
		}
	}

	diff.Context = diffContext(oldState, newState)

	if oldState == nil || !reflect.DeepEqual(oldState.History, newState.History) {
		if len(newState.History) > 0 || (oldState != nil && len(oldState.History) > 0) {
			diff.History = append([]string{}, newState.History...)
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffContext(old *State, new *State) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Context {
			delta[k] = v
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVal := range new.Context {
		oldVal, exists := old.Context[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old.Context {
		if _, exists := new.Context[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Status == nil &&
		d.Retries == nil &&
		len(d.Context) == 0 &&
		d.History == nil
}
