package domain

import (
	"errors"
	"fmt"
)

// Structural validation errors returned by editing operations.
var (
	// ErrMinimumNodeCount is returned when deleting the last node of a bot.
	ErrMinimumNodeCount = errors.New("a bot must keep at least one node")
	// ErrMaxOptionsReached is returned when a node already carries MaxOptionsPerNode options.
	ErrMaxOptionsReached = errors.New("maximum number of options reached")

	ErrNodeNotFound        = errors.New("node not found")
	ErrOptionNotFound      = errors.New("option not found")
	ErrUnknownField        = errors.New("unknown field")
	ErrInvalidFieldValue   = errors.New("invalid field value")
	ErrInvalidExecutorType = errors.New("invalid executor type")
)

// ErrMalformedGraph is returned when a server payload carries no usable node list.
// It is distinct from an empty node list, which normalizes to a default Welcome node.
var ErrMalformedGraph = errors.New("bot data is missing or invalid")

// ErrNotFound is returned when a bot does not exist.
var ErrNotFound = errors.New("bot not found")

// Runtime errors.
var (
	// ErrSessionNotFound is returned when a session ID cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned when a turn is submitted to an ended session.
	ErrSessionEnded = errors.New("session has ended")
	// ErrUnknownOption is returned when the submitted option id is not offered by the current node.
	ErrUnknownOption = errors.New("unknown option")
	// ErrDanglingReference is returned when a transition targets a node that does not exist.
	ErrDanglingReference = errors.New("dangling node reference")
	// ErrMethodNotAllowed is returned for api executors configured with anything but GET.
	ErrMethodNotAllowed = errors.New("only GET is allowed for api executors")
)

// DanglingReferenceError carries the source and missing target of a broken transition.
type DanglingReferenceError struct {
	NodeID   string
	OptionID string
	TargetID string
}

func (e *DanglingReferenceError) Error() string {
	if e.OptionID != "" {
		return fmt.Sprintf("node '%s' option '%s' targets missing node '%s'", e.NodeID, e.OptionID, e.TargetID)
	}
	return fmt.Sprintf("node '%s' targets missing node '%s'", e.NodeID, e.TargetID)
}

func (e *DanglingReferenceError) Unwrap() error {
	return ErrDanglingReference
}
