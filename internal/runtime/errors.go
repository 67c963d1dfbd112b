package runtime

import (
	"errors"
	"fmt"

	"github.com/aretw0/tendril/pkg/domain"
)

// ErrNotStarted is returned when rendering a session that has not been started.
var ErrNotStarted = errors.New("session not started")

// InputValidationError reports a rejected submission at an input node.
// The session stays at the node; Remaining is the number of attempts left.
type InputValidationError struct {
	NodeID    string
	Reason    string
	Remaining int
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("node '%s' rejected input: %s", e.NodeID, e.Reason)
}

// UnhandledExecutorError represents an executor that could not run.
type UnhandledExecutorError struct {
	NodeID   string
	Executor domain.ExecutorType
	Cause    string
	Err      error
}

func (e *UnhandledExecutorError) Error() string {
	return fmt.Sprintf("node '%s' %s executor failed: %s", e.NodeID, e.Executor, e.Cause)
}

func (e *UnhandledExecutorError) Unwrap() error {
	return e.Err
}
