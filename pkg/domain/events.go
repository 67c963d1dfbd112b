package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter      EventType = "node_enter"
	EventNodeLeave      EventType = "node_leave"
	EventExecutorCall   EventType = "executor_call"
	EventExecutorReturn EventType = "executor_return"
	EventSessionEnd     EventType = "session_end"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	BotID     string    `json:"bot_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID     string     `json:"node_id"`
	OutputType OutputType `json:"output_type"`
}

// ExecutorEvent represents an executor run (api call or input capture).
type ExecutorEvent struct {
	EventBase
	NodeID   string        `json:"node_id"`
	Executor ExecutorType  `json:"executor"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for runtime observability.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnExecutor   func(context.Context, *ExecutorEvent)
	OnSessionEnd func(context.Context, *NodeEvent)
}
