package runtime

import (
	"context"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
)

func (e *Engine) base(t domain.EventType, state *domain.State) domain.EventBase {
	return domain.EventBase{
		Timestamp: e.now().UTC(),
		Type:      t,
		SessionID: state.SessionID,
		BotID:     state.BotID,
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, state *domain.State, node *domain.Node) {
	if e.hooks.OnNodeEnter == nil {
		return
	}
	e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
		EventBase:  e.base(domain.EventNodeEnter, state),
		NodeID:     node.ID,
		OutputType: node.Output.Type,
	})
}

func (e *Engine) emitNodeLeave(ctx context.Context, state *domain.State, node *domain.Node) {
	if e.hooks.OnNodeLeave == nil {
		return
	}
	e.hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase:  e.base(domain.EventNodeLeave, state),
		NodeID:     node.ID,
		OutputType: node.Output.Type,
	})
}

func (e *Engine) emitExecutor(ctx context.Context, state *domain.State, node *domain.Node, d time.Duration, isError bool) {
	if e.hooks.OnExecutor == nil || node.Executor == nil {
		return
	}
	e.hooks.OnExecutor(ctx, &domain.ExecutorEvent{
		EventBase: e.base(domain.EventExecutorReturn, state),
		NodeID:    node.ID,
		Executor:  node.Executor.Type,
		Duration:  d,
		IsError:   isError,
	})
}

func (e *Engine) emitSessionEnd(ctx context.Context, state *domain.State, node *domain.Node) {
	if e.hooks.OnSessionEnd == nil {
		return
	}
	e.hooks.OnSessionEnd(ctx, &domain.NodeEvent{
		EventBase:  e.base(domain.EventSessionEnd, state),
		NodeID:     node.ID,
		OutputType: node.Output.Type,
	})
}
