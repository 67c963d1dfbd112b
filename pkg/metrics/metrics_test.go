package metrics_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/tendril/pkg/domain"
	"github.com/aretw0/tendril/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := metrics.New()
	var chained int
	hooks := m.Hooks(domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) { chained++ },
	})
	ctx := context.Background()
	base := domain.EventBase{BotID: "b1", SessionID: "s1"}

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: base, NodeID: "welcome"})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: base, NodeID: "welcome"})
	hooks.OnExecutor(ctx, &domain.ExecutorEvent{EventBase: base, Executor: domain.ExecutorAPI, Duration: time.Second})
	hooks.OnExecutor(ctx, &domain.ExecutorEvent{EventBase: base, Executor: domain.ExecutorInput, IsError: true})
	hooks.OnSessionEnd(ctx, &domain.NodeEvent{EventBase: base, NodeID: "bye"})
	m.ObserveTurn("b1", domain.TurnOptions)

	assert.Equal(t, 2, chained)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.NodeVisits.WithLabelValues("b1", "welcome")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExecutorErrors.WithLabelValues("input")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SessionsEnded.WithLabelValues("b1")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Turns.WithLabelValues("b1", "options")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ExecutorDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.ObserveTurn("b1", domain.TurnText)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tendril_turns_total{bot_id="b1",type="text"} 1`)
}
