package metrics_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tailored-agentic-units/recommender/metrics"
	"github.com/tailored-agentic-units/recommender/observability"
)

func newObserver(t *testing.T) (*metrics.Collectors, *metrics.Observer) {
	t.Helper()
	c := metrics.New(prometheus.NewRegistry())
	return c, metrics.NewObserver(c)
}

func emit(obs observability.Observer, eventType observability.EventType, source string, data map[string]any) {
	observability.Emit(context.Background(), obs, eventType, observability.LevelInfo, source, data)
}

func TestObserver_HubEvents(t *testing.T) {
	c, obs := newObserver(t)

	emit(obs, observability.EventRoute, "hub", map[string]any{"kind": "get_recommendations"})
	emit(obs, observability.EventRoute, "hub", map[string]any{"kind": "get_recommendations"})
	emit(obs, observability.EventRouteDrop, "hub", map[string]any{"reason": "unknown_receiver"})
	emit(obs, observability.EventBroadcast, "hub", map[string]any{"delivered": 2})

	if got := testutil.ToFloat64(c.MessagesRouted.WithLabelValues("get_recommendations")); got != 2 {
		t.Errorf("messages routed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.MessagesDropped.WithLabelValues("unknown_receiver")); got != 1 {
		t.Errorf("messages dropped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.Broadcasts); got != 1 {
		t.Errorf("broadcasts = %v, want 1", got)
	}
}

func TestObserver_PipelineEvents(t *testing.T) {
	c, obs := newObserver(t)

	emit(obs, observability.EventStageComplete, "pipeline", map[string]any{"stage": "retrieve", "outcome": "degraded"})
	emit(obs, observability.EventStageComplete, "pipeline", map[string]any{"stage": "filter", "outcome": "ok"})
	emit(obs, observability.EventRetrievalDegraded, "pipeline", nil)
	emit(obs, observability.EventPipelineComplete, "pipeline", map[string]any{"kind": "get_recommendations", "duration_ms": int64(40)})
	emit(obs, observability.EventMessageFailed, "suggestion", map[string]any{"code": "validation_error"})

	if got := testutil.ToFloat64(c.PipelineStages.WithLabelValues("retrieve", "degraded")); got != 1 {
		t.Errorf("retrieve/degraded = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.RetrievalDegraded); got != 1 {
		t.Errorf("retrieval degraded = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(c.PipelineDuration); got != 1 {
		t.Errorf("pipeline duration series = %d, want 1", got)
	}
	if got := testutil.ToFloat64(c.HandlerFailures.WithLabelValues("suggestion", "validation_error")); got != 1 {
		t.Errorf("handler failures = %v, want 1", got)
	}
}

func TestObserver_BatchEvents(t *testing.T) {
	c, obs := newObserver(t)

	emit(obs, observability.EventBatchComplete, "recommender.System", map[string]any{"requests": 3, "succeeded": 2, "failed": 1})
	emit(obs, observability.EventBatchComplete, "recommender.System", map[string]any{"requests": 1, "succeeded": 1, "failed": 0})

	if got := testutil.ToFloat64(c.BatchRequests.WithLabelValues("ok")); got != 3 {
		t.Errorf("batch requests{ok} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.BatchRequests.WithLabelValues("error")); got != 1 {
		t.Errorf("batch requests{error} = %v, want 1", got)
	}
}

func TestObserver_RetrieverEvents(t *testing.T) {
	c, obs := newObserver(t)

	emit(obs, observability.EventRetrieverFailure, "catalog", map[string]any{"reason": "timeout"})
	emit(obs, observability.EventRetrieverBreakerState, "catalog", map[string]any{"breaker": "catalog-retriever", "from": "closed", "to": "open"})

	if got := testutil.ToFloat64(c.RetrieverFailures.WithLabelValues("timeout")); got != 1 {
		t.Errorf("retriever failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.BreakerState.WithLabelValues("catalog-retriever")); got != 2 {
		t.Errorf("breaker state = %v, want 2 (open)", got)
	}
}

func TestObserver_MissingLabels(t *testing.T) {
	c, obs := newObserver(t)

	emit(obs, observability.EventRoute, "hub", nil)

	if got := testutil.ToFloat64(c.MessagesRouted.WithLabelValues("unknown")); got != 1 {
		t.Errorf("messages routed{kind=unknown} = %v, want 1", got)
	}
}

func TestBreakerStateValue(t *testing.T) {
	tests := map[string]float64{"closed": 0, "half-open": 1, "open": 2, "": 0}
	for state, want := range tests {
		if got := metrics.BreakerStateValue(state); got != want {
			t.Errorf("BreakerStateValue(%q) = %v, want %v", state, got, want)
		}
	}
}
