package metrics

import (
	"context"

	"github.com/tailored-agentic-units/recommender/observability"
)

// Observer translates observability events into collector updates. Events it
// does not know are ignored.
type Observer struct {
	c *Collectors
}

func NewObserver(c *Collectors) *Observer {
	return &Observer{c: c}
}

func (o *Observer) OnEvent(ctx context.Context, event observability.Event) {
	switch event.Type {
	case observability.EventRoute:
		o.c.MessagesRouted.WithLabelValues(label(event, "kind")).Inc()
	case observability.EventRouteDrop:
		o.c.MessagesDropped.WithLabelValues(label(event, "reason")).Inc()
	case observability.EventBroadcast:
		o.c.Broadcasts.Inc()
	case observability.EventMessageFailed:
		o.c.HandlerFailures.WithLabelValues(event.Source, label(event, "code")).Inc()
	case observability.EventPipelineComplete:
		if ms, ok := event.Data["duration_ms"].(int64); ok {
			o.c.PipelineDuration.WithLabelValues(label(event, "kind")).Observe(float64(ms) / 1000)
		}
	case observability.EventStageComplete:
		o.c.PipelineStages.WithLabelValues(label(event, "stage"), label(event, "outcome")).Inc()
	case observability.EventRetrievalDegraded:
		o.c.RetrievalDegraded.Inc()
	case observability.EventBatchComplete:
		o.c.BatchRequests.WithLabelValues("ok").Add(count(event, "succeeded"))
		o.c.BatchRequests.WithLabelValues("error").Add(count(event, "failed"))
	case observability.EventRetrieverFailure:
		o.c.RetrieverFailures.WithLabelValues(label(event, "reason")).Inc()
	case observability.EventRetrieverBreakerState:
		o.c.BreakerState.WithLabelValues(label(event, "breaker")).Set(BreakerStateValue(label(event, "to")))
	}
}

func count(event observability.Event, key string) float64 {
	if n, ok := event.Data[key].(int); ok && n > 0 {
		return float64(n)
	}
	return 0
}

func label(event observability.Event, key string) string {
	if v, ok := event.Data[key].(string); ok && v != "" {
		return v
	}
	return "unknown"
}
