// Package metrics exposes Prometheus collectors for the hub, the agents and
// the recommendation pipeline, and an Observer that feeds them from
// observability events.
//
// Collectors are registered on the Registerer passed to New, so tests can use
// a private prometheus.NewRegistry instead of the global default.
//
//	collectors := metrics.New(nil) // prometheus.DefaultRegisterer
//	observability.RegisterObserver("metrics", metrics.NewObserver(collectors))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "recommender"

type Collectors struct {
	// Hub
	MessagesRouted  *prometheus.CounterVec
	MessagesDropped *prometheus.CounterVec
	Broadcasts      prometheus.Counter

	// Agents
	HandlerFailures *prometheus.CounterVec

	// Pipeline
	PipelineDuration  *prometheus.HistogramVec
	PipelineStages    *prometheus.CounterVec
	RetrievalDegraded prometheus.Counter
	BatchRequests     *prometheus.CounterVec

	// Retriever
	RetrieverFailures *prometheus.CounterVec
	BreakerState      *prometheus.GaugeVec
}

// New creates the collectors and registers them on reg. A nil reg means
// prometheus.DefaultRegisterer. New panics if the collectors were already
// registered on reg.
func New(reg prometheus.Registerer) *Collectors {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collectors{
		MessagesRouted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hub",
				Name:      "messages_routed_total",
				Help:      "Total number of messages delivered to an agent mailbox",
			},
			[]string{"kind"},
		),
		MessagesDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hub",
				Name:      "messages_dropped_total",
				Help:      "Total number of messages the hub could not deliver",
			},
			[]string{"reason"},
		),
		Broadcasts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "hub",
				Name:      "broadcasts_total",
				Help:      "Total number of broadcasts",
			},
		),
		HandlerFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "agent",
				Name:      "handler_failures_total",
				Help:      "Total number of requests answered with an error_response",
			},
			[]string{"agent", "code"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "duration_seconds",
				Help:      "Duration of recommendation pipeline runs in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"kind"},
		),
		PipelineStages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "stage_total",
				Help:      "Total number of pipeline stage executions by outcome",
			},
			[]string{"stage", "outcome"},
		),
		RetrievalDegraded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "retrieval_degraded_total",
				Help:      "Total number of pipeline runs that continued with zero retrieved candidates",
			},
		),
		BatchRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "batch_requests_total",
				Help:      "Total number of batched recommendation requests by outcome",
			},
			[]string{"outcome"},
		),
		RetrieverFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "retriever",
				Name:      "failures_total",
				Help:      "Total number of failed catalog retrievals",
			},
			[]string{"reason"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "retriever",
				Name:      "breaker_state",
				Help:      "Retriever circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"breaker"},
		),
	}
}

// BreakerStateValue maps a gobreaker state name to its gauge value. Unknown
// names read as closed.
func BreakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	}
	return 0
}
