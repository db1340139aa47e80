package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tailored-agentic-units/recommender/observability"
)

// Failure reasons attached to ErrRetrievalUnavailable and retriever.failure
// events.
const (
	ReasonTimeout     = "timeout"
	ReasonCircuitOpen = "circuit_open"
	ReasonRateLimited = "rate_limited"
	ReasonError       = "error"
)

// ResilienceConfig tunes ResilientRetriever.
//
// The breaker opens after FailureThreshold consecutive failures, stays open for
// OpenTimeout, then lets MaxRequests probes through. RateLimit is in searches
// per second; zero disables limiting.
type ResilienceConfig struct {
	Timeout          time.Duration `json:"timeout"`
	BreakerName      string        `json:"breaker_name"`
	MaxRequests      uint32        `json:"max_requests"`
	Interval         time.Duration `json:"interval"`
	OpenTimeout      time.Duration `json:"open_timeout"`
	FailureThreshold uint32        `json:"failure_threshold"`
	RateLimit        float64       `json:"rate_limit"`
	Burst            int           `json:"burst"`
}

func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		Timeout:          5 * time.Second,
		BreakerName:      "catalog-retriever",
		MaxRequests:      3,
		Interval:         time.Minute,
		OpenTimeout:      30 * time.Second,
		FailureThreshold: 5,
		Burst:            1,
	}
}

func (c *ResilienceConfig) Merge(source *ResilienceConfig) {
	if source.Timeout > 0 {
		c.Timeout = source.Timeout
	}
	if source.BreakerName != "" {
		c.BreakerName = source.BreakerName
	}
	if source.MaxRequests > 0 {
		c.MaxRequests = source.MaxRequests
	}
	if source.Interval > 0 {
		c.Interval = source.Interval
	}
	if source.OpenTimeout > 0 {
		c.OpenTimeout = source.OpenTimeout
	}
	if source.FailureThreshold > 0 {
		c.FailureThreshold = source.FailureThreshold
	}
	if source.RateLimit > 0 {
		c.RateLimit = source.RateLimit
	}
	if source.Burst > 0 {
		c.Burst = source.Burst
	}
}

// ResilientRetriever guards another Retriever. Every failure it returns wraps
// ErrRetrievalUnavailable.
//
// A search the caller abandons, by cancelling its context or letting a
// deadline without ErrSearchDeadline cause expire, is neither logged nor
// counted by the breaker. Its error also wraps the context error.
type ResilientRetriever struct {
	next     Retriever
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker[[]Record]
	limiter  *rate.Limiter
	logger   *slog.Logger
	observer observability.Observer
}

func NewResilientRetriever(next Retriever, cfg ResilienceConfig, logger *slog.Logger, observer observability.Observer) *ResilientRetriever {
	merged := DefaultResilienceConfig()
	merged.Merge(&cfg)

	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	r := &ResilientRetriever{
		next:     next,
		timeout:  merged.Timeout,
		logger:   logger,
		observer: observer,
	}

	threshold := merged.FailureThreshold
	r.breaker = gobreaker.NewCircuitBreaker[[]Record](gobreaker.Settings{
		Name:        merged.BreakerName,
		MaxRequests: merged.MaxRequests,
		Interval:    merged.Interval,
		Timeout:     merged.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, errAbandoned)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("retriever circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			observability.Emit(context.Background(), r.observer, observability.EventRetrieverBreakerState, observability.LevelWarning, "catalog.ResilientRetriever", map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	if merged.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(merged.RateLimit), max(merged.Burst, 1))
	}
	return r
}

// State reports the breaker state ("closed", "half-open" or "open").
func (r *ResilientRetriever) State() string {
	return r.breaker.State().String()
}

func (r *ResilientRetriever) Search(ctx context.Context, query string, k int) ([]Record, error) {
	parent := ctx
	if abandoned(parent) {
		return nil, abandon(parent)
	}

	ctx, cancel := context.WithTimeoutCause(parent, r.timeout, ErrSearchDeadline)
	defer cancel()

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			if abandoned(parent) {
				return nil, abandon(parent)
			}
			return nil, r.fail(ctx, ReasonRateLimited, err)
		}
	}

	records, err := r.breaker.Execute(func() ([]Record, error) {
		records, err := r.next.Search(ctx, query, k)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil && abandoned(parent) {
			err = fmt.Errorf("%w: %w", errAbandoned, parent.Err())
		}
		return records, err
	})
	if err != nil {
		if errors.Is(err, errAbandoned) {
			return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
		}
		return nil, r.fail(ctx, classify(err), err)
	}
	return records, nil
}

var errAbandoned = errors.New("search abandoned by caller")

// abandoned reports whether ctx ended for a reason other than a search
// deadline.
func abandoned(ctx context.Context) bool {
	return ctx.Err() != nil && !errors.Is(context.Cause(ctx), ErrSearchDeadline)
}

func abandon(ctx context.Context) error {
	return fmt.Errorf("%w: %w: %w", ErrRetrievalUnavailable, errAbandoned, ctx.Err())
}

func classify(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return ReasonCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonError
	}
}

func (r *ResilientRetriever) fail(ctx context.Context, reason string, err error) error {
	r.logger.WarnContext(ctx, "catalog retrieval failed",
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
	observability.Emit(ctx, r.observer, observability.EventRetrieverFailure, observability.LevelWarning, "catalog.ResilientRetriever", map[string]any{
		"reason": reason,
	})
	return fmt.Errorf("%w: %s: %w", ErrRetrievalUnavailable, reason, err)
}
