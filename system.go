// Package recommender assembles the book recommender: a hub routing messages
// between the suggestion, popularity and classification agents, with the
// catalog retriever behind a circuit breaker and every event fed to slog and
// Prometheus.
//
//	sys, err := recommender.New(cfg, recommender.WithCatalog(records))
//	if err != nil {
//	    return err
//	}
//	defer sys.Close()
//
//	result, err := sys.Recommend(ctx, suggestion.Request{Query: "space opera", TopK: 5})
//
// Every call builds a request message, dispatches it through the hub and
// converts an error_response back into an error: errors.Is(err,
// validation.ErrInvalid) for rejected requests, errors.Is(err,
// agent.ErrInternal) for failures inside an agent.
package recommender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/recommender/agent"
	"github.com/tailored-agentic-units/recommender/agent/classification"
	"github.com/tailored-agentic-units/recommender/agent/popularity"
	"github.com/tailored-agentic-units/recommender/agent/suggestion"
	"github.com/tailored-agentic-units/recommender/catalog"
	"github.com/tailored-agentic-units/recommender/metrics"
	"github.com/tailored-agentic-units/recommender/observability"
	"github.com/tailored-agentic-units/recommender/orchestrate/hub"
	"github.com/tailored-agentic-units/recommender/orchestrate/messaging"
	"github.com/tailored-agentic-units/recommender/orchestrate/workflows"
)

// CallerID is the sender of every request the System dispatches.
const CallerID = "api"

type options struct {
	retriever  catalog.Retriever
	source     catalog.Source
	classifier classification.Classifier
	logger     *slog.Logger
	registerer prometheus.Registerer
	observers  []observability.Observer
}

type Option func(*options)

// WithRetriever sets the retriever the suggestion pipeline searches. It is
// wrapped in a catalog.ResilientRetriever.
func WithRetriever(r catalog.Retriever) Option {
	return func(o *options) { o.retriever = r }
}

// WithSource sets the catalog the popularity agent analyses when a request
// carries no books.
func WithSource(s catalog.Source) Option {
	return func(o *options) { o.source = s }
}

// WithCatalog serves records through a catalog.MemoryRetriever, used both as
// retriever and as source.
func WithCatalog(records []catalog.Record) Option {
	return func(o *options) {
		m := catalog.NewMemoryRetriever(records)
		o.retriever = m
		o.source = m
	}
}

// WithClassifier replaces the default LexiconClassifier.
func WithClassifier(c classification.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the metrics collectors on reg instead of a
// registry private to the System.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithObserver adds an observer that receives every event.
func WithObserver(obs observability.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

type System struct {
	cfg          Config
	observerName string
	logger       *slog.Logger

	hub            hub.Hub
	popularity     *popularity.Agent
	suggestion     *suggestion.Agent
	classification *classification.Agent
	retriever      *catalog.ResilientRetriever

	registry   *prometheus.Registry
	collectors *metrics.Collectors
}

// New merges cfg over DefaultConfig, validates it and wires the agents into a
// hub. Without WithRetriever or WithCatalog every retrieval degrades to an
// empty result.
func New(cfg Config, opts ...Option) (*System, error) {
	merged := DefaultConfig()
	merged.Merge(&cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	s := &System{cfg: merged, logger: o.logger}
	if s.logger == nil {
		s.logger = merged.Hub.Logger
	}

	reg := o.registerer
	if reg == nil {
		s.registry = prometheus.NewRegistry()
		reg = s.registry
	}
	s.collectors = metrics.New(reg)

	base, err := observability.GetObserver(merged.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}
	if merged.Observer == "slog" {
		base = observability.NewSlogObserver(s.logger)
	}
	observer := observability.NewMultiObserver(append([]observability.Observer{base, metrics.NewObserver(s.collectors)}, o.observers...)...)

	// Components below resolve the observer by name.
	s.observerName = fmt.Sprintf("%s-%s", merged.Hub.Name, uuid.Must(uuid.NewV7()))
	observability.RegisterObserver(s.observerName, observer)

	if err := s.build(o, observer); err != nil {
		observability.UnregisterObserver(s.observerName)
		return nil, err
	}

	s.logger.Info("recommender ready",
		slog.String("hub", s.hub.Name()),
		slog.Int("agents", s.hub.Status().TotalAgents),
		slog.Bool("retriever", s.retriever != nil))
	return s, nil
}

func (s *System) build(o *options, observer observability.Observer) error {
	hubCfg := s.cfg.Hub
	hubCfg.Observer = s.observerName
	hubCfg.Logger = s.logger
	h, err := hub.New(hubCfg)
	if err != nil {
		return err
	}
	s.hub = h

	scorer, err := popularity.NewScorer(s.cfg.Popularity)
	if err != nil {
		return err
	}

	var retriever catalog.Retriever
	if o.retriever != nil {
		s.retriever = catalog.NewResilientRetriever(o.retriever, s.cfg.Retriever, s.logger, observer)
		retriever = s.retriever
	}

	source := o.source
	if source == nil {
		if src, ok := o.retriever.(catalog.Source); ok {
			source = src
		}
	}

	suggestionCfg := s.cfg.Suggestion
	suggestionCfg.Observer = s.observerName
	pipeline, err := suggestion.NewPipeline(suggestionCfg, retriever, scorer, s.logger)
	if err != nil {
		return err
	}

	classifier := o.classifier
	if classifier == nil {
		classifier = classification.NewLexiconClassifier()
	}

	agentOpts := []agent.Option{
		agent.WithLogger(s.logger),
		agent.WithObserver(observer),
		agent.WithMailboxSize(s.cfg.Hub.MailboxSize),
	}

	s.popularity = popularity.New(scorer, source, agentOpts...)
	s.suggestion = suggestion.New(pipeline, agentOpts...)
	s.classification, err = classification.New(classifier, s.cfg.Classifier, agentOpts...)
	if err != nil {
		return err
	}

	s.hub.Register(s.suggestion)
	s.hub.Register(s.popularity)
	s.hub.Register(s.classification)
	return nil
}

// Close releases the System's observer registration.
func (s *System) Close() {
	observability.UnregisterObserver(s.observerName)
}

func (s *System) Config() Config               { return s.cfg }
func (s *System) Hub() hub.Hub                 { return s.hub }
func (s *System) Metrics() *metrics.Collectors { return s.collectors }

// Registry returns the private metrics registry, or nil when WithRegisterer
// was used.
func (s *System) Registry() *prometheus.Registry { return s.registry }

// RetrieverState reports the circuit breaker state, or "" without a retriever.
func (s *System) RetrieverState() string {
	if s.retriever == nil {
		return ""
	}
	return s.retriever.State()
}

func dispatch[T any](ctx context.Context, s *System, to string, kind messaging.Kind, payload any) (T, error) {
	var zero T

	msg := messaging.NewMessage(CallerID, to, kind, payload).
		Priority(messaging.PriorityMedium).
		Build()

	resp, err := s.hub.Dispatch(ctx, msg)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", kind, err)
	}
	if resp == nil {
		return zero, fmt.Errorf("%w: %s produced no reply", agent.ErrInternal, kind)
	}
	if err := agent.AsError(resp); err != nil {
		return zero, err
	}
	return messaging.Decode[T](resp)
}

func (s *System) Recommend(ctx context.Context, req suggestion.Request) (suggestion.Result, error) {
	return dispatch[suggestion.Result](ctx, s, suggestion.ID, messaging.KindGetRecommendations, req)
}

func (s *System) Personalized(ctx context.Context, req suggestion.Request) (suggestion.Result, error) {
	return dispatch[suggestion.Result](ctx, s, suggestion.ID, messaging.KindGetPersonalizedRecommendations, req)
}

func (s *System) SemanticSearch(ctx context.Context, req suggestion.SearchRequest) (suggestion.SearchResult, error) {
	return dispatch[suggestion.SearchResult](ctx, s, suggestion.ID, messaging.KindSemanticSearch, req)
}

func (s *System) AnalyzePreferences(ctx context.Context, req suggestion.AnalyzeRequest) (suggestion.PreferenceAnalysis, error) {
	return dispatch[suggestion.PreferenceAnalysis](ctx, s, suggestion.ID, messaging.KindAnalyzeUserPreferences, req)
}

func (s *System) AnalyzePopularity(ctx context.Context, req popularity.AnalyzeRequest) (popularity.AnalysisResult, error) {
	return dispatch[popularity.AnalysisResult](ctx, s, popularity.ID, messaging.KindAnalyzePopularity, req)
}

// Trends detects trends in books, or in the whole catalog when books is empty.
func (s *System) Trends(ctx context.Context, books []catalog.Record) (popularity.TrendResult, error) {
	return dispatch[popularity.TrendResult](ctx, s, popularity.ID, messaging.KindDetectTrends, popularity.TrendRequest{Books: books})
}

func (s *System) ScoreRecommendations(ctx context.Context, req popularity.ScoreRequest) (popularity.ScoreResult, error) {
	return dispatch[popularity.ScoreResult](ctx, s, popularity.ID, messaging.KindScoreRecommendations, req)
}

func (s *System) PopularBooks(ctx context.Context, req popularity.PopularRequest) (popularity.PopularResult, error) {
	return dispatch[popularity.PopularResult](ctx, s, popularity.ID, messaging.KindGetPopularBooks, req)
}

func (s *System) Classify(ctx context.Context, req classification.ClassifyRequest) (classification.ClassificationResult, error) {
	return dispatch[classification.ClassificationResult](ctx, s, classification.ID, messaging.KindClassifyText, req)
}

func (s *System) DetectEmotion(ctx context.Context, text string) (classification.EmotionResult, error) {
	return dispatch[classification.EmotionResult](ctx, s, classification.ID, messaging.KindDetectEmotion, classification.EmotionRequest{Text: text})
}

func (s *System) CategorizeBook(ctx context.Context, book catalog.Record) (classification.CategorizationResult, error) {
	return dispatch[classification.CategorizationResult](ctx, s, classification.ID, messaging.KindCategorizeBook, classification.CategorizeRequest{Book: book})
}

// AgentStatus asks one agent for its status over the hub.
func (s *System) AgentStatus(ctx context.Context, agentID string) (agent.Status, error) {
	return dispatch[agent.Status](ctx, s, agentID, messaging.KindGetStatus, struct{}{})
}

// Status reports the hub registry without dispatching.
func (s *System) Status() hub.SystemStatus {
	return s.hub.Status()
}

// Announce broadcasts an announcement to every agent. Agents handle it on
// their next drain.
func (s *System) Announce(ctx context.Context, payload any) hub.BroadcastResult {
	return s.hub.Broadcast(ctx, CallerID, messaging.KindAnnouncement, payload, messaging.PriorityLow)
}

// RecommendBatch runs independent requests concurrently on the Batch worker
// pool, calling the pipeline directly. Results are aligned with reqs; with
// fail-fast disabled (the default) a failed request leaves its slot zero and
// is listed in Errors.
func (s *System) RecommendBatch(ctx context.Context, reqs []suggestion.Request) (workflows.ParallelResult[suggestion.Request, suggestion.Result], error) {
	cfg := s.cfg.Batch
	cfg.Observer = s.observerName

	observer, _ := observability.GetObserver(s.observerName)
	observability.Emit(ctx, observer, observability.EventBatchStart, observability.LevelInfo, "recommender.System", map[string]any{
		"requests": len(reqs),
	})

	pipeline := s.suggestion.Pipeline()
	result, err := workflows.ProcessParallel(ctx, cfg, reqs, pipeline.Recommend, nil)

	observability.Emit(ctx, observer, observability.EventBatchComplete, observability.LevelInfo, "recommender.System", map[string]any{
		"requests":  len(reqs),
		"succeeded": result.Succeeded(),
		"failed":    len(result.Errors),
	})
	return result, err
}
