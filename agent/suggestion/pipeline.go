package suggestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tailored-agentic-units/recommender/agent"
	"github.com/tailored-agentic-units/recommender/agent/popularity"
	"github.com/tailored-agentic-units/recommender/catalog"
	"github.com/tailored-agentic-units/recommender/observability"
	"github.com/tailored-agentic-units/recommender/orchestrate/config"
	"github.com/tailored-agentic-units/recommender/orchestrate/messaging"
	"github.com/tailored-agentic-units/recommender/orchestrate/workflows"
	"github.com/tailored-agentic-units/recommender/validation"
)

// CategoryAll disables the category filter.
const CategoryAll = "All"

// Stage outcomes reported on EventStageComplete.
const (
	OutcomeOK       = "ok"
	OutcomeDegraded = "degraded"
	OutcomeError    = "error"
)

type stage string

const (
	stageRetrieve    stage = "retrieve"
	stageFilter      stage = "filter"
	stageScore       stage = "score"
	stagePersonalize stage = "personalize"
	stageDeduplicate stage = "deduplicate"
	stageRank        stage = "rank"
)

func (s stage) String() string {
	return string(s)
}

var (
	recommendStages    = []stage{stageRetrieve, stageFilter, stageScore, stageDeduplicate, stageRank}
	personalizedStages = []stage{stageRetrieve, stageFilter, stageScore, stagePersonalize, stageDeduplicate, stageRank}
)

// workingSet is the request-local state threaded through the stages. Nothing
// in it is shared between requests.
type workingSet struct {
	query   string
	topK    int
	filters AppliedFilters
	profile *Profile

	candidates []catalog.ScoredCandidate
	found      int
	filtered   int
	unique     int
	degraded   bool
	cause      error
}

// Pipeline turns a request into ranked recommendations: retrieve, filter,
// score, personalize (personalized requests only), deduplicate, rank and
// truncate. It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	cfg       Config
	retriever catalog.Retriever
	scorer    *popularity.Scorer
	logger    *slog.Logger
	observer  observability.Observer
}

// NewPipeline merges cfg over DefaultConfig and validates it. A nil retriever
// is allowed; every retrieval then degrades to zero candidates.
func NewPipeline(cfg Config, retriever catalog.Retriever, scorer *popularity.Scorer, logger *slog.Logger) (*Pipeline, error) {
	merged := DefaultConfig()
	merged.Merge(&cfg)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if scorer == nil {
		return nil, fmt.Errorf("%w: scorer is required", ErrInvalidConfig)
	}

	observer, err := observability.GetObserver(merged.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		cfg:       merged,
		retriever: retriever,
		scorer:    scorer,
		logger:    logger,
		observer:  observer,
	}, nil
}

func (p *Pipeline) Config() Config {
	return p.cfg
}

// Recommend runs the general recommendation pipeline.
func (p *Pipeline) Recommend(ctx context.Context, req Request) (Result, error) {
	ws, err := p.prepare(req, false)
	if err != nil {
		return Result{}, err
	}
	return p.run(ctx, messaging.KindGetRecommendations, recommendStages, ws)
}

// Personalized runs the pipeline with a preference profile built from the
// query, the reading history and any explicit preferences.
func (p *Pipeline) Personalized(ctx context.Context, req Request) (Result, error) {
	ws, err := p.prepare(req, true)
	if err != nil {
		return Result{}, err
	}

	result, err := p.run(ctx, messaging.KindGetPersonalizedRecommendations, personalizedStages, ws)
	if err != nil {
		return result, err
	}

	score := ws.profile.Score(result.Recommendations)
	result.PreferenceProfile = ws.profile
	result.PersonalizationScore = &score
	return result, nil
}

// Search returns the raw retrieval for a query, without filtering or scoring.
func (p *Pipeline) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	if err := validation.Struct(&req); err != nil {
		return SearchResult{}, err
	}
	topK := req.TopK
	if topK == 0 {
		topK = p.cfg.DefaultTopK
	}

	result := SearchResult{Query: req.Query, Results: []SearchHit{}}
	records, err := p.search(ctx, req.Query, topK)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return SearchResult{}, fmt.Errorf("semantic search abandoned: %w", ctxErr)
		}
		result.Degraded = true
	}

	for i, r := range records {
		result.Results = append(result.Results, SearchHit{Record: r, SimilarityRank: i + 1})
	}
	result.TotalResults = len(result.Results)
	result.SearchedAt = time.Now()
	return result, nil
}

// AnalyzePreferences derives the preference profile a personalized request
// with the same inputs would use.
func (p *Pipeline) AnalyzePreferences(req AnalyzeRequest) (PreferenceAnalysis, error) {
	if err := validation.Struct(&req); err != nil {
		return PreferenceAnalysis{}, err
	}
	fromQuery := ExtractQueryPreferences(req.Query)
	history := AnalyzeHistory(req.UserHistory)
	return PreferenceAnalysis{
		Query:      req.Query,
		FromQuery:  fromQuery,
		History:    history,
		Combined:   CombinePreferences(fromQuery, history, req.UserPreferences, p.cfg.PersonalizedMinRating),
		AnalyzedAt: time.Now(),
	}, nil
}

// prepare validates req and resolves its filters before any stage runs.
func (p *Pipeline) prepare(req Request, personalized bool) (*workingSet, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	emotion, err := ResolveTone(req.Filters.EmotionTone)
	if err != nil {
		return nil, err
	}

	ws := &workingSet{query: req.Query, topK: req.TopK}
	if ws.topK == 0 {
		ws.topK = p.cfg.DefaultTopK
	}

	ws.filters.MinRating = req.Filters.MinRating
	if c := req.Filters.Category; c != "" && c != CategoryAll {
		ws.filters.Category = c
	}
	if emotion != "" {
		ws.filters.EmotionTone = req.Filters.EmotionTone
		ws.filters.Emotion = emotion
	}

	if personalized {
		profile := CombinePreferences(
			ExtractQueryPreferences(req.Query),
			AnalyzeHistory(req.UserHistory),
			req.UserPreferences,
			p.cfg.PersonalizedMinRating,
		)
		ws.profile = &profile

		minRating := p.cfg.PersonalizedMinRating
		if req.UserPreferences != nil && req.UserPreferences.MinRating > 0 {
			minRating = req.UserPreferences.MinRating
		}
		ws.filters.MinRating = max(ws.filters.MinRating, minRating)

		if ws.filters.Emotion == "" && profile.EmotionPreference != "" {
			ws.filters.Emotion = profile.EmotionPreference
		}
	}
	return ws, nil
}

func (p *Pipeline) run(ctx context.Context, kind messaging.Kind, stages []stage, ws *workingSet) (Result, error) {
	const source = "suggestion.Pipeline"
	started := time.Now()

	observability.Emit(ctx, p.observer, observability.EventPipelineStart, observability.LevelVerbose, source, map[string]any{
		"kind":  string(kind),
		"query": ws.query,
		"top_k": ws.topK,
	})

	err := p.chain(ctx, stages, ws)
	completed := time.Now()

	data := map[string]any{
		"kind":        string(kind),
		"duration_ms": completed.Sub(started).Milliseconds(),
		"error":       err != nil,
	}
	if err != nil {
		observability.Emit(ctx, p.observer, observability.EventPipelineComplete, observability.LevelWarning, source, data)
		p.logger.Warn("pipeline failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		return Result{}, fmt.Errorf("%s pipeline: %w", kind, err)
	}

	recs := ws.candidates
	if recs == nil {
		recs = []catalog.ScoredCandidate{}
	}

	result := Result{
		Query:           ws.query,
		FiltersApplied:  ws.filters,
		Recommendations: recs,
		TotalFound:      ws.found,
		TotalFiltered:   ws.filtered,
		TotalUnique:     ws.unique,
		Degraded:        ws.degraded,
		StartedAt:       started,
		CompletedAt:     completed,
	}
	if ws.degraded && len(recs) == 0 && ws.cause != nil {
		result.Warning = ws.cause.Error()
	}

	data["recommendations"] = len(recs)
	data["total_found"] = ws.found
	data["degraded"] = ws.degraded
	observability.Emit(ctx, p.observer, observability.EventPipelineComplete, observability.LevelInfo, source, data)
	return result, nil
}

// chain runs the stages and converts a panic in any of them into ErrInternal.
func (p *Pipeline) chain(ctx context.Context, stages []stage, ws *workingSet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic in pipeline: %v", agent.ErrInternal, r)
		}
	}()

	_, err = workflows.ProcessChain(ctx, config.ChainConfig{Observer: p.cfg.Observer}, stages, ws, p.step, nil)
	return err
}

func (p *Pipeline) step(ctx context.Context, s stage, ws *workingSet) (*workingSet, error) {
	var err error
	switch s {
	case stageRetrieve:
		err = p.retrieve(ctx, ws)
	case stageFilter:
		ws.candidates = FilterCategory(ws.candidates, ws.filters.Category)
		ws.candidates = FilterMinRating(ws.candidates, ws.filters.MinRating)
		SortByEmotion(ws.candidates, ws.filters.Emotion)
		ws.filtered = len(ws.candidates)
	case stageScore:
		p.score(ws)
	case stagePersonalize:
		p.personalize(ws)
	case stageDeduplicate:
		ws.candidates = Deduplicate(ws.candidates)
		ws.unique = len(ws.candidates)
	case stageRank:
		ws.candidates = Truncate(Rank(ws.candidates), ws.topK)
	default:
		err = fmt.Errorf("%w: unknown stage %q", agent.ErrInternal, s)
	}

	outcome, level := OutcomeOK, observability.LevelVerbose
	switch {
	case err != nil:
		outcome, level = OutcomeError, observability.LevelWarning
	case s == stageRetrieve && ws.degraded:
		outcome, level = OutcomeDegraded, observability.LevelWarning
	}
	observability.Emit(ctx, p.observer, observability.EventStageComplete, level, "suggestion.Pipeline", map[string]any{
		"stage":      s.String(),
		"outcome":    outcome,
		"candidates": len(ws.candidates),
	})
	return ws, err
}

// retrieve fetches CandidateMultiplier × top_k candidates. A failed or timed
// out retrieval leaves zero candidates and marks the set degraded; only
// abandonment by the caller stops the pipeline.
func (p *Pipeline) retrieve(ctx context.Context, ws *workingSet) error {
	k := ws.topK * p.cfg.CandidateMultiplier
	records, err := p.search(ctx, ws.query, k)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		ws.degraded = true
		ws.cause = err
		records = nil
	}

	ws.candidates = make([]catalog.ScoredCandidate, len(records))
	for i, r := range records {
		ws.candidates[i] = catalog.ScoredCandidate{Record: r, SimilarityRank: i + 1}
	}
	ws.found = len(records)
	return nil
}

type searchOutcome struct {
	records []catalog.Record
	err     error
}

// search calls the retriever under RetrievalTimeout. The call runs on its own
// goroutine so a retriever that ignores its context cannot hold the pipeline
// past the deadline. Every error returned wraps catalog.ErrRetrievalUnavailable.
func (p *Pipeline) search(ctx context.Context, query string, k int) ([]catalog.Record, error) {
	if p.retriever == nil {
		err := fmt.Errorf("%w: no retriever configured", catalog.ErrRetrievalUnavailable)
		p.degrade(ctx, query, k, err)
		return nil, err
	}

	rctx, cancel := context.WithTimeoutCause(ctx, p.cfg.RetrievalTimeout, catalog.ErrSearchDeadline)
	defer cancel()

	done := make(chan searchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- searchOutcome{err: fmt.Errorf("retriever panic: %v", r)}
			}
		}()
		records, err := p.retriever.Search(rctx, query, k)
		done <- searchOutcome{records: records, err: err}
	}()

	var out searchOutcome
	select {
	case out = <-done:
	case <-rctx.Done():
		out.err = fmt.Errorf("retrieval timed out after %s", p.cfg.RetrievalTimeout)
	}

	if out.err != nil {
		err := out.err
		if !errors.Is(err, catalog.ErrRetrievalUnavailable) {
			err = fmt.Errorf("%w: %v", catalog.ErrRetrievalUnavailable, err)
		}
		if ctx.Err() == nil {
			p.degrade(ctx, query, k, err)
		}
		return nil, err
	}

	if len(out.records) > k {
		out.records = out.records[:k]
	}
	return out.records, nil
}

func (p *Pipeline) degrade(ctx context.Context, query string, k int, err error) {
	p.logger.Warn("retrieval degraded",
		slog.String("query", query),
		slog.Int("k", k),
		slog.String("error", err.Error()))

	observability.Emit(ctx, p.observer, observability.EventRetrievalDegraded, observability.LevelWarning, "suggestion.Pipeline", map[string]any{
		"query": query,
		"k":     k,
		"error": err.Error(),
	})
}

func (p *Pipeline) score(ws *workingSet) {
	for i := range ws.candidates {
		c := &ws.candidates[i]
		c.PopularityScore = p.scorer.PopularityScore(c.Record)
		c.TrendScore = p.scorer.TrendScore(c.Record)
		c.BaselineScore = p.cfg.baseline(c.PopularityScore, c.TrendScore)
		c.FinalScore = c.BaselineScore
	}
}

// personalize adds at most MaxBoost: CategoryBoost for a preferred genre and
// RatingBoost for meeting the profile's minimum rating.
func (p *Pipeline) personalize(ws *workingSet) {
	if ws.profile == nil {
		return
	}
	for i := range ws.candidates {
		c := &ws.candidates[i]
		var boost float64
		if ws.profile.Matches(c.Record) {
			boost += p.cfg.CategoryBoost
		}
		if c.AverageRating >= ws.profile.MinRating {
			boost += p.cfg.RatingBoost
		}
		c.PersonalizationBoost = min(boost, p.cfg.MaxBoost)
		c.FinalScore = c.BaselineScore + c.PersonalizationBoost
	}
}

// FilterCategory keeps candidates in category. An empty category or
// CategoryAll keeps everything.
func FilterCategory(candidates []catalog.ScoredCandidate, category string) []catalog.ScoredCandidate {
	if category == "" || category == CategoryAll {
		return candidates
	}
	kept := make([]catalog.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Category == category {
			kept = append(kept, c)
		}
	}
	return kept
}

// FilterMinRating keeps candidates rated at least minRating. A non-positive
// minimum keeps everything.
func FilterMinRating(candidates []catalog.ScoredCandidate, minRating float64) []catalog.ScoredCandidate {
	if minRating <= 0 {
		return candidates
	}
	kept := make([]catalog.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.AverageRating >= minRating {
			kept = append(kept, c)
		}
	}
	return kept
}

// SortByEmotion stably reorders candidates by the named emotion, strongest
// first. It never removes a candidate.
func SortByEmotion(candidates []catalog.ScoredCandidate, emotion string) {
	if emotion == "" {
		return
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, _ := candidates[i].Emotions.Get(emotion)
		b, _ := candidates[j].Emotions.Get(emotion)
		return a > b
	})
}

// Deduplicate keeps one candidate per catalog key: the one retrieved first,
// that is with the lowest SimilarityRank, wherever later stages moved it.
// Candidates without a key are dropped.
func Deduplicate(candidates []catalog.ScoredCandidate) []catalog.ScoredCandidate {
	unique := make([]catalog.ScoredCandidate, 0, len(candidates))
	seen := make(map[string]int, len(candidates))
	for _, c := range candidates {
		if c.CatalogKey == "" {
			continue
		}
		if i, ok := seen[c.CatalogKey]; ok {
			if c.SimilarityRank < unique[i].SimilarityRank {
				unique[i] = c
			}
			continue
		}
		seen[c.CatalogKey] = len(unique)
		unique = append(unique, c)
	}
	return unique
}

// Rank sorts by FinalScore descending; equal scores keep retrieval order.
func Rank(candidates []catalog.ScoredCandidate) []catalog.ScoredCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		return a.SimilarityRank < b.SimilarityRank
	})
	return candidates
}

func Truncate(candidates []catalog.ScoredCandidate, topK int) []catalog.ScoredCandidate {
	if topK >= 0 && len(candidates) > topK {
		return candidates[:topK]
	}
	return candidates
}
