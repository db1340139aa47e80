package suggestion_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/recommender/agent/popularity"
	"github.com/tailored-agentic-units/recommender/agent/suggestion"
	"github.com/tailored-agentic-units/recommender/catalog"
	"github.com/tailored-agentic-units/recommender/observability"
	"github.com/tailored-agentic-units/recommender/validation"
)

type captureObserver struct {
	mu     sync.Mutex
	events []observability.Event
}

func (o *captureObserver) OnEvent(ctx context.Context, event observability.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *captureObserver) ofType(t observability.EventType) []observability.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []observability.Event
	for _, e := range o.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func fixed(records ...catalog.Record) catalog.Retriever {
	return catalog.RetrieverFunc(func(ctx context.Context, query string, k int) ([]catalog.Record, error) {
		return records, nil
	})
}

func newPipeline(t *testing.T, retriever catalog.Retriever, cfg suggestion.Config) *suggestion.Pipeline {
	t.Helper()
	if cfg.Observer == "" {
		cfg.Observer = "noop"
	}
	scorer, err := popularity.NewScorer(popularity.DefaultConfig())
	if err != nil {
		t.Fatalf("NewScorer() error = %v", err)
	}
	p, err := suggestion.NewPipeline(cfg, retriever, scorer, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return p
}

func keys(candidates []catalog.ScoredCandidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.CatalogKey
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-3
}

var (
	bookA = catalog.Record{CatalogKey: "A", Title: "A", AverageRating: 4.8, RatingsCount: 500}
	bookB = catalog.Record{CatalogKey: "B", Title: "B", AverageRating: 3.0, RatingsCount: 5}
)

func TestPipeline_DeduplicatesAndRanks(t *testing.T) {
	p := newPipeline(t, fixed(bookA, bookB, bookA), suggestion.Config{})

	result, err := p.Recommend(context.Background(), suggestion.Request{Query: "anything", TopK: 2})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if got := keys(result.Recommendations); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("recommendations = %v, want [A B]", got)
	}
	if result.TotalFound != 3 {
		t.Errorf("TotalFound = %d, want 3", result.TotalFound)
	}
	if result.TotalUnique != 2 {
		t.Errorf("TotalUnique = %d, want 2", result.TotalUnique)
	}

	a := result.Recommendations[0]
	if a.SimilarityRank != 1 {
		t.Errorf("A.SimilarityRank = %d, want 1 (first occurrence)", a.SimilarityRank)
	}
	if !approx(a.PopularityScore, 0.468) || a.TrendScore != 0.8 || !approx(a.FinalScore, 0.634) {
		t.Errorf("A scores = (%v, %v, %v), want (0.468, 0.8, 0.634)", a.PopularityScore, a.TrendScore, a.FinalScore)
	}
}

func TestPipeline_EmptyRetrieval(t *testing.T) {
	p := newPipeline(t, fixed(), suggestion.Config{})

	result, err := p.Recommend(context.Background(), suggestion.Request{Query: "nothing"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if result.Recommendations == nil || len(result.Recommendations) != 0 {
		t.Errorf("Recommendations = %v, want empty non-nil slice", result.Recommendations)
	}
	if result.TotalFound != 0 {
		t.Errorf("TotalFound = %d, want 0", result.TotalFound)
	}
	if result.Degraded {
		t.Error("Degraded = true, want false for an empty but successful retrieval")
	}
}

func TestPipeline_MinRatingExcludesAll(t *testing.T) {
	p := newPipeline(t, fixed(bookB, catalog.Record{CatalogKey: "C", AverageRating: 3.9}), suggestion.Config{})

	result, err := p.Recommend(context.Background(), suggestion.Request{Filters: suggestion.Filters{MinRating: 4.0}})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(result.Recommendations) != 0 {
		t.Errorf("len(Recommendations) = %d, want 0", len(result.Recommendations))
	}
	if result.TotalFound != 2 {
		t.Errorf("TotalFound = %d, want 2 (pre-filter count)", result.TotalFound)
	}
	if result.TotalFiltered != 0 {
		t.Errorf("TotalFiltered = %d, want 0", result.TotalFiltered)
	}
}

func TestPipeline_RetrieverFailureDegrades(t *testing.T) {
	obs := &captureObserver{}
	name := "capture-" + t.Name()
	observability.RegisterObserver(name, obs)

	failing := catalog.RetrieverFunc(func(ctx context.Context, query string, k int) ([]catalog.Record, error) {
		return nil, errors.New("index offline")
	})
	p := newPipeline(t, failing, suggestion.Config{Observer: name})

	result, err := p.Recommend(context.Background(), suggestion.Request{Query: "anything"})
	if err != nil {
		t.Fatalf("Recommend() error = %v, want degraded result", err)
	}
	if !result.Degraded {
		t.Error("Degraded = false, want true")
	}
	if result.Warning == "" {
		t.Error("Warning is empty, want the retrieval cause")
	}
	if len(result.Recommendations) != 0 {
		t.Errorf("len(Recommendations) = %d, want 0", len(result.Recommendations))
	}

	if got := len(obs.ofType(observability.EventRetrievalDegraded)); got != 1 {
		t.Errorf("retrieval degraded events = %d, want 1", got)
	}

	stages := obs.ofType(observability.EventStageComplete)
	if len(stages) != 5 {
		t.Fatalf("stage events = %d, want 5", len(stages))
	}
	if stages[0].Data["stage"] != "retrieve" || stages[0].Data["outcome"] != suggestion.OutcomeDegraded {
		t.Errorf("first stage event = %v, want retrieve/degraded", stages[0].Data)
	}
	for _, e := range stages[1:] {
		if e.Data["outcome"] != suggestion.OutcomeOK {
			t.Errorf("stage %v outcome = %v, want ok", e.Data["stage"], e.Data["outcome"])
		}
	}
}

func TestPipeline_NilRetrieverDegrades(t *testing.T) {
	p := newPipeline(t, nil, suggestion.Config{})

	result, err := p.Recommend(context.Background(), suggestion.Request{Query: "anything"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !result.Degraded || len(result.Recommendations) != 0 {
		t.Errorf("result = %+v, want degraded and empty", result)
	}
}

func TestPipeline_RetrievalTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	stuck := catalog.RetrieverFunc(func(ctx context.Context, query string, k int) ([]catalog.Record, error) {
		<-release
		return []catalog.Record{bookA}, nil
	})
	p := newPipeline(t, stuck, suggestion.Config{RetrievalTimeout: 20 * time.Millisecond})

	started := time.Now()
	result, err := p.Recommend(context.Background(), suggestion.Request{Query: "anything"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Errorf("Recommend() took %v, want it bounded by the retrieval timeout", elapsed)
	}
	if !result.Degraded {
		t.Error("Degraded = false, want true after timeout")
	}
}

func TestPipeline_CallerCancellation(t *testing.T) {
	p := newPipeline(t, fixed(bookA), suggestion.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Recommend(ctx, suggestion.Request{Query: "anything"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Recommend() error = %v, want context.Canceled", err)
	}
}

func TestPipeline_RejectsInvalidRequests(t *testing.T) {
	p := newPipeline(t, fixed(bookA), suggestion.Config{})

	tests := []struct {
		name string
		req  suggestion.Request
	}{
		{"unknown tone", suggestion.Request{Filters: suggestion.Filters{EmotionTone: "Nostalgic"}}},
		{"top_k too large", suggestion.Request{TopK: 101}},
		{"negative top_k", suggestion.Request{TopK: -1}},
		{"rating out of range", suggestion.Request{Filters: suggestion.Filters{MinRating: 6}}},
		{"preference rating out of range", suggestion.Request{UserPreferences: &suggestion.Preferences{MinRating: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := p.Recommend(context.Background(), tt.req); !errors.Is(err, validation.ErrInvalid) {
				t.Errorf("Recommend() error = %v, want validation error", err)
			}
		})
	}
}

func TestPipeline_Truncation(t *testing.T) {
	tests := []struct {
		topK      int
		available int
		want      int
	}{
		{topK: 3, available: 10, want: 3},
		{topK: 5, available: 2, want: 2},
		{topK: 1, available: 1, want: 1},
		{topK: 4, available: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("top_k=%d/available=%d", tt.topK, tt.available), func(t *testing.T) {
			records := make([]catalog.Record, tt.available)
			for i := range records {
				records[i] = catalog.Record{CatalogKey: fmt.Sprintf("k%d", i), AverageRating: float64(i % 5)}
			}
			p := newPipeline(t, fixed(records...), suggestion.Config{})

			result, err := p.Recommend(context.Background(), suggestion.Request{TopK: tt.topK})
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if got := len(result.Recommendations); got != tt.want {
				t.Errorf("len(Recommendations) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPipeline_StableRanking(t *testing.T) {
	var records []catalog.Record
	for i := range 8 {
		records = append(records, catalog.Record{CatalogKey: fmt.Sprintf("tie-%d", i), AverageRating: 4, RatingsCount: 10})
	}
	p := newPipeline(t, fixed(records...), suggestion.Config{})

	first, err := p.Recommend(context.Background(), suggestion.Request{TopK: 8})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	want := []string{"tie-0", "tie-1", "tie-2", "tie-3", "tie-4", "tie-5", "tie-6", "tie-7"}
	if got := keys(first.Recommendations); !slices.Equal(got, want) {
		t.Errorf("tied recommendations = %v, want retrieval order %v", got, want)
	}

	for range 5 {
		again, err := p.Recommend(context.Background(), suggestion.Request{TopK: 8})
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if !slices.Equal(keys(again.Recommendations), keys(first.Recommendations)) {
			t.Fatalf("ordering changed between runs: %v vs %v", keys(again.Recommendations), keys(first.Recommendations))
		}
	}
}

func TestPipeline_ToneKeepsMembership(t *testing.T) {
	records := []catalog.Record{
		{CatalogKey: "calm", AverageRating: 4, Emotions: catalog.EmotionScores{Joy: 0.1}},
		{CatalogKey: "bright", AverageRating: 4, Emotions: catalog.EmotionScores{Joy: 0.9}},
		{CatalogKey: "grim", AverageRating: 4, Emotions: catalog.EmotionScores{Sadness: 0.8}},
	}
	p := newPipeline(t, fixed(records...), suggestion.Config{})

	result, err := p.Recommend(context.Background(), suggestion.Request{Filters: suggestion.Filters{EmotionTone: "Happy"}})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if result.TotalFiltered != 3 {
		t.Errorf("TotalFiltered = %d, want 3", result.TotalFiltered)
	}
	if result.FiltersApplied.Emotion != catalog.EmotionJoy {
		t.Errorf("FiltersApplied.Emotion = %q, want joy", result.FiltersApplied.Emotion)
	}
}

func TestPipeline_Personalized(t *testing.T) {
	retrieved := []catalog.Record{
		{CatalogKey: "n1", Category: "Nonfiction", AverageRating: 4.5, RatingsCount: 200},
		{CatalogKey: "f1", Category: "Fiction", AverageRating: 4.5, RatingsCount: 200},
		{CatalogKey: "f2", Category: "Fiction", AverageRating: 3.2, RatingsCount: 200},
		{CatalogKey: "f3", Category: "Fiction", AverageRating: 2.5, RatingsCount: 200},
	}
	history := []catalog.Record{
		{CatalogKey: "h1", Category: "Fiction", AverageRating: 4.0},
		{CatalogKey: "h2", Category: "Fiction", AverageRating: 4.4},
	}
	p := newPipeline(t, fixed(retrieved...), suggestion.Config{})

	result, err := p.Personalized(context.Background(), suggestion.Request{Query: "something good", UserHistory: history})
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}

	if got := keys(result.Recommendations); !slices.Equal(got, []string{"f1", "n1", "f2"}) {
		t.Errorf("recommendations = %v, want [f1 n1 f2]", got)
	}
	if result.TotalFound != 4 || result.TotalFiltered != 3 {
		t.Errorf("TotalFound, TotalFiltered = %d, %d, want 4, 3", result.TotalFound, result.TotalFiltered)
	}
	if result.FiltersApplied.MinRating != 3.0 {
		t.Errorf("FiltersApplied.MinRating = %v, want 3.0", result.FiltersApplied.MinRating)
	}

	boosts := map[string]float64{"f1": 0.3, "n1": 0.1, "f2": 0.2}
	for _, rec := range result.Recommendations {
		if !approx(rec.PersonalizationBoost, boosts[rec.CatalogKey]) {
			t.Errorf("%s boost = %v, want %v", rec.CatalogKey, rec.PersonalizationBoost, boosts[rec.CatalogKey])
		}
		if !approx(rec.FinalScore, rec.BaselineScore+rec.PersonalizationBoost) {
			t.Errorf("%s final = %v, want baseline + boost", rec.CatalogKey, rec.FinalScore)
		}
	}

	if result.PreferenceProfile == nil || !approx(result.PreferenceProfile.MinRating, 4.2) {
		t.Errorf("PreferenceProfile = %+v, want min rating 4.2", result.PreferenceProfile)
	}
	if result.PersonalizationScore == nil || !approx(*result.PersonalizationScore, 2.0/3) {
		t.Errorf("PersonalizationScore = %v, want 0.667", result.PersonalizationScore)
	}
}

func TestPipeline_BoostCap(t *testing.T) {
	retrieved := []catalog.Record{{CatalogKey: "f1", Category: "Fiction", AverageRating: 5}}
	p := newPipeline(t, fixed(retrieved...), suggestion.Config{CategoryBoost: 0.5, RatingBoost: 0.5, MaxBoost: 0.6})

	result, err := p.Personalized(context.Background(), suggestion.Request{
		UserPreferences: &suggestion.Preferences{PreferredCategories: []string{"Fiction"}},
	})
	if err != nil {
		t.Fatalf("Personalized() error = %v", err)
	}
	if got := result.Recommendations[0].PersonalizationBoost; !approx(got, 0.6) {
		t.Errorf("PersonalizationBoost = %v, want capped at 0.6", got)
	}
}

func TestPipeline_Search(t *testing.T) {
	p := newPipeline(t, catalog.NewMemoryRetriever([]catalog.Record{
		{CatalogKey: "1", Title: "Dune"},
		{CatalogKey: "2", Title: "Dune Messiah"},
		{CatalogKey: "3", Title: "Emma"},
	}), suggestion.Config{})

	result, err := p.Search(context.Background(), suggestion.SearchRequest{Query: "dune", TopK: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.TotalResults != 2 {
		t.Fatalf("TotalResults = %d, want 2", result.TotalResults)
	}
	for i, hit := range result.Results {
		if hit.SimilarityRank != i+1 {
			t.Errorf("Results[%d].SimilarityRank = %d, want %d", i, hit.SimilarityRank, i+1)
		}
	}

	if _, err := p.Search(context.Background(), suggestion.SearchRequest{}); !errors.Is(err, validation.ErrInvalid) {
		t.Errorf("Search() without query error = %v, want validation error", err)
	}
}

func TestFilters_Commute(t *testing.T) {
	candidates := []catalog.ScoredCandidate{
		{Record: catalog.Record{CatalogKey: "1", Category: "Fiction", AverageRating: 4.5}, SimilarityRank: 1},
		{Record: catalog.Record{CatalogKey: "2", Category: "Fiction", AverageRating: 3.0}, SimilarityRank: 2},
		{Record: catalog.Record{CatalogKey: "3", Category: "Nonfiction", AverageRating: 4.8}, SimilarityRank: 3},
		{Record: catalog.Record{CatalogKey: "4", Category: "Fiction", AverageRating: 4.0}, SimilarityRank: 4},
		{Record: catalog.Record{CatalogKey: "5", Category: "Other", AverageRating: 1.0}, SimilarityRank: 5},
	}

	tests := []struct {
		category  string
		minRating float64
	}{
		{"Fiction", 4.0},
		{"Nonfiction", 5.0},
		{suggestion.CategoryAll, 3.5},
		{"Fiction", 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.category, tt.minRating), func(t *testing.T) {
			categoryFirst := suggestion.FilterMinRating(suggestion.FilterCategory(slices.Clone(candidates), tt.category), tt.minRating)
			ratingFirst := suggestion.FilterCategory(suggestion.FilterMinRating(slices.Clone(candidates), tt.minRating), tt.category)

			a, b := keys(categoryFirst), keys(ratingFirst)
			slices.Sort(a)
			slices.Sort(b)
			if !slices.Equal(a, b) {
				t.Errorf("category then rating = %v, rating then category = %v", a, b)
			}
		})
	}
}

func TestSortByEmotion(t *testing.T) {
	candidates := []catalog.ScoredCandidate{
		{Record: catalog.Record{CatalogKey: "low", Emotions: catalog.EmotionScores{Fear: 0.1}}},
		{Record: catalog.Record{CatalogKey: "none"}},
		{Record: catalog.Record{CatalogKey: "high", Emotions: catalog.EmotionScores{Fear: 0.9}}},
		{Record: catalog.Record{CatalogKey: "none-2"}},
	}

	suggestion.SortByEmotion(candidates, catalog.EmotionFear)

	if got := keys(candidates); !slices.Equal(got, []string{"high", "low", "none", "none-2"}) {
		t.Errorf("SortByEmotion() order = %v, want [high low none none-2]", got)
	}
}

func TestDeduplicate(t *testing.T) {
	// Tone sorting can move a later duplicate ahead of the first-retrieved one.
	candidates := []catalog.ScoredCandidate{
		{Record: catalog.Record{CatalogKey: "x", Title: "second copy"}, SimilarityRank: 3},
		{Record: catalog.Record{CatalogKey: "y"}, SimilarityRank: 2},
		{Record: catalog.Record{CatalogKey: "x", Title: "first copy"}, SimilarityRank: 1},
		{Record: catalog.Record{CatalogKey: ""}, SimilarityRank: 4},
		{Record: catalog.Record{CatalogKey: "y"}, SimilarityRank: 5},
	}

	unique := suggestion.Deduplicate(candidates)

	if got := keys(unique); !slices.Equal(got, []string{"x", "y"}) {
		t.Fatalf("Deduplicate() keys = %v, want [x y]", got)
	}
	if unique[0].Title != "first copy" || unique[0].SimilarityRank != 1 {
		t.Errorf("retained x = %+v, want the first-retrieved copy", unique[0])
	}
	if unique[1].SimilarityRank != 2 {
		t.Errorf("retained y rank = %d, want 2", unique[1].SimilarityRank)
	}
}

func TestRank_TiesByRetrievalOrder(t *testing.T) {
	candidates := []catalog.ScoredCandidate{
		{Record: catalog.Record{CatalogKey: "c"}, SimilarityRank: 3, FinalScore: 0.5},
		{Record: catalog.Record{CatalogKey: "a"}, SimilarityRank: 1, FinalScore: 0.5},
		{Record: catalog.Record{CatalogKey: "top"}, SimilarityRank: 4, FinalScore: 0.9},
		{Record: catalog.Record{CatalogKey: "b"}, SimilarityRank: 2, FinalScore: 0.5},
	}

	ranked := suggestion.Truncate(suggestion.Rank(candidates), 3)

	if got := keys(ranked); !slices.Equal(got, []string{"top", "a", "b"}) {
		t.Errorf("Rank() = %v, want [top a b]", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*suggestion.Config)
	}{
		{"zero multiplier", func(c *suggestion.Config) { c.CandidateMultiplier = 0 }},
		{"zero timeout", func(c *suggestion.Config) { c.RetrievalTimeout = 0 }},
		{"top_k over max", func(c *suggestion.Config) { c.DefaultTopK = suggestion.MaxTopK + 1 }},
		{"unknown combine mode", func(c *suggestion.Config) { c.CombineMode = "median" }},
		{"negative boost", func(c *suggestion.Config) { c.RatingBoost = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := suggestion.DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, suggestion.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}

	cfg := suggestion.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestConfig_CombineModes(t *testing.T) {
	tests := []struct {
		mode suggestion.CombineMode
		want float64
	}{
		{suggestion.CombineMean, 0.634},
		{suggestion.CombinePopularity, 0.468},
		{suggestion.CombineTrend, 0.8},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			p := newPipeline(t, fixed(bookA), suggestion.Config{CombineMode: tt.mode})
			result, err := p.Recommend(context.Background(), suggestion.Request{})
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if got := result.Recommendations[0].BaselineScore; !approx(got, tt.want) {
				t.Errorf("BaselineScore = %v, want %v", got, tt.want)
			}
		})
	}
}
