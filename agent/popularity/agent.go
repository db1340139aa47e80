// Package popularity scores books by rating, rating volume and category, and
// detects trends across a set of books.
//
// The Scorer is shared: the suggestion pipeline calls it in-process for every
// candidate, and the popularity Agent serves the same computations over the
// hub for analyze_popularity, detect_trends, score_recommendations and
// get_popular_books.
package popularity

import (
	"context"
	"sort"
	"time"

	"github.com/tailored-agentic-units/recommender/agent"
	"github.com/tailored-agentic-units/recommender/catalog"
	"github.com/tailored-agentic-units/recommender/orchestrate/messaging"
	"github.com/tailored-agentic-units/recommender/validation"
)

const ID = "popularity"

type AnalyzeRequest struct {
	Books        []catalog.Record `json:"books"`
	AnalysisType string           `json:"analysis_type,omitempty"`
}

type BookScore struct {
	CatalogKey      string  `json:"catalog_key"`
	Title           string  `json:"title"`
	PopularityScore float64 `json:"popularity_score"`
	TrendScore      float64 `json:"trend_score"`
	OverallScore    float64 `json:"overall_score"`
}

type AnalysisResult struct {
	AnalysisType  string      `json:"analysis_type"`
	BooksAnalyzed int         `json:"books_analyzed"`
	Results       []BookScore `json:"results"`
	AnalyzedAt    time.Time   `json:"analyzed_at"`
}

type TrendRequest struct {
	Books []catalog.Record `json:"books"`
}

type TrendResult struct {
	CategoryTrends []GroupStats   `json:"category_trends"`
	AuthorTrends   []GroupStats   `json:"author_trends"`
	TrendingBooks  []TrendingBook `json:"trending_books"`
	BooksAnalyzed  int            `json:"books_analyzed"`
	AnalyzedAt     time.Time      `json:"analyzed_at"`
}

type ScoreRequest struct {
	Recommendations []catalog.Record   `json:"recommendations"`
	UserPreferences ScoringPreferences `json:"user_preferences"`
}

type ScoredRecommendation struct {
	catalog.Record
	PopularityScore float64 `json:"popularity_score"`
}

type ScoreResult struct {
	ScoredRecommendations []ScoredRecommendation `json:"scored_recommendations"`
	TotalRecommendations  int                    `json:"total_recommendations"`
	ScoredAt              time.Time              `json:"scored_at"`
}

type PopularRequest struct {
	Books    []catalog.Record `json:"books"`
	Criteria Criteria         `json:"criteria"`
}

type PopularResult struct {
	PopularBooks       []RankedBook `json:"popular_books"`
	CriteriaUsed       Criteria     `json:"criteria_used"`
	TotalBooksAnalyzed int          `json:"total_books_analyzed"`
	AnalyzedAt         time.Time    `json:"analyzed_at"`
}

// Agent serves popularity analysis over the hub. Requests that carry no
// books fall back to the catalog source, when one is configured.
type Agent struct {
	*agent.Base
	scorer *Scorer
	source catalog.Source
}

func New(scorer *Scorer, source catalog.Source, opts ...agent.Option) *Agent {
	a := &Agent{scorer: scorer, source: source}
	a.Base = agent.NewBase(ID, "Popularity Agent", map[messaging.Kind]agent.Handler{
		messaging.KindAnalyzePopularity:    a.handleAnalyze,
		messaging.KindDetectTrends:         a.handleTrends,
		messaging.KindScoreRecommendations: a.handleScore,
		messaging.KindGetPopularBooks:      a.handlePopular,
	}, opts...)
	return a
}

func (a *Agent) Scorer() *Scorer {
	return a.scorer
}

func (a *Agent) books(given []catalog.Record) ([]catalog.Record, error) {
	if len(given) > 0 {
		return given, nil
	}
	if a.source != nil {
		return a.source.All(), nil
	}
	return nil, validation.Field("books", "required", "is required when no catalog is configured")
}

func (a *Agent) handleAnalyze(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[AnalyzeRequest](msg)
	if err != nil {
		return nil, err
	}
	books, err := a.books(req.Books)
	if err != nil {
		return nil, err
	}

	analysisType := req.AnalysisType
	if analysisType == "" {
		analysisType = "comprehensive"
	}

	results := make([]BookScore, len(books))
	for i, b := range books {
		pop, trend := a.scorer.PopularityScore(b), a.scorer.TrendScore(b)
		results[i] = BookScore{
			CatalogKey:      b.CatalogKey,
			Title:           b.Title,
			PopularityScore: pop,
			TrendScore:      trend,
			OverallScore:    (pop + trend) / 2,
		}
	}

	return AnalysisResult{
		AnalysisType:  analysisType,
		BooksAnalyzed: len(results),
		Results:       results,
		AnalyzedAt:    time.Now(),
	}, nil
}

func (a *Agent) handleTrends(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[TrendRequest](msg)
	if err != nil {
		return nil, err
	}
	books, err := a.books(req.Books)
	if err != nil {
		return nil, err
	}
	return a.Trends(books), nil
}

// Trends runs category, author and book trend detection over books.
func (a *Agent) Trends(books []catalog.Record) TrendResult {
	return TrendResult{
		CategoryTrends: a.scorer.CategoryTrends(books),
		AuthorTrends:   a.scorer.AuthorTrends(books),
		TrendingBooks:  a.scorer.TrendingBooks(books),
		BooksAnalyzed:  len(books),
		AnalyzedAt:     time.Now(),
	}
}

func (a *Agent) handleScore(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[ScoreRequest](msg)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	scored := make([]ScoredRecommendation, len(req.Recommendations))
	for i, r := range req.Recommendations {
		scored[i] = ScoredRecommendation{Record: r, PopularityScore: a.scorer.ScoreRecommendation(r, req.UserPreferences)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].PopularityScore > scored[j].PopularityScore
	})

	return ScoreResult{
		ScoredRecommendations: scored,
		TotalRecommendations:  len(scored),
		ScoredAt:              time.Now(),
	}, nil
}

func (a *Agent) handlePopular(ctx context.Context, msg *messaging.Message) (any, error) {
	req, err := messaging.Decode[PopularRequest](msg)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	books, err := a.books(req.Books)
	if err != nil {
		return nil, err
	}

	top, analyzed := a.scorer.PopularBooks(books, req.Criteria)
	return PopularResult{
		PopularBooks:       top,
		CriteriaUsed:       req.Criteria,
		TotalBooksAnalyzed: analyzed,
		AnalyzedAt:         time.Now(),
	}, nil
}
