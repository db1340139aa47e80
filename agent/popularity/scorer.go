package popularity

import (
	"math"
	"sort"

	"github.com/tailored-agentic-units/recommender/catalog"
)

// Scorer computes popularity and trend signals. It is stateless after
// construction and safe for concurrent use.
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

func (s *Scorer) Config() Config {
	return s.cfg
}

// Prior returns the category prior, falling back for unknown categories.
func (s *Scorer) Prior(category string) float64 {
	if p, ok := s.cfg.CategoryPriors[category]; ok {
		return p
	}
	return s.cfg.FallbackPrior
}

// PopularityScore is
//
//	w_r*(rating/5) + w_v*min(log10(count+1)/5, 1) + w_c*prior(category)
//
// clamped to [0, 1], with rating clamped to [0, 5] and negative counts read as 0.
func (s *Scorer) PopularityScore(r catalog.Record) float64 {
	w := s.cfg.Weights
	rating := clamp(r.AverageRating, 0, 5)
	count := max(r.RatingsCount, 0)

	volume := math.Min(math.Log10(float64(count)+1)/5, 1)
	score := w.Rating*(rating/5) + w.Volume*volume + w.CategoryPrior*s.Prior(r.Category)
	return clamp(score, 0, 1)
}

// TrendScore returns the score of the first tier whose thresholds the record
// strictly exceeds, or the base trend.
func (s *Scorer) TrendScore(r catalog.Record) float64 {
	for _, tier := range s.cfg.TrendTiers {
		if r.RatingsCount > tier.MinRatings && r.AverageRating > tier.MinRating {
			return tier.Score
		}
	}
	return s.cfg.BaseTrend
}

func (s *Scorer) OverallScore(r catalog.Record) float64 {
	return (s.PopularityScore(r) + s.TrendScore(r)) / 2
}

// GroupStats summarises the records sharing a key.
type GroupStats struct {
	Key          string  `json:"key"`
	MeanRating   float64 `json:"mean_rating"`
	TotalRatings int     `json:"total_ratings"`
	Count        int     `json:"count"`
	TrendScore   float64 `json:"trend_score"`
}

// KeyFunc yields the groups a record belongs to.
type KeyFunc func(catalog.Record) []string

func ByCategory(r catalog.Record) []string {
	if r.Category == "" {
		return []string{"Other"}
	}
	return []string{r.Category}
}

// ByAuthor puts a record into one group per author.
func ByAuthor(r catalog.Record) []string {
	return r.Authors
}

// AggregateBy groups records by key. A group's trend score is
// 0.4*mean_rating + 0.6*log10(total_ratings+1). Groups are ordered by trend
// score descending, then key.
func AggregateBy(records []catalog.Record, key KeyFunc) []GroupStats {
	type acc struct {
		ratingSum float64
		total     int
		count     int
	}
	groups := make(map[string]*acc)

	for _, r := range records {
		for _, k := range key(r) {
			if k == "" {
				continue
			}
			g, ok := groups[k]
			if !ok {
				g = &acc{}
				groups[k] = g
			}
			g.ratingSum += r.AverageRating
			g.total += max(r.RatingsCount, 0)
			g.count++
		}
	}

	stats := make([]GroupStats, 0, len(groups))
	for k, g := range groups {
		mean := g.ratingSum / float64(g.count)
		stats = append(stats, GroupStats{
			Key:          k,
			MeanRating:   mean,
			TotalRatings: g.total,
			Count:        g.count,
			TrendScore:   0.4*mean + 0.6*math.Log10(float64(g.total)+1),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TrendScore != stats[j].TrendScore {
			return stats[i].TrendScore > stats[j].TrendScore
		}
		return stats[i].Key < stats[j].Key
	})
	return stats
}

func (s *Scorer) CategoryTrends(records []catalog.Record) []GroupStats {
	return AggregateBy(records, ByCategory)
}

// AuthorTrends keeps authors with more than one book or a mean rating above
// 4.0, ordered by mean rating, limited to AuthorLimit.
func (s *Scorer) AuthorTrends(records []catalog.Record) []GroupStats {
	all := AggregateBy(records, ByAuthor)

	trending := make([]GroupStats, 0, len(all))
	for _, g := range all {
		if g.Count > 1 || g.MeanRating > 4.0 {
			trending = append(trending, g)
		}
	}

	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].MeanRating > trending[j].MeanRating
	})
	return trending[:min(len(trending), s.cfg.AuthorLimit)]
}

type TrendingBook struct {
	CatalogKey    string   `json:"catalog_key"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	TrendScore    float64  `json:"trend_score"`
	AverageRating float64  `json:"average_rating"`
}

// TrendingBooks returns the TrendingLimit records with the highest trend
// score. Equal scores keep input order.
func (s *Scorer) TrendingBooks(records []catalog.Record) []TrendingBook {
	books := make([]TrendingBook, len(records))
	for i, r := range records {
		books[i] = TrendingBook{
			CatalogKey:    r.CatalogKey,
			Title:         r.Title,
			Authors:       r.Authors,
			TrendScore:    s.TrendScore(r),
			AverageRating: r.AverageRating,
		}
	}

	sort.SliceStable(books, func(i, j int) bool {
		return books[i].TrendScore > books[j].TrendScore
	})
	return books[:min(len(books), s.cfg.TrendingLimit)]
}

type ScoringPreferences struct {
	PreferredCategory string  `json:"preferred_category,omitempty"`
	MinRating         float64 `json:"min_rating,omitempty" validate:"gte=0,lte=5"`
}

// ScoreRecommendation scales the popularity score by 1.2 for the preferred
// category and by 1.1 when the rating meets the preferred minimum, capped at 1.
func (s *Scorer) ScoreRecommendation(r catalog.Record, prefs ScoringPreferences) float64 {
	score := s.PopularityScore(r)
	if prefs.PreferredCategory != "" && r.Category == prefs.PreferredCategory {
		score *= 1.2
	}
	if prefs.MinRating > 0 && r.AverageRating >= prefs.MinRating {
		score *= 1.1
	}
	return math.Min(score, 1)
}

type Criteria struct {
	MinRating       float64 `json:"min_rating,omitempty" validate:"gte=0,lte=5"`
	MinRatingsCount int     `json:"min_ratings_count,omitempty" validate:"gte=0"`
	Category        string  `json:"category,omitempty"`
	TopN            int     `json:"top_n,omitempty" validate:"gte=0,lte=1000"`
}

type RankedBook struct {
	catalog.Record
	PopularityScore float64 `json:"popularity_score"`
}

// PopularBooks filters records by criteria and returns the TopN (default 10)
// by popularity score, along with how many records passed the filter.
func (s *Scorer) PopularBooks(records []catalog.Record, criteria Criteria) ([]RankedBook, int) {
	ranked := make([]RankedBook, 0, len(records))
	for _, r := range records {
		if criteria.MinRating > 0 && r.AverageRating < criteria.MinRating {
			continue
		}
		if criteria.MinRatingsCount > 0 && r.RatingsCount < criteria.MinRatingsCount {
			continue
		}
		if criteria.Category != "" && r.Category != criteria.Category {
			continue
		}
		ranked = append(ranked, RankedBook{Record: r, PopularityScore: s.PopularityScore(r)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PopularityScore > ranked[j].PopularityScore
	})

	topN := criteria.TopN
	if topN <= 0 {
		topN = 10
	}
	return ranked[:min(len(ranked), topN)], len(ranked)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
