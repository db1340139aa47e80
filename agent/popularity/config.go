package popularity

import (
	"errors"
	"fmt"
	"sort"
)

var ErrInvalidConfig = errors.New("invalid popularity config")

// Weights combine the three popularity components. They need not sum to one;
// the score is clamped to [0, 1].
type Weights struct {
	Rating        float64 `json:"rating"`
	Volume        float64 `json:"volume"`
	CategoryPrior float64 `json:"category_prior"`
}

// TrendTier awards Score to records with more than MinRatings ratings and an
// average above MinRating.
type TrendTier struct {
	MinRatings int     `json:"min_ratings"`
	MinRating  float64 `json:"min_rating"`
	Score      float64 `json:"score"`
}

type Config struct {
	Weights        Weights            `json:"weights"`
	CategoryPriors map[string]float64 `json:"category_priors"`
	FallbackPrior  float64            `json:"fallback_prior"`
	TrendTiers     []TrendTier        `json:"trend_tiers"`
	BaseTrend      float64            `json:"base_trend"`
	TrendingLimit  int                `json:"trending_limit"`
	AuthorLimit    int                `json:"author_limit"`
}

func DefaultConfig() Config {
	return Config{
		Weights: Weights{Rating: 0.3, Volume: 0.25, CategoryPrior: 0.15},
		CategoryPriors: map[string]float64{
			"Fiction":               0.8,
			"Nonfiction":            0.7,
			"Children's Fiction":    0.6,
			"Children's Nonfiction": 0.5,
			"Other":                 0.3,
		},
		FallbackPrior: 0.3,
		TrendTiers: []TrendTier{
			{MinRatings: 100, MinRating: 4.0, Score: 0.8},
			{MinRatings: 50, MinRating: 3.5, Score: 0.6},
		},
		BaseTrend:     0.3,
		TrendingLimit: 20,
		AuthorLimit:   10,
	}
}

// Merge overlays non-zero fields of source. Weights and tiers are replaced
// wholesale; category priors are merged key by key.
func (c *Config) Merge(source *Config) {
	if source.Weights != (Weights{}) {
		c.Weights = source.Weights
	}

	if len(source.CategoryPriors) > 0 {
		priors := make(map[string]float64, len(c.CategoryPriors)+len(source.CategoryPriors))
		for k, v := range c.CategoryPriors {
			priors[k] = v
		}
		for k, v := range source.CategoryPriors {
			priors[k] = v
		}
		c.CategoryPriors = priors
	}

	if source.FallbackPrior > 0 {
		c.FallbackPrior = source.FallbackPrior
	}

	if len(source.TrendTiers) > 0 {
		c.TrendTiers = append([]TrendTier(nil), source.TrendTiers...)
	}

	if source.BaseTrend > 0 {
		c.BaseTrend = source.BaseTrend
	}

	if source.TrendingLimit > 0 {
		c.TrendingLimit = source.TrendingLimit
	}

	if source.AuthorLimit > 0 {
		c.AuthorLimit = source.AuthorLimit
	}
}

// Validate checks that scores stay within [0, 1] and that the trend step
// function is monotone: tiers ordered from strictest to loosest, with
// non-increasing scores, all at or above BaseTrend.
func (c *Config) Validate() error {
	w := c.Weights
	if w.Rating < 0 || w.Volume < 0 || w.CategoryPrior < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidConfig)
	}
	if sum := w.Rating + w.Volume + w.CategoryPrior; sum > 1 {
		return fmt.Errorf("%w: weights sum to %.2f, must not exceed 1", ErrInvalidConfig, sum)
	}

	names := make([]string, 0, len(c.CategoryPriors))
	for name := range c.CategoryPriors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := c.CategoryPriors[name]; p < 0 || p > 1 {
			return fmt.Errorf("%w: prior for %q is %.2f, must be in [0, 1]", ErrInvalidConfig, name, p)
		}
	}
	if c.FallbackPrior < 0 || c.FallbackPrior > 1 {
		return fmt.Errorf("%w: fallback prior must be in [0, 1]", ErrInvalidConfig)
	}

	if c.BaseTrend < 0 || c.BaseTrend > 1 {
		return fmt.Errorf("%w: base trend must be in [0, 1]", ErrInvalidConfig)
	}
	for i, tier := range c.TrendTiers {
		if tier.Score < c.BaseTrend || tier.Score > 1 {
			return fmt.Errorf("%w: tier %d score %.2f must be in [base trend, 1]", ErrInvalidConfig, i, tier.Score)
		}
		if i == 0 {
			continue
		}
		prev := c.TrendTiers[i-1]
		if tier.MinRatings > prev.MinRatings || tier.MinRating > prev.MinRating || tier.Score > prev.Score {
			return fmt.Errorf("%w: tier %d is stricter or scores higher than tier %d", ErrInvalidConfig, i, i-1)
		}
	}

	if c.TrendingLimit <= 0 || c.AuthorLimit <= 0 {
		return fmt.Errorf("%w: limits must be positive", ErrInvalidConfig)
	}
	return nil
}
