package suggestion

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidConfig = errors.New("invalid suggestion config")

// MaxTopK bounds the number of recommendations a single request may ask for.
const MaxTopK = 100

// CombineMode selects how popularity and trend scores form the baseline.
type CombineMode string

const (
	CombineMean       CombineMode = "mean"
	CombinePopularity CombineMode = "popularity"
	CombineTrend      CombineMode = "trend"
)

func (m CombineMode) Valid() bool {
	switch m {
	case CombineMean, CombinePopularity, CombineTrend:
		return true
	}
	return false
}

type Config struct {
	// Retrieval
	CandidateMultiplier int           `json:"candidate_multiplier"`
	RetrievalTimeout    time.Duration `json:"retrieval_timeout"`
	DefaultTopK         int           `json:"default_top_k"`

	// Scoring
	CombineMode           CombineMode `json:"combine_mode"`
	PersonalizedMinRating float64     `json:"personalized_min_rating"`
	CategoryBoost         float64     `json:"category_boost"`
	RatingBoost           float64     `json:"rating_boost"`
	MaxBoost              float64     `json:"max_boost"`

	// Observability
	Observer string `json:"observer"`
}

func DefaultConfig() Config {
	return Config{
		CandidateMultiplier:   2,
		RetrievalTimeout:      5 * time.Second,
		DefaultTopK:           10,
		CombineMode:           CombineMean,
		PersonalizedMinRating: 3.0,
		CategoryBoost:         0.2,
		RatingBoost:           0.1,
		MaxBoost:              0.3,
		Observer:              "slog",
	}
}

func (c *Config) Merge(source *Config) {
	if source.CandidateMultiplier > 0 {
		c.CandidateMultiplier = source.CandidateMultiplier
	}

	if source.RetrievalTimeout > 0 {
		c.RetrievalTimeout = source.RetrievalTimeout
	}

	if source.DefaultTopK > 0 {
		c.DefaultTopK = source.DefaultTopK
	}

	if source.CombineMode != "" {
		c.CombineMode = source.CombineMode
	}

	if source.PersonalizedMinRating > 0 {
		c.PersonalizedMinRating = source.PersonalizedMinRating
	}

	if source.CategoryBoost > 0 {
		c.CategoryBoost = source.CategoryBoost
	}

	if source.RatingBoost > 0 {
		c.RatingBoost = source.RatingBoost
	}

	if source.MaxBoost > 0 {
		c.MaxBoost = source.MaxBoost
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}
}

func (c *Config) Validate() error {
	if c.CandidateMultiplier < 1 {
		return fmt.Errorf("%w: candidate multiplier must be at least 1", ErrInvalidConfig)
	}
	if c.RetrievalTimeout <= 0 {
		return fmt.Errorf("%w: retrieval timeout must be positive", ErrInvalidConfig)
	}
	if c.DefaultTopK < 1 || c.DefaultTopK > MaxTopK {
		return fmt.Errorf("%w: default top_k must be in [1, %d]", ErrInvalidConfig, MaxTopK)
	}
	if !c.CombineMode.Valid() {
		return fmt.Errorf("%w: unknown combine mode %q", ErrInvalidConfig, c.CombineMode)
	}
	if c.PersonalizedMinRating < 0 || c.PersonalizedMinRating > 5 {
		return fmt.Errorf("%w: personalized min rating must be in [0, 5]", ErrInvalidConfig)
	}
	if c.CategoryBoost < 0 || c.RatingBoost < 0 || c.MaxBoost < 0 {
		return fmt.Errorf("%w: boosts must be non-negative", ErrInvalidConfig)
	}
	if c.Observer == "" {
		return fmt.Errorf("%w: observer is required", ErrInvalidConfig)
	}
	return nil
}

// baseline combines the popularity and trend scores of one candidate.
func (c *Config) baseline(popularity, trend float64) float64 {
	switch c.CombineMode {
	case CombinePopularity:
		return popularity
	case CombineTrend:
		return trend
	}
	return (popularity + trend) / 2
}
