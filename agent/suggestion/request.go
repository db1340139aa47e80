package suggestion

import (
	"fmt"
	"strings"
	"time"

	"github.com/tailored-agentic-units/recommender/catalog"
	"github.com/tailored-agentic-units/recommender/validation"
)

// Filters narrow the retrieved candidates. Category "All" and an empty tone
// disable their filter.
type Filters struct {
	Category    string  `json:"category,omitempty"`
	MinRating   float64 `json:"min_rating,omitempty" validate:"gte=0,lte=5"`
	EmotionTone string  `json:"emotion_tone,omitempty"`
}

// Preferences are stated explicitly by the caller of a personalized request.
type Preferences struct {
	PreferredCategories []string `json:"preferred_categories,omitempty"`
	PreferredAuthors    []string `json:"preferred_authors,omitempty"`
	MinRating           float64  `json:"min_rating,omitempty" validate:"gte=0,lte=5"`
}

type Request struct {
	Query           string           `json:"query"`
	Filters         Filters          `json:"filters"`
	TopK            int              `json:"top_k,omitempty" validate:"gte=0,lte=100"`
	UserPreferences *Preferences     `json:"user_preferences,omitempty"`
	UserHistory     []catalog.Record `json:"user_history,omitempty"`
}

type SearchRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k,omitempty" validate:"gte=0,lte=100"`
}

type AnalyzeRequest struct {
	Query           string           `json:"query"`
	UserHistory     []catalog.Record `json:"user_history,omitempty"`
	UserPreferences *Preferences     `json:"user_preferences,omitempty"`
}

// AppliedFilters reports the filters a pipeline run actually used, after
// defaults and preference-derived filters were resolved.
type AppliedFilters struct {
	Category    string  `json:"category,omitempty"`
	MinRating   float64 `json:"min_rating,omitempty"`
	EmotionTone string  `json:"emotion_tone,omitempty"`
	Emotion     string  `json:"emotion,omitempty"`
}

type Result struct {
	Query                string                    `json:"query"`
	FiltersApplied       AppliedFilters            `json:"filters_applied"`
	Recommendations      []catalog.ScoredCandidate `json:"recommendations"`
	TotalFound           int                       `json:"total_found"`
	TotalFiltered        int                       `json:"total_filtered"`
	TotalUnique          int                       `json:"total_unique"`
	Degraded             bool                      `json:"degraded,omitempty"`
	Warning              string                    `json:"warning,omitempty"`
	PreferenceProfile    *Profile                  `json:"preference_profile,omitempty"`
	PersonalizationScore *float64                  `json:"personalization_score,omitempty"`
	StartedAt            time.Time                 `json:"started_at"`
	CompletedAt          time.Time                 `json:"completed_at"`
}

type SearchHit struct {
	catalog.Record
	SimilarityRank int `json:"similarity_rank"`
}

type SearchResult struct {
	Query        string      `json:"query"`
	Results      []SearchHit `json:"results"`
	TotalResults int         `json:"total_results"`
	Degraded     bool        `json:"degraded,omitempty"`
	SearchedAt   time.Time   `json:"searched_at"`
}

var tones = map[string]string{
	"happy":       catalog.EmotionJoy,
	"sad":         catalog.EmotionSadness,
	"angry":       catalog.EmotionAnger,
	"suspenseful": catalog.EmotionFear,
	"surprising":  catalog.EmotionSurprise,
}

// ResolveTone maps a caller-facing tone (Happy, Sad, Angry, Suspenseful,
// Surprising) or a raw emotion name to the emotion it sorts by. Empty and
// "All" resolve to no tone.
func ResolveTone(tone string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(tone))
	if t == "" || t == "all" {
		return "", nil
	}
	if emotion, ok := tones[t]; ok {
		return emotion, nil
	}
	if _, ok := (catalog.EmotionScores{}).Get(t); ok {
		return t, nil
	}
	return "", validation.Field("filters.emotion_tone", "oneof",
		fmt.Sprintf("must be one of Happy, Sad, Angry, Suspenseful, Surprising or an emotion name, got %q", tone))
}
