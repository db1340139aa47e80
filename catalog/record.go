package catalog

import "strings"

// Emotion names recognised in EmotionScores.
const (
	EmotionJoy      = "joy"
	EmotionAnger    = "anger"
	EmotionFear     = "fear"
	EmotionSadness  = "sadness"
	EmotionSurprise = "surprise"
	EmotionNeutral  = "neutral"
)

var emotionNames = []string{EmotionJoy, EmotionAnger, EmotionFear, EmotionSadness, EmotionSurprise, EmotionNeutral}

// EmotionNames lists the emotions a record can be scored on.
func EmotionNames() []string {
	return append([]string(nil), emotionNames...)
}

// EmotionScores holds per-emotion intensities in [0, 1].
type EmotionScores struct {
	Joy      float64 `json:"joy"`
	Anger    float64 `json:"anger"`
	Fear     float64 `json:"fear"`
	Sadness  float64 `json:"sadness"`
	Surprise float64 `json:"surprise"`
	Neutral  float64 `json:"neutral"`
}

// Get returns the score for a named emotion.
func (e EmotionScores) Get(name string) (float64, bool) {
	switch strings.ToLower(name) {
	case EmotionJoy:
		return e.Joy, true
	case EmotionAnger:
		return e.Anger, true
	case EmotionFear:
		return e.Fear, true
	case EmotionSadness:
		return e.Sadness, true
	case EmotionSurprise:
		return e.Surprise, true
	case EmotionNeutral:
		return e.Neutral, true
	}
	return 0, false
}

func (e *EmotionScores) set(name string, v float64) {
	switch name {
	case EmotionJoy:
		e.Joy = v
	case EmotionAnger:
		e.Anger = v
	case EmotionFear:
		e.Fear = v
	case EmotionSadness:
		e.Sadness = v
	case EmotionSurprise:
		e.Surprise = v
	case EmotionNeutral:
		e.Neutral = v
	}
}

// Dominant returns the strongest non-neutral emotion, or "" when all are zero.
// Ties go to the emotion listed first in EmotionNames.
func (e EmotionScores) Dominant() string {
	best, bestScore := "", 0.0
	for _, name := range emotionNames[:5] {
		if v, _ := e.Get(name); v > bestScore {
			best, bestScore = name, v
		}
	}
	return best
}

// Record is one catalog entry.
type Record struct {
	CatalogKey    string        `json:"catalog_key"`
	Title         string        `json:"title"`
	Authors       []string      `json:"authors"`
	Category      string        `json:"category"`
	Description   string        `json:"description,omitempty"`
	AverageRating float64       `json:"average_rating"`
	RatingsCount  int           `json:"ratings_count"`
	Emotions      EmotionScores `json:"emotion_scores"`
	Thumbnail     string        `json:"thumbnail,omitempty"`
}

// ScoredCandidate is a record moving through the recommendation pipeline.
// SimilarityRank is the 1-based retrieval position and never changes after
// retrieval.
type ScoredCandidate struct {
	Record
	SimilarityRank       int     `json:"similarity_rank"`
	PopularityScore      float64 `json:"popularity_score"`
	TrendScore           float64 `json:"trend_score"`
	BaselineScore        float64 `json:"baseline_score"`
	PersonalizationBoost float64 `json:"personalization_boost"`
	FinalScore           float64 `json:"final_score"`
}
