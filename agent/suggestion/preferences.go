package suggestion

import (
	"slices"
	"time"

	"github.com/tailored-agentic-units/recommender/catalog"
)

// QueryPreferences are inferred from keywords in the request query.
type QueryPreferences struct {
	PreferredGenres   []string `json:"preferred_genres"`
	EmotionPreference string   `json:"emotion_preference,omitempty"`
	ComplexityLevel   string   `json:"complexity_level"`
}

// HistoryPreferences summarise the books a user has already read.
type HistoryPreferences struct {
	PreferredCategories     []string `json:"preferred_categories"`
	PreferredAuthors        []string `json:"preferred_authors"`
	AverageRatingPreference float64  `json:"average_rating_preference"`
	TotalBooksRead          int      `json:"total_books_read"`
}

// Profile is the combined preference profile a personalized request is
// boosted against.
type Profile struct {
	PreferredGenres     []string `json:"preferred_genres"`
	PreferredCategories []string `json:"preferred_categories"`
	PreferredAuthors    []string `json:"preferred_authors"`
	EmotionPreference   string   `json:"emotion_preference,omitempty"`
	MinRating           float64  `json:"min_rating"`
}

// PreferenceAnalysis is the reply to analyze_user_preferences.
type PreferenceAnalysis struct {
	Query      string             `json:"query"`
	FromQuery  QueryPreferences   `json:"query_preferences"`
	History    HistoryPreferences `json:"history_preferences"`
	Combined   Profile            `json:"combined_preferences"`
	AnalyzedAt time.Time          `json:"analyzed_at"`
}

var genreKeywords = []struct {
	genre    string
	keywords []string
}{
	{"Fiction", []string{"fiction", "novel", "story"}},
	{"Nonfiction", []string{"nonfiction", "biography", "history"}},
	{"Children's Fiction", []string{"children", "kids", "young"}},
}

// Only the first matching emotion is kept.
var emotionKeywords = []struct {
	emotion  string
	keywords []string
}{
	{catalog.EmotionJoy, []string{"happy", "joyful", "uplifting"}},
	{catalog.EmotionSadness, []string{"sad", "emotional", "touching"}},
	{catalog.EmotionSurprise, []string{"exciting", "thrilling", "adventure"}},
}

// ExtractQueryPreferences matches whole query tokens against genre and emotion
// keywords.
func ExtractQueryPreferences(query string) QueryPreferences {
	tokens := catalog.Tokenize(query)
	has := func(keywords []string) bool {
		for _, k := range keywords {
			if slices.Contains(tokens, k) {
				return true
			}
		}
		return false
	}

	prefs := QueryPreferences{PreferredGenres: []string{}, ComplexityLevel: "medium"}
	for _, g := range genreKeywords {
		if has(g.keywords) {
			prefs.PreferredGenres = append(prefs.PreferredGenres, g.genre)
		}
	}
	for _, e := range emotionKeywords {
		if has(e.keywords) {
			prefs.EmotionPreference = e.emotion
			break
		}
	}
	return prefs
}

// AnalyzeHistory collects the categories and authors of history in first-seen
// order and averages the ratings of books that carry one.
func AnalyzeHistory(history []catalog.Record) HistoryPreferences {
	prefs := HistoryPreferences{
		PreferredCategories: []string{},
		PreferredAuthors:    []string{},
		TotalBooksRead:      len(history),
	}

	var sum float64
	var rated int
	for _, book := range history {
		if book.Category != "" {
			prefs.PreferredCategories = appendUnique(prefs.PreferredCategories, book.Category)
		}
		prefs.PreferredAuthors = appendUnique(prefs.PreferredAuthors, book.Authors...)
		if book.AverageRating > 0 {
			sum += book.AverageRating
			rated++
		}
	}
	if rated > 0 {
		prefs.AverageRatingPreference = sum / float64(rated)
	}
	return prefs
}

// CombinePreferences merges query, history and explicit preferences. The
// minimum rating is the explicit one when set, else the history average, else
// defaultMinRating.
func CombinePreferences(query QueryPreferences, history HistoryPreferences, explicit *Preferences, defaultMinRating float64) Profile {
	profile := Profile{
		PreferredGenres:     appendUnique(nil, query.PreferredGenres...),
		PreferredCategories: appendUnique(nil, history.PreferredCategories...),
		PreferredAuthors:    appendUnique(nil, history.PreferredAuthors...),
		EmotionPreference:   query.EmotionPreference,
		MinRating:           defaultMinRating,
	}
	profile.PreferredGenres = appendUnique(profile.PreferredGenres, history.PreferredCategories...)

	if history.AverageRatingPreference > 0 {
		profile.MinRating = history.AverageRatingPreference
	}

	if explicit != nil {
		profile.PreferredGenres = appendUnique(profile.PreferredGenres, explicit.PreferredCategories...)
		profile.PreferredCategories = appendUnique(profile.PreferredCategories, explicit.PreferredCategories...)
		profile.PreferredAuthors = appendUnique(profile.PreferredAuthors, explicit.PreferredAuthors...)
		if explicit.MinRating > 0 {
			profile.MinRating = explicit.MinRating
		}
	}
	return profile
}

// Matches reports whether r falls in one of the profile's genres.
func (p *Profile) Matches(r catalog.Record) bool {
	return slices.Contains(p.PreferredGenres, r.Category)
}

// Score is the mean, over recs, of 0.5 for a preferred genre plus 0.5 for
// meeting the profile's minimum rating. An empty list scores 0.
func (p *Profile) Score(recs []catalog.ScoredCandidate) float64 {
	if len(recs) == 0 {
		return 0
	}
	var total float64
	for _, r := range recs {
		if p.Matches(r.Record) {
			total += 0.5
		}
		if r.AverageRating >= p.MinRating {
			total += 0.5
		}
	}
	return total / float64(len(recs))
}

func appendUnique(dst []string, values ...string) []string {
	if dst == nil {
		dst = []string{}
	}
	for _, v := range values {
		if v != "" && !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
