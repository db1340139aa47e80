package classification

import (
	"context"

	"github.com/tailored-agentic-units/recommender/catalog"
)

var labelLexicon = map[string][]string{
	"Fiction":                   {"novel", "story", "stories", "tale", "character", "adventure", "fantasy", "mystery", "magic", "romance"},
	"Nonfiction":                {"history", "biography", "memoir", "science", "guide", "essay", "facts", "research", "true", "politics"},
	"Juvenile Fiction":          {"children", "kids", "young", "school", "bedtime", "picture"},
	"Juvenile Nonfiction":       {"children", "kids", "learn", "learning", "activity"},
	"Biography & Autobiography": {"biography", "autobiography", "memoir", "life"},
	"History":                   {"history", "war", "century", "empire", "ancient"},
	"Literary Criticism":        {"criticism", "literary", "literature", "analysis"},
	"Philosophy":                {"philosophy", "ethics", "mind", "meaning"},
	"Religion":                  {"god", "faith", "religion", "bible", "spiritual"},
	"Comics & Graphic Novels":   {"comic", "comics", "graphic", "manga"},
	"Drama":                     {"play", "plays", "drama", "stage", "tragedy"},
	"Science":                   {"science", "physics", "biology", "universe", "quantum"},
	"Poetry":                    {"poem", "poems", "poetry", "verse"},
}

var emotionLexicon = map[string][]string{
	catalog.EmotionJoy:      {"happy", "joy", "joyful", "delight", "love", "laugh", "fun", "uplifting", "hope", "wonderful"},
	catalog.EmotionSadness:  {"sad", "grief", "loss", "tears", "lonely", "death", "mourning", "tragic", "heartbreak"},
	catalog.EmotionAnger:    {"angry", "rage", "fury", "revenge", "hate", "betrayal"},
	catalog.EmotionFear:     {"fear", "terror", "horror", "scared", "haunted", "danger", "dread", "murder"},
	catalog.EmotionSurprise: {"surprise", "twist", "sudden", "unexpected", "shocking", "secret"},
}

// LexiconClassifier is a deterministic keyword classifier. Each label scores
// one plus the number of text tokens found in its lexicon (labels outside the
// lexicon match their own words) and scores are normalised to sum to one.
// Emotion detection does the same and gives neutral the base weight alone.
type LexiconClassifier struct{}

func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{}
}

func (LexiconClassifier) Classify(ctx context.Context, text string, labels []string) (Distribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := catalog.Tokenize(text)
	raw := make(map[string]float64, len(labels))
	for _, label := range labels {
		keywords, ok := labelLexicon[label]
		if !ok {
			keywords = catalog.Tokenize(label)
		}
		raw[label] = 1 + float64(matches(tokens, keywords))
	}
	return normalise(raw), nil
}

func (LexiconClassifier) DetectEmotion(ctx context.Context, text string) (Distribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := catalog.Tokenize(text)
	raw := map[string]float64{catalog.EmotionNeutral: 1}
	for emotion, keywords := range emotionLexicon {
		raw[emotion] = float64(matches(tokens, keywords))
	}
	return normalise(raw), nil
}

func matches(tokens, keywords []string) int {
	set := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		set[k] = true
	}
	n := 0
	for _, t := range tokens {
		if set[t] {
			n++
		}
	}
	return n
}

func normalise(raw map[string]float64) Distribution {
	var total float64
	for _, v := range raw {
		total += v
	}
	d := make(Distribution, len(raw))
	for k, v := range raw {
		if total > 0 {
			d[k] = v / total
		}
	}
	return d
}
