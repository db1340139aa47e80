package classification

import (
	"context"
	"sort"
)

// Distribution maps labels to confidences.
type Distribution map[string]float64

// Top returns the most confident label. Equal confidences go to the label
// that sorts first; an empty distribution yields "" and 0.
func (d Distribution) Top() (string, float64) {
	labels := d.Labels()
	if len(labels) == 0 {
		return "", 0
	}
	return labels[0], d[labels[0]]
}

// Labels lists labels from most to least confident.
func (d Distribution) Labels() []string {
	labels := make([]string, 0, len(d))
	for label := range d {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if d[labels[i]] != d[labels[j]] {
			return d[labels[i]] > d[labels[j]]
		}
		return labels[i] < labels[j]
	})
	return labels
}

// Classifier is the external text classification capability. Implementations
// must honour ctx cancellation.
type Classifier interface {
	// Classify scores text against each of labels.
	Classify(ctx context.Context, text string, labels []string) (Distribution, error)

	// DetectEmotion scores text against the catalog emotions.
	DetectEmotion(ctx context.Context, text string) (Distribution, error)
}

// DefaultLabels are used by classify_text requests that name no categories.
var DefaultLabels = []string{"Fiction", "Nonfiction"}

// categoryMapping folds detailed catalog categories into the simple ones the
// recommender filters on.
var categoryMapping = map[string]string{
	"Fiction":                   "Fiction",
	"Juvenile Fiction":          "Children's Fiction",
	"Biography & Autobiography": "Nonfiction",
	"History":                   "Nonfiction",
	"Literary Criticism":        "Nonfiction",
	"Philosophy":                "Nonfiction",
	"Religion":                  "Nonfiction",
	"Comics & Graphic Novels":   "Fiction",
	"Drama":                     "Fiction",
	"Juvenile Nonfiction":       "Children's Nonfiction",
	"Science":                   "Nonfiction",
	"Poetry":                    "Fiction",
}

// SimpleCategory maps a detailed category to its simple category, or "Other".
func SimpleCategory(category string) string {
	if simple, ok := categoryMapping[category]; ok {
		return simple
	}
	return "Other"
}

// CategoryLabels lists the detailed categories in sorted order.
func CategoryLabels() []string {
	labels := make([]string, 0, len(categoryMapping))
	for label := range categoryMapping {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
