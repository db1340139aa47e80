package catalog_test

import (
	"context"
	"testing"

	"github.com/tailored-agentic-units/recommender/catalog"
)

func sampleCatalog() []catalog.Record {
	return []catalog.Record{
		{CatalogKey: "1", Title: "The Dragon Road", Authors: []string{"Ann Lee"}, Category: "Fiction", Description: "a dragon journey"},
		{CatalogKey: "2", Title: "Cooking Basics", Authors: []string{"Bo Chen"}, Category: "Nonfiction", Description: "recipes for everyone"},
		{CatalogKey: "3", Title: "Sky Kingdoms", Authors: []string{"Ann Lee"}, Category: "Fiction", Description: "dragons and a dragon rider"},
		{CatalogKey: "4", Title: "History of Bread", Authors: []string{"Cy Park"}, Category: "Nonfiction", Description: "cooking through the ages"},
	}
}

func keys(records []catalog.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.CatalogKey
	}
	return out
}

func TestTokenize(t *testing.T) {
	got := catalog.Tokenize("I want a BOOK about Dragons, fire & ice!")
	want := []string{"dragons", "fire", "ice"}

	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokenize()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMemoryRetriever_Search(t *testing.T) {
	r := catalog.NewMemoryRetriever(sampleCatalog())
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		k     int
		want  []string
	}{
		{"title beats description", "dragon", 10, []string{"1", "3"}},
		{"author match keeps catalog order", "lee", 10, []string{"1", "3"}},
		{"k truncates", "cooking", 1, []string{"2"}},
		{"no overlap", "submarines", 10, []string{}},
		{"empty query returns catalog", "", 2, []string{"1", "2"}},
		{"non-positive k", "dragon", 0, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Search(ctx, tt.query, tt.k)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if gotKeys := keys(got); len(gotKeys) != len(tt.want) {
				t.Fatalf("Search() = %v, want %v", gotKeys, tt.want)
			} else {
				for i := range tt.want {
					if gotKeys[i] != tt.want[i] {
						t.Errorf("Search()[%d] = %s, want %s", i, gotKeys[i], tt.want[i])
					}
				}
			}
		})
	}
}

func TestMemoryRetriever_CancelledContext(t *testing.T) {
	r := catalog.NewMemoryRetriever(sampleCatalog())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Search(ctx, "dragon", 5); err == nil {
		t.Error("Search() expected error for cancelled context")
	}
}

func TestMemoryRetriever_All(t *testing.T) {
	records := sampleCatalog()
	r := catalog.NewMemoryRetriever(records)

	all := r.All()
	all[0].Title = "mutated"

	if r.All()[0].Title != "The Dragon Road" {
		t.Error("All() should return a copy")
	}
	if r.Len() != len(records) {
		t.Errorf("Len() = %d, want %d", r.Len(), len(records))
	}
}

func TestEmotionScores(t *testing.T) {
	e := catalog.EmotionScores{Joy: 0.2, Fear: 0.7, Sadness: 0.7, Neutral: 0.9}

	if got := e.Dominant(); got != catalog.EmotionFear {
		t.Errorf("Dominant() = %q, want %q", got, catalog.EmotionFear)
	}
	if v, ok := e.Get("Joy"); !ok || v != 0.2 {
		t.Errorf("Get(Joy) = %v, %v, want 0.2, true", v, ok)
	}
	if _, ok := e.Get("boredom"); ok {
		t.Error("Get(boredom) should report false")
	}
	if got := (catalog.EmotionScores{}).Dominant(); got != "" {
		t.Errorf("Dominant() of zero scores = %q, want empty", got)
	}
}
