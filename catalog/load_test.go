package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/recommender/catalog"
)

const sampleCSV = `isbn13,title,authors,simple_categories,average_rating,ratings_count,joy,anger,fear,sadness,surprise,description
9780001,Dragon Road,Ann Lee;Bo Chen,Fiction,4.2,1500.0,0.8,0.1,0.3,0.05,0.2,A journey
9780002,Bread,Cy Park,Nonfiction,3.9,42,0,0,0,0,0,
`

func TestLoad_CSV(t *testing.T) {
	records, err := catalog.Load(strings.NewReader(sampleCSV), catalog.FormatCSV)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	r := records[0]
	if r.CatalogKey != "9780001" || r.Title != "Dragon Road" {
		t.Errorf("record = %+v, want 9780001 Dragon Road", r)
	}
	if len(r.Authors) != 2 || r.Authors[1] != "Bo Chen" {
		t.Errorf("Authors = %v, want [Ann Lee Bo Chen]", r.Authors)
	}
	if r.RatingsCount != 1500 {
		t.Errorf("RatingsCount = %d, want 1500", r.RatingsCount)
	}
	if r.AverageRating != 4.2 {
		t.Errorf("AverageRating = %v, want 4.2", r.AverageRating)
	}
	if r.Emotions.Joy != 0.8 || r.Emotions.Fear != 0.3 {
		t.Errorf("Emotions = %+v, want joy 0.8 fear 0.3", r.Emotions)
	}
	if records[1].Description != "" {
		t.Errorf("Description = %q, want empty", records[1].Description)
	}
}

func TestLoad_CSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"missing key column", "title,authors\nX,Y\n", catalog.ErrMissingColumn},
		{"bad rating", "isbn13,title,average_rating\n1,X,high\n", nil},
		{"rating above five", "isbn13,title,average_rating\n1,X,7\n", catalog.ErrInvalidValue},
		{"negative rating", "isbn13,title,average_rating\n1,X,-0.5\n", catalog.ErrInvalidValue},
		{"nan rating", "isbn13,title,average_rating\n1,X,NaN\n", catalog.ErrInvalidValue},
		{"nan count", "isbn13,title,ratings_count\n1,X,NaN\n", catalog.ErrInvalidValue},
		{"infinite count", "isbn13,title,ratings_count\n1,X,+Inf\n", catalog.ErrInvalidValue},
		{"negative count", "isbn13,title,ratings_count\n1,X,-1\n", catalog.ErrInvalidValue},
		{"overflowing count", "isbn13,title,ratings_count\n1,X,1e30\n", catalog.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Load(strings.NewReader(tt.input), catalog.FormatCSV)
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoad_CSVErrorLine(t *testing.T) {
	input := "isbn13,title,ratings_count\n1,X,10\n2,Y,-3\n"

	_, err := catalog.Load(strings.NewReader(input), catalog.FormatCSV)
	if !errors.Is(err, catalog.ErrInvalidValue) {
		t.Fatalf("Load() error = %v, want ErrInvalidValue", err)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("Load() error = %v, want it to name line 3", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "books.json")
	body := `[{"catalog_key":"1","title":"Dragon Road","authors":["Ann Lee"],"category":"Fiction","average_rating":4.1,"ratings_count":120,"emotion_scores":{"joy":0.5}}]`
	if err := os.WriteFile(jsonPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	records, err := catalog.LoadFile(jsonPath)
	if err != nil {
		t.Fatalf("LoadFile(json) error = %v", err)
	}
	if len(records) != 1 || records[0].Emotions.Joy != 0.5 {
		t.Errorf("LoadFile(json) = %+v, want one record with joy 0.5", records)
	}

	csvPath := filepath.Join(dir, "books.csv")
	if err := os.WriteFile(csvPath, []byte(sampleCSV), 0o600); err != nil {
		t.Fatal(err)
	}
	if records, err := catalog.LoadFile(csvPath); err != nil || len(records) != 2 {
		t.Errorf("LoadFile(csv) = %d records, %v, want 2, nil", len(records), err)
	}

	if _, err := catalog.LoadFile(filepath.Join(dir, "books.xml")); !errors.Is(err, catalog.ErrUnsupportedFormat) {
		t.Errorf("LoadFile(xml) error = %v, want ErrUnsupportedFormat", err)
	}
}
