package catalog

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Retriever returns up to k records relevant to query, most relevant first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Record, error)
}

// RetrieverFunc adapts a function to Retriever.
type RetrieverFunc func(ctx context.Context, query string, k int) ([]Record, error)

func (f RetrieverFunc) Search(ctx context.Context, query string, k int) ([]Record, error) {
	return f(ctx, query, k)
}

// Source exposes a whole catalog for aggregate analysis.
type Source interface {
	All() []Record
}

var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "of": true, "to": true,
	"in": true, "on": true, "for": true, "with": true, "about": true, "is": true,
	"book": true, "books": true, "me": true, "i": true, "want": true, "like": true,
}

// Tokenize lowercases text and splits it on anything that is not a letter or
// digit, dropping stopwords.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if !stopwords[f] {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// MemoryRetriever ranks an in-memory catalog by weighted keyword overlap:
// title matches count 3, author and category matches 2, description matches 1.
// Records with no overlap are not returned. Equal scores keep catalog order.
// An empty query returns the catalog in order.
type MemoryRetriever struct {
	records []Record
	index   []map[string]int
}

func NewMemoryRetriever(records []Record) *MemoryRetriever {
	m := &MemoryRetriever{
		records: append([]Record(nil), records...),
		index:   make([]map[string]int, len(records)),
	}
	for i, r := range m.records {
		m.index[i] = weights(r)
	}
	return m
}

func weights(r Record) map[string]int {
	w := make(map[string]int)
	add := func(text string, weight int) {
		for _, t := range Tokenize(text) {
			w[t] = max(w[t], weight)
		}
	}
	add(r.Description, 1)
	add(r.Category, 2)
	add(strings.Join(r.Authors, " "), 2)
	add(r.Title, 3)
	return w
}

func (m *MemoryRetriever) All() []Record {
	return append([]Record(nil), m.records...)
}

func (m *MemoryRetriever) Len() int {
	return len(m.records)
}

func (m *MemoryRetriever) Search(ctx context.Context, query string, k int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Record{}, nil
	}

	tokens := Tokenize(query)
	if len(tokens) == 0 {
		n := min(k, len(m.records))
		return append([]Record(nil), m.records[:n]...), nil
	}

	type hit struct {
		pos   int
		score int
	}
	hits := make([]hit, 0)
	for i, w := range m.index {
		score := 0
		for _, t := range tokens {
			score += w[t]
		}
		if score > 0 {
			hits = append(hits, hit{pos: i, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	n := min(k, len(hits))
	out := make([]Record, n)
	for i := range n {
		out[i] = m.records[hits[i].pos]
	}
	return out, nil
}
