package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatOf infers the catalog format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

func LoadFile(path string) ([]Record, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	records, err := Load(f, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", path, err)
	}
	return records, nil
}

func Load(r io.Reader, format Format) ([]Record, error) {
	switch format {
	case FormatJSON:
		var records []Record
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode json catalog: %w", err)
		}
		return records, nil
	case FormatCSV:
		return loadCSV(r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

var requiredColumns = []string{"isbn13", "title"}

func loadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	records := make([]Record, 0)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		record, err := parseRow(row, columns)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
}

func parseRow(row []string, columns map[string]int) (Record, error) {
	get := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	record := Record{
		CatalogKey:  get("isbn13"),
		Title:       get("title"),
		Category:    get("simple_categories"),
		Description: get("description"),
		Thumbnail:   get("thumbnail"),
	}

	for _, a := range strings.Split(get("authors"), ";") {
		if a = strings.TrimSpace(a); a != "" {
			record.Authors = append(record.Authors, a)
		}
	}

	var err error
	if record.AverageRating, err = parseFloat(get("average_rating")); err != nil {
		return Record{}, fmt.Errorf("average_rating: %w", err)
	}
	if r := record.AverageRating; math.IsNaN(r) || r < 0 || r > 5 {
		return Record{}, fmt.Errorf("%w: average_rating %v outside [0, 5]", ErrInvalidValue, r)
	}

	count, err := parseFloat(get("ratings_count"))
	if err != nil {
		return Record{}, fmt.Errorf("ratings_count: %w", err)
	}
	if math.IsNaN(count) || math.IsInf(count, 0) || count < 0 || count >= math.MaxInt {
		return Record{}, fmt.Errorf("%w: ratings_count %v out of range", ErrInvalidValue, count)
	}
	record.RatingsCount = int(count)

	for _, name := range emotionNames {
		v, err := parseFloat(get(name))
		if err != nil {
			return Record{}, fmt.Errorf("%s: %w", name, err)
		}
		record.Emotions.set(name, v)
	}

	return record, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
