// Package citylookup holds the static city dataset used to turn a free-text
// city name into candidate IANA timezones.
package citylookup

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	// Bundled zone data so LoadLocation works on hosts without zoneinfo.
	_ "time/tzdata"
)

//go:embed cities.json
var embeddedCities []byte

// ErrEmptyDataset is returned when a dataset contains no usable rows.
var ErrEmptyDataset = errors.New("city dataset is empty")

// Row is a single dataset entry as stored on disk.
type Row struct {
	City     string `json:"city"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
}

// Candidate is one possible (country, timezone) match for a city name.
type Candidate struct {
	CountryCode string `json:"country_code"`
	Timezone    string `json:"timezone"`
}

// Table is an immutable index from normalized city names to their candidates.
// Candidates for a city keep the order in which they appear in the dataset.
type Table struct {
	byCity map[string][]Candidate
	rows   int
}

// New builds a Table from rows. Every timezone must be a loadable IANA zone.
func New(rows []Row) (*Table, error) {
	t := &Table{byCity: make(map[string][]Candidate, len(rows))}
	for i, row := range rows {
		city := NormalizeCity(row.City)
		if city == "" {
			return nil, fmt.Errorf("row %d: city is required", i)
		}
		zone := strings.TrimSpace(row.Timezone)
		if _, err := time.LoadLocation(zone); err != nil || zone == "" {
			return nil, fmt.Errorf("row %d (%s): unknown timezone %q", i, city, zone)
		}
		t.byCity[city] = append(t.byCity[city], Candidate{
			CountryCode: strings.ToUpper(strings.TrimSpace(row.Country)),
			Timezone:    zone,
		})
		t.rows++
	}
	if t.rows == 0 {
		return nil, ErrEmptyDataset
	}
	return t, nil
}

// Load parses a JSON array of rows and builds a Table from it.
func Load(r io.Reader) (*Table, error) {
	var rows []Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode city dataset: %w", err)
	}
	return New(rows)
}

// Default returns the table built from the dataset compiled into the binary.
func Default() (*Table, error) {
	return Load(bytes.NewReader(embeddedCities))
}

// Lookup returns the candidates for city in dataset order. The result is a
// copy; callers may not mutate the table through it.
func (t *Table) Lookup(city string) []Candidate {
	found := t.byCity[NormalizeCity(city)]
	if len(found) == 0 {
		return nil
	}
	out := make([]Candidate, len(found))
	copy(out, found)
	return out
}

// Cities returns the number of distinct city names in the table.
func (t *Table) Cities() int {
	return len(t.byCity)
}

// Rows returns the number of dataset rows the table was built from.
func (t *Table) Rows() int {
	return t.rows
}

// NormalizeCity trims surrounding whitespace and lowercases s.
func NormalizeCity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
