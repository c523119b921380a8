// Package tz resolves free-text city names to IANA timezones and their
// whole-hour UTC offsets.
package tz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/worldclock/apiserver/internal/citylookup"
)

// ErrInvalidCity is returned when no timezone can be resolved for a
// city/country combination.
var ErrInvalidCity = errors.New("invalid city")

// DisplayLayout is the layout used for the live local time shown on reads.
const DisplayLayout = "Monday, January 2, 2006 3:04 PM"

// Cities is the read-only lookup consumed by the Resolver.
type Cities interface {
	Lookup(city string) []citylookup.Candidate
}

// Resolution is the outcome of resolving a city.
type Resolution struct {
	Timezone string
	Offset   string
}

// Resolver selects one timezone for a city and derives its offset.
type Resolver struct {
	cities Cities
	now    func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the wall clock used to compute offsets.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver constructs a Resolver over the given lookup table.
func NewResolver(cities Cities, opts ...Option) *Resolver {
	r := &Resolver{cities: cities, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve picks a timezone for city.
//
// When country is a two-letter code, the first candidate from that country is
// chosen and a missing match is an error. Otherwise the first candidate in
// dataset order wins.
func (r *Resolver) Resolve(city, country string) (Resolution, error) {
	city = citylookup.NormalizeCity(city)
	if city == "" {
		return Resolution{}, fmt.Errorf("%w: city is required", ErrInvalidCity)
	}

	candidates := r.cities.Lookup(city)
	if len(candidates) == 0 {
		return Resolution{}, fmt.Errorf("%w: no timezone found for %q", ErrInvalidCity, city)
	}

	selected := candidates[0]
	if code := normalizeCountry(country); code != "" {
		found := false
		for _, candidate := range candidates {
			if candidate.CountryCode == code {
				selected = candidate
				found = true
				break
			}
		}
		if !found {
			return Resolution{}, fmt.Errorf("%w: no timezone found for %q in %s", ErrInvalidCity, city, code)
		}
	}

	offset, err := OffsetAt(selected.Timezone, r.now())
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrInvalidCity, err)
	}

	return Resolution{Timezone: selected.Timezone, Offset: offset}, nil
}

// CurrentLocalTime formats the current instant in zone for display.
func (r *Resolver) CurrentLocalTime(zone string) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("load location %q: %w", zone, err)
	}
	return r.now().In(loc).Format(DisplayLayout), nil
}

// OffsetAt returns the whole-hour offset of zone at the given instant.
func OffsetAt(zone string, at time.Time) (string, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return "", fmt.Errorf("load location %q: %w", zone, err)
	}
	_, seconds := at.In(loc).Zone()
	return FormatOffset(seconds), nil
}

// FormatOffset renders an offset in seconds as "±H:00". Minutes are
// truncated, so +5:30 renders as "+5:00" and -3:30 as "-3:00".
func FormatOffset(seconds int) string {
	hours := seconds / 3600
	if hours > 0 {
		return fmt.Sprintf("+%d:00", hours)
	}
	return fmt.Sprintf("%d:00", hours)
}

// normalizeCountry returns the uppercased code when country is exactly two
// characters, and "" otherwise.
func normalizeCountry(country string) string {
	country = strings.TrimSpace(country)
	if len(country) != 2 {
		return ""
	}
	return strings.ToUpper(country)
}
