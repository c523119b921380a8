package tz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldclock/apiserver/internal/citylookup"
)

var (
	winter = time.Date(2026, time.January, 15, 12, 0, 0, 0, time.UTC)
	summer = time.Date(2026, time.July, 15, 12, 0, 0, 0, time.UTC)
)

func newTestResolver(t *testing.T, at time.Time) *Resolver {
	t.Helper()
	table, err := citylookup.Default()
	require.NoError(t, err)
	return NewResolver(table, WithClock(func() time.Time { return at }))
}

func TestResolveWithCountry(t *testing.T) {
	r := newTestResolver(t, winter)

	got, err := r.Resolve("los angeles", "us")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Timezone: "America/Los_Angeles", Offset: "-8:00"}, got)

	got, err = r.Resolve("Los Angeles", "CL")
	require.NoError(t, err)
	assert.Equal(t, "America/Santiago", got.Timezone)
}

func TestResolveWithoutCountryTakesFirstCandidate(t *testing.T) {
	r := newTestResolver(t, winter)

	got, err := r.Resolve("new york", "")
	require.NoError(t, err)
	assert.Equal(t, Resolution{Timezone: "America/New_York", Offset: "-5:00"}, got)

	// "los angeles" is listed for Chile first in the dataset.
	got, err = r.Resolve("los angeles", "")
	require.NoError(t, err)
	assert.Equal(t, "America/Santiago", got.Timezone)
}

func TestResolveIgnoresMalformedCountry(t *testing.T) {
	r := newTestResolver(t, winter)

	for _, country := range []string{"USA", "u", "  "} {
		got, err := r.Resolve("paris", country)
		require.NoError(t, err, country)
		assert.Equal(t, "Europe/Paris", got.Timezone, country)
	}
}

func TestResolveCountryMismatchFails(t *testing.T) {
	r := newTestResolver(t, winter)

	_, err := r.Resolve("new york", "GB")
	assert.ErrorIs(t, err, ErrInvalidCity)
}

func TestResolveUnknownCity(t *testing.T) {
	r := newTestResolver(t, winter)

	_, err := r.Resolve("not-a-real-city-xyz", "")
	assert.ErrorIs(t, err, ErrInvalidCity)

	_, err = r.Resolve("   ", "US")
	assert.ErrorIs(t, err, ErrInvalidCity)
}

func TestResolveTracksDST(t *testing.T) {
	r := newTestResolver(t, summer)

	got, err := r.Resolve("new york", "")
	require.NoError(t, err)
	assert.Equal(t, "-4:00", got.Offset)

	got, err = r.Resolve("los angeles", "US")
	require.NoError(t, err)
	assert.Equal(t, "-7:00", got.Offset)
}

func TestResolveIsDeterministic(t *testing.T) {
	r := newTestResolver(t, winter)

	first, err := r.Resolve("portland", "")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := r.Resolve("portland", "")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "0:00"},
		{-5 * 3600, "-5:00"},
		{9 * 3600, "+9:00"},
		{5*3600 + 1800, "+5:00"},
		{-(3*3600 + 1800), "-3:00"},
		{5*3600 + 45*60, "+5:00"},
		{14 * 3600, "+14:00"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatOffset(tc.seconds), "seconds=%d", tc.seconds)
	}
}

func TestHalfHourZonesAreTruncated(t *testing.T) {
	r := newTestResolver(t, winter)

	got, err := r.Resolve("mumbai", "IN")
	require.NoError(t, err)
	assert.Equal(t, "+5:00", got.Offset)

	got, err = r.Resolve("st. john's", "CA")
	require.NoError(t, err)
	assert.Equal(t, "-3:00", got.Offset)
}

func TestCurrentLocalTime(t *testing.T) {
	r := newTestResolver(t, winter)

	got, err := r.CurrentLocalTime("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "Thursday, January 15, 2026 7:00 AM", got)

	_, err = r.CurrentLocalTime("Nowhere/Special")
	assert.Error(t, err)
}
