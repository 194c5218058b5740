package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_relativeDays(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	r, err := Parse("7d", now)
	require.NoError(t, err)
	assert.Equal(t, "7d", r.Label)
	assert.Equal(t, 7, r.Days)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), r.End)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), r.Start)

	// Case-insensitive on the unit letter.
	upper, err := Parse("7D", now)
	require.NoError(t, err)
	assert.Equal(t, r, upper)
}

func TestParse_relativeDaysRejectsNonPositive(t *testing.T) {
	now := time.Now()

	_, err := Parse("0d", now)
	require.Error(t, err)

	_, err = Parse("-3d", now)
	require.Error(t, err)
}

func TestParse_year(t *testing.T) {
	r, err := Parse("2025", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2025", r.Label)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), r.End)
	assert.Equal(t, 365, r.Days)

	leap, err := Parse("2024", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 366, leap.Days)
}

func TestParse_quarter(t *testing.T) {
	r, err := Parse("Q2-2026", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Q2-2026", r.Label)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), r.End)

	// Case-insensitive on the "Q" letter, normalized to uppercase in Label.
	lower, err := Parse("q2-2026", time.Now())
	require.NoError(t, err)
	assert.Equal(t, r, lower)
}

func TestParse_quarterRejectsOutOfRange(t *testing.T) {
	_, err := Parse("Q5-2026", time.Now())
	require.Error(t, err)

	_, err = Parse("Q0-2026", time.Now())
	require.Error(t, err)
}

func TestParse_customWindow(t *testing.T) {
	r, err := Parse("2026-01-01:2026-02-01", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01:2026-02-01", r.Label)
	assert.True(t, r.Start.Before(r.End))
	// The window is inclusive of 2026-02-01, so End is the start of 2026-02-02.
	assert.Equal(t, time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), r.End)
	assert.Equal(t, 32, r.Days)
}

func TestParse_rejectsEmptyOrInvertedOrUnrecognized(t *testing.T) {
	now := time.Now()

	_, err := Parse("", now)
	require.Error(t, err)

	_, err = Parse("2026-02-01:2026-01-01", now)
	require.Error(t, err)

	_, err = Parse("last-week", now)
	require.Error(t, err)

	_, err = Parse("not-a-range", now)
	require.Error(t, err)
}

func TestParse_roundTrip(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"30d", "2025", "Q3-2025", "2026-01-01:2026-03-31"} {
		first, err := Parse(raw, now)
		require.NoError(t, err)

		second, err := Parse(first.Label, now)
		require.NoError(t, err)
		assert.Equal(t, first, second, "round trip through Label must be idempotent for %s", raw)
	}
}

func TestApplyOffset(t *testing.T) {
	r, err := Parse("2025-10-28:2026-01-26", time.Now())
	require.NoError(t, err)

	shifted := ApplyOffset(r, 180)
	assert.Equal(t, r.Start.Add(-180*24*time.Hour), shifted.Start)
	assert.Equal(t, r.End.Add(-180*24*time.Hour), shifted.End)
	assert.Equal(t, r.Duration(), shifted.Duration())
	assert.Equal(t, r.Label, shifted.Label, "offsetting must not change the range's identity label")
	assert.Equal(t, r.Days, shifted.Days)

	assert.Equal(t, r, ApplyOffset(r, 0))
}

func TestDateRange_Contains(t *testing.T) {
	r, err := Parse("2026-01-01:2026-01-31", time.Now())
	require.NoError(t, err)

	assert.True(t, r.Contains(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.Contains(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
}
