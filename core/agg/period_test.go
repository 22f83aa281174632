package agg

import (
	"testing"
	"time"

	"github.com/huangsam/kpiscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TestPeriodsFor tests that the canonical range spans epoch to as-of without gaps.
func TestPeriodsFor(t *testing.T) {
	tests := []struct {
		name  string
		g     schema.Granularity
		asOf  time.Time
		count int
		first string
		last  string
	}{
		{"monthly", schema.Month, utc(2017, time.March, 2), 6, "2016-10", "2017-03"},
		{"quarterly", schema.Quarter, utc(2017, time.March, 2), 2, "2016Q4", "2017Q1"},
		{"yearly", schema.Year, utc(2020, time.June, 1), 5, "2016", "2020"},
		{"same period as epoch", schema.Month, utc(2016, time.October, 31), 1, "2016-10", "2016-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			periods, err := PeriodsFor(tt.g, schema.Epoch, tt.asOf)
			require.NoError(t, err)
			require.Len(t, periods, tt.count)
			assert.Equal(t, tt.first, periods[0].String())
			assert.Equal(t, tt.last, periods[len(periods)-1].String())
			for i := 1; i < len(periods); i++ {
				assert.Equal(t, periods[i-1].Next(), periods[i], "gap at %d", i)
			}
		})
	}
}

func TestPeriodsForBeforeEpoch(t *testing.T) {
	periods, err := PeriodsFor(schema.Month, schema.Epoch, utc(2015, time.January, 1))
	require.NoError(t, err)
	assert.Empty(t, periods)
}

func TestPeriodsForInvalidGranularity(t *testing.T) {
	_, err := PeriodsFor("week", schema.Epoch, utc(2020, time.January, 1))
	assert.ErrorIs(t, err, schema.ErrInvalidGranularity)

	_, err = Truncate(time.Now(), "")
	assert.ErrorIs(t, err, schema.ErrInvalidGranularity)
}

// TestPeriodsForDeterministic tests that the range only depends on its inputs.
func TestPeriodsForDeterministic(t *testing.T) {
	asOf := utc(2024, time.July, 9)
	for _, g := range schema.AllGranularities {
		a, err := PeriodsFor(g, schema.Epoch, asOf)
		require.NoError(t, err)
		b, err := PeriodsFor(g, schema.Epoch, asOf)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestTruncate(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 2025-01-31 22:00 at UTC-5 is 2025-02-01 in UTC.
	p, err := Truncate(time.Date(2025, time.January, 31, 22, 0, 0, 0, loc), schema.Month)
	require.NoError(t, err)
	assert.Equal(t, "2025-02", p.String())
}

func TestSliceRange(t *testing.T) {
	rng, err := PeriodsFor(schema.Month, utc(2025, time.January, 1), utc(2025, time.June, 1))
	require.NoError(t, err)

	sub := SliceRange(rng, rng[1], rng[3])
	assert.Equal(t, rng[1:4], sub)
	assert.Equal(t, rng, SliceRange(rng, schema.Period{}, schema.Period{}))
	assert.Equal(t, rng[4:], SliceRange(rng, rng[4], schema.Period{}))
}
