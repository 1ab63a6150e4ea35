package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(t *testing.T, in, out time.Time) DateRange {
	t.Helper()
	dr, err := New(in, out)
	require.NoError(t, err)
	return dr
}

func TestNewRejectsInvertedAndZeroLengthRanges(t *testing.T) {
	_, err := New(day(2024, 7, 10), day(2024, 7, 10))
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = New(day(2024, 7, 10), day(2024, 7, 5))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestNewTruncatesToMidnightUTC(t *testing.T) {
	in := time.Date(2024, 7, 10, 15, 30, 0, 0, time.FixedZone("CET", 3600))
	out := time.Date(2024, 7, 12, 9, 0, 0, 0, time.UTC)
	dr := mustRange(t, in, out)

	assert.Equal(t, day(2024, 7, 10), dr.CheckIn)
	assert.Equal(t, day(2024, 7, 12), dr.CheckOut)
	assert.Equal(t, 2, dr.Nights())
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	base := mustRange(t, day(2024, 7, 10), day(2024, 7, 15))

	cases := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"identical", mustRange(t, day(2024, 7, 10), day(2024, 7, 15)), true},
		{"contained", mustRange(t, day(2024, 7, 11), day(2024, 7, 13)), true},
		{"starts inside", mustRange(t, day(2024, 7, 14), day(2024, 7, 20)), true},
		{"ends inside", mustRange(t, day(2024, 7, 5), day(2024, 7, 11)), true},
		{"same day turnover after", mustRange(t, day(2024, 7, 15), day(2024, 7, 18)), false},
		{"same day turnover before", mustRange(t, day(2024, 7, 7), day(2024, 7, 10)), false},
		{"disjoint", mustRange(t, day(2024, 8, 1), day(2024, 8, 5)), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.Overlaps(tc.other))
			assert.Equal(t, tc.want, tc.other.Overlaps(base))
		})
	}
}

func TestWithinTreatsWindowBoundsInclusive(t *testing.T) {
	from, to := day(2024, 6, 1), day(2024, 8, 31)

	exact := mustRange(t, day(2024, 6, 1), day(2024, 8, 31))
	assert.True(t, exact.Within(from, to))

	checkoutOnLastDay := mustRange(t, day(2024, 8, 28), day(2024, 8, 31))
	assert.True(t, checkoutOnLastDay.Within(from, to))

	checkoutPastWindow := mustRange(t, day(2024, 8, 28), day(2024, 9, 1))
	assert.False(t, checkoutPastWindow.Within(from, to))

	checkinBeforeWindow := mustRange(t, day(2024, 5, 31), day(2024, 6, 3))
	assert.False(t, checkinBeforeWindow.Within(from, to))
}

func TestNightsCountsWholeDays(t *testing.T) {
	assert.Equal(t, 1, mustRange(t, day(2024, 7, 10), day(2024, 7, 11)).Nights())
	assert.Equal(t, 7, mustRange(t, day(2024, 7, 10), day(2024, 7, 17)).Nights())
}
