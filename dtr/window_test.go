package dtr_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrsuite/dtr-engine/dtr"
)

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 10, 30, 0, 0, time.UTC)
}

// =============================================================================
// FILTER RESOLUTION
// =============================================================================

func TestResolveWindow_Today(t *testing.T) {
	w, err := dtr.ResolveWindow(dtr.FilterToday, "", at(2025, time.August, 16))
	require.NoError(t, err)

	assert.Equal(t, dtr.NewDate(2025, time.August, 16), w.From)
	assert.Equal(t, w.From, w.To)
	assert.Len(t, w.Dates(), 1)
}

func TestResolveWindow_Last2Weeks_FourteenDaysEndingToday(t *testing.T) {
	w, err := dtr.ResolveWindow(dtr.FilterLast2Weeks, "", at(2025, time.August, 16))
	require.NoError(t, err)

	assert.Equal(t, dtr.NewDate(2025, time.August, 3), w.From)
	assert.Equal(t, dtr.NewDate(2025, time.August, 16), w.To)
	assert.Len(t, w.Dates(), 14)
}

func TestResolveWindow_ThisMonth_Full(t *testing.T) {
	w, err := dtr.ResolveWindow(dtr.FilterThisMonth, dtr.PeriodFull, at(2025, time.August, 16))
	require.NoError(t, err)

	assert.Equal(t, dtr.NewDate(2025, time.August, 1), w.From)
	assert.Equal(t, dtr.NewDate(2025, time.August, 31), w.To)
}

func TestResolveWindow_LastMonth_JanuaryRollsToDecember(t *testing.T) {
	// GIVEN: now is mid-January
	// WHEN: resolving Last Month
	// THEN: the window is December of the prior year

	w, err := dtr.ResolveWindow(dtr.FilterLastMonth, "", at(2026, time.January, 10))
	require.NoError(t, err)

	assert.Equal(t, dtr.NewDate(2025, time.December, 1), w.From)
	assert.Equal(t, dtr.NewDate(2025, time.December, 31), w.To)
}

func TestResolveWindow_HalfOnNonMonthFilter_Rejected(t *testing.T) {
	_, err := dtr.ResolveWindow(dtr.FilterLast2Weeks, dtr.PeriodFirstHalf, at(2025, time.August, 16))

	assert.ErrorIs(t, err, dtr.ErrInvalidPeriod)
	assert.True(t, dtr.IsClientError(err))
}

func TestResolveWindow_UnknownFilter_BehavesLikeToday(t *testing.T) {
	w, err := dtr.ResolveWindow("bogus", "", at(2025, time.August, 16))
	require.NoError(t, err)

	assert.Equal(t, dtr.NewDate(2025, time.August, 16), w.From)
	assert.Equal(t, w.From, w.To)
}

// =============================================================================
// HALF-MONTH PROPERTIES
// =============================================================================

func TestResolveWindow_Halves_UnionIsFullAndDisjoint(t *testing.T) {
	// The first/second halves of any month must partition the full month:
	// together exhaustive, pairwise disjoint. February (leap and not) and
	// 30/31-day months are the interesting cases.
	anchors := []time.Time{
		at(2025, time.February, 10), // 28 days
		at(2024, time.February, 10), // 29 days
		at(2025, time.April, 10),    // 30 days
		at(2025, time.August, 16),   // 31 days
	}

	for _, now := range anchors {
		t.Run(now.Format("2006-01"), func(t *testing.T) {
			full, err := dtr.ResolveWindow(dtr.FilterThisMonth, dtr.PeriodFull, now)
			require.NoError(t, err)
			first, err := dtr.ResolveWindow(dtr.FilterThisMonth, dtr.PeriodFirstHalf, now)
			require.NoError(t, err)
			second, err := dtr.ResolveWindow(dtr.FilterThisMonth, dtr.PeriodSecondHalf, now)
			require.NoError(t, err)

			union := append(append([]dtr.Date{}, first.Dates()...), second.Dates()...)
			assert.Equal(t, full.Dates(), union, "halves must union to the full month")

			seen := make(map[dtr.Date]bool)
			for _, d := range first.Dates() {
				seen[d] = true
			}
			for _, d := range second.Dates() {
				assert.False(t, seen[d], "halves must be disjoint, %s appears twice", d)
			}

			assert.Equal(t, 15, len(first.Dates()), "first half is always days 1-15")
		})
	}
}

func TestResolveWindow_Idempotent(t *testing.T) {
	now := at(2025, time.August, 16)
	for _, filter := range []dtr.Filter{dtr.FilterToday, dtr.FilterLast2Weeks, dtr.FilterThisMonth, dtr.FilterLastMonth} {
		a, err := dtr.ResolveWindow(filter, "", now)
		require.NoError(t, err)
		b, err := dtr.ResolveWindow(filter, "", now)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Equal(t, a.Dates(), b.Dates())
	}
}

// =============================================================================
// WINDOW MECHANICS
// =============================================================================

func TestWindow_Contains(t *testing.T) {
	w := dtr.Window{From: dtr.NewDate(2025, time.August, 1), To: dtr.NewDate(2025, time.August, 15)}

	assert.True(t, w.Contains(dtr.NewDate(2025, time.August, 1)))
	assert.True(t, w.Contains(dtr.NewDate(2025, time.August, 15)))
	assert.False(t, w.Contains(dtr.NewDate(2025, time.July, 31)))
	assert.False(t, w.Contains(dtr.NewDate(2025, time.August, 16)))
}

func TestWindow_Dates_NoGapsNoDuplicates(t *testing.T) {
	w := dtr.Window{From: dtr.NewDate(2025, time.August, 30), To: dtr.NewDate(2025, time.September, 2)}

	dates := w.Dates()
	require.Len(t, dates, 4)
	for i := 1; i < len(dates); i++ {
		assert.Equal(t, dates[i-1].AddDays(1), dates[i])
	}
}
