package dtr

import "time"

// =============================================================================
// WINDOW - The date range every reconciliation runs over
// =============================================================================

// Filter is the coarse date-range selector offered by the portal.
type Filter string

const (
	FilterToday      Filter = "today"
	FilterLast2Weeks Filter = "last_2_weeks"
	FilterThisMonth  Filter = "this_month"
	FilterLastMonth  Filter = "last_month"
)

// SubPeriod refines a month filter to a payroll half. It is only meaningful
// for FilterThisMonth and FilterLastMonth; the split is day 15/16.
type SubPeriod string

const (
	PeriodFull       SubPeriod = "full"
	PeriodFirstHalf  SubPeriod = "first_half"
	PeriodSecondHalf SubPeriod = "second_half"
)

// supportsSubPeriod reports whether a filter accepts half-month refinement.
func (f Filter) supportsSubPeriod() bool {
	return f == FilterThisMonth || f == FilterLastMonth
}

// Window is an inclusive contiguous date range.
type Window struct {
	From Date
	To   Date
}

// Contains reports whether the date falls inside the window.
func (w Window) Contains(d Date) bool {
	return d.AfterOrEqual(w.From) && d.BeforeOrEqual(w.To)
}

// Dates expands the window to its ordered day sequence: no gaps, no
// duplicates, From first.
func (w Window) Dates() []Date {
	var dates []Date
	for d := w.From; d.BeforeOrEqual(w.To); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

func (w Window) String() string {
	return "[" + w.From.String() + ", " + w.To.String() + "]"
}

// =============================================================================
// RESOLVER
// =============================================================================

// ResolveWindow turns a (filter, sub-period) pair into a concrete window
// relative to now. Month filters use the calendar month of now, with correct
// year rollover for last-month-of-January. Fails with ErrInvalidPeriod when a
// half is requested for a filter that has no halves.
func ResolveWindow(filter Filter, period SubPeriod, now time.Time) (Window, error) {
	if period == "" {
		period = PeriodFull
	}
	if period != PeriodFull && !filter.supportsSubPeriod() {
		return Window{}, ErrInvalidPeriod
	}

	today := DateOf(now)

	switch filter {
	case FilterToday:
		return Window{From: today, To: today}, nil

	case FilterLast2Weeks:
		// 14 days ending today, inclusive.
		return Window{From: today.AddDays(-13), To: today}, nil

	case FilterThisMonth:
		return monthWindow(today.Year, today.Month, period), nil

	case FilterLastMonth:
		year, month := today.Year, today.Month-1
		if today.Month == time.January {
			year, month = today.Year-1, time.December
		}
		return monthWindow(year, month, period), nil

	default:
		// Unknown filters behave like Today so a stale saved view never
		// breaks the report.
		return Window{From: today, To: today}, nil
	}
}

func monthWindow(year int, month time.Month, period SubPeriod) Window {
	first := NewDate(year, month, 1)
	last := NewDate(year, month, LastDayOfMonth(year, month))

	switch period {
	case PeriodFirstHalf:
		return Window{From: first, To: NewDate(year, month, 15)}
	case PeriodSecondHalf:
		return Window{From: NewDate(year, month, 16), To: last}
	default:
		return Window{From: first, To: last}
	}
}
