/*
Package dtr implements the attendance reconciliation engine.

PURPOSE:
  This package merges raw biometric punches with an employee's shift
  schedule and the exception sources (locator slips, fix-log overrides,
  leave, travel orders, CDO use-dates, holidays) into one canonical
  annotated daily time record per employee per date.

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: a calendar day (no time-of-day, no timezone ambiguity)
  - ClockTime: a minute-of-day value used for punch/slot comparisons
  - Holiday: calendar entries, optionally recurring by month-day

DESIGN PRINCIPLES:
  1. Purity: reconciliation is a single pass over an immutable snapshot
  2. Day granularity: every join key in this package is a Date
  3. Determinism: re-running on the same snapshot yields identical output

SEE ALSO:
  - window.go: resolves view filters into ordered date sequences
  - overlay.go: the per-slot annotation cascade
  - report.go: the aggregator consumed by callers
*/
package dtr

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar day abstraction (every reconciliation key is a day)
// =============================================================================

// Date identifies a calendar day. The zero value is "no date".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	// Normalize through time.Date so callers may pass overflowing components
	// (e.g. Jan 32) and still get a valid calendar day.
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateOf truncates a timestamp to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses "YYYY-MM-DD". Timestamps with a trailing time component
// are accepted; only the day portion is kept.
func ParseDate(s string) (Date, error) {
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) IsZero() bool { return d == Date{} }

// Comparison
func (d Date) Before(other Date) bool        { return d.Time().Before(other.Time()) }
func (d Date) After(other Date) bool         { return d.Time().After(other.Time()) }
func (d Date) Equal(other Date) bool         { return d == other }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return DateOf(d.Time().AddDate(0, 0, n)) }
func (d Date) AddMonths(n int) Date { return DateOf(d.Time().AddDate(0, n, 0)) }

// Properties
func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// SameMonthDay reports whether two dates share month and day, ignoring year.
// Recurring holidays match on this.
func (d Date) SameMonthDay(other Date) bool {
	return d.Month == other.Month && d.Day == other.Day
}

func (d Date) String() string { return d.Time().Format("2006-01-02") }

// DaysBetween returns the count of days from a to b (negative if b < a).
func DaysBetween(a, b Date) int {
	return int(b.Time().Sub(a.Time()).Hours() / 24)
}

// LastDayOfMonth computes the actual month length, leap years included.
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// =============================================================================
// CLOCK TIME - Minute-of-day, the unit of punch/slot comparison
// =============================================================================

// ClockTime is a minute-of-day in [0, 1440). Punch-to-slot binding and
// AM/PM bucketing compare these, never wall-clock timestamps.
type ClockTime int

const (
	// Noon splits the day into the AM and PM punch buckets.
	Noon ClockTime = 12 * 60
)

func ClockTimeOf(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

// ParseClockTime parses "HH:MM".
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return ClockTime(t.Hour()*60 + t.Minute()), nil
}

func (c ClockTime) IsAM() bool { return c < Noon }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a calendar entry. Recurring holidays match by month-day in any
// year; non-recurring match the exact date only.
type Holiday struct {
	ID        string
	Date      Date
	Name      string
	Recurring bool
}

// Matches reports whether the holiday falls on the given date.
func (h Holiday) Matches(date Date) bool {
	if h.Recurring {
		return h.Date.SameMonthDay(date)
	}
	return h.Date.Equal(date)
}

// IsWorkSuspension reports whether the holiday is the "Work Suspension"
// subtype, which displays a specialized label in the overlay.
func (h Holiday) IsWorkSuspension() bool {
	return strings.Contains(strings.ToLower(h.Name), "work suspension")
}

// HolidaysOn filters a calendar down to the entries matching a date.
func HolidaysOn(calendar []Holiday, date Date) []Holiday {
	var matched []Holiday
	for _, h := range calendar {
		if h.Matches(date) {
			matched = append(matched, h)
		}
	}
	return matched
}
