package dtr

import (
	"log"
	"sort"
	"time"
)

// =============================================================================
// PUNCH - Raw biometric clock events
// =============================================================================

// TimePunch is a single timestamped clock event from a biometric or manual
// source. Immutable; the engine never writes punches.
type TimePunch struct {
	EmployeeID string
	Timestamp  time.Time
}

// Date returns the calendar day the punch belongs to.
func (p TimePunch) Date() Date { return DateOf(p.Timestamp) }

// Clock returns the punch's minute-of-day.
func (p TimePunch) Clock() ClockTime { return ClockTimeOf(p.Timestamp) }

// =============================================================================
// BUCKETIZER - Coarse AM/PM grouping per date
// =============================================================================

// PunchDay holds every punch for one date, split at noon. Multiplicity is
// preserved: the raw-logs view needs all punches, not just the reconciled
// first/last per slot.
type PunchDay struct {
	Date Date
	AM   []TimePunch // minute-of-day < 720, time-ordered
	PM   []TimePunch // minute-of-day >= 720, time-ordered
}

// Count returns the total punches recorded for the day.
func (pd PunchDay) Count() int { return len(pd.AM) + len(pd.PM) }

// Bucket returns the AM or PM group covering the given slot.
func (pd PunchDay) Bucket(slot DaySlot) []TimePunch {
	if slot.IsAM() {
		return pd.AM
	}
	return pd.PM
}

// BucketPunches partitions punches into per-date AM/PM groups for every date
// in the window. Dates with no punches still appear (empty groups), so the
// reconciled report covers the whole window. Punches outside the window and
// zero-value timestamps are dropped with a warning.
func BucketPunches(punches []TimePunch, window Window) map[Date]*PunchDay {
	days := make(map[Date]*PunchDay, DaysBetween(window.From, window.To)+1)
	for _, d := range window.Dates() {
		days[d] = &PunchDay{Date: d}
	}

	for _, p := range punches {
		if p.Timestamp.IsZero() {
			log.Printf("dtr: dropping punch with zero timestamp for employee %s", p.EmployeeID)
			continue
		}
		day, ok := days[p.Date()]
		if !ok {
			continue // outside the resolved window
		}
		if p.Clock().IsAM() {
			day.AM = append(day.AM, p)
		} else {
			day.PM = append(day.PM, p)
		}
	}

	for _, day := range days {
		sortPunches(day.AM)
		sortPunches(day.PM)
	}
	return days
}

func sortPunches(punches []TimePunch) {
	sort.Slice(punches, func(i, j int) bool {
		return punches[i].Timestamp.Before(punches[j].Timestamp)
	})
}
