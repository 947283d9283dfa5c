/*
shift.go - Shift assignments and punch-to-slot binding

PURPOSE:
  Determines which of the four daily check points an employee is expected
  to hit, and selects the single best punch for each expected slot.

MULTI-SHIFT COVERAGE:
  An employee may hold several shift assignments effective the same date
  (e.g. a split AM shift plus a PM duty shift). The active slot set is the
  UNION of the individually active slots; display windows take the earliest
  configured start and latest configured end per slot.

SLOT BINDING:
  Binding prefers the shift's configured slot window when one exists:
  check-in slots take the latest punch at or before the target time (else
  the closest in-window punch); check-out slots take the earliest punch at
  or after the target (else the closest). Slots without configured windows
  fall back to first/last within the AM or PM bucket, since punches happen
  outside nominal hours all the time.
*/
package dtr

// =============================================================================
// DAY SLOT - The four expected daily check points
// =============================================================================

// DaySlot is one of the four daily check points. The ordering is fixed and
// drives per-day iteration everywhere.
type DaySlot int

const (
	SlotAMIn DaySlot = iota
	SlotAMOut
	SlotPMIn
	SlotPMOut
)

// AllSlots is the canonical iteration order.
var AllSlots = [4]DaySlot{SlotAMIn, SlotAMOut, SlotPMIn, SlotPMOut}

func (s DaySlot) IsAM() bool      { return s == SlotAMIn || s == SlotAMOut }
func (s DaySlot) IsCheckIn() bool { return s == SlotAMIn || s == SlotPMIn }

func (s DaySlot) String() string {
	switch s {
	case SlotAMIn:
		return "am_in"
	case SlotAMOut:
		return "am_out"
	case SlotPMIn:
		return "pm_in"
	default:
		return "pm_out"
	}
}

// =============================================================================
// SHIFT ASSIGNMENT
// =============================================================================

// ShiftMode describes which halves of the day a shift covers.
type ShiftMode string

const (
	ModeAM   ShiftMode = "AM"
	ModePM   ShiftMode = "PM"
	ModeAMPM ShiftMode = "AMPM"
)

// SlotWindow is a shift's configuration for one slot: the target clock time
// and the acceptance window punches are matched within.
type SlotWindow struct {
	Target ClockTime
	Start  ClockTime
	End    ClockTime
}

// Contains reports whether a clock time falls in [Start, End].
func (w SlotWindow) Contains(c ClockTime) bool {
	return c >= w.Start && c <= w.End
}

// ShiftAssignment is one shift effective for an employee on a date.
type ShiftAssignment struct {
	Name    string
	Mode    ShiftMode
	Active  map[DaySlot]bool
	Windows map[DaySlot]SlotWindow // only active slots carry windows
}

// SlotActivation is the merged view over all concurrently assigned shifts.
type SlotActivation struct {
	Active  map[DaySlot]bool
	Windows map[DaySlot]SlotWindow // widest start/end, earliest target per slot
}

// IsActive reports whether the slot is expected for the day.
func (a SlotActivation) IsActive(slot DaySlot) bool { return a.Active[slot] }

// Window returns the merged display window for a slot, if configured.
func (a SlotActivation) Window(slot DaySlot) (SlotWindow, bool) {
	w, ok := a.Windows[slot]
	return w, ok
}

// ResolveActivation merges concurrent shift assignments into one activation
// set. No assignments means every slot is structurally absent: the overlay
// renders every slot Inactive regardless of punches or exceptions.
func ResolveActivation(assignments []ShiftAssignment) SlotActivation {
	merged := SlotActivation{
		Active:  make(map[DaySlot]bool, len(AllSlots)),
		Windows: make(map[DaySlot]SlotWindow, len(AllSlots)),
	}

	for _, shift := range assignments {
		for _, slot := range AllSlots {
			if !shift.Active[slot] {
				continue
			}
			merged.Active[slot] = true

			w, ok := shift.Windows[slot]
			if !ok {
				continue
			}
			existing, seen := merged.Windows[slot]
			if !seen {
				merged.Windows[slot] = w
				continue
			}
			// Widen: earliest start, latest end. The earliest target wins
			// for display; binding still honors each shift's own window
			// via the merged one.
			if w.Start < existing.Start {
				existing.Start = w.Start
			}
			if w.End > existing.End {
				existing.End = w.End
			}
			if w.Target < existing.Target {
				existing.Target = w.Target
			}
			merged.Windows[slot] = existing
		}
	}
	return merged
}

// =============================================================================
// SLOT BINDING - Pick the single best punch per expected slot
// =============================================================================

// BindSlot selects the punch that represents the slot, or (zero, false) when
// no punch qualifies. Only punches in the slot's AM/PM bucket are considered.
func BindSlot(day *PunchDay, slot DaySlot, activation SlotActivation) (TimePunch, bool) {
	if day == nil || !activation.IsActive(slot) {
		return TimePunch{}, false
	}

	bucket := day.Bucket(slot)
	if len(bucket) == 0 {
		return TimePunch{}, false
	}

	window, hasWindow := activation.Window(slot)
	if !hasWindow {
		// No configured window: first punch for check-ins, last for
		// check-outs, within the bucket.
		if slot.IsCheckIn() {
			return bucket[0], true
		}
		return bucket[len(bucket)-1], true
	}

	var candidates []TimePunch
	for _, p := range bucket {
		if window.Contains(p.Clock()) {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return TimePunch{}, false
	}

	if slot.IsCheckIn() {
		// Latest punch at or before the target, else closest to target.
		var best TimePunch
		found := false
		for _, p := range candidates {
			if p.Clock() <= window.Target {
				best = p // candidates are time-ordered, keep the latest
				found = true
			}
		}
		if found {
			return best, true
		}
		return closestTo(candidates, window.Target), true
	}

	// Check-out: earliest punch at or after the target, else closest.
	for _, p := range candidates {
		if p.Clock() >= window.Target {
			return p, true
		}
	}
	return closestTo(candidates, window.Target), true
}

func closestTo(punches []TimePunch, target ClockTime) TimePunch {
	best := punches[0]
	bestDiff := absClock(best.Clock() - target)
	for _, p := range punches[1:] {
		if diff := absClock(p.Clock() - target); diff < bestDiff {
			best, bestDiff = p, diff
		}
	}
	return best
}

func absClock(c ClockTime) ClockTime {
	if c < 0 {
		return -c
	}
	return c
}
