package dtr

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SLOT VALUE - The tagged variant each (date, slot) cell resolves to
// =============================================================================

// SlotValueKind discriminates the three cell shapes.
type SlotValueKind int

const (
	// SlotInactive marks a slot the shift schedule does not expect.
	// Inactive cells never display punch or annotation content.
	SlotInactive SlotValueKind = iota
	// SlotPunch carries an actual clock time, possibly badge-flagged.
	SlotPunch
	// SlotAnnotation carries an exception label instead of a time.
	SlotAnnotation
)

// AnnotationKind names the overlay category a cell resolved through.
type AnnotationKind string

const (
	AnnotationNone    AnnotationKind = ""
	AnnotationWeekend AnnotationKind = "weekend"
	AnnotationLeave   AnnotationKind = "leave"
	AnnotationTravel  AnnotationKind = "travel"
	AnnotationCDO     AnnotationKind = "cdo"
	AnnotationHoliday AnnotationKind = "holiday"
	AnnotationAbsent  AnnotationKind = "absent"
)

// SlotValue is the resolved content of one (date, slot) cell.
type SlotValue struct {
	Kind SlotValueKind

	// Punch fields
	Time            ClockTime
	LocatorBackfill bool
	FixLogOverride  bool

	// Annotation fields
	Annotation AnnotationKind
	Text       string
}

// Inactive is the canonical value for structurally absent slots.
func Inactive() SlotValue { return SlotValue{Kind: SlotInactive, Text: "—"} }

// Display renders the cell the way the report prints it.
func (v SlotValue) Display() string {
	switch v.Kind {
	case SlotPunch:
		return v.Time.String()
	case SlotAnnotation:
		if v.Text == "" {
			return "—"
		}
		return v.Text
	default:
		return "—"
	}
}

// =============================================================================
// DAY RECORD - The reconciled output unit
// =============================================================================

// DayRecord is one reconciled day. Records are recomputed from source
// snapshots on every request; they are never persisted.
type DayRecord struct {
	Date        Date
	IsWeekend   bool
	HasHoliday  bool
	Slots       map[DaySlot]SlotValue
	LateMinutes int
	DaysCredit  decimal.Decimal
	Remarks     string
}

// Basic strips annotation content down to punch times, for the raw-grid
// consumer that renders its own legend.
func (r DayRecord) Basic() DayRecord {
	stripped := r
	stripped.Slots = make(map[DaySlot]SlotValue, len(r.Slots))
	for slot, v := range r.Slots {
		switch v.Kind {
		case SlotPunch:
			stripped.Slots[slot] = SlotValue{Kind: SlotPunch, Time: v.Time}
		case SlotInactive:
			stripped.Slots[slot] = Inactive()
		default:
			stripped.Slots[slot] = SlotValue{Kind: SlotAnnotation, Text: "—"}
		}
	}
	stripped.Remarks = ""
	return stripped
}

// =============================================================================
// CREDIT TABLE - Day-credit grading policy (caller-supplied)
// =============================================================================

// CreditTable grades a day's punch coverage into a days-credit amount.
// The grading policy is configurable per shift; this engine only fixes the
// shape: full coverage, one complete half, or nothing.
type CreditTable struct {
	Full decimal.Decimal // every active slot punched within grace
	Half decimal.Decimal // all active slots of one half punched
	None decimal.Decimal

	// GraceMinutes is subtracted from each check-in's lateness before it
	// counts against the day.
	GraceMinutes int
}

// DefaultCreditTable is the standard 1.0 / 0.5 / 0 grading.
func DefaultCreditTable() CreditTable {
	return CreditTable{
		Full: decimal.NewFromInt(1),
		Half: decimal.NewFromFloat(0.5),
		None: decimal.Zero,
	}
}

// Grade computes the day's credit from which active slots were punched.
// Days with no active slots earn nothing: an unassigned day is not a
// workday, so there is nothing to credit.
func (t CreditTable) Grade(activation SlotActivation, punched map[DaySlot]bool) decimal.Decimal {
	var activeTotal, hit int
	amComplete, pmComplete := true, true
	amActive, pmActive := false, false

	for _, slot := range AllSlots {
		if !activation.IsActive(slot) {
			continue
		}
		activeTotal++
		if slot.IsAM() {
			amActive = true
		} else {
			pmActive = true
		}
		if punched[slot] {
			hit++
		} else if slot.IsAM() {
			amComplete = false
		} else {
			pmComplete = false
		}
	}

	switch {
	case activeTotal == 0 || hit == 0:
		return t.None
	case hit == activeTotal:
		return t.Full
	case (amActive && amComplete) || (pmActive && pmComplete):
		return t.Half
	default:
		return t.None
	}
}

// =============================================================================
// REMARKS
// =============================================================================

// joinRemarks joins the distinct annotation texts for a day with "; ",
// preserving first-seen order. A plain "Weekend" is suppressed when any
// other remark is present, unless includeWeekend is set.
func joinRemarks(entries []remarkEntry, includeWeekend bool) string {
	seen := make(map[string]bool, len(entries))
	var texts []string
	hasOther := false
	for _, e := range entries {
		if e.kind != AnnotationWeekend {
			hasOther = true
		}
	}
	for _, e := range entries {
		if e.kind == AnnotationWeekend && hasOther && !includeWeekend {
			continue
		}
		if e.text == "" || seen[e.text] {
			continue
		}
		seen[e.text] = true
		texts = append(texts, e.text)
	}
	return strings.Join(texts, "; ")
}

type remarkEntry struct {
	kind AnnotationKind
	text string
}
