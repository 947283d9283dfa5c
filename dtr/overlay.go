/*
overlay.go - The exception overlay resolver

PURPOSE:
  For each (date, slot) the resolver combines punch presence, shift
  activation, and the exception-source flags into one display value plus
  machine-readable flags, under a fixed precedence:

    1. Inactive slot            -> "—", overrides everything
    2. Bound punch              -> time + locator/fix-log badges
    3. First matching enabled annotation, in strict order:
       Weekend -> Leave/OB -> Travel -> CDO -> Holiday -> Absent -> "—"

  The annotation precedence is data-driven: an ordered rule list evaluated
  in fixed order, so each category is unit-testable in isolation and a
  disabled category falls through to the next one, never back to "Punch".

ORDERING IS POLICY:
  Later-listed categories are fallbacks, not alternatives. A Saturday with
  an approved leave still reads Weekend; a leave day that is also a holiday
  reads Leave. Do not reorder or parallelize the cascade.
*/
package dtr

// =============================================================================
// TOGGLES - Caller-controlled annotation visibility
// =============================================================================

// Toggles enables annotation categories and punch badges per request. A
// disabled category is skipped as if it never matched.
type Toggles struct {
	Weekend bool
	Leave   bool
	Travel  bool
	CDO     bool
	Holiday bool
	Absent  bool

	// Badge visibility on punched cells.
	LocatorBadge bool
	FixLogBadge  bool
}

// AllToggles enables every category and badge (the annotated print view).
func AllToggles() Toggles {
	return Toggles{
		Weekend: true, Leave: true, Travel: true, CDO: true,
		Holiday: true, Absent: true,
		LocatorBadge: true, FixLogBadge: true,
	}
}

// =============================================================================
// DAY CONTEXT - Everything the cascade needs for one date
// =============================================================================

// dayContext is the assembled per-date snapshot slice the resolver reads.
// Building it once per date keeps the per-slot cascade allocation-free.
type dayContext struct {
	date       Date
	punches    *PunchDay
	activation SlotActivation
	today      Date

	weekend  bool
	leaves   []LeaveRecord  // Approved or ForApproval
	travels  []TravelRecord // Approved only
	cdos     []CDOUseRecord // Approved only
	holidays []Holiday
	locators []LocatorRecord // Approved only
	fixLog   *FixLogRecord   // most recent Approved fix log, if any

	locatorFiled bool // any non-cancelled locator exists for the date
}

func buildDayContext(date Date, today Date, punches *PunchDay, activation SlotActivation, snap *Snapshot) *dayContext {
	ctx := &dayContext{
		date:       date,
		punches:    punches,
		activation: activation,
		today:      today,
		weekend:    date.IsWeekend(),
		holidays:   HolidaysOn(snap.Holidays, date),
	}

	for _, l := range snap.Leaves {
		if !l.AppliesTo(date) {
			continue
		}
		switch l.Status {
		case StatusApproved, StatusForApproval:
			ctx.leaves = append(ctx.leaves, l)
		}
	}
	for _, t := range snap.Travels {
		if t.AppliesTo(date) && t.Status == StatusApproved {
			ctx.travels = append(ctx.travels, t)
		}
	}
	for _, c := range snap.CDOUses {
		if c.AppliesTo(date) && c.Status == StatusApproved {
			ctx.cdos = append(ctx.cdos, c)
		}
	}
	for _, loc := range snap.Locators {
		if !loc.AppliesTo(date) {
			continue
		}
		if loc.Status != StatusCancelled {
			ctx.locatorFiled = true
		}
		if loc.Status == StatusApproved {
			ctx.locators = append(ctx.locators, loc)
		}
	}
	for i := range snap.FixLogs {
		f := snap.FixLogs[i]
		if f.AppliesTo(date) && f.Status == StatusApproved {
			ctx.fixLog = &f
			break // most recent approved fix log wins; source is ordered
		}
	}
	return ctx
}

// isAbsent applies the absence rule: a past workday with no punches and no
// explaining record of any kind.
func (c *dayContext) isAbsent() bool {
	if c.weekend || c.punches.Count() > 0 {
		return false
	}
	if len(c.leaves) > 0 || len(c.travels) > 0 || len(c.holidays) > 0 || c.locatorFiled {
		return false
	}
	// Today and future dates are never Absent; the day is not over yet.
	return c.date.Before(c.today)
}

// holidayText joins same-day holiday names; the Work Suspension subtype
// collapses the whole cell to that label.
func (c *dayContext) holidayText() string {
	if len(c.holidays) == 0 {
		return ""
	}
	var names []string
	for _, h := range c.holidays {
		if h.IsWorkSuspension() {
			return "Work Suspension"
		}
		name := h.Name
		if name == "" {
			name = "Holiday"
		}
		names = append(names, name)
	}
	return joinDistinct(names, ", ")
}

func (c *dayContext) leaveText() string {
	if len(c.leaves) == 0 {
		return ""
	}
	// Pending leave renders distinctly from approved.
	if c.leaves[0].Status == StatusForApproval {
		return "For Approval"
	}
	return "Leave"
}

// =============================================================================
// ANNOTATION CASCADE - Ordered (predicate, toggle, renderer) rules
// =============================================================================

type annotationRule struct {
	kind    AnnotationKind
	enabled func(Toggles) bool
	render  func(*dayContext) (string, bool)
}

// annotationCascade is the precedence table. Order is load-bearing.
var annotationCascade = []annotationRule{
	{
		kind:    AnnotationWeekend,
		enabled: func(t Toggles) bool { return t.Weekend },
		render: func(c *dayContext) (string, bool) {
			return "Weekend", c.weekend
		},
	},
	{
		kind:    AnnotationLeave,
		enabled: func(t Toggles) bool { return t.Leave },
		render: func(c *dayContext) (string, bool) {
			text := c.leaveText()
			return text, text != ""
		},
	},
	{
		kind:    AnnotationTravel,
		enabled: func(t Toggles) bool { return t.Travel },
		render: func(c *dayContext) (string, bool) {
			return "Travel", len(c.travels) > 0
		},
	},
	{
		kind:    AnnotationCDO,
		enabled: func(t Toggles) bool { return t.CDO },
		render: func(c *dayContext) (string, bool) {
			return "CDO", len(c.cdos) > 0
		},
	},
	{
		kind:    AnnotationHoliday,
		enabled: func(t Toggles) bool { return t.Holiday },
		render: func(c *dayContext) (string, bool) {
			text := c.holidayText()
			return text, text != ""
		},
	},
	{
		kind:    AnnotationAbsent,
		enabled: func(t Toggles) bool { return t.Absent },
		render: func(c *dayContext) (string, bool) {
			return "-", c.isAbsent()
		},
	},
}

// =============================================================================
// SLOT RESOLUTION
// =============================================================================

// resolveSlot evaluates the full precedence for one (date, slot) cell.
func resolveSlot(c *dayContext, slot DaySlot, toggles Toggles) SlotValue {
	// Step 1: structural absence overrides everything.
	if !c.activation.IsActive(slot) {
		return Inactive()
	}

	// Step 2: a bound or backfilled punch wins over every annotation.
	if v, ok := resolvePunch(c, slot, toggles); ok {
		return v
	}

	// Step 3: first matching enabled annotation, in fixed order.
	for _, rule := range annotationCascade {
		if !rule.enabled(toggles) {
			continue
		}
		if text, ok := rule.render(c); ok {
			return SlotValue{Kind: SlotAnnotation, Annotation: rule.kind, Text: text}
		}
	}

	// Step 4: a plain workday cell with nothing to show.
	return SlotValue{Kind: SlotAnnotation, Annotation: AnnotationNone, Text: "—"}
}

// resolvePunch binds the slot's punch, applies fix-log overrides and locator
// backfill, and sets the badge flags. Both badges may be set at once.
func resolvePunch(c *dayContext, slot DaySlot, toggles Toggles) (SlotValue, bool) {
	window, hasWindow := c.activation.Window(slot)

	// Fix-log overrides supersede the raw biometric record outright.
	if c.fixLog != nil {
		if fixed, ok := c.fixLog.Times[slot]; ok {
			v := SlotValue{Kind: SlotPunch, Time: fixed}
			v.FixLogOverride = toggles.FixLogBadge
			// The corrected time may also sit inside an approved locator
			// span; both badges render.
			if hasWindow && toggles.LocatorBadge && locatorCovers(c.locators, window.Target) && fixed == window.Target {
				v.LocatorBackfill = true
			}
			return v, true
		}
	}

	if punch, ok := BindSlot(c.punches, slot, c.activation); ok {
		v := SlotValue{Kind: SlotPunch, Time: punch.Clock()}
		// A punch landing exactly on the scheduled time inside an approved
		// locator span was most likely inserted by the locator backfill.
		if hasWindow && toggles.LocatorBadge && punch.Clock() == window.Target && locatorCovers(c.locators, window.Target) {
			v.LocatorBackfill = true
		}
		return v, true
	}

	// No punch: an approved locator whose travel span covers the slot's
	// scheduled time backfills the cell with that scheduled time.
	if hasWindow && locatorCovers(c.locators, window.Target) {
		return SlotValue{
			Kind:            SlotPunch,
			Time:            window.Target,
			LocatorBackfill: toggles.LocatorBadge,
		}, true
	}

	return SlotValue{}, false
}

func locatorCovers(locators []LocatorRecord, target ClockTime) bool {
	for _, loc := range locators {
		if loc.Covers(target) {
			return true
		}
	}
	return false
}

// =============================================================================
// DAY RESOLUTION
// =============================================================================

// resolveDay produces one DayRecord: all four slot cells, the lateness and
// credit aggregates, and the semicolon-joined remarks line.
func resolveDay(c *dayContext, table CreditTable, toggles Toggles, includeWeekendRemark bool) DayRecord {
	record := DayRecord{
		Date:       c.date,
		IsWeekend:  c.weekend,
		HasHoliday: len(c.holidays) > 0,
		Slots:      make(map[DaySlot]SlotValue, len(AllSlots)),
	}

	punched := make(map[DaySlot]bool, len(AllSlots))
	for _, slot := range AllSlots {
		v := resolveSlot(c, slot, toggles)
		record.Slots[slot] = v
		if v.Kind == SlotPunch {
			punched[slot] = true
		}
	}

	record.LateMinutes = lateMinutes(c, punched, table.GraceMinutes)
	record.DaysCredit = table.Grade(c.activation, punched)
	record.Remarks = dayRemarks(c, record, includeWeekendRemark, toggles)
	return record
}

// lateMinutes sums check-in lateness against the configured targets, with
// the grace tolerance subtracted per slot.
func lateMinutes(c *dayContext, punched map[DaySlot]bool, grace int) int {
	total := 0
	for _, slot := range []DaySlot{SlotAMIn, SlotPMIn} {
		if !punched[slot] {
			continue
		}
		window, ok := c.activation.Window(slot)
		if !ok {
			continue
		}
		actual := slotTime(c, slot)
		late := int(actual-window.Target) - grace
		if late > 0 {
			total += late
		}
	}
	return total
}

// slotTime re-derives the displayed time for a punched slot.
func slotTime(c *dayContext, slot DaySlot) ClockTime {
	if c.fixLog != nil {
		if fixed, ok := c.fixLog.Times[slot]; ok {
			return fixed
		}
	}
	if punch, ok := BindSlot(c.punches, slot, c.activation); ok {
		return punch.Clock()
	}
	if window, ok := c.activation.Window(slot); ok {
		return window.Target // locator backfill lands on the target
	}
	return 0
}

// dayRemarks assembles the distinct remark texts for the date in overlay
// order, deduplicated.
func dayRemarks(c *dayContext, record DayRecord, includeWeekend bool, toggles Toggles) string {
	var entries []remarkEntry

	if toggles.Holiday {
		for _, h := range c.holidays {
			entries = append(entries, remarkEntry{AnnotationHoliday, (HolidayRecord{h}).DisplayText()})
		}
	}
	if toggles.Weekend && c.weekend {
		entries = append(entries, remarkEntry{AnnotationWeekend, "Weekend"})
	}
	if toggles.Leave {
		for _, l := range c.leaves {
			entries = append(entries, remarkEntry{AnnotationLeave, l.DisplayText()})
		}
	}
	if toggles.Travel {
		for _, t := range c.travels {
			entries = append(entries, remarkEntry{AnnotationTravel, t.DisplayText()})
		}
	}
	if toggles.CDO {
		for _, use := range c.cdos {
			entries = append(entries, remarkEntry{AnnotationCDO, use.DisplayText()})
		}
	}
	if toggles.Absent && c.isAbsent() {
		entries = append(entries, remarkEntry{AnnotationAbsent, "Absent"})
	}

	return joinRemarks(entries, includeWeekend)
}

func joinDistinct(values []string, sep string) string {
	seen := make(map[string]bool, len(values))
	out := ""
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		if out != "" {
			out += sep
		}
		out += v
	}
	return out
}
