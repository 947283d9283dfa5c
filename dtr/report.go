/*
report.go - The reconciliation aggregator

PURPOSE:
  Composes the window resolver, punch bucketizer, shift resolver, and
  exception overlay into one full-period report: an ordered DayRecord per
  window date plus period totals. This is the only surface presentation
  code consumes.

SNAPSHOT FETCHING:
  The component sources are independent and fetched concurrently. A failed
  source degrades to an empty collection and is reported on the Report's
  SourceErrors; a partial snapshot still reconciles (fail-soft). Slot
  resolution itself is strictly sequential per date: the annotation
  categories are policy-ordered fallbacks.
*/
package dtr

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SOURCES - External collaborators provide the snapshot pieces
// =============================================================================

type PunchSource interface {
	Punches(ctx context.Context, employeeID string, window Window) ([]TimePunch, error)
}

type ShiftSource interface {
	Assignments(ctx context.Context, employeeID string) ([]ShiftAssignment, error)
}

type LocatorSource interface {
	Locators(ctx context.Context, employeeID string, window Window) ([]LocatorRecord, error)
}

type FixLogSource interface {
	FixLogs(ctx context.Context, employeeID string, window Window) ([]FixLogRecord, error)
}

type LeaveSource interface {
	Leaves(ctx context.Context, employeeID string, window Window) ([]LeaveRecord, error)
}

type TravelSource interface {
	Travels(ctx context.Context, employeeID string, window Window) ([]TravelRecord, error)
}

type CDOSource interface {
	CDOUses(ctx context.Context, employeeID string, window Window) ([]CDOUseRecord, error)
}

type HolidaySource interface {
	Holidays(ctx context.Context, window Window) ([]Holiday, error)
}

// Sources bundles every snapshot provider. Nil sources contribute empty
// collections, so a caller can wire only what it has.
type Sources struct {
	Punches  PunchSource
	Shifts   ShiftSource
	Locators LocatorSource
	FixLogs  FixLogSource
	Leaves   LeaveSource
	Travels  TravelSource
	CDOUses  CDOSource
	Holidays HolidaySource
}

// Snapshot is the immutable, day-bounded input reconciliation runs over.
type Snapshot struct {
	Punches  []TimePunch
	Shifts   []ShiftAssignment
	Locators []LocatorRecord
	FixLogs  []FixLogRecord
	Leaves   []LeaveRecord
	Travels  []TravelRecord
	CDOUses  []CDOUseRecord
	Holidays []Holiday
}

// =============================================================================
// VIEW STATE - Caller-owned; the engine reads no ambient state
// =============================================================================

// ViewState carries everything the caller's view selected. It replaces the
// browser-persisted filter state of the portal with an explicit value.
type ViewState struct {
	Filter               Filter
	SubPeriod            SubPeriod
	Toggles              Toggles
	IncludeWeekendRemark bool

	// Now anchors the window and the absence rule. Zero means time.Now();
	// tests pin it.
	Now time.Time
}

func (v ViewState) now() time.Time {
	if v.Now.IsZero() {
		return time.Now()
	}
	return v.Now
}

// =============================================================================
// REPORT
// =============================================================================

// Report is the reconciled period: one DayRecord per window date, in order,
// plus totals. SourceErrors lists sources that degraded to empty.
type Report struct {
	EmployeeID       string
	Window           Window
	Days             []DayRecord
	TotalDays        decimal.Decimal
	TotalLateMinutes int
	SourceErrors     []*SourceError
}

// Basic returns the stripped punch-times-only variant for the second
// consumer (the plain DTR grid).
func (r Report) Basic() Report {
	basic := r
	basic.Days = make([]DayRecord, len(r.Days))
	for i, d := range r.Days {
		basic.Days[i] = d.Basic()
	}
	return basic
}

// RawDay is one date of the raw-logs view: every punch, AM/PM split, no
// slot binding.
type RawDay struct {
	Date      Date
	AM        []TimePunch
	PM        []TimePunch
	IsWeekend bool
	Remarks   string
}

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler builds reports from source snapshots. It is stateless and safe
// for concurrent use.
type Reconciler struct {
	Sources Sources
	Credit  CreditTable
}

func NewReconciler(sources Sources) *Reconciler {
	return &Reconciler{Sources: sources, Credit: DefaultCreditTable()}
}

// Reconcile produces the annotated report for one employee and view.
func (rc *Reconciler) Reconcile(ctx context.Context, employeeID string, view ViewState) (*Report, error) {
	window, err := ResolveWindow(view.Filter, view.SubPeriod, view.now())
	if err != nil {
		return nil, err
	}

	snap, srcErrs := rc.fetchSnapshot(ctx, employeeID, window)

	report := &Report{
		EmployeeID:   employeeID,
		Window:       window,
		TotalDays:    decimal.Zero,
		SourceErrors: srcErrs,
	}

	activation := ResolveActivation(snap.Shifts)
	days := BucketPunches(snap.Punches, window)
	today := DateOf(view.now())

	for _, date := range window.Dates() {
		dayCtx := buildDayContext(date, today, days[date], activation, snap)
		record := resolveDay(dayCtx, rc.Credit, view.Toggles, view.IncludeWeekendRemark)
		report.Days = append(report.Days, record)
		report.TotalDays = report.TotalDays.Add(record.DaysCredit)
		report.TotalLateMinutes += record.LateMinutes
	}
	return report, nil
}

// RawLogs produces the unreconciled punch view: per-date AM/PM lists with
// weekend/holiday remarks only.
func (rc *Reconciler) RawLogs(ctx context.Context, employeeID string, view ViewState) ([]RawDay, error) {
	window, err := ResolveWindow(view.Filter, view.SubPeriod, view.now())
	if err != nil {
		return nil, err
	}

	snap, _ := rc.fetchSnapshot(ctx, employeeID, window)
	days := BucketPunches(snap.Punches, window)

	var raw []RawDay
	for _, date := range window.Dates() {
		day := days[date]
		rd := RawDay{Date: date, AM: day.AM, PM: day.PM, IsWeekend: date.IsWeekend()}
		var entries []remarkEntry
		for _, h := range HolidaysOn(snap.Holidays, date) {
			entries = append(entries, remarkEntry{AnnotationHoliday, (HolidayRecord{h}).DisplayText()})
		}
		if rd.IsWeekend {
			entries = append(entries, remarkEntry{AnnotationWeekend, "Weekend"})
		}
		rd.Remarks = joinRemarks(entries, view.IncludeWeekendRemark)
		raw = append(raw, rd)
	}
	return raw, nil
}

// =============================================================================
// SNAPSHOT FETCH - Concurrent, fail-soft
// =============================================================================

func (rc *Reconciler) fetchSnapshot(ctx context.Context, employeeID string, window Window) (*Snapshot, []*SourceError) {
	snap := &Snapshot{}
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs []*SourceError
	)

	fail := func(source string, err error) {
		mu.Lock()
		defer mu.Unlock()
		log.Printf("dtr: source %s failed, reconciling without it: %v", source, err)
		errs = append(errs, &SourceError{Source: source, Err: err})
	}

	fetch := func(source string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				fail(source, err)
			}
		}()
	}

	if s := rc.Sources.Punches; s != nil {
		fetch("punches", func() error {
			v, err := s.Punches(ctx, employeeID, window)
			if err != nil {
				return err
			}
			snap.Punches = v
			return nil
		})
	}
	if s := rc.Sources.Shifts; s != nil {
		fetch("shifts", func() error {
			v, err := s.Assignments(ctx, employeeID)
			if err != nil {
				return err
			}
			snap.Shifts = v
			return nil
		})
	}
	if s := rc.Sources.Locators; s != nil {
		fetch("locators", func() error {
			v, err := s.Locators(ctx, employeeID, window)
			if err != nil {
				return err
			}
			snap.Locators = v
			return nil
		})
	}
	if s := rc.Sources.FixLogs; s != nil {
		fetch("fixlogs", func() error {
			v, err := s.FixLogs(ctx, employeeID, window)
			if err != nil {
				return err
			}
			snap.FixLogs = v
			return nil
		})
	}
	if s := rc.Sources.Leaves; s != nil {
		fetch("leave", func() error {
			v, err := s.Leaves(ctx, employeeID, window)
			if err != nil {
				return err
			}
			snap.Leaves = v
			return nil
		})
	}
	if s := rc.Sources.Travels; s != nil {
		fetch("travel", func() error {
			v, err := s.Travels(ctx, employeeID, window)
			if err != nil {
				return err
			}
			snap.Travels = v
			return nil
		})
	}
	if s := rc.Sources.CDOUses; s != nil {
		fetch("cdo", func() error {
			v, err := s.CDOUses(ctx, employeeID, window)
			if err != nil {
				return err
			}
			snap.CDOUses = v
			return nil
		})
	}
	if s := rc.Sources.Holidays; s != nil {
		fetch("holidays", func() error {
			v, err := s.Holidays(ctx, window)
			if err != nil {
				return err
			}
			snap.Holidays = v
			return nil
		})
	}

	wg.Wait()
	return snap, errs
}
