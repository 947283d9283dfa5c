/*
exception.go - Uniform projection over the exception sources

PURPOSE:
  The four exception sources (locator slips, fix-log overrides, leave,
  travel orders) plus CDO use-dates arrive in differently-shaped records.
  The overlay resolver only ever consumes the uniform {date, status, text}
  projection defined here; each source gets a small concrete adapter type.

STATUS MODEL:
  Every source shares the same approval vocabulary. Blank and legacy
  "Pending" values normalize to ForApproval.
*/
package dtr

import (
	"fmt"
	"strings"
)

// =============================================================================
// APPROVAL STATUS - Shared by every exception source
// =============================================================================

// Status is the approval state carried by every exception record.
type Status string

const (
	StatusForApproval Status = "For Approval"
	StatusApproved    Status = "Approved"
	StatusReturned    Status = "Returned"
	StatusCancelled   Status = "Cancelled"
)

// NormalizeStatus maps raw source values onto the shared vocabulary. Blank
// and legacy "Pending" both mean ForApproval.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pending", "for approval":
		return StatusForApproval
	case "approved":
		return StatusApproved
	case "returned":
		return StatusReturned
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return Status(strings.TrimSpace(raw))
	}
}

// =============================================================================
// EXCEPTION RECORD - The uniform shape the overlay consumes
// =============================================================================

// ExceptionKind tags the source a record came from.
type ExceptionKind string

const (
	KindLocator ExceptionKind = "locator"
	KindFixLog  ExceptionKind = "fixlog"
	KindLeave   ExceptionKind = "leave"
	KindTravel  ExceptionKind = "travel"
	KindCDO     ExceptionKind = "cdo"
	KindHoliday ExceptionKind = "holiday"
)

// ExceptionRecord is the uniform projection of one exception source entry.
// AppliesTo rather than a plain date getter because recurring holidays match
// by month-day across years.
type ExceptionRecord interface {
	Kind() ExceptionKind
	AppliesTo(date Date) bool
	ApprovalStatus() Status
	DisplayText() string
}

// =============================================================================
// LOCATOR - Retroactive travel slips that backfill missing punches
// =============================================================================

// LocatorRecord is a retroactively filed travel slip. An approved locator
// whose departure-arrival span covers a slot's scheduled time justifies a
// missing punch at that time.
type LocatorRecord struct {
	EmployeeID string
	Date       Date
	Status     Status
	Number     string
	Departure  ClockTime
	Arrival    ClockTime
}

func (r LocatorRecord) Kind() ExceptionKind     { return KindLocator }
func (r LocatorRecord) AppliesTo(d Date) bool   { return r.Date.Equal(d) }
func (r LocatorRecord) ApprovalStatus() Status  { return r.Status }
func (r LocatorRecord) DisplayText() string     { return fmt.Sprintf("Locator(%s)", r.Status) }

// Covers reports whether the locator's travel span includes the clock time.
// Departure and arrival may arrive in either order on the slip.
func (r LocatorRecord) Covers(c ClockTime) bool {
	lo, hi := r.Departure, r.Arrival
	if hi < lo {
		lo, hi = hi, lo
	}
	return c >= lo && c <= hi
}

// =============================================================================
// FIX LOG - Manually corrected punch entries
// =============================================================================

// FixLogRecord is a manual correction superseding the raw biometric record
// for specific slots on one date. Only approved fix logs apply.
type FixLogRecord struct {
	EmployeeID string
	Date       Date
	Status     Status
	Times      map[DaySlot]ClockTime
	ApprovedBy string
}

func (r FixLogRecord) Kind() ExceptionKind    { return KindFixLog }
func (r FixLogRecord) AppliesTo(d Date) bool  { return r.Date.Equal(d) }
func (r FixLogRecord) ApprovalStatus() Status { return r.Status }

func (r FixLogRecord) DisplayText() string {
	if r.ApprovedBy != "" {
		return fmt.Sprintf("Fixed by (%s)", r.ApprovedBy)
	}
	return "Fixed by Fix Log"
}

// =============================================================================
// LEAVE
// =============================================================================

// LeaveRecord covers one deducted leave date. OB ("official business") leave
// types annotate like regular leave but are tracked separately upstream.
type LeaveRecord struct {
	EmployeeID string
	Date       Date
	Status     Status
	TypeName   string
}

func (r LeaveRecord) Kind() ExceptionKind    { return KindLeave }
func (r LeaveRecord) AppliesTo(d Date) bool  { return r.Date.Equal(d) }
func (r LeaveRecord) ApprovalStatus() Status { return r.Status }

// IsOB reports whether the leave type is an official-business leave.
func (r LeaveRecord) IsOB() bool {
	return strings.Contains(strings.ToLower(r.TypeName), "ob")
}

func (r LeaveRecord) DisplayText() string {
	text := r.TypeName
	if text == "" {
		text = "Leave"
	}
	if r.Status == StatusForApproval {
		return text + " (For Approval)"
	}
	return text
}

// =============================================================================
// TRAVEL
// =============================================================================

// TravelRecord covers one date of an approved travel order.
type TravelRecord struct {
	EmployeeID string
	Date       Date
	Status     Status
	TravelNo   string
}

func (r TravelRecord) Kind() ExceptionKind    { return KindTravel }
func (r TravelRecord) AppliesTo(d Date) bool  { return r.Date.Equal(d) }
func (r TravelRecord) ApprovalStatus() Status { return r.Status }

func (r TravelRecord) DisplayText() string {
	no := r.TravelNo
	if no == "" {
		no = "N/A"
	}
	return fmt.Sprintf("Travel: (%s)", no)
}

// =============================================================================
// CDO USE-DATE
// =============================================================================

// CDOUseRecord is one approved compensatory-day-off use-date, fed from the
// credit ledger into the overlay.
type CDOUseRecord struct {
	EmployeeID string
	Date       Date
	Status     Status
	Reference  string // the parent transaction's CDO number
}

func (r CDOUseRecord) Kind() ExceptionKind    { return KindCDO }
func (r CDOUseRecord) AppliesTo(d Date) bool  { return r.Date.Equal(d) }
func (r CDOUseRecord) ApprovalStatus() Status { return r.Status }

func (r CDOUseRecord) DisplayText() string {
	ref := r.Reference
	if ref == "" {
		ref = "CDO"
	}
	return fmt.Sprintf("CDO(%s)", ref)
}

// =============================================================================
// HOLIDAY ADAPTER
// =============================================================================

// HolidayRecord adapts a calendar Holiday to the uniform projection.
// Holidays carry no approval workflow; they are always effective.
type HolidayRecord struct {
	Holiday
}

func (r HolidayRecord) Kind() ExceptionKind    { return KindHoliday }
func (r HolidayRecord) AppliesTo(d Date) bool  { return r.Matches(d) }
func (r HolidayRecord) ApprovalStatus() Status { return StatusApproved }

func (r HolidayRecord) DisplayText() string {
	if r.IsWorkSuspension() {
		return "Work Suspension"
	}
	if r.Name == "" {
		return "Holiday"
	}
	return r.Name
}
