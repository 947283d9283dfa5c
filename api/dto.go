/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the API contract, decoupled from the domain types.
  Dates travel as YYYY-MM-DD strings, clock times as HH:MM, credits as
  decimal strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/hrsuite/dtr-engine/cdo"
	"github.com/hrsuite/dtr-engine/dtr"
)

// =============================================================================
// DTR REPORT TYPES
// =============================================================================

// SlotDTO is one cell of the DTR grid.
type SlotDTO struct {
	// Value is what the cell shows: a time, an annotation, or "—".
	Value string `json:"value"`

	// Kind: "inactive", "punch", or "annotation".
	Kind string `json:"kind"`

	Annotation string `json:"annotation,omitempty"`

	LocatorBackfill bool `json:"locator_backfill,omitempty"`
	FixLogOverride  bool `json:"fixlog_override,omitempty"`
}

// DayDTO is one row of the DTR grid.
type DayDTO struct {
	Date        string             `json:"date"`
	Weekday     string             `json:"weekday"`
	IsWeekend   bool               `json:"is_weekend"`
	HasHoliday  bool               `json:"has_holiday"`
	Slots       map[string]SlotDTO `json:"slots"`
	LateMinutes int                `json:"late_minutes"`
	DaysCredit  string             `json:"days_credit"`
	Remarks     string             `json:"remarks,omitempty"`
}

// ReportDTO is the full reconciled period.
type ReportDTO struct {
	EmployeeID       string   `json:"employee_id"`
	From             string   `json:"from"`
	To               string   `json:"to"`
	Days             []DayDTO `json:"days"`
	TotalDays        string   `json:"total_days"`
	TotalLateMinutes int      `json:"total_late_minutes"`
	Warnings         []string `json:"warnings,omitempty"`
}

// RawDayDTO is one row of the raw-logs view.
type RawDayDTO struct {
	Date      string   `json:"date"`
	AM        []string `json:"am"`
	PM        []string `json:"pm"`
	IsWeekend bool     `json:"is_weekend"`
	Remarks   string   `json:"remarks,omitempty"`
}

// =============================================================================
// CDO LEDGER TYPES
// =============================================================================

// TransactionDTO is one credit grant in ledger views. Remaining and
// Expired are computed at read time, never stored.
type TransactionDTO struct {
	ID           string   `json:"id"`
	EmployeeID   string   `json:"employee_id"`
	CDONumber    string   `json:"cdo_number"`
	Activity     string   `json:"activity,omitempty"`
	WorkDates    []string `json:"work_dates"`
	EarnedCredit string   `json:"earned_credit"`
	UsedCredit   string   `json:"used_credit"`
	Remaining    string   `json:"remaining_credits"`
	Status       string   `json:"status"`
	CreatedBy    string   `json:"created_by"`
	CreatedAt    string   `json:"created_at"`
	ExpiresAt    string   `json:"expires_at"`
	Expired      bool     `json:"is_expired"`
}

// EntryDTO is one consume entry.
type EntryDTO struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	EmployeeID    string `json:"employee_id"`
	Date          string `json:"date"`
	Reason        string `json:"reason"`
	Status        string `json:"status"`
	CreatedBy     string `json:"created_by"`
	CreatedAt     string `json:"created_at"`
}

// CreateTransactionRequest creates an earn transaction.
type CreateTransactionRequest struct {
	EmployeeID string   `json:"employee_id"`
	Activity   string   `json:"activity"`
	WorkDates  []string `json:"work_dates"`

	// EarnedCredit overrides the one-per-work-date default when set.
	EarnedCredit string `json:"earned_credit,omitempty"`

	// CreatedBy: "portal" (default) or "staff".
	CreatedBy string `json:"created_by,omitempty"`
}

// SetStatusRequest moves a transaction or entry through approval.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// ConsumeRequest charges day-off dates against a transaction.
type ConsumeRequest struct {
	Dates  []string `json:"dates"`
	Reason string   `json:"reason"`

	// CreatedBy: "portal" (default) or "staff".
	CreatedBy string `json:"created_by,omitempty"`
}

// EditEntryRequest changes a consume entry's date or reason. Actor
// identifies who is editing; portal actors cannot touch staff entries.
type EditEntryRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`

	// Actor: "portal" (default) or "staff".
	Actor string `json:"actor,omitempty"`
}

// =============================================================================
// HOLIDAY TYPES
// =============================================================================

type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

type CreateHolidayRequest struct {
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toSlotDTO(v dtr.SlotValue) SlotDTO {
	kind := "annotation"
	switch v.Kind {
	case dtr.SlotInactive:
		kind = "inactive"
	case dtr.SlotPunch:
		kind = "punch"
	}
	return SlotDTO{
		Value:           v.Display(),
		Kind:            kind,
		Annotation:      string(v.Annotation),
		LocatorBackfill: v.LocatorBackfill,
		FixLogOverride:  v.FixLogOverride,
	}
}

func toDayDTO(d dtr.DayRecord) DayDTO {
	slots := make(map[string]SlotDTO, len(d.Slots))
	for slot, v := range d.Slots {
		slots[slot.String()] = toSlotDTO(v)
	}
	return DayDTO{
		Date:        d.Date.String(),
		Weekday:     d.Date.Weekday().String(),
		IsWeekend:   d.IsWeekend,
		HasHoliday:  d.HasHoliday,
		Slots:       slots,
		LateMinutes: d.LateMinutes,
		DaysCredit:  d.DaysCredit.String(),
		Remarks:     d.Remarks,
	}
}

func toReportDTO(r *dtr.Report) ReportDTO {
	dto := ReportDTO{
		EmployeeID:       r.EmployeeID,
		From:             r.Window.From.String(),
		To:               r.Window.To.String(),
		Days:             make([]DayDTO, len(r.Days)),
		TotalDays:        r.TotalDays.String(),
		TotalLateMinutes: r.TotalLateMinutes,
	}
	for i, d := range r.Days {
		dto.Days[i] = toDayDTO(d)
	}
	for _, se := range r.SourceErrors {
		dto.Warnings = append(dto.Warnings, se.Error())
	}
	return dto
}

func toTransactionDTO(tx *cdo.CreditTransaction, b *cdo.Balance) TransactionDTO {
	dto := TransactionDTO{
		ID:           string(tx.ID),
		EmployeeID:   tx.EmployeeID,
		CDONumber:    tx.CDONumber,
		Activity:     tx.Activity,
		EarnedCredit: tx.EarnedCredit.String(),
		UsedCredit:   tx.UsedCredit.String(),
		Status:       string(tx.Status),
		CreatedBy:    string(tx.CreatedBy),
		CreatedAt:    tx.CreatedAt.Format("2006-01-02 15:04:05"),
		ExpiresAt:    tx.ExpiresAt.Format("2006-01-02 15:04:05"),
	}
	for _, d := range tx.WorkDates {
		dto.WorkDates = append(dto.WorkDates, d.String())
	}
	if b != nil {
		dto.Remaining = b.Remaining.String()
		dto.Expired = b.Expired
	}
	return dto
}

func toEntryDTO(e *cdo.ConsumeEntry) EntryDTO {
	return EntryDTO{
		ID:            string(e.ID),
		TransactionID: string(e.TransactionID),
		EmployeeID:    e.EmployeeID,
		Date:          e.Date.String(),
		Reason:        e.Reason,
		Status:        string(e.Status),
		CreatedBy:     string(e.CreatedBy),
		CreatedAt:     e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
