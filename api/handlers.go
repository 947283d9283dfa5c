/*
handlers.go - HTTP API handlers for the DTR engine

PURPOSE:
  Exposes reconciliation and the CDO ledger via REST. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  DTR:
    GET    /api/employees/{id}/dtr       Reconciled report (basic or annotated)
    GET    /api/employees/{id}/dtr/raw   Raw punch logs

  CDO ledger:
    GET    /api/cdo                      Ledger view with computed remaining
    POST   /api/cdo                      Create earn transaction
    PUT    /api/cdo/{id}/status          Approve/return/cancel transaction
    GET    /api/cdo/{id}/entries         List consume entries
    POST   /api/cdo/{id}/consume         Create consume entries
    PUT    /api/cdo/entries/{id}         Edit consume entry
    PUT    /api/cdo/entries/{id}/status  Approve/return consume entry
    DELETE /api/cdo/entries/{id}         Cancel consume entry

  Holidays:
    GET    /api/holidays                 List calendar
    POST   /api/holidays                 Add holiday
    DELETE /api/holidays/{id}            Remove holiday

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Concurrent modification, duplicate use date
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hrsuite/dtr-engine/cdo"
	"github.com/hrsuite/dtr-engine/dtr"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// HolidayAdmin is the calendar maintenance surface the holiday endpoints
// need beyond the read-only dtr.HolidaySource.
type HolidayAdmin interface {
	AddHoliday(ctx context.Context, h dtr.Holiday) error
	ListHolidays(ctx context.Context) ([]dtr.Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Reconciler *dtr.Reconciler
	Ledger     *cdo.Ledger
	Holidays   HolidayAdmin

	// DefaultWeekendRemark controls whether bare weekends print "Weekend"
	// in remarks.
	DefaultWeekendRemark bool
}

func NewHandler(reconciler *dtr.Reconciler, ledger *cdo.Ledger, holidays HolidayAdmin) *Handler {
	return &Handler{Reconciler: reconciler, Ledger: ledger, Holidays: holidays}
}

// =============================================================================
// DTR HANDLERS
// =============================================================================

// GetDTR returns the reconciled report for one employee.
// GET /api/employees/{id}/dtr?filter=&period=&view=basic|annotated&...toggles
func (h *Handler) GetDTR(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	view, err := h.parseViewState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid view parameters", err)
		return
	}

	report, err := h.Reconciler.Reconcile(r.Context(), employeeID, view)
	if err != nil {
		status := http.StatusInternalServerError
		if dtr.IsClientError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "Failed to build report", err)
		return
	}
	for _, se := range report.SourceErrors {
		sourceFetchFailures.WithLabelValues(se.Source).Inc()
	}

	if r.URL.Query().Get("view") == "basic" {
		basic := report.Basic()
		report = &basic
		reportsBuilt.WithLabelValues("basic").Inc()
	} else {
		reportsBuilt.WithLabelValues("annotated").Inc()
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// GetRawLogs returns the unreconciled punch view.
// GET /api/employees/{id}/dtr/raw?filter=&period=
func (h *Handler) GetRawLogs(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	view, err := h.parseViewState(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid view parameters", err)
		return
	}

	days, err := h.Reconciler.RawLogs(r.Context(), employeeID, view)
	if err != nil {
		status := http.StatusInternalServerError
		if dtr.IsClientError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "Failed to build raw logs", err)
		return
	}
	reportsBuilt.WithLabelValues("raw").Inc()

	dtos := make([]RawDayDTO, len(days))
	for i, d := range days {
		dto := RawDayDTO{
			Date:      d.Date.String(),
			AM:        []string{},
			PM:        []string{},
			IsWeekend: d.IsWeekend,
			Remarks:   d.Remarks,
		}
		for _, p := range d.AM {
			dto.AM = append(dto.AM, p.Clock().String())
		}
		for _, p := range d.PM {
			dto.PM = append(dto.PM, p.Clock().String())
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// parseViewState reads filter/period/toggle query parameters. Toggles
// default to on; "?leave=false" switches one off. An "as_of" date pins
// the window anchor, mainly for verification against past periods.
func (h *Handler) parseViewState(r *http.Request) (dtr.ViewState, error) {
	q := r.URL.Query()

	view := dtr.ViewState{
		Filter:               dtr.Filter(q.Get("filter")),
		SubPeriod:            dtr.SubPeriod(q.Get("period")),
		Toggles:              dtr.AllToggles(),
		IncludeWeekendRemark: h.DefaultWeekendRemark,
	}
	if view.Filter == "" {
		view.Filter = dtr.FilterToday
	}

	if raw := q.Get("as_of"); raw != "" {
		d, err := dtr.ParseDate(raw)
		if err != nil {
			return view, fmt.Errorf("bad as_of date %q: %w", raw, err)
		}
		view.Now = d.Time()
	}

	toggle := func(name string, dst *bool) {
		if v := q.Get(name); v != "" {
			*dst = v != "false" && v != "0"
		}
	}
	toggle("weekend", &view.Toggles.Weekend)
	toggle("leave", &view.Toggles.Leave)
	toggle("travel", &view.Toggles.Travel)
	toggle("cdo", &view.Toggles.CDO)
	toggle("holiday", &view.Toggles.Holiday)
	toggle("absent", &view.Toggles.Absent)
	toggle("locator_badge", &view.Toggles.LocatorBadge)
	toggle("fixlog_badge", &view.Toggles.FixLogBadge)
	toggle("weekend_remark", &view.IncludeWeekendRemark)
	return view, nil
}

// =============================================================================
// CDO LEDGER HANDLERS
// =============================================================================

// ListCDO returns credit transactions with read-time remaining credits.
// GET /api/cdo?employee_id=&status=&title=
func (h *Handler) ListCDO(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txs, err := h.Ledger.Transactions(r.Context(), q.Get("employee_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}

	statusFilter := dtr.NormalizeStatus(q.Get("status"))
	titleFilter := strings.ToLower(q.Get("title"))

	dtos := []TransactionDTO{}
	for _, tx := range txs {
		if q.Get("status") != "" && tx.Status != statusFilter {
			continue
		}
		if titleFilter != "" && !strings.Contains(strings.ToLower(tx.Activity), titleFilter) {
			continue
		}
		b, err := h.Ledger.BalanceOf(r.Context(), tx.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to compute balance", err)
			return
		}
		dtos = append(dtos, toTransactionDTO(tx, b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCDO creates an earn transaction.
// POST /api/cdo
func (h *Handler) CreateCDO(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	dates, err := parseDates(req.WorkDates)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work date", err)
		return
	}

	earn := cdo.EarnRequest{
		EmployeeID: req.EmployeeID,
		Activity:   req.Activity,
		WorkDates:  dates,
		CreatedBy:  originFrom(req.CreatedBy),
	}
	if req.EarnedCredit != "" {
		if earn.EarnedCredit, err = decimal.NewFromString(req.EarnedCredit); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid earned_credit", err)
			return
		}
	}

	tx, err := h.Ledger.CreateEarnTransaction(r.Context(), earn)
	observeLedgerOp("create_transaction", err)
	if err != nil {
		writeLedgerError(w, "Failed to create transaction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx, nil))
}

// SetCDOStatus moves a transaction through approval.
// PUT /api/cdo/{id}/status
func (h *Handler) SetCDOStatus(w http.ResponseWriter, r *http.Request) {
	id := cdo.TransactionID(chi.URLParam(r, "id"))
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	tx, err := h.Ledger.SetTransactionStatus(r.Context(), id, dtr.Status(req.Status))
	observeLedgerOp("set_transaction_status", err)
	if err != nil {
		writeLedgerError(w, "Failed to update status", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx, nil))
}

// ListCDOEntries lists a transaction's consume entries.
// GET /api/cdo/{id}/entries
func (h *Handler) ListCDOEntries(w http.ResponseWriter, r *http.Request) {
	id := cdo.TransactionID(chi.URLParam(r, "id"))
	entries, err := h.Ledger.Entries(r.Context(), id)
	if err != nil {
		writeLedgerError(w, "Failed to list entries", err)
		return
	}
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ConsumeCDO charges day-off dates against a transaction.
// POST /api/cdo/{id}/consume
func (h *Handler) ConsumeCDO(w http.ResponseWriter, r *http.Request) {
	id := cdo.TransactionID(chi.URLParam(r, "id"))
	var req ConsumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	dates, err := parseDates(req.Dates)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid use date", err)
		return
	}

	entries, err := h.Ledger.CreateConsumeEntries(r.Context(), cdo.ConsumeRequest{
		TransactionID: id,
		Dates:         dates,
		Reason:        req.Reason,
		CreatedBy:     originFrom(req.CreatedBy),
	})
	observeLedgerOp("consume", err)
	if err != nil {
		if errors.Is(err, cdo.ErrInsufficientCredits) {
			creditRejections.Inc()
		}
		writeLedgerError(w, "Failed to consume credits", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// EditCDOEntry changes an entry's date or reason.
// PUT /api/cdo/entries/{id}
func (h *Handler) EditCDOEntry(w http.ResponseWriter, r *http.Request) {
	id := cdo.EntryID(chi.URLParam(r, "id"))
	var req EditEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := dtr.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	entry, err := h.Ledger.EditConsumeEntry(r.Context(), id, date, req.Reason, originFrom(req.Actor))
	observeLedgerOp("edit_entry", err)
	if err != nil {
		writeLedgerError(w, "Failed to edit entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// SetCDOEntryStatus approves or returns a consume entry.
// PUT /api/cdo/entries/{id}/status
func (h *Handler) SetCDOEntryStatus(w http.ResponseWriter, r *http.Request) {
	id := cdo.EntryID(chi.URLParam(r, "id"))
	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Ledger.SetConsumeEntryStatus(r.Context(), id, dtr.Status(req.Status))
	observeLedgerOp("set_entry_status", err)
	if err != nil {
		writeLedgerError(w, "Failed to update entry status", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// CancelCDOEntry cancels a pending consume entry. Approved entries go
// through the status endpoint instead. The actor query parameter names
// who is cancelling ("portal" by default).
// DELETE /api/cdo/entries/{id}?actor=
func (h *Handler) CancelCDOEntry(w http.ResponseWriter, r *http.Request) {
	id := cdo.EntryID(chi.URLParam(r, "id"))
	entry, err := h.Ledger.CancelConsumeEntry(r.Context(), id, originFrom(r.URL.Query().Get("actor")))
	observeLedgerOp("cancel_entry", err)
	if err != nil {
		writeLedgerError(w, "Failed to cancel entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the full calendar.
// GET /api/holidays
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Holidays.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hd := range holidays {
		dtos[i] = HolidayDTO{ID: hd.ID, Date: hd.Date.String(), Name: hd.Name, Recurring: hd.Recurring}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a calendar entry.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	date, err := dtr.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	holiday := dtr.Holiday{
		ID:        uuid.NewString(),
		Date:      date,
		Name:      req.Name,
		Recurring: req.Recurring,
	}
	if err := h.Holidays.AddHoliday(r.Context(), holiday); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{
		ID: holiday.ID, Date: holiday.Date.String(), Name: holiday.Name, Recurring: holiday.Recurring,
	})
}

// DeleteHoliday removes a calendar entry.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Holidays.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health reports liveness.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// originFrom maps the wire value to a ledger origin, defaulting to the
// portal. Anything unrecognized counts as portal so the stricter
// ownership rules apply.
func originFrom(s string) cdo.Origin {
	if s == string(cdo.OriginStaff) {
		return cdo.OriginStaff
	}
	return cdo.OriginPortal
}

func parseDates(raw []string) ([]dtr.Date, error) {
	out := make([]dtr.Date, 0, len(raw))
	for _, s := range raw {
		d, err := dtr.ParseDate(s)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", s, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func writeLedgerError(w http.ResponseWriter, message string, err error) {
	var dup *cdo.DuplicateUseDateError
	switch {
	case cdo.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.As(err, &dup), cdo.IsRetryable(err):
		writeError(w, http.StatusConflict, message, err)
	case cdo.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
