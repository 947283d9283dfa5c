/*
ledger.go - The CDO credit ledger service

PURPOSE:
  All mutations of CDO credits go through this service. It owns the
  business rules the store cannot express:

  EARN SIDE:
    - Work dates are required, deduplicated, sorted.
    - Earned credit defaults to one per distinct work date.
    - References are numbered per creation day (YYYYMMDDDO-NNN).

  SPEND SIDE:
    - Only approved, unexpired transactions can be consumed.
    - Remaining = earned - approved used - pending reservations. A batch
      that does not fit is rejected whole.
    - One employee cannot charge the same calendar day twice, across all
      of their transactions.
    - UsedCredit moves only when an entry's approval flips: +1 entering
      Approved, -1 leaving it, clamped to [0, earned].
    - Approved entries are frozen for edit and cancel; only the staff
      status endpoint moves them, and portal actors can only touch
      portal-filed entries.

CONCURRENCY:
  A striped mutex serializes mutations per employee. Striping by
  employee rather than by transaction matters: the duplicate-use-date
  check spans all of an employee's transactions, so two consumes against
  different grants must not interleave. Version conflicts from other
  processes are retried once.
*/
package cdo

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hrsuite/dtr-engine/dtr"
)

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	store Store

	// now is swappable for tests.
	now func() time.Time

	// locks serialize mutations per employee. Striped by hash so the
	// lock table stays fixed-size.
	locks [64]sync.Mutex
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

func (l *Ledger) lockFor(employeeID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(employeeID))
	return &l.locks[h.Sum32()%uint32(len(l.locks))]
}

// =============================================================================
// EARN OPERATIONS
// =============================================================================

// EarnRequest describes a new credit grant.
type EarnRequest struct {
	EmployeeID string
	Activity   string
	WorkDates  []dtr.Date

	// EarnedCredit overrides the default of one credit per work date.
	// Zero means use the default.
	EarnedCredit decimal.Decimal

	CreatedBy Origin
}

// CreateEarnTransaction records a new credit grant in For Approval state.
func (l *Ledger) CreateEarnTransaction(ctx context.Context, req EarnRequest) (*CreditTransaction, error) {
	dates := normalizeDates(req.WorkDates)
	if len(dates) == 0 {
		return nil, ErrEmptyWorkdateSet
	}

	earned := req.EarnedCredit
	if earned.IsZero() {
		earned = decimal.NewFromInt(int64(len(dates)))
	}

	now := l.now()
	today := dtr.DateOf(now)
	seq, err := l.store.CountTransactionsOn(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("numbering transaction: %w", err)
	}

	tx := &CreditTransaction{
		ID:           NewTransactionID(),
		EmployeeID:   req.EmployeeID,
		CDONumber:    FormatCDONumber(today, seq+1),
		Activity:     req.Activity,
		WorkDates:    dates,
		EarnedCredit: earned,
		UsedCredit:   decimal.Zero,
		Status:       dtr.StatusForApproval,
		CreatedBy:    req.CreatedBy,
		CreatedAt:    now,
		ExpiresAt:    ExpiryOf(now),
	}
	if err := l.store.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// SetTransactionStatus moves an earn transaction through approval.
func (l *Ledger) SetTransactionStatus(ctx context.Context, id TransactionID, status dtr.Status) (*CreditTransaction, error) {
	status = dtr.NormalizeStatus(string(status))
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}

	tx, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	mu := l.lockFor(tx.EmployeeID)
	mu.Lock()
	defer mu.Unlock()

	return l.updateTransaction(ctx, id, func(tx *CreditTransaction) error {
		tx.Status = status
		return nil
	})
}

// =============================================================================
// SPEND OPERATIONS
// =============================================================================

// ConsumeRequest asks to charge day-off dates against one transaction.
type ConsumeRequest struct {
	TransactionID TransactionID
	Dates         []dtr.Date
	Reason        string
	CreatedBy     Origin
}

// CreateConsumeEntries reserves credits for the requested dates. Each date
// becomes one For Approval entry; the batch is all-or-nothing.
func (l *Ledger) CreateConsumeEntries(ctx context.Context, req ConsumeRequest) ([]*ConsumeEntry, error) {
	if req.Reason == "" {
		return nil, ErrMissingReason
	}
	if len(req.Dates) == 0 {
		return nil, ErrEmptyWorkdateSet
	}
	if dup := firstDuplicate(req.Dates); dup != nil {
		return nil, &DuplicateUseDateError{Date: *dup, InRequest: true}
	}
	dates := normalizeDates(req.Dates)
	origin := req.CreatedBy
	if origin == "" {
		origin = OriginPortal
	}

	tx, err := l.store.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}

	mu := l.lockFor(tx.EmployeeID)
	mu.Lock()
	defer mu.Unlock()

	// Reload under the lock.
	tx, err = l.store.GetTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != dtr.StatusApproved {
		return nil, ErrTransactionNotApproved
	}
	now := l.now()
	if tx.Expired(now) {
		return nil, ErrExpired
	}

	// A day can only be charged once per employee, across transactions.
	existing, err := l.store.ListEntriesByEmployee(ctx, tx.EmployeeID)
	if err != nil {
		return nil, err
	}
	for _, d := range dates {
		for _, e := range existing {
			if e.Active() && e.Date.Equal(d) {
				return nil, &DuplicateUseDateError{EmployeeID: tx.EmployeeID, Date: d, ExistingID: e.ID}
			}
		}
	}

	remaining := l.remaining(tx, existing)
	if remaining.LessThan(decimal.NewFromInt(int64(len(dates)))) {
		return nil, ErrInsufficientCredits
	}

	entries := make([]*ConsumeEntry, 0, len(dates))
	for _, d := range dates {
		entries = append(entries, &ConsumeEntry{
			ID:            NewEntryID(),
			TransactionID: tx.ID,
			EmployeeID:    tx.EmployeeID,
			Date:          d,
			Reason:        req.Reason,
			Status:        dtr.StatusForApproval,
			CreatedBy:     origin,
			CreatedAt:     now,
		})
	}
	if err := l.store.CreateEntries(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SetConsumeEntryStatus moves an entry through approval and keeps the
// parent transaction's UsedCredit in step: entering Approved charges one
// credit, leaving Approved refunds it.
func (l *Ledger) SetConsumeEntryStatus(ctx context.Context, id EntryID, status dtr.Status) (*ConsumeEntry, error) {
	status = dtr.NormalizeStatus(string(status))
	if !validStatus(status) {
		return nil, ErrInvalidStatus
	}

	entry, err := l.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	mu := l.lockFor(entry.EmployeeID)
	mu.Lock()
	defer mu.Unlock()

	// Reload under the lock.
	entry, err = l.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := entry.Status
	wasApproved := prev == dtr.StatusApproved
	nowApproved := status == dtr.StatusApproved
	entry.Status = status
	if err := l.store.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}

	if wasApproved != nowApproved {
		delta := decimal.NewFromInt(1)
		if wasApproved {
			delta = delta.Neg()
		}
		if _, err := l.updateTransaction(ctx, entry.TransactionID, func(tx *CreditTransaction) error {
			tx.UsedCredit = clampCredit(tx.UsedCredit.Add(delta), tx.EarnedCredit)
			return nil
		}); err != nil {
			// The entry write already landed; put it back so a failed
			// charge never leaves the entry and the aggregate disagreeing.
			l.revertEntryStatus(ctx, entry.ID, prev)
			return nil, err
		}
	}
	return entry, nil
}

// revertEntryStatus is the compensating write when the aggregate update
// fails after the entry write succeeded.
func (l *Ledger) revertEntryStatus(ctx context.Context, id EntryID, status dtr.Status) {
	entry, err := l.store.GetEntry(ctx, id)
	if err == nil {
		entry.Status = status
		err = l.store.UpdateEntry(ctx, entry)
	}
	if err != nil {
		log.Printf("cdo: could not revert entry %s to %s: %v", id, status, err)
	}
}

// EditConsumeEntry changes an entry's date or reason and resets it to
// For Approval. Approved and cancelled entries are frozen; an approved
// day off has to be returned by staff before it can move.
func (l *Ledger) EditConsumeEntry(ctx context.Context, id EntryID, newDate dtr.Date, newReason string, actor Origin) (*ConsumeEntry, error) {
	if newReason == "" {
		return nil, ErrMissingReason
	}

	entry, err := l.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	mu := l.lockFor(entry.EmployeeID)
	mu.Lock()
	defer mu.Unlock()

	entry, err = l.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entryMutable(entry, actor); err != nil {
		return nil, err
	}

	if !entry.Date.Equal(newDate) {
		existing, err := l.store.ListEntriesByEmployee(ctx, entry.EmployeeID)
		if err != nil {
			return nil, err
		}
		for _, e := range existing {
			if e.ID != entry.ID && e.Active() && e.Date.Equal(newDate) {
				return nil, &DuplicateUseDateError{EmployeeID: entry.EmployeeID, Date: newDate, ExistingID: e.ID}
			}
		}
	}

	entry.Date = newDate
	entry.Reason = newReason
	entry.Status = dtr.StatusForApproval
	if err := l.store.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// CancelConsumeEntry releases a pending entry's reservation. Approved
// entries cannot be cancelled here; staff returns them through
// SetConsumeEntryStatus, which also refunds the charge.
func (l *Ledger) CancelConsumeEntry(ctx context.Context, id EntryID, actor Origin) (*ConsumeEntry, error) {
	entry, err := l.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	mu := l.lockFor(entry.EmployeeID)
	mu.Lock()
	defer mu.Unlock()

	entry, err = l.store.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Status == dtr.StatusCancelled {
		return entry, nil
	}
	if err := entryMutable(entry, actor); err != nil {
		return nil, err
	}

	entry.Status = dtr.StatusCancelled
	if err := l.store.UpdateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// entryMutable gates edit and cancel: approved and cancelled entries are
// frozen, and portal actors can only touch portal-filed entries.
func entryMutable(entry *ConsumeEntry, actor Origin) error {
	if entry.Status == dtr.StatusApproved || entry.Status == dtr.StatusCancelled {
		return ErrEntryNotEditable
	}
	if actor == OriginPortal && entry.CreatedBy == OriginStaff {
		return ErrNotEntryOwner
	}
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Balance is the read-side view of one transaction's credits.
type Balance struct {
	Transaction *CreditTransaction
	Entries     []*ConsumeEntry

	// Remaining is earned minus approved-used minus pending reservations.
	// Zero once the transaction has expired, regardless of the stored
	// counters.
	Remaining decimal.Decimal
	Expired   bool
}

// BalanceOf computes the spendable credit on a transaction as of now.
func (l *Ledger) BalanceOf(ctx context.Context, id TransactionID) (*Balance, error) {
	tx, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := l.store.ListEntries(ctx, id)
	if err != nil {
		return nil, err
	}

	b := &Balance{Transaction: tx, Entries: entries}
	if tx.Expired(l.now()) {
		b.Expired = true
		b.Remaining = decimal.Zero
		return b, nil
	}
	b.Remaining = l.remaining(tx, entries)
	return b, nil
}

// Transactions lists an employee's credit transactions, newest first.
func (l *Ledger) Transactions(ctx context.Context, employeeID string) ([]*CreditTransaction, error) {
	return l.store.ListTransactions(ctx, employeeID)
}

// Entries lists one transaction's consume entries.
func (l *Ledger) Entries(ctx context.Context, id TransactionID) ([]*ConsumeEntry, error) {
	if _, err := l.store.GetTransaction(ctx, id); err != nil {
		return nil, err
	}
	return l.store.ListEntries(ctx, id)
}

// UseRecords exposes an employee's consume entries in the shape the
// reconciliation engine reads, resolving each entry's reference number.
func (l *Ledger) UseRecords(ctx context.Context, employeeID string, window dtr.Window) ([]dtr.CDOUseRecord, error) {
	entries, err := l.store.ListEntriesByEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	refs := make(map[TransactionID]string)
	var out []dtr.CDOUseRecord
	for _, e := range entries {
		if !window.Contains(e.Date) {
			continue
		}
		ref, ok := refs[e.TransactionID]
		if !ok {
			tx, err := l.store.GetTransaction(ctx, e.TransactionID)
			if err != nil {
				return nil, err
			}
			ref = tx.CDONumber
			refs[e.TransactionID] = ref
		}
		out = append(out, e.UseRecord(ref))
	}
	return out, nil
}

// CDOUses lets the Ledger plug straight into dtr.Sources.
func (l *Ledger) CDOUses(ctx context.Context, employeeID string, window dtr.Window) ([]dtr.CDOUseRecord, error) {
	return l.UseRecords(ctx, employeeID, window)
}

// =============================================================================
// INTERNAL
// =============================================================================

// remaining computes spendable credit from the stored counter plus live
// pending reservations. Entries may span transactions; only this
// transaction's pending entries reserve against it.
func (l *Ledger) remaining(tx *CreditTransaction, entries []*ConsumeEntry) decimal.Decimal {
	pending := decimal.Zero
	one := decimal.NewFromInt(1)
	for _, e := range entries {
		if e.TransactionID == tx.ID && e.Status == dtr.StatusForApproval {
			pending = pending.Add(one)
		}
	}
	r := tx.EarnedCredit.Sub(tx.UsedCredit).Sub(pending)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// updateTransaction applies mutate under a load-modify-store cycle,
// retrying once on a version conflict.
func (l *Ledger) updateTransaction(ctx context.Context, id TransactionID, mutate func(*CreditTransaction) error) (*CreditTransaction, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		tx, err := l.store.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := mutate(tx); err != nil {
			return nil, err
		}
		err = l.store.UpdateTransaction(ctx, tx)
		if err == nil {
			return tx, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func clampCredit(v, max decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(max) {
		return max
	}
	return v
}

func validStatus(s dtr.Status) bool {
	switch s {
	case dtr.StatusForApproval, dtr.StatusApproved, dtr.StatusReturned, dtr.StatusCancelled:
		return true
	}
	return false
}

func firstDuplicate(dates []dtr.Date) *dtr.Date {
	seen := make(map[dtr.Date]bool, len(dates))
	for _, d := range dates {
		if seen[d] {
			dup := d
			return &dup
		}
		seen[d] = true
	}
	return nil
}
