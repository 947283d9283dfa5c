package cdo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrsuite/dtr-engine/cdo"
	"github.com/hrsuite/dtr-engine/dtr"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newLedger(t *testing.T) (*cdo.Ledger, *cdo.MemoryStore) {
	t.Helper()
	store := cdo.NewMemoryStore()
	return cdo.NewLedger(store), store
}

func workDates(days ...int) []dtr.Date {
	var out []dtr.Date
	for _, d := range days {
		out = append(out, dtr.NewDate(2025, time.June, d))
	}
	return out
}

// approvedGrant creates an earn transaction and moves it to Approved.
func approvedGrant(t *testing.T, ledger *cdo.Ledger, employeeID string, credits int) *cdo.CreditTransaction {
	t.Helper()
	dates := make([]dtr.Date, credits)
	for i := range dates {
		dates[i] = dtr.NewDate(2025, time.June, i+2)
	}
	tx, err := ledger.CreateEarnTransaction(context.Background(), cdo.EarnRequest{
		EmployeeID: employeeID,
		Activity:   "Weekend systems migration",
		WorkDates:  dates,
		CreatedBy:  cdo.OriginStaff,
	})
	require.NoError(t, err)
	tx, err = ledger.SetTransactionStatus(context.Background(), tx.ID, dtr.StatusApproved)
	require.NoError(t, err)
	return tx
}

func consume(t *testing.T, ledger *cdo.Ledger, txID cdo.TransactionID, dates ...dtr.Date) []*cdo.ConsumeEntry {
	t.Helper()
	entries, err := ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: txID,
		Dates:         dates,
		Reason:        "rest day",
	})
	require.NoError(t, err)
	return entries
}

func remainingOf(t *testing.T, ledger *cdo.Ledger, txID cdo.TransactionID) decimal.Decimal {
	t.Helper()
	b, err := ledger.BalanceOf(context.Background(), txID)
	require.NoError(t, err)
	return b.Remaining
}

// =============================================================================
// EARN SIDE
// =============================================================================

func TestCreateEarnTransaction_Defaults(t *testing.T) {
	ledger, _ := newLedger(t)

	tx, err := ledger.CreateEarnTransaction(context.Background(), cdo.EarnRequest{
		EmployeeID: "emp-1",
		Activity:   "Election duty",
		// Out of order and with a duplicate; the ledger normalizes.
		WorkDates: []dtr.Date{
			dtr.NewDate(2025, time.June, 8),
			dtr.NewDate(2025, time.June, 7),
			dtr.NewDate(2025, time.June, 8),
		},
		CreatedBy: cdo.OriginPortal,
	})
	require.NoError(t, err)

	assert.Equal(t, []dtr.Date{
		dtr.NewDate(2025, time.June, 7),
		dtr.NewDate(2025, time.June, 8),
	}, tx.WorkDates)
	assert.True(t, tx.EarnedCredit.Equal(decimal.NewFromInt(2)), "one credit per distinct date")
	assert.True(t, tx.UsedCredit.IsZero())
	assert.Equal(t, dtr.StatusForApproval, tx.Status)
	assert.Equal(t, cdo.OriginPortal, tx.CreatedBy)

	// Credits die at the end of the grant year.
	assert.Equal(t, tx.CreatedAt.Year(), tx.ExpiresAt.Year())
	assert.Equal(t, time.December, tx.ExpiresAt.Month())
	assert.Equal(t, 31, tx.ExpiresAt.Day())
}

func TestCreateEarnTransaction_ExplicitCreditOverride(t *testing.T) {
	ledger, _ := newLedger(t)

	tx, err := ledger.CreateEarnTransaction(context.Background(), cdo.EarnRequest{
		EmployeeID:   "emp-1",
		Activity:     "Half-day caretaking",
		WorkDates:    workDates(7),
		EarnedCredit: decimal.NewFromFloat(0.5),
	})
	require.NoError(t, err)
	assert.True(t, tx.EarnedCredit.Equal(decimal.NewFromFloat(0.5)))
}

func TestCreateEarnTransaction_NoDates(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.CreateEarnTransaction(context.Background(), cdo.EarnRequest{EmployeeID: "emp-1"})
	assert.ErrorIs(t, err, cdo.ErrEmptyWorkdateSet)
	assert.True(t, cdo.IsClientError(err))
}

func TestCreateEarnTransaction_NumbersSequencePerDay(t *testing.T) {
	ledger, _ := newLedger(t)

	first, err := ledger.CreateEarnTransaction(context.Background(), cdo.EarnRequest{
		EmployeeID: "emp-1", WorkDates: workDates(7),
	})
	require.NoError(t, err)
	second, err := ledger.CreateEarnTransaction(context.Background(), cdo.EarnRequest{
		EmployeeID: "emp-2", WorkDates: workDates(8),
	})
	require.NoError(t, err)

	today := dtr.DateOf(first.CreatedAt)
	assert.Equal(t, cdo.FormatCDONumber(today, 1), first.CDONumber)
	assert.Equal(t, cdo.FormatCDONumber(today, 2), second.CDONumber)
}

func TestSetTransactionStatus_RejectsUnknownStatus(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)

	_, err := ledger.SetTransactionStatus(context.Background(), tx.ID, dtr.Status("Archived"))
	assert.ErrorIs(t, err, cdo.ErrInvalidStatus)
}

func TestSetTransactionStatus_NormalizesLegacyPending(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)

	updated, err := ledger.SetTransactionStatus(context.Background(), tx.ID, dtr.Status("Pending"))
	require.NoError(t, err)
	assert.Equal(t, dtr.StatusForApproval, updated.Status)
}

// =============================================================================
// SPEND SIDE - VALIDATION
// =============================================================================

func TestCreateConsumeEntries_Validation(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)

	_, err := ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: tx.ID, Dates: workDates(20),
	})
	assert.ErrorIs(t, err, cdo.ErrMissingReason)

	_, err = ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: tx.ID, Reason: "rest day",
	})
	assert.ErrorIs(t, err, cdo.ErrEmptyWorkdateSet)

	_, err = ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: tx.ID, Reason: "rest day", Dates: workDates(20, 20),
	})
	var dup *cdo.DuplicateUseDateError
	require.ErrorAs(t, err, &dup)
	assert.True(t, dup.InRequest)
	assert.True(t, dup.Date.Equal(dtr.NewDate(2025, time.June, 20)))
}

func TestCreateConsumeEntries_RequiresApprovedTransaction(t *testing.T) {
	ledger, _ := newLedger(t)
	tx, err := ledger.CreateEarnTransaction(context.Background(), cdo.EarnRequest{
		EmployeeID: "emp-1", WorkDates: workDates(7),
	})
	require.NoError(t, err)

	_, err = ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: tx.ID, Reason: "rest day", Dates: workDates(20),
	})
	assert.ErrorIs(t, err, cdo.ErrTransactionNotApproved)
}

func TestCreateConsumeEntries_UnknownTransaction(t *testing.T) {
	ledger, _ := newLedger(t)

	_, err := ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: "no-such-id", Reason: "rest day", Dates: workDates(20),
	})
	assert.ErrorIs(t, err, cdo.ErrTransactionNotFound)
	assert.True(t, cdo.IsNotFound(err))
}

// =============================================================================
// SPEND SIDE - CREDIT ACCOUNTING
// =============================================================================

func TestCreateConsumeEntries_OverBatchRejectedWhole(t *testing.T) {
	// GIVEN: a 3-credit approved grant
	// WHEN: a 4-date batch is requested
	// THEN: nothing is written; a fitting 3-date batch then succeeds

	ledger, store := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 3)

	_, err := ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: tx.ID, Reason: "rest days",
		Dates: workDates(20, 21, 22, 23),
	})
	assert.ErrorIs(t, err, cdo.ErrInsufficientCredits)

	onFile, err := store.ListEntries(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.Empty(t, onFile, "a rejected batch leaves no entries behind")

	entries := consume(t, ledger, tx.ID, workDates(20, 21, 22)...)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, dtr.StatusForApproval, e.Status)
	}
}

func TestPendingEntries_ReserveCredit(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)

	consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))
	assert.True(t, remainingOf(t, ledger, tx.ID).Equal(decimal.NewFromInt(1)))

	// The reservation holds even though nothing is approved yet.
	_, err := ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: tx.ID, Reason: "rest days", Dates: workDates(21, 22),
	})
	assert.ErrorIs(t, err, cdo.ErrInsufficientCredits)
}

func TestSetConsumeEntryStatus_ChargesAndRefunds(t *testing.T) {
	ledger, store := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	entry := consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))[0]

	usedOf := func() decimal.Decimal {
		t.Helper()
		got, err := store.GetTransaction(context.Background(), tx.ID)
		require.NoError(t, err)
		return got.UsedCredit
	}

	_, err := ledger.SetConsumeEntryStatus(context.Background(), entry.ID, dtr.StatusApproved)
	require.NoError(t, err)
	assert.True(t, usedOf().Equal(decimal.NewFromInt(1)))

	// Approving an already-approved entry does not double-charge.
	_, err = ledger.SetConsumeEntryStatus(context.Background(), entry.ID, dtr.StatusApproved)
	require.NoError(t, err)
	assert.True(t, usedOf().Equal(decimal.NewFromInt(1)))

	// Leaving Approved refunds.
	_, err = ledger.SetConsumeEntryStatus(context.Background(), entry.ID, dtr.StatusReturned)
	require.NoError(t, err)
	assert.True(t, usedOf().IsZero())

	// A Returned entry releases its reservation entirely.
	assert.True(t, remainingOf(t, ledger, tx.ID).Equal(decimal.NewFromInt(2)))
}

func TestUsedCredit_NeverExceedsEarned(t *testing.T) {
	ledger, store := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	entries := consume(t, ledger, tx.ID, workDates(20, 21)...)

	for _, e := range entries {
		_, err := ledger.SetConsumeEntryStatus(context.Background(), e.ID, dtr.StatusApproved)
		require.NoError(t, err)
	}

	got, err := store.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.True(t, got.UsedCredit.Equal(got.EarnedCredit))
	assert.True(t, remainingOf(t, ledger, tx.ID).IsZero())
}

func TestCancelConsumeEntry_ReleasesReservation(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	entry := consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))[0]

	cancelled, err := ledger.CancelConsumeEntry(context.Background(), entry.ID, cdo.OriginPortal)
	require.NoError(t, err)
	assert.Equal(t, dtr.StatusCancelled, cancelled.Status)
	assert.True(t, remainingOf(t, ledger, tx.ID).Equal(decimal.NewFromInt(2)))

	// The cancelled date frees up for a fresh entry.
	consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))
}

// =============================================================================
// DUPLICATE USE DATES ACROSS TRANSACTIONS
// =============================================================================

func TestCreateConsumeEntries_DuplicateDateAcrossTransactions(t *testing.T) {
	ledger, _ := newLedger(t)
	first := approvedGrant(t, ledger, "emp-1", 2)
	second := approvedGrant(t, ledger, "emp-1", 2)

	date := dtr.NewDate(2025, time.June, 20)
	existing := consume(t, ledger, first.ID, date)[0]

	_, err := ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: second.ID, Reason: "rest day", Dates: []dtr.Date{date},
	})
	var dup *cdo.DuplicateUseDateError
	require.ErrorAs(t, err, &dup)
	assert.False(t, dup.InRequest)
	assert.Equal(t, existing.ID, dup.ExistingID)
	assert.Equal(t, "emp-1", dup.EmployeeID)
	assert.True(t, cdo.IsClientError(err))
}

func TestCreateConsumeEntries_OtherEmployeeUnaffected(t *testing.T) {
	ledger, _ := newLedger(t)
	mine := approvedGrant(t, ledger, "emp-1", 2)
	theirs := approvedGrant(t, ledger, "emp-2", 2)

	date := dtr.NewDate(2025, time.June, 20)
	consume(t, ledger, mine.ID, date)
	consume(t, ledger, theirs.ID, date) // same date, different employee
}

// =============================================================================
// EDITING ENTRIES
// =============================================================================

func TestEditConsumeEntry_UpdatesPendingEntry(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	entry := consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))[0]

	edited, err := ledger.EditConsumeEntry(context.Background(), entry.ID,
		dtr.NewDate(2025, time.June, 27), "family matter", cdo.OriginPortal)
	require.NoError(t, err)

	assert.Equal(t, dtr.StatusForApproval, edited.Status)
	assert.True(t, edited.Date.Equal(dtr.NewDate(2025, time.June, 27)))
	assert.Equal(t, "family matter", edited.Reason)
}

func TestEditConsumeEntry_ReturnedGoesBackThroughApproval(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	entry := consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))[0]

	_, err := ledger.SetConsumeEntryStatus(context.Background(), entry.ID, dtr.StatusApproved)
	require.NoError(t, err)
	_, err = ledger.SetConsumeEntryStatus(context.Background(), entry.ID, dtr.StatusReturned)
	require.NoError(t, err)

	edited, err := ledger.EditConsumeEntry(context.Background(), entry.ID,
		dtr.NewDate(2025, time.June, 27), "family matter", cdo.OriginPortal)
	require.NoError(t, err)
	assert.Equal(t, dtr.StatusForApproval, edited.Status, "edits go back through approval")
}

func TestEditConsumeEntry_ApprovedIsFrozen(t *testing.T) {
	// GIVEN: an entry that staff already approved
	// WHEN: the employee tries to move it to another day
	// THEN: the edit is rejected and the charge stays on the books

	ledger, store := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	entry := consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))[0]

	_, err := ledger.SetConsumeEntryStatus(context.Background(), entry.ID, dtr.StatusApproved)
	require.NoError(t, err)

	_, err = ledger.EditConsumeEntry(context.Background(), entry.ID,
		dtr.NewDate(2025, time.June, 27), "family matter", cdo.OriginPortal)
	assert.ErrorIs(t, err, cdo.ErrEntryNotEditable)
	assert.True(t, cdo.IsClientError(err))

	got, err := store.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.True(t, got.UsedCredit.Equal(decimal.NewFromInt(1)), "no refund on a rejected edit")

	kept, err := store.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, dtr.StatusApproved, kept.Status)
	assert.True(t, kept.Date.Equal(dtr.NewDate(2025, time.June, 20)))
}

func TestCancelConsumeEntry_ApprovedIsFrozen(t *testing.T) {
	ledger, store := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	entry := consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))[0]

	_, err := ledger.SetConsumeEntryStatus(context.Background(), entry.ID, dtr.StatusApproved)
	require.NoError(t, err)

	_, err = ledger.CancelConsumeEntry(context.Background(), entry.ID, cdo.OriginPortal)
	assert.ErrorIs(t, err, cdo.ErrEntryNotEditable)

	got, err := store.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.True(t, got.UsedCredit.Equal(decimal.NewFromInt(1)))

	// Staff returns the day off through the status endpoint instead.
	returned, err := ledger.SetConsumeEntryStatus(context.Background(), entry.ID, dtr.StatusReturned)
	require.NoError(t, err)
	assert.Equal(t, dtr.StatusReturned, returned.Status)
}

func TestEditConsumeEntry_PortalCannotTouchStaffEntries(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)

	entries, err := ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: tx.ID, Reason: "rest day",
		Dates:     []dtr.Date{dtr.NewDate(2025, time.June, 20)},
		CreatedBy: cdo.OriginStaff,
	})
	require.NoError(t, err)
	entry := entries[0]
	assert.Equal(t, cdo.OriginStaff, entry.CreatedBy)

	_, err = ledger.EditConsumeEntry(context.Background(), entry.ID,
		dtr.NewDate(2025, time.June, 27), "rest day", cdo.OriginPortal)
	assert.ErrorIs(t, err, cdo.ErrNotEntryOwner)
	_, err = ledger.CancelConsumeEntry(context.Background(), entry.ID, cdo.OriginPortal)
	assert.ErrorIs(t, err, cdo.ErrNotEntryOwner)

	// Staff can.
	edited, err := ledger.EditConsumeEntry(context.Background(), entry.ID,
		dtr.NewDate(2025, time.June, 27), "rest day", cdo.OriginStaff)
	require.NoError(t, err)
	assert.True(t, edited.Date.Equal(dtr.NewDate(2025, time.June, 27)))
}

func TestEditConsumeEntry_DuplicateTargetDate(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 3)
	taken := dtr.NewDate(2025, time.June, 20)
	entries := consume(t, ledger, tx.ID, taken, dtr.NewDate(2025, time.June, 21))

	_, err := ledger.EditConsumeEntry(context.Background(), entries[1].ID, taken, "rest day", cdo.OriginPortal)
	var dup *cdo.DuplicateUseDateError
	assert.ErrorAs(t, err, &dup)
}

func TestEditConsumeEntry_CancelledIsFrozen(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	entry := consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))[0]

	_, err := ledger.CancelConsumeEntry(context.Background(), entry.ID, cdo.OriginPortal)
	require.NoError(t, err)

	_, err = ledger.EditConsumeEntry(context.Background(), entry.ID,
		dtr.NewDate(2025, time.June, 21), "rest day", cdo.OriginPortal)
	assert.ErrorIs(t, err, cdo.ErrEntryNotEditable)
}

func TestEditConsumeEntry_RequiresReason(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	entry := consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))[0]

	_, err := ledger.EditConsumeEntry(context.Background(), entry.ID,
		dtr.NewDate(2025, time.June, 21), "", cdo.OriginPortal)
	assert.ErrorIs(t, err, cdo.ErrMissingReason)
}

// =============================================================================
// EXPIRY
// =============================================================================

// expiredGrant seeds the store with a grant from a past calendar year.
func expiredGrant(t *testing.T, store *cdo.MemoryStore, employeeID string) *cdo.CreditTransaction {
	t.Helper()
	created := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
	tx := &cdo.CreditTransaction{
		ID:           cdo.NewTransactionID(),
		EmployeeID:   employeeID,
		CDONumber:    cdo.FormatCDONumber(dtr.DateOf(created), 1),
		Activity:     "Inventory count",
		WorkDates:    []dtr.Date{dtr.NewDate(2024, time.March, 9)},
		EarnedCredit: decimal.NewFromInt(1),
		UsedCredit:   decimal.Zero,
		Status:       dtr.StatusApproved,
		CreatedAt:    created,
		ExpiresAt:    cdo.ExpiryOf(created),
	}
	require.NoError(t, store.CreateTransaction(context.Background(), tx))
	return tx
}

func TestBalanceOf_ExpiredReadsZero(t *testing.T) {
	ledger, store := newLedger(t)
	tx := expiredGrant(t, store, "emp-1")

	b, err := ledger.BalanceOf(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.True(t, b.Expired)
	assert.True(t, b.Remaining.IsZero())

	// Expiry is a read-time view; the stored row is untouched.
	got, err := store.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.True(t, got.EarnedCredit.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, dtr.StatusApproved, got.Status)
}

func TestCreateConsumeEntries_ExpiredGrant(t *testing.T) {
	ledger, store := newLedger(t)
	tx := expiredGrant(t, store, "emp-1")

	_, err := ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
		TransactionID: tx.ID, Reason: "rest day",
		Dates: []dtr.Date{dtr.NewDate(2025, time.January, 6)},
	})
	assert.ErrorIs(t, err, cdo.ErrExpired)
	assert.True(t, cdo.IsClientError(err))
}

// =============================================================================
// VERSION CONFLICTS
// =============================================================================

// conflictOnce fails the first transaction write with a version conflict,
// simulating a concurrent writer in another process.
type conflictOnce struct {
	cdo.Store
	fired bool
}

func (c *conflictOnce) UpdateTransaction(ctx context.Context, tx *cdo.CreditTransaction) error {
	if !c.fired {
		c.fired = true
		return cdo.ErrConcurrentModification
	}
	return c.Store.UpdateTransaction(ctx, tx)
}

func TestLedger_RetriesVersionConflictOnce(t *testing.T) {
	store := cdo.NewMemoryStore()
	flaky := &conflictOnce{Store: store}
	ledger := cdo.NewLedger(flaky)

	tx, err := ledger.CreateEarnTransaction(context.Background(), cdo.EarnRequest{
		EmployeeID: "emp-1", WorkDates: workDates(7),
	})
	require.NoError(t, err)

	updated, err := ledger.SetTransactionStatus(context.Background(), tx.ID, dtr.StatusApproved)
	require.NoError(t, err, "a single conflict is absorbed by the retry")
	assert.Equal(t, dtr.StatusApproved, updated.Status)
	assert.True(t, flaky.fired)
}

// conflictAlways never lets a transaction write through, simulating a
// persistently losing writer.
type conflictAlways struct {
	cdo.Store
}

func (c *conflictAlways) UpdateTransaction(context.Context, *cdo.CreditTransaction) error {
	return cdo.ErrConcurrentModification
}

func TestSetConsumeEntryStatus_RevertsEntryWhenChargeFails(t *testing.T) {
	// GIVEN: a store where the UsedCredit write can never land
	// WHEN: approving a pending entry
	// THEN: the call errors and the entry is rolled back, so the entry
	//       and the aggregate never disagree

	store := cdo.NewMemoryStore()
	ledger := cdo.NewLedger(store)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	entry := consume(t, ledger, tx.ID, dtr.NewDate(2025, time.June, 20))[0]

	stuck := cdo.NewLedger(&conflictAlways{Store: store})
	_, err := stuck.SetConsumeEntryStatus(context.Background(), entry.ID, dtr.StatusApproved)
	assert.ErrorIs(t, err, cdo.ErrConcurrentModification)

	kept, err := store.GetEntry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, dtr.StatusForApproval, kept.Status, "the entry write is compensated")

	got, err := store.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, err)
	assert.True(t, got.UsedCredit.IsZero())
}

func TestCreateConsumeEntries_ConcurrentSameDateAcrossGrants(t *testing.T) {
	// Two grants, one employee, one date: racing consumes must not both
	// pass the duplicate-use-date check.

	ledger, _ := newLedger(t)
	first := approvedGrant(t, ledger, "emp-1", 2)
	second := approvedGrant(t, ledger, "emp-1", 2)
	date := dtr.NewDate(2025, time.June, 20)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []cdo.TransactionID{first.ID, second.ID} {
		wg.Add(1)
		go func(txID cdo.TransactionID) {
			defer wg.Done()
			_, err := ledger.CreateConsumeEntries(context.Background(), cdo.ConsumeRequest{
				TransactionID: txID, Reason: "rest day", Dates: []dtr.Date{date},
			})
			errs <- err
		}(id)
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		var d *cdo.DuplicateUseDateError
		require.ErrorAs(t, err, &d)
		dup++
	}
	assert.Equal(t, 1, ok, "exactly one consume wins the date")
	assert.Equal(t, 1, dup)
}

// =============================================================================
// RECONCILIATION FEED
// =============================================================================

func TestUseRecords_FeedsReconciliation(t *testing.T) {
	ledger, _ := newLedger(t)
	tx := approvedGrant(t, ledger, "emp-1", 2)
	date := dtr.NewDate(2025, time.June, 20)
	entry := consume(t, ledger, tx.ID, date)[0]
	_, err := ledger.SetConsumeEntryStatus(context.Background(), entry.ID, dtr.StatusApproved)
	require.NoError(t, err)

	june := dtr.Window{From: dtr.NewDate(2025, time.June, 1), To: dtr.NewDate(2025, time.June, 30)}
	records, err := ledger.CDOUses(context.Background(), "emp-1", june)
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.True(t, records[0].Date.Equal(date))
	assert.Equal(t, dtr.StatusApproved, records[0].Status)
	assert.Equal(t, tx.CDONumber, records[0].Reference, "annotation shows the grant's reference number")

	// Dates outside the asked window are filtered out.
	july := dtr.Window{From: dtr.NewDate(2025, time.July, 1), To: dtr.NewDate(2025, time.July, 31)}
	records, err = ledger.CDOUses(context.Background(), "emp-1", july)
	require.NoError(t, err)
	assert.Empty(t, records)
}
