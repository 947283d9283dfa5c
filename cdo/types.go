/*
types.go - CDO credit ledger core types

PURPOSE:
  Defines the two records the compensatory-day-off ledger is built from:

  CreditTransaction - an earn event. An employee worked activity days and
    was granted day-off credits. Carries the running UsedCredit counter
    and the calendar-year expiry.

  ConsumeEntry - one requested day off charged against a transaction.
    Entries move through the same approval statuses the rest of the
    portal uses; only Approved entries count against UsedCredit.

NUMBERING:
  Transactions get a human-facing reference of the form YYYYMMDDDO-NNN,
  dated by creation day with a per-day sequence. The reference is what
  reconciliation shows in the CDO annotation.

EXPIRY:
  Credits die at the end of the calendar year they were granted in.
  Expiry is enforced at read and consume time; stored rows are never
  mutated by a read.
*/
package cdo

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hrsuite/dtr-engine/dtr"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TransactionID string

type EntryID string

func NewTransactionID() TransactionID { return TransactionID(uuid.NewString()) }

func NewEntryID() EntryID { return EntryID(uuid.NewString()) }

// Origin records which surface created a transaction.
type Origin string

const (
	OriginPortal Origin = "portal" // employee self-service
	OriginStaff  Origin = "staff"  // HR encoding on the employee's behalf
)

// =============================================================================
// CREDIT TRANSACTION - The earn side of the ledger
// =============================================================================

type CreditTransaction struct {
	ID         TransactionID
	EmployeeID string

	// CDONumber is the human-facing reference, YYYYMMDDDO-NNN.
	CDONumber string

	// Activity describes what was worked to earn the credit.
	Activity string

	// WorkDates are the activity days, deduplicated and ascending.
	WorkDates []dtr.Date

	EarnedCredit decimal.Decimal
	UsedCredit   decimal.Decimal

	Status    dtr.Status
	CreatedBy Origin
	CreatedAt time.Time
	ExpiresAt time.Time

	// Version guards concurrent updates; the store rejects stale writes.
	Version int
}

// Expired reports whether the credit is past its calendar-year expiry.
func (t *CreditTransaction) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// =============================================================================
// CONSUME ENTRY - The spend side of the ledger
// =============================================================================

type ConsumeEntry struct {
	ID            EntryID
	TransactionID TransactionID
	EmployeeID    string
	Date          dtr.Date
	Reason        string
	Status        dtr.Status

	// CreatedBy records which surface filed the entry. Portal actors may
	// only edit or cancel portal-filed entries.
	CreatedBy Origin

	CreatedAt time.Time
	Version   int
}

// Active reports whether the entry still holds or reserves credit.
// Cancelled and Returned entries release their reservation.
func (e *ConsumeEntry) Active() bool {
	return e.Status == dtr.StatusApproved || e.Status == dtr.StatusForApproval
}

// UseRecord converts the entry to the reconciliation-facing view.
func (e *ConsumeEntry) UseRecord(reference string) dtr.CDOUseRecord {
	return dtr.CDOUseRecord{
		EmployeeID: e.EmployeeID,
		Date:       e.Date,
		Status:     e.Status,
		Reference:  reference,
	}
}

// =============================================================================
// NUMBERING AND EXPIRY
// =============================================================================

// FormatCDONumber builds the YYYYMMDDDO-NNN reference for the seq-th
// transaction created on day (1-based).
func FormatCDONumber(day dtr.Date, seq int) string {
	return fmt.Sprintf("%04d%02d%02dDO-%03d", day.Year, day.Month, day.Day, seq)
}

// ExpiryOf returns the last instant of the calendar year of grant.
func ExpiryOf(createdAt time.Time) time.Time {
	return time.Date(createdAt.Year(), time.December, 31, 23, 59, 59, 0, createdAt.Location())
}

// normalizeDates deduplicates and sorts ascending.
func normalizeDates(dates []dtr.Date) []dtr.Date {
	seen := make(map[dtr.Date]bool, len(dates))
	var out []dtr.Date
	for _, d := range dates {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
