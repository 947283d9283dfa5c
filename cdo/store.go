/*
store.go - Persistence contract for the CDO ledger

PURPOSE:
  The ledger talks to storage only through this interface. Two
  implementations exist: the in-memory store here (tests, dev server) and
  the SQLite store under store/sqlite.

CONCURRENCY CONTRACT:
  Update methods compare the record's Version against the stored one and
  return ErrConcurrentModification on mismatch; on success the stored
  version increments. The ledger layers its own per-transaction locking
  on top, so version conflicts only surface across processes.
*/
package cdo

import (
	"context"

	"github.com/hrsuite/dtr-engine/dtr"
)

type Store interface {
	// CreateTransaction persists a new earn transaction.
	CreateTransaction(ctx context.Context, tx *CreditTransaction) error

	// GetTransaction loads one transaction or ErrTransactionNotFound.
	GetTransaction(ctx context.Context, id TransactionID) (*CreditTransaction, error)

	// UpdateTransaction writes back a modified transaction, enforcing the
	// version check.
	UpdateTransaction(ctx context.Context, tx *CreditTransaction) error

	// ListTransactions returns an employee's transactions, newest first.
	// An empty employeeID lists every employee's.
	ListTransactions(ctx context.Context, employeeID string) ([]*CreditTransaction, error)

	// CountTransactionsOn returns how many transactions were created on
	// the given day, for reference numbering.
	CountTransactionsOn(ctx context.Context, day dtr.Date) (int, error)

	// CreateEntries persists a batch of consume entries atomically.
	CreateEntries(ctx context.Context, entries []*ConsumeEntry) error

	// GetEntry loads one entry or ErrEntryNotFound.
	GetEntry(ctx context.Context, id EntryID) (*ConsumeEntry, error)

	// UpdateEntry writes back a modified entry, enforcing the version
	// check.
	UpdateEntry(ctx context.Context, entry *ConsumeEntry) error

	// ListEntries returns a transaction's entries, use date ascending.
	ListEntries(ctx context.Context, txID TransactionID) ([]*ConsumeEntry, error)

	// ListEntriesByEmployee returns all of an employee's entries across
	// transactions, use date ascending.
	ListEntriesByEmployee(ctx context.Context, employeeID string) ([]*ConsumeEntry, error)
}
