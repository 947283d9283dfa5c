/*
errors.go - CDO ledger error taxonomy

PURPOSE:
  Sentinel errors for every rejection the ledger can make, so handlers
  can map them to status codes with errors.Is instead of string matching.
  Validation failures are client errors; ErrConcurrentModification is
  retryable and the ledger retries it once itself.
*/
package cdo

import (
	"errors"
	"fmt"

	"github.com/hrsuite/dtr-engine/dtr"
)

// ==== SENTINEL ERRORS ====

var (
	// ErrTransactionNotFound / ErrEntryNotFound: unknown identifier.
	ErrTransactionNotFound = errors.New("cdo transaction not found")
	ErrEntryNotFound       = errors.New("cdo consume entry not found")

	// ErrEmptyWorkdateSet: an earn or consume request named no dates.
	ErrEmptyWorkdateSet = errors.New("at least one work date is required")

	// ErrTransactionNotApproved: credits can only be consumed from an
	// approved transaction.
	ErrTransactionNotApproved = errors.New("credit transaction is not approved")

	// ErrExpired: the credit's calendar year has ended.
	ErrExpired = errors.New("credit transaction has expired")

	// ErrMissingReason: every consume entry must say why.
	ErrMissingReason = errors.New("a reason is required")

	// ErrInsufficientCredits: earned minus used minus pending cannot
	// cover the request.
	ErrInsufficientCredits = errors.New("insufficient remaining credits")

	// ErrEntryNotEditable: approved and cancelled entries are frozen.
	// Approved entries only move through the staff status endpoint.
	ErrEntryNotEditable = errors.New("consume entry can no longer be edited")

	// ErrNotEntryOwner: portal users may only modify portal-filed entries.
	ErrNotEntryOwner = errors.New("entry was filed by staff and cannot be modified from the portal")

	// ErrInvalidStatus: a status transition the ledger does not allow.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrConcurrentModification: an optimistic-lock conflict on write.
	ErrConcurrentModification = errors.New("record was modified concurrently")
)

// DuplicateUseDateError reports an attempt to charge the same day twice
// against one employee's credits, either within the request or against an
// entry already on file.
type DuplicateUseDateError struct {
	EmployeeID string
	Date       dtr.Date
	ExistingID EntryID
	InRequest  bool
}

func (e *DuplicateUseDateError) Error() string {
	if e.InRequest {
		return fmt.Sprintf("duplicate use date in request: %s listed more than once", e.Date)
	}
	return fmt.Sprintf("use date already charged: %s (entry %s)", e.Date, e.ExistingID)
}

// IsClientError reports whether err was caused by bad caller input, for
// HTTP 4xx mapping.
func IsClientError(err error) bool {
	var dup *DuplicateUseDateError
	switch {
	case errors.As(err, &dup),
		errors.Is(err, ErrEmptyWorkdateSet),
		errors.Is(err, ErrTransactionNotApproved),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrMissingReason),
		errors.Is(err, ErrInsufficientCredits),
		errors.Is(err, ErrEntryNotEditable),
		errors.Is(err, ErrNotEntryOwner),
		errors.Is(err, ErrInvalidStatus):
		return true
	}
	return false
}

// IsNotFound reports whether err means an unknown identifier.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound) || errors.Is(err, ErrEntryNotFound)
}

// IsRetryable reports whether the operation may succeed if replayed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
