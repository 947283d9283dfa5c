/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All reconciliation-path error types in one place. The ledger package
  wraps these (and adds its own) with domain context.

ERROR CATEGORIES:
  1. View errors - Invalid filter/period combinations
  2. Source errors - Snapshot fetch failures (non-fatal, fail-soft)
  3. Lookup errors - Missing entities

USAGE:
  Callers classify with errors.Is():

    if errors.Is(err, dtr.ErrInvalidPeriod) {
        // reset the sub-period selector instead of crashing
    }
*/
package dtr

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriod is returned when a sub-period is requested for a
	// window filter that does not support halves (Today, Last2Weeks).
	// Callers must reset the sub-period rather than abort.
	ErrInvalidPeriod = errors.New("invalid period: sub-period not supported by filter")

	// ErrEntityNotFound is returned when a referenced employee, shift, or
	// record does not exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrSourceFetchFailed marks a snapshot source that could not be read.
	// Reconciliation degrades the source to an empty collection and
	// continues; the failure is reported on the Report, never fatal.
	ErrSourceFetchFailed = errors.New("source fetch failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SourceError records which snapshot source failed during a fetch.
type SourceError struct {
	Source string // "punches", "leave", "holidays", ...
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return ErrSourceFetchFailed }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound)
}
