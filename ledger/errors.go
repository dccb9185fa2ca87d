/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All ledger error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Balance errors - Spend exceeding available balance
  2. Entry errors   - Structurally invalid entries
  3. Drift errors   - Projection/ledger disagreement found by Reconcile

USAGE:
  if errors.Is(err, ledger.ErrInsufficientBalance) { ... }

SEE ALSO:
  - ledger.go: Returns these errors from Append/Issue
  - projection.go: Returns InsufficientBalanceError from Apply
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a spend would drive a token
	// balance negative. The ledger never records such an entry.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidEntry is returned for structurally invalid draft entries.
	ErrInvalidEntry = errors.New("invalid ledger entry")

	// ErrProjectionDrift is returned by Reconcile when the cached balance
	// disagrees with a full replay of the ledger.
	ErrProjectionDrift = errors.New("projection drift detected")

	// ErrStoreUnavailable is returned when the persistence collaborator fails.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	AccountID AccountID
	Token     Token
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for %s: available %s, requested %s",
		e.Token, e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// InvalidEntryError describes which field of a draft entry is malformed.
type InvalidEntryError struct {
	Field  string
	Reason string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid ledger entry: %s %s", e.Field, e.Reason)
}

func (e *InvalidEntryError) Unwrap() error { return ErrInvalidEntry }

// DriftError reports a projection/ledger mismatch for one account+token.
type DriftError struct {
	AccountID AccountID
	Token     Token
	Cached    decimal.Decimal
	Replayed  decimal.Decimal
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("projection drift for %s/%s: cached %s, ledger replay %s",
		e.AccountID, e.Token, e.Cached, e.Replayed)
}

func (e *DriftError) Unwrap() error { return ErrProjectionDrift }

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrInvalidEntry)
}
