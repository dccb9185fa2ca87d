/*
errors.go - Centralized error types for the ride domain

PURPOSE:
  All ride error kinds in one place. Lifecycle and directory operations
  return typed errors rather than degrading silently; the HTTP layer maps
  them to status codes, and callers own user-visible messaging and retry
  prompts. No operation here retries automatically.

ERROR KINDS (mirrors the lifecycle contract):
  ValidationError    Malformed or missing required input
  NotFoundError      Unknown ride/account/vehicle id
  TransitionError    Lifecycle rule violation
  ErrStoreUnavailable Persistence collaborator failure
  (InsufficientBalance lives in the ledger package)

SEE ALSO:
  - lifecycle.go: Returns these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package ride

import (
	"errors"
	"fmt"

	"github.com/riide/ride-engine/ledger"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	ErrStoreUnavailable  = errors.New("ride store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports malformed or missing required input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Kind string // "ride", "account", "vehicle"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// TransitionError reports an operation applied in a state that does not
// permit it. From records the status the ride actually had.
type TransitionError struct {
	RideID RideID
	From   Status
	Op     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s ride %s in status %q", e.Op, e.RideID, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		ledger.IsClientError(err)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
