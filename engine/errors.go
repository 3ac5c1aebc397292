/*
errors.go - Centralized error types for the engine

PURPOSE:
  All engine error types in one place. The taxonomy is small:

  1. Validation errors - invalid invoice shape/fields, surfaced to the
     immediate caller at Add/Update. The operation is rejected whole.
  2. Not-found - Remove/Update/TogglePaid on an unknown id is a no-op,
     never an error (idempotent-delete semantics).
  3. Corrupt-record-on-load - absorbed inside the repository/ledger:
     logged, dropped, never returned per-record.
  4. Persistence failures - returned to the caller, but the in-memory
     mutation has already happened ("live but not yet durable").

USAGE:
  var inv *engine.InvalidInvoiceError
  if errors.As(err, &inv) { ... inv.Field ... }

SEE ALSO:
  - repository.go: Raises validation errors
  - api/handlers.go: Maps these to HTTP status codes
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInvoice is the root of every invoice validation failure.
	ErrInvalidInvoice = errors.New("invalid invoice")

	// ErrInvalidQuarterKey is returned for quarter keys that do not parse.
	ErrInvalidQuarterKey = errors.New("invalid quarter key")

	// ErrInvalidFirm is returned when a firm value is outside the enumeration.
	ErrInvalidFirm = errors.New("unknown firm")

	// ErrStoreUnavailable wraps failures talking to the backing record store.
	// The in-memory state is still valid when this is returned.
	ErrStoreUnavailable = errors.New("record store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvalidInvoiceError reports which field of an invoice failed validation.
type InvalidInvoiceError struct {
	ID     InvoiceID
	Field  string
	Reason string
}

func (e *InvalidInvoiceError) Error() string {
	return fmt.Sprintf("invalid invoice %q: %s %s", e.ID, e.Field, e.Reason)
}

func (e *InvalidInvoiceError) Unwrap() error { return ErrInvalidInvoice }

// StoreError wraps a record store failure with the operation that hit it.
type StoreError struct {
	Op  string // "put", "delete", "load"
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return ErrStoreUnavailable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInvoice) ||
		errors.Is(err, ErrInvalidQuarterKey) ||
		errors.Is(err, ErrInvalidFirm)
}

// IsStoreError reports whether the error came from the persistence backend.
// The caller's change is live in memory but not yet durable.
func IsStoreError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
