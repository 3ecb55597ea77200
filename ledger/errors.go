/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The aggregate functions themselves never fail; these errors come from
  the barrier (not ready), from parsing, and from the record stores.

ERROR CATEGORIES:
  1. Readiness errors - Barrier not satisfied yet
  2. Validation errors - Unknown fuel type, malformed record
  3. Store errors - Duplicate or missing references

USAGE:
  if errors.Is(err, ledger.ErrNotReady) {
      // render a "loading" placeholder
  }

SEE ALSO:
  - collection.go: Produces NotReadyError
  - store.go: Uses the store errors
*/
package ledger

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotReady is returned when a computation is requested before every
	// collection it depends on has loaded.
	ErrNotReady = errors.New("collections not loaded")

	// ErrUnknownFuelType is returned when a fuel type is outside the closed set.
	ErrUnknownFuelType = errors.New("unknown fuel type")

	// ErrCustomerNotFound is returned when a referenced customer doesn't exist.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrSupplierNotFound is returned when a referenced supplier doesn't exist.
	ErrSupplierNotFound = errors.New("supplier not found")

	// ErrDuplicateRecord is returned when a record id is appended twice.
	ErrDuplicateRecord = errors.New("duplicate record id")

	// ErrInvalidRecord is returned by the ingestion layer for malformed input.
	ErrInvalidRecord = errors.New("invalid record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotReadyError lists the collections that are still loading.
type NotReadyError struct {
	Generation Generation
	Pending    []SourceName
}

func (e *NotReadyError) Error() string {
	names := make([]string, len(e.Pending))
	for i, p := range e.Pending {
		names[i] = string(p)
	}
	return fmt.Sprintf("collections not loaded: waiting for %s", strings.Join(names, ", "))
}

func (e *NotReadyError) Unwrap() error {
	return ErrNotReady
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotReady returns true if the error means "still loading".
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownFuelType) ||
		errors.Is(err, ErrDuplicateRecord) ||
		errors.Is(err, ErrInvalidRecord)
}

// IsNotFound returns true if the error indicates a missing reference.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrSupplierNotFound)
}
