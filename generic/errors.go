/*
errors.go - Centralized error types for the generic engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Ledger errors - Transaction persistence failures
  2. Validation errors - Business rule violations
  3. Store errors - Database-level failures

USAGE:
  Domain packages can wrap generic errors:

    if errors.Is(err, generic.ErrInsufficientBalance) {
        return &mission.InvalidStakeError{...}
    }

SEE ALSO:
  - ledger.go: Uses these errors
  - store.go: Uses these errors
  - mission/errors.go: Domain errors that unwrap to these
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateIdempotencyKey is returned when a transaction with the same
	// idempotency key already exists. This is expected behavior for retries.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")

	// ErrTransactionFailed is returned when a transaction cannot be persisted.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrInsufficientBalance is returned when a debit exceeds the current balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for non-positive stakes, costs and quotas.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrEntityNotFound is returned when a referenced user doesn't exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrDocumentNotFound is returned by DocumentStore.GetDocument for missing keys.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	EntityID  EntityID
	Available Amount
	Requested Amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s, shortfall %s",
		e.Available.Value.StringFixed(2), e.Requested.Value.StringFixed(2), e.Shortfall().Value.StringFixed(2))
}

// Shortfall is how much more the entity would need.
func (e *InsufficientBalanceError) Shortfall() Amount {
	return e.Requested.Sub(e.Available)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// RequireFunds returns an InsufficientBalanceError when requested > available.
func RequireFunds(entityID EntityID, available, requested Amount) error {
	if requested.GreaterThan(available) {
		return &InsufficientBalanceError{EntityID: entityID, Available: available, Requested: requested}
	}
	return nil
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsConflict returns true for errors that mean "already done".
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateIdempotencyKey)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrDocumentNotFound)
}
