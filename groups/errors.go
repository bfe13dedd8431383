/*
errors.go - Centralized error types for the domain layer

PURPOSE:
  All domain errors in one place. Sentinels for errors.Is, structured
  errors for context, and predicates the HTTP layer uses to pick a status
  code without knowing individual errors.
*/
package groups

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/settle-engine/ledger"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrGroupNotFound is returned when a referenced group doesn't exist.
	ErrGroupNotFound = errors.New("group not found")

	// ErrUserNotFound is returned when a referenced user doesn't exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrExpenseNotFound is returned when a referenced expense doesn't exist.
	ErrExpenseNotFound = errors.New("expense not found")

	// ErrPaymentNotFound is returned when a referenced payment doesn't exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrDuplicateMember is returned when an email already belongs to a
	// member of the group.
	ErrDuplicateMember = errors.New("member with this email already in group")

	// ErrNotMember is returned when an expense or payment references a user
	// outside the group.
	ErrNotMember = errors.New("user is not a member of the group")

	// ErrGroupHasExpenses is returned when deleting a group that still has
	// expenses attached.
	ErrGroupHasExpenses = errors.New("group still has expenses")

	// ErrNonPositiveAmount is returned when an expense or payment amount
	// is zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrEmptyShares is returned when an expense is recorded or edited with
	// no shares at all.
	ErrEmptyShares = errors.New("expense must have at least one share")

	// ErrDuplicateShare is returned when the same user appears twice in one
	// expense's share set.
	ErrDuplicateShare = errors.New("duplicate share for user")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ShareSumError reports a share set whose sum diverges from the expense
// amount beyond ledger.Epsilon. Caught at write time so the store never
// holds an expense that would fail snapshot validation.
type ShareSumError struct {
	ExpenseID ledger.ExpenseID
	Expected  decimal.Decimal
	Actual    decimal.Decimal
}

func (e *ShareSumError) Error() string {
	return fmt.Sprintf("shares sum to %s, expected %s", e.Actual, e.Expected)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrExpenseNotFound) ||
		errors.Is(err, ErrPaymentNotFound)
}

// IsConflict returns true if the error is a state conflict rather than bad
// input: duplicates and refusals to delete.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateMember) ||
		errors.Is(err, ErrGroupHasExpenses)
}

// IsClientError returns true if the error is due to invalid input.
func IsClientError(err error) bool {
	var shareSum *ShareSumError
	return errors.Is(err, ErrNonPositiveAmount) ||
		errors.Is(err, ErrEmptyShares) ||
		errors.Is(err, ErrDuplicateShare) ||
		errors.Is(err, ErrNotMember) ||
		errors.As(err, &shareSum)
}
