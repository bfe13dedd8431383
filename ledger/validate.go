/*
validate.go - Structural invariants checked before any balance computation

PURPOSE:
  A snapshot must be structurally sound before net positions are computed
  from it. Validation is purely observational and collects EVERY violation
  rather than short-circuiting, so a caller can surface and fix all problems
  in one pass.

CHECKS:
  EmptySplit:     an expense has no shares at all
  SplitMismatch:  an expense's share amounts do not sum to its amount
                  (beyond Epsilon)
  OrphanShare:    a share references an expense absent from the snapshot
                  (its debit would have no matching credit, so nets would
                  no longer sum to zero)
  InvalidPayment: a payment with a non-positive amount

WHY NOT AUTO-CORRECT?
  A mismatched split is a data-integrity problem at the source. Guessing a
  "best effort" balance from inconsistent data would silently violate
  conservation, so the core refuses instead (see balance.go).

SEE ALSO:
  - errors.go: InconsistentLedgerError carrying the violation list
  - balance.go: refuses computation when violations exist
*/
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VIOLATIONS
// =============================================================================

type ViolationKind string

const (
	ViolationEmptySplit     ViolationKind = "empty_split"
	ViolationSplitMismatch  ViolationKind = "split_mismatch"
	ViolationOrphanShare    ViolationKind = "orphan_share"
	ViolationInvalidPayment ViolationKind = "invalid_payment"
)

// Violation describes one structural problem found in a snapshot.
// ExpenseID is set for split and orphan-share violations, PaymentID for
// payment violations. Expected and Actual carry the expense amount and
// share sum for SplitMismatch; Actual alone carries the stray amount for
// OrphanShare and InvalidPayment.
type Violation struct {
	Kind      ViolationKind
	ExpenseID ExpenseID
	PaymentID PaymentID
	Expected  decimal.Decimal
	Actual    decimal.Decimal
}

func (v Violation) String() string {
	switch v.Kind {
	case ViolationEmptySplit:
		return fmt.Sprintf("expense %s has no shares", v.ExpenseID)
	case ViolationSplitMismatch:
		return fmt.Sprintf("expense %s shares sum to %s, expected %s",
			v.ExpenseID, v.Actual, v.Expected)
	case ViolationOrphanShare:
		return fmt.Sprintf("share of %s references unknown expense %s",
			v.Actual, v.ExpenseID)
	case ViolationInvalidPayment:
		return fmt.Sprintf("payment %s has non-positive amount %s",
			v.PaymentID, v.Actual)
	default:
		return string(v.Kind)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the structural invariants of a snapshot and returns the
// full list of violations. An empty result means the snapshot is computable.
// Validate has no side effects.
func Validate(snap Snapshot) []Violation {
	var violations []Violation

	known := make(map[ExpenseID]bool, len(snap.Expenses))
	for _, expense := range snap.Expenses {
		known[expense.ID] = true
	}
	for _, share := range snap.Shares {
		if !known[share.ExpenseID] {
			violations = append(violations, Violation{
				Kind:      ViolationOrphanShare,
				ExpenseID: share.ExpenseID,
				Actual:    share.Amount,
			})
		}
	}

	byExpense := snap.SharesByExpense()
	for _, expense := range snap.Expenses {
		shares := byExpense[expense.ID]
		if len(shares) == 0 {
			violations = append(violations, Violation{
				Kind:      ViolationEmptySplit,
				ExpenseID: expense.ID,
			})
			continue
		}

		sum := decimal.Zero
		for _, share := range shares {
			sum = sum.Add(share.Amount)
		}
		if !WithinEpsilon(sum, expense.Amount) {
			violations = append(violations, Violation{
				Kind:      ViolationSplitMismatch,
				ExpenseID: expense.ID,
				Expected:  expense.Amount,
				Actual:    sum,
			})
		}
	}

	for _, payment := range snap.Payments {
		if !payment.Amount.IsPositive() {
			violations = append(violations, Violation{
				Kind:      ViolationInvalidPayment,
				PaymentID: payment.ID,
				Actual:    payment.Amount,
			})
		}
	}

	return violations
}
