/*
Package ledger provides the balance and settlement core for shared-expense
groups.

PURPOSE:
  Given an immutable snapshot of one group's expenses, per-expense shares,
  and direct payments, this package computes a consistent net position for
  every member and derives a minimal set of transfers that would zero the
  group's outstanding debt.

KEY CONCEPTS IN THIS FILE (types.go):
  - Expense: a cost advanced by one payer, apportioned across shares
  - ExpenseShare: one user's explicit allocated portion of one expense
  - Payment: a direct settling transfer between two users
  - NetPosition: derived credit/debit/net per user, never persisted
  - SettlementTransfer: a suggested payment that reduces group debt

DESIGN PRINCIPLES:
  1. Immutability: all inputs are value types, computation never mutates them
  2. Precision: uses decimal.Decimal to avoid floating-point money errors
  3. Explicit shares: a share amount is authoritative; there is no implicit
     equal-split path (an equal split is just equal share amounts)
  4. Conservation: accounting reassigns value, it never creates or destroys it

SEE ALSO:
  - snapshot.go: the immutable input view
  - validate.go: structural invariants checked before computation
  - balance.go: net position calculation
  - simplify.go: debt simplification
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type GroupID string
type ExpenseID string
type PaymentID string

// =============================================================================
// EPSILON - Numeric tolerance for money comparison
// =============================================================================

// Epsilon is the tolerance used to treat near-zero decimal differences as
// equal (0.01, one cent). Share sums are checked against expense amounts
// within this tolerance, and net positions within it of zero count as
// settled.
var Epsilon = decimal.New(1, -2)

// WithinEpsilon reports whether a and b differ by at most Epsilon.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// =============================================================================
// LEDGER ENTITIES - Immutable value shapes supplied by the data layer
// =============================================================================

// Expense is a cost paid by one member and apportioned across shares.
// Once its shares are attached it only changes through a wholesale share
// replace or deletion; the core only ever sees it as a value.
type Expense struct {
	ID          ExpenseID
	GroupID     GroupID
	PayerID     UserID
	Amount      decimal.Decimal
	Date        time.Time
	Name        string
	Description string
}

// ExpenseShare is one user's explicit allocated portion of one expense.
// At most one share exists per (expense, user). The sum of an expense's
// share amounts must equal the expense amount within Epsilon.
type ExpenseShare struct {
	ExpenseID ExpenseID
	UserID    UserID
	Amount    decimal.Decimal
}

// Payment is a direct settling transfer between two users, independent of
// any expense. Payments are immutable once recorded; the only lifecycle
// operations are creation and deletion.
type Payment struct {
	ID         PaymentID
	GroupID    GroupID
	PayerID    UserID
	ReceiverID UserID
	Amount     decimal.Decimal
	Date       time.Time
}

// =============================================================================
// COMPUTATION OUTPUTS - Owned by the caller, never cached in entities
// =============================================================================

// NetPosition is a user's derived position across one group's ledger.
// Credit is the amount owed to the user, Debit the amount the user owes,
// Net = Credit - Debit. Recomputed from the snapshot on every query.
type NetPosition struct {
	UserID UserID
	Credit decimal.Decimal
	Debit  decimal.Decimal
	Net    decimal.Decimal
}

// Settled reports whether the position is within Epsilon of zero.
func (p NetPosition) Settled() bool {
	return p.Net.Abs().LessThanOrEqual(Epsilon)
}

// SettlementTransfer is a suggested payment from one user to another that
// would reduce outstanding group debt. Transfers are purely prescriptive;
// recording an actual Payment from one is a separate, explicit action.
type SettlementTransfer struct {
	FromUserID UserID
	ToUserID   UserID
	Amount     decimal.Decimal
}
