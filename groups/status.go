/*
status.go - Per-expense standing for one member

PURPOSE:
  Answers, for a single expense, whether a given member came out ahead,
  behind, or even. Presentation code uses this to badge each expense row.

SEMANTICS:
  A member's standing on one expense is their net contribution to it:
  the full amount if they paid it, minus their share if they hold one.
  Shares are explicit weights; there is no per-head equal split here.
*/
package groups

import (
	"github.com/shopspring/decimal"

	"github.com/warp/settle-engine/ledger"
)

// ExpenseStanding classifies one member's position on one expense.
type ExpenseStanding string

const (
	StandingCredit      ExpenseStanding = "credit"       // advanced more than their share
	StandingDebt        ExpenseStanding = "debt"         // owes on this expense
	StandingEven        ExpenseStanding = "even"         // involved, nets to zero
	StandingNotInvolved ExpenseStanding = "not_involved" // neither payer nor share holder
)

// StandingFor computes a member's standing on an expense from the expense
// and its shares. Pure; callers pass the share set they already hold.
func StandingFor(expense ledger.Expense, shares []ledger.ExpenseShare, userID ledger.UserID) ExpenseStanding {
	var shareAmount *ledger.ExpenseShare
	for i := range shares {
		if shares[i].UserID == userID {
			shareAmount = &shares[i]
			break
		}
	}

	isPayer := expense.PayerID == userID
	if !isPayer && shareAmount == nil {
		return StandingNotInvolved
	}

	net := decimal.Zero
	if isPayer {
		net = net.Add(expense.Amount)
	}
	if shareAmount != nil {
		net = net.Sub(shareAmount.Amount)
	}

	switch {
	case net.GreaterThan(ledger.Epsilon):
		return StandingCredit
	case net.LessThan(ledger.Epsilon.Neg()):
		return StandingDebt
	default:
		return StandingEven
	}
}
