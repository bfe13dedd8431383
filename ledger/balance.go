/*
balance.go - Net position calculation

PURPOSE:
  Reduces a snapshot to a per-user net position. This is the central
  calculation that answers "who owes whom, on net, across the whole group?"

ALGORITHM:
  Per expense:
    - the payer is credited the full expense amount (they advanced the money)
    - every user with a share is debited exactly their share amount
    - a payer who also holds a share gets both entries; they net naturally
  Per payment (payer -> receiver, amount):
    - evidence that `amount` of outstanding debt has already been cleared:
      the payer is credited and the receiver debited by the same amount
  Finally net = credit - debit for each user.

  Shares are explicit weights. There is NO implicit equal split by share
  count; an equal split is represented by equal share amounts.

CONSERVATION INVARIANT:
  For any snapshot that passed validation, the nets across all users sum to
  zero within Epsilon. Each expense adds its amount once as credit and once
  (spread across shares) as debit; each payment adds equal and opposite
  entries.

REFUSAL:
  If validation finds violations the calculation fails with
  InconsistentLedgerError instead of producing a misleading answer.

SEE ALSO:
  - validate.go: the checks that gate this computation
  - simplify.go: turns net positions into a settlement plan
*/
package ledger

import "github.com/shopspring/decimal"

// ComputeNetPositions reduces a snapshot to a net position per user.
// It validates the snapshot first and returns InconsistentLedgerError
// (carrying the full violation list) if any check fails.
func ComputeNetPositions(snap Snapshot) (map[UserID]NetPosition, error) {
	if violations := Validate(snap); len(violations) > 0 {
		return nil, &InconsistentLedgerError{GroupID: snap.GroupID, Violations: violations}
	}

	type accumulator struct {
		credit decimal.Decimal
		debit  decimal.Decimal
	}
	acc := make(map[UserID]*accumulator)
	touch := func(id UserID) *accumulator {
		a, ok := acc[id]
		if !ok {
			a = &accumulator{credit: decimal.Zero, debit: decimal.Zero}
			acc[id] = a
		}
		return a
	}

	for _, expense := range snap.Expenses {
		touch(expense.PayerID).credit = acc[expense.PayerID].credit.Add(expense.Amount)
	}
	for _, share := range snap.Shares {
		touch(share.UserID).debit = acc[share.UserID].debit.Add(share.Amount)
	}
	for _, payment := range snap.Payments {
		touch(payment.PayerID).credit = acc[payment.PayerID].credit.Add(payment.Amount)
		touch(payment.ReceiverID).debit = acc[payment.ReceiverID].debit.Add(payment.Amount)
	}

	positions := make(map[UserID]NetPosition, len(acc))
	for id, a := range acc {
		positions[id] = NetPosition{
			UserID: id,
			Credit: a.credit,
			Debit:  a.debit,
			Net:    a.credit.Sub(a.debit),
		}
	}
	return positions, nil
}
