/*
simplify.go - Debt simplification into a minimal settlement plan

PURPOSE:
  Turns net positions into an ordered list of transfers that, once applied,
  drive every position to zero within Epsilon, using the fewest possible
  transfers.

ALGORITHM (greedy matching):
  1. Partition users into creditors (net > Epsilon) and debtors
     (net < -Epsilon); users within Epsilon of zero are already settled.
  2. Repeatedly match the debtor with the largest outstanding debit against
     the creditor with the largest outstanding credit and transfer
     min(debit, credit). Drop either side once its remainder is within
     Epsilon of zero.
  3. Stop when no creditors or debtors remain.

  Every transfer fully resolves at least one party, so the plan has at most
  min(|creditors|, |debtors|) <= n-1 transfers for n unsettled users, which
  is minimal for this netting problem.

DETERMINISM:
  Ties on magnitude are broken by lower user id, on both sides. The result
  does not depend on map iteration order.
*/
package ledger

import "github.com/shopspring/decimal"

type party struct {
	id     UserID
	amount decimal.Decimal // always a positive magnitude
}

// Simplify reduces net positions to a minimal ordered settlement plan.
// Applying every transfer (sender net += amount, receiver net -= amount
// from the debt's perspective) settles every user within Epsilon.
func Simplify(positions map[UserID]NetPosition) []SettlementTransfer {
	var creditors, debtors []party
	for id, pos := range positions {
		switch {
		case pos.Net.GreaterThan(Epsilon):
			creditors = append(creditors, party{id: id, amount: pos.Net})
		case pos.Net.LessThan(Epsilon.Neg()):
			debtors = append(debtors, party{id: id, amount: pos.Net.Neg()})
		}
	}

	var plan []SettlementTransfer
	for len(debtors) > 0 && len(creditors) > 0 {
		di := largest(debtors)
		ci := largest(creditors)

		amount := decimal.Min(debtors[di].amount, creditors[ci].amount)
		plan = append(plan, SettlementTransfer{
			FromUserID: debtors[di].id,
			ToUserID:   creditors[ci].id,
			Amount:     amount,
		})

		debtors[di].amount = debtors[di].amount.Sub(amount)
		creditors[ci].amount = creditors[ci].amount.Sub(amount)

		if debtors[di].amount.LessThanOrEqual(Epsilon) {
			debtors = remove(debtors, di)
		}
		if creditors[ci].amount.LessThanOrEqual(Epsilon) {
			creditors = remove(creditors, ci)
		}
	}
	return plan
}

// largest returns the index of the party with the greatest outstanding
// amount, breaking ties by lower user id so the plan is deterministic.
func largest(parties []party) int {
	best := 0
	for i := 1; i < len(parties); i++ {
		switch {
		case parties[i].amount.GreaterThan(parties[best].amount):
			best = i
		case parties[i].amount.Equal(parties[best].amount) && parties[i].id < parties[best].id:
			best = i
		}
	}
	return best
}

func remove(parties []party, i int) []party {
	return append(parties[:i], parties[i+1:]...)
}
