/*
balance_test.go - Net position calculation tests

CORE DESIGN:
- Net positions are recomputed from the snapshot on every call, never stored
- The payer is credited the full amount; share holders are debited their
  explicit share amounts
- Payments credit the payer and debit the receiver symmetrically
- Nets across a group always sum to zero (conservation)
*/
package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/settle-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func amt(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func expense(id, payer string, amount float64) ledger.Expense {
	return ledger.Expense{
		ID:      ledger.ExpenseID(id),
		GroupID: "grp-1",
		PayerID: ledger.UserID(payer),
		Amount:  amt(amount),
		Date:    time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		Name:    "test expense",
	}
}

func share(expenseID, user string, amount float64) ledger.ExpenseShare {
	return ledger.ExpenseShare{
		ExpenseID: ledger.ExpenseID(expenseID),
		UserID:    ledger.UserID(user),
		Amount:    amt(amount),
	}
}

func payment(id, payer, receiver string, amount float64) ledger.Payment {
	return ledger.Payment{
		ID:         ledger.PaymentID(id),
		GroupID:    "grp-1",
		PayerID:    ledger.UserID(payer),
		ReceiverID: ledger.UserID(receiver),
		Amount:     amt(amount),
		Date:       time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC),
	}
}

func requireNet(t *testing.T, positions map[ledger.UserID]ledger.NetPosition, user string, want float64) {
	t.Helper()
	pos, ok := positions[ledger.UserID(user)]
	require.True(t, ok, "no position for user %s", user)
	assert.True(t, pos.Net.Equal(amt(want)),
		"net for %s: want %v, got %s", user, want, pos.Net)
}

func requireConservation(t *testing.T, positions map[ledger.UserID]ledger.NetPosition) {
	t.Helper()
	sum := decimal.Zero
	for _, pos := range positions {
		sum = sum.Add(pos.Net)
	}
	assert.True(t, sum.Abs().LessThanOrEqual(ledger.Epsilon),
		"nets should sum to zero, got %s", sum)
}

// =============================================================================
// NET POSITION TESTS
// =============================================================================

func TestComputeNetPositions_TwoUserEvenSplit(t *testing.T) {
	// GIVEN: One expense of 100 paid by u1, split 50/50 with u2
	// WHEN: Computing net positions
	// THEN: u1 is owed 50, u2 owes 50

	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 100)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 50),
			share("exp-1", "u2", 50),
		},
	}

	positions, err := ledger.ComputeNetPositions(snap)
	require.NoError(t, err)

	requireNet(t, positions, "u1", 50)
	requireNet(t, positions, "u2", -50)
	requireConservation(t, positions)
}

func TestComputeNetPositions_ThreeUserSplit(t *testing.T) {
	// GIVEN: Expense of 90 paid by u1, shares 30/30/30
	// WHEN: Computing net positions
	// THEN: u1 net +60 (credited 90, debited 30), u2 and u3 each -30

	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 90)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 30),
			share("exp-1", "u2", 30),
			share("exp-1", "u3", 30),
		},
	}

	positions, err := ledger.ComputeNetPositions(snap)
	require.NoError(t, err)

	requireNet(t, positions, "u1", 60)
	requireNet(t, positions, "u2", -30)
	requireNet(t, positions, "u3", -30)
	requireConservation(t, positions)
}

func TestComputeNetPositions_PaymentClearsDebt(t *testing.T) {
	// GIVEN: The three-user split above, then u2 pays u1 their 30
	// WHEN: Computing net positions
	// THEN: u2 is settled, u1's claim shrinks to 30, u3 still owes 30

	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 90)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 30),
			share("exp-1", "u2", 30),
			share("exp-1", "u3", 30),
		},
		Payments: []ledger.Payment{payment("pay-1", "u2", "u1", 30)},
	}

	positions, err := ledger.ComputeNetPositions(snap)
	require.NoError(t, err)

	requireNet(t, positions, "u1", 30)
	requireNet(t, positions, "u2", 0)
	requireNet(t, positions, "u3", -30)
	requireConservation(t, positions)

	assert.True(t, positions["u2"].Settled(), "u2 should be settled after paying")
}

func TestComputeNetPositions_UnevenExplicitShares(t *testing.T) {
	// GIVEN: Expense of 100 paid by u2 with explicit weights 70/30
	// WHEN: Computing net positions
	// THEN: Shares are authoritative weights, not an equal split

	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u2", 100)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 70),
			share("exp-1", "u2", 30),
		},
	}

	positions, err := ledger.ComputeNetPositions(snap)
	require.NoError(t, err)

	requireNet(t, positions, "u1", -70)
	requireNet(t, positions, "u2", 70)
	requireConservation(t, positions)
}

func TestComputeNetPositions_PayerWithoutShare(t *testing.T) {
	// GIVEN: u1 pays 60 but holds no share (u2 and u3 split it)
	// WHEN: Computing net positions
	// THEN: u1 has credit only, no debit

	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 60)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u2", 30),
			share("exp-1", "u3", 30),
		},
	}

	positions, err := ledger.ComputeNetPositions(snap)
	require.NoError(t, err)

	requireNet(t, positions, "u1", 60)
	assert.True(t, positions["u1"].Debit.IsZero(), "payer without share has no debit")
	requireNet(t, positions, "u2", -30)
	requireNet(t, positions, "u3", -30)
}

func TestComputeNetPositions_MultipleExpensesAccumulate(t *testing.T) {
	// GIVEN: Two expenses with different payers
	// WHEN: Computing net positions
	// THEN: Credits and debits accumulate across expenses

	snap := ledger.Snapshot{
		GroupID: "grp-1",
		Expenses: []ledger.Expense{
			expense("exp-1", "u1", 100),
			expense("exp-2", "u2", 40),
		},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 50),
			share("exp-1", "u2", 50),
			share("exp-2", "u1", 20),
			share("exp-2", "u2", 20),
		},
	}

	positions, err := ledger.ComputeNetPositions(snap)
	require.NoError(t, err)

	// u1: credit 100, debit 70 -> +30; u2: credit 40, debit 70 -> -30
	requireNet(t, positions, "u1", 30)
	requireNet(t, positions, "u2", -30)
	requireConservation(t, positions)
}

func TestComputeNetPositions_OrderIndependent(t *testing.T) {
	// GIVEN: The same snapshot with expense/share/payment lists reversed
	// WHEN: Computing net positions for both
	// THEN: Results are identical

	forward := ledger.Snapshot{
		GroupID: "grp-1",
		Expenses: []ledger.Expense{
			expense("exp-1", "u1", 100),
			expense("exp-2", "u3", 30),
		},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 25),
			share("exp-1", "u2", 25),
			share("exp-1", "u3", 50),
			share("exp-2", "u1", 10),
			share("exp-2", "u2", 10),
			share("exp-2", "u3", 10),
		},
		Payments: []ledger.Payment{
			payment("pay-1", "u2", "u1", 10),
			payment("pay-2", "u3", "u1", 5),
		},
	}
	reversed := ledger.Snapshot{
		GroupID:  forward.GroupID,
		Expenses: reverse(forward.Expenses),
		Shares:   reverse(forward.Shares),
		Payments: reverse(forward.Payments),
	}

	a, err := ledger.ComputeNetPositions(forward)
	require.NoError(t, err)
	b, err := ledger.ComputeNetPositions(reversed)
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for id, pos := range a {
		assert.True(t, pos.Net.Equal(b[id].Net), "net for %s differs across orderings", id)
		assert.True(t, pos.Credit.Equal(b[id].Credit), "credit for %s differs across orderings", id)
		assert.True(t, pos.Debit.Equal(b[id].Debit), "debit for %s differs across orderings", id)
	}
}

func TestComputeNetPositions_RefusesInconsistentSnapshot(t *testing.T) {
	// GIVEN: An expense whose shares sum to 95 against an amount of 100
	// WHEN: Computing net positions
	// THEN: Computation is refused with the violation attached, no answer

	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 100)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 50),
			share("exp-1", "u2", 45),
		},
	}

	positions, err := ledger.ComputeNetPositions(snap)
	require.Error(t, err)
	assert.Nil(t, positions)

	var inconsistent *ledger.InconsistentLedgerError
	require.ErrorAs(t, err, &inconsistent)
	require.Len(t, inconsistent.Violations, 1)
	assert.Equal(t, ledger.ViolationSplitMismatch, inconsistent.Violations[0].Kind)
}

func TestComputeNetPositions_RefusesOrphanShare(t *testing.T) {
	// GIVEN: A valid 100 = 50+50 expense plus a 40 share referencing an
	//        expense absent from the snapshot
	// WHEN: Computing net positions
	// THEN: Computation is refused; folding the stray debit would make the
	//       nets sum to -40 and silently break conservation

	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 100)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 50),
			share("exp-1", "u2", 50),
			share("exp-ghost", "u2", 40),
		},
	}

	positions, err := ledger.ComputeNetPositions(snap)
	require.ErrorIs(t, err, ledger.ErrInconsistentLedger)
	assert.Nil(t, positions)

	var inconsistent *ledger.InconsistentLedgerError
	require.ErrorAs(t, err, &inconsistent)
	require.Len(t, inconsistent.Violations, 1)
	assert.Equal(t, ledger.ViolationOrphanShare, inconsistent.Violations[0].Kind)
}

func reverse[T any](in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}
