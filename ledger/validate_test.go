/*
validate_test.go - Structural validation tests

Validation collects every violation in one pass instead of stopping at the
first, so a caller can surface all data problems together.
*/
package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/settle-engine/ledger"
)

func TestValidate_CleanSnapshot(t *testing.T) {
	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 100)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 50),
			share("exp-1", "u2", 50),
		},
		Payments: []ledger.Payment{payment("pay-1", "u2", "u1", 10)},
	}

	assert.Empty(t, ledger.Validate(snap))
}

func TestValidate_EmptySplit(t *testing.T) {
	// GIVEN: An expense with zero shares
	// THEN: EmptySplit is reported, and no division is ever attempted

	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 100)},
	}

	violations := ledger.Validate(snap)
	require.Len(t, violations, 1)
	assert.Equal(t, ledger.ViolationEmptySplit, violations[0].Kind)
	assert.Equal(t, ledger.ExpenseID("exp-1"), violations[0].ExpenseID)
}

func TestValidate_SplitMismatch(t *testing.T) {
	// GIVEN: Shares summing to 95 against an expense amount of 100
	// THEN: SplitMismatch is reported with expected and actual sums

	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 100)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 50),
			share("exp-1", "u2", 45),
		},
	}

	violations := ledger.Validate(snap)
	require.Len(t, violations, 1)
	v := violations[0]
	assert.Equal(t, ledger.ViolationSplitMismatch, v.Kind)
	assert.Equal(t, ledger.ExpenseID("exp-1"), v.ExpenseID)
	assert.True(t, v.Expected.Equal(amt(100)))
	assert.True(t, v.Actual.Equal(amt(95)))
}

func TestValidate_SplitMismatchWithinEpsilonTolerated(t *testing.T) {
	// Rounding residue up to one cent is not a violation.
	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 100)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 33.33),
			share("exp-1", "u2", 33.33),
			share("exp-1", "u3", 33.33),
		},
	}

	assert.Empty(t, ledger.Validate(snap))
}

func TestValidate_OrphanShare(t *testing.T) {
	// GIVEN: A clean 100 = 50+50 expense plus a share pointing at an
	//        expense that is not in the snapshot
	// THEN: OrphanShare is reported; without it the stray debit would
	//       pass validation and break conservation

	snap := ledger.Snapshot{
		GroupID:  "grp-1",
		Expenses: []ledger.Expense{expense("exp-1", "u1", 100)},
		Shares: []ledger.ExpenseShare{
			share("exp-1", "u1", 50),
			share("exp-1", "u2", 50),
			share("exp-ghost", "u2", 40),
		},
	}

	violations := ledger.Validate(snap)
	require.Len(t, violations, 1)
	v := violations[0]
	assert.Equal(t, ledger.ViolationOrphanShare, v.Kind)
	assert.Equal(t, ledger.ExpenseID("exp-ghost"), v.ExpenseID)
	assert.True(t, v.Actual.Equal(amt(40)))
}

func TestValidate_InvalidPayment(t *testing.T) {
	snap := ledger.Snapshot{
		GroupID: "grp-1",
		Payments: []ledger.Payment{
			payment("pay-1", "u1", "u2", 0),
			payment("pay-2", "u1", "u2", -5),
		},
	}

	violations := ledger.Validate(snap)
	require.Len(t, violations, 2)
	for _, v := range violations {
		assert.Equal(t, ledger.ViolationInvalidPayment, v.Kind)
	}
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	// GIVEN: A snapshot with an empty split, a mismatched split, and a bad
	//        payment at the same time
	// THEN: All three are returned together, not one at a time

	snap := ledger.Snapshot{
		GroupID: "grp-1",
		Expenses: []ledger.Expense{
			expense("exp-empty", "u1", 40),
			expense("exp-short", "u2", 100),
		},
		Shares: []ledger.ExpenseShare{
			share("exp-short", "u1", 90),
		},
		Payments: []ledger.Payment{payment("pay-bad", "u1", "u2", -1)},
	}

	violations := ledger.Validate(snap)
	require.Len(t, violations, 3)

	kinds := make(map[ledger.ViolationKind]int)
	for _, v := range violations {
		kinds[v.Kind]++
	}
	assert.Equal(t, 1, kinds[ledger.ViolationEmptySplit])
	assert.Equal(t, 1, kinds[ledger.ViolationSplitMismatch])
	assert.Equal(t, 1, kinds[ledger.ViolationInvalidPayment])
}
