/*
sqlite_test.go - SQLite store tests against an in-memory database

Exercises the same contract the memory store satisfies, plus the pieces
only SQL can get wrong: transactional share replacement, cascading expense
deletion, and the unique (group, email) constraint.
*/
package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/settle-engine/groups"
	"github.com/warp/settle-engine/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seedGroup(t *testing.T, store *Store) groups.Group {
	t.Helper()
	group := groups.Group{
		ID:        "grp-1",
		Name:      "Flat",
		CreatedAt: time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveGroup(context.Background(), group))
	return group
}

func seedExpense(t *testing.T, store *Store, id string, shares map[string]string) ledger.Expense {
	t.Helper()
	expense := ledger.Expense{
		ID:      ledger.ExpenseID(id),
		GroupID: "grp-1",
		PayerID: "u1",
		Amount:  decimal.RequireFromString("100"),
		Date:    time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		Name:    "rent",
	}
	var shareRows []ledger.ExpenseShare
	for user, amount := range shares {
		shareRows = append(shareRows, ledger.ExpenseShare{
			ExpenseID: expense.ID,
			UserID:    ledger.UserID(user),
			Amount:    decimal.RequireFromString(amount),
		})
	}
	require.NoError(t, store.CreateExpense(context.Background(), expense, shareRows))
	return expense
}

func TestGroupRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	group := seedGroup(t, store)

	got, err := store.GetGroup(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, group.Name, got.Name)
	assert.True(t, group.CreatedAt.Equal(got.CreatedAt))

	_, err = store.GetGroup(ctx, "missing")
	require.ErrorIs(t, err, groups.ErrGroupNotFound)

	require.NoError(t, store.DeleteGroup(ctx, group.ID))
	require.ErrorIs(t, store.DeleteGroup(ctx, group.ID), groups.ErrGroupNotFound)
}

func TestMemberEmailUniquePerGroup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedGroup(t, store)

	user := groups.User{ID: "u1", Name: "Ana", Email: "ana@example.com", CreatedAt: time.Now()}
	require.NoError(t, store.AddMember(ctx, "grp-1", user))

	dup := groups.User{ID: "u2", Name: "Other Ana", Email: "ana@example.com", CreatedAt: time.Now()}
	assert.Error(t, store.AddMember(ctx, "grp-1", dup),
		"same normalized email in one group should hit the unique constraint")

	members, err := store.ListMembers(ctx, "grp-1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "ana@example.com", members[0].Email)
}

func TestExpenseSharesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedGroup(t, store)
	expense := seedExpense(t, store, "exp-1", map[string]string{"u1": "50", "u2": "50"})

	got, err := store.GetExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("100")),
		"decimal amount must survive the TEXT round trip exactly")

	shares, err := store.SharesForExpense(ctx, expense.ID)
	require.NoError(t, err)
	require.Len(t, shares, 2)

	all, err := store.ListShares(ctx, "grp-1")
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestReplaceShares_Transactional(t *testing.T) {
	// GIVEN: An expense split 50/50
	// WHEN: The set is replaced wholesale
	// THEN: Only the new set remains; replacing a missing expense fails

	store := newTestStore(t)
	ctx := context.Background()
	seedGroup(t, store)
	expense := seedExpense(t, store, "exp-1", map[string]string{"u1": "50", "u2": "50"})

	newShares := []ledger.ExpenseShare{
		{ExpenseID: expense.ID, UserID: "u1", Amount: decimal.RequireFromString("70")},
		{ExpenseID: expense.ID, UserID: "u2", Amount: decimal.RequireFromString("30")},
	}
	require.NoError(t, store.ReplaceShares(ctx, expense.ID, newShares))

	shares, err := store.SharesForExpense(ctx, expense.ID)
	require.NoError(t, err)
	require.Len(t, shares, 2)
	sum := decimal.Zero
	for _, share := range shares {
		sum = sum.Add(share.Amount)
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("100")))

	err = store.ReplaceShares(ctx, "missing", newShares)
	require.ErrorIs(t, err, groups.ErrExpenseNotFound)
}

func TestDeleteExpense_CascadesShares(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedGroup(t, store)
	expense := seedExpense(t, store, "exp-1", map[string]string{"u1": "50", "u2": "50"})

	require.NoError(t, store.DeleteExpense(ctx, expense.ID))

	shares, err := store.SharesForExpense(ctx, expense.ID)
	require.NoError(t, err)
	assert.Empty(t, shares)

	require.ErrorIs(t, store.DeleteExpense(ctx, expense.ID), groups.ErrExpenseNotFound)
}

func TestSnapshot_SingleConsistentRead(t *testing.T) {
	// GIVEN: A group with one expense and one payment
	// WHEN: Snapshot is taken (one read transaction, not three queries)
	// THEN: Expenses, shares, and payments arrive together; unknown groups
	//       are reported as not found

	store := newTestStore(t)
	ctx := context.Background()
	seedGroup(t, store)
	seedExpense(t, store, "exp-1", map[string]string{"u1": "50", "u2": "50"})

	payment := ledger.Payment{
		ID:         "pay-1",
		GroupID:    "grp-1",
		PayerID:    "u2",
		ReceiverID: "u1",
		Amount:     decimal.RequireFromString("25"),
		Date:       time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreatePayment(ctx, payment))

	snap, err := store.Snapshot(ctx, "grp-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.GroupID("grp-1"), snap.GroupID)
	require.Len(t, snap.Expenses, 1)
	require.Len(t, snap.Shares, 2)
	require.Len(t, snap.Payments, 1)
	for _, share := range snap.Shares {
		assert.Equal(t, ledger.ExpenseID("exp-1"), share.ExpenseID)
	}

	_, err = store.Snapshot(ctx, "missing")
	require.ErrorIs(t, err, groups.ErrGroupNotFound)
}

func TestPaymentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedGroup(t, store)

	payment := ledger.Payment{
		ID:         "pay-1",
		GroupID:    "grp-1",
		PayerID:    "u2",
		ReceiverID: "u1",
		Amount:     decimal.RequireFromString("25.50"),
		Date:       time.Date(2026, time.February, 2, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreatePayment(ctx, payment))

	payments, err := store.ListPayments(ctx, "grp-1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payments[0].Amount.Equal(payment.Amount))
	assert.Equal(t, payment.PayerID, payments[0].PayerID)

	require.NoError(t, store.DeletePayment(ctx, payment.ID))
	require.ErrorIs(t, store.DeletePayment(ctx, payment.ID), groups.ErrPaymentNotFound)
}

func TestServiceOverSQLite(t *testing.T) {
	// End-to-end: the domain layer on top of SQLite produces the same
	// reports the memory store does.
	store := newTestStore(t)
	ctx := context.Background()
	svc := groups.NewService(store)

	group, err := svc.CreateGroup(ctx, "Trip", "")
	require.NoError(t, err)
	ana, err := svc.AddMember(ctx, group.ID, "Ana", "ana@example.com")
	require.NoError(t, err)
	ben, err := svc.AddMember(ctx, group.ID, "Ben", "ben@example.com")
	require.NoError(t, err)

	_, err = svc.RecordExpense(ctx, groups.ExpenseInput{
		GroupID: group.ID,
		PayerID: ana.ID,
		Amount:  decimal.RequireFromString("100"),
		Date:    time.Now(),
		Name:    "hotel",
		Shares: []groups.ShareInput{
			{UserID: ana.ID, Amount: decimal.RequireFromString("50")},
			{UserID: ben.ID, Amount: decimal.RequireFromString("50")},
		},
	})
	require.NoError(t, err)

	report, err := svc.BalanceReport(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, report.Plan, 1)
	assert.Equal(t, ben.ID, report.Plan[0].FromUserID)
	assert.Equal(t, ana.ID, report.Plan[0].ToUserID)
	assert.True(t, report.Plan[0].Amount.Equal(decimal.RequireFromString("50")))
}
