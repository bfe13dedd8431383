/*
snapshot.go - Immutable point-in-time view of one group's ledger

PURPOSE:
  The Snapshot is the sole input to the balance core. It is assembled by an
  external data layer (see groups package) in one consistent read and passed
  by value into pure functions. No entity in it holds a back-reference to a
  computed balance, and the core never mutates it.

BOUNDARY CONTRACT:
  The data layer guarantees that share replacement is atomic: a snapshot
  observes either the fully-old or the fully-new share set of an expense,
  never an intermediate empty state. The core relies on this and does not
  re-check it beyond structural validation.

SEE ALSO:
  - validate.go: structural checks run against a snapshot
  - groups/service.go: snapshot assembly from a Store
*/
package ledger

// Snapshot is an immutable view of a group's expenses, shares, and payments
// at a point in time.
type Snapshot struct {
	GroupID  GroupID
	Expenses []Expense
	Shares   []ExpenseShare
	Payments []Payment
}

// SharesByExpense groups the snapshot's shares by their owning expense.
func (s Snapshot) SharesByExpense() map[ExpenseID][]ExpenseShare {
	byExpense := make(map[ExpenseID][]ExpenseShare, len(s.Expenses))
	for _, share := range s.Shares {
		byExpense[share.ExpenseID] = append(byExpense[share.ExpenseID], share)
	}
	return byExpense
}
