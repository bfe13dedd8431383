/*
store.go - Persistence interface for groups, expenses, shares, and payments

PURPOSE:
  Defines the interface between the domain layer and the database. Different
  implementations can use SQLite or in-memory storage; the domain logic
  never sees SQL.

ATOMICITY CONTRACT:
  Two operations MUST be atomic against the underlying store, because a
  concurrent snapshot read must never observe an intermediate state:

  - CreateExpense: the expense and its shares appear together or not at all.
  - ReplaceShares: a reader sees either the fully-old or the fully-new share
    set, never an empty in-between (which would surface a spurious
    EmptySplit in a concurrently built report).
  - DeleteExpense: the expense and its shares disappear together.

  SQL implementations wrap these in a transaction; the memory implementation
  holds its write lock across the whole swap.

SNAPSHOT READ:
  Snapshot returns the expenses, shares, and payments of a group as ONE
  consistent read: a single read transaction in SQL, a single RLock in the
  memory store. Composing it from separate List calls would let a writer
  commit between them, producing torn views (an expense whose shares are
  already gone, or shares whose expense is not yet visible).

PAYMENTS:
  Payments are immutable. The interface offers creation and deletion only;
  there is deliberately no update method.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: production SQLite
  - groups/store/memory.go: in-memory for tests and dev mode

SEE ALSO:
  - service.go: domain operations built on this interface
*/
package groups

import (
	"context"

	"github.com/warp/settle-engine/ledger"
)

// Store handles persistence for the groups domain.
type Store interface {
	// Groups
	SaveGroup(ctx context.Context, group Group) error
	GetGroup(ctx context.Context, id ledger.GroupID) (*Group, error)
	DeleteGroup(ctx context.Context, id ledger.GroupID) error

	// Membership
	AddMember(ctx context.Context, groupID ledger.GroupID, user User) error
	ListMembers(ctx context.Context, groupID ledger.GroupID) ([]User, error)

	// Expenses and shares. CreateExpense, ReplaceShares, and DeleteExpense
	// are atomic: see the package comment above.
	CreateExpense(ctx context.Context, expense ledger.Expense, shares []ledger.ExpenseShare) error
	GetExpense(ctx context.Context, id ledger.ExpenseID) (*ledger.Expense, error)
	ListExpenses(ctx context.Context, groupID ledger.GroupID) ([]ledger.Expense, error)
	SharesForExpense(ctx context.Context, id ledger.ExpenseID) ([]ledger.ExpenseShare, error)
	ListShares(ctx context.Context, groupID ledger.GroupID) ([]ledger.ExpenseShare, error)
	ReplaceShares(ctx context.Context, id ledger.ExpenseID, shares []ledger.ExpenseShare) error
	DeleteExpense(ctx context.Context, id ledger.ExpenseID) error

	// Snapshot assembles the group's full ledger state in one consistent
	// read. Returns ErrGroupNotFound for unknown groups.
	Snapshot(ctx context.Context, groupID ledger.GroupID) (ledger.Snapshot, error)

	// Payments (create and delete only; payments are immutable)
	CreatePayment(ctx context.Context, payment ledger.Payment) error
	ListPayments(ctx context.Context, groupID ledger.GroupID) ([]ledger.Payment, error)
	DeletePayment(ctx context.Context, id ledger.PaymentID) error

	// Close releases any resources held by the store.
	Close() error
}
