// Package store provides an in-memory groups.Store implementation
// (for testing/dev).
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/settle-engine/groups"
	"github.com/warp/settle-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps everything in maps guarded by one RWMutex. The atomic
// operations (CreateExpense, ReplaceShares, DeleteExpense) hold the write
// lock for their whole duration, which is exactly the old-or-new guarantee
// the domain layer requires of a Store.
type Memory struct {
	mu       sync.RWMutex
	groups   map[ledger.GroupID]groups.Group
	members  map[ledger.GroupID][]groups.User
	expenses map[ledger.ExpenseID]ledger.Expense
	shares   map[ledger.ExpenseID][]ledger.ExpenseShare
	payments map[ledger.PaymentID]ledger.Payment
}

var _ groups.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		groups:   make(map[ledger.GroupID]groups.Group),
		members:  make(map[ledger.GroupID][]groups.User),
		expenses: make(map[ledger.ExpenseID]ledger.Expense),
		shares:   make(map[ledger.ExpenseID][]ledger.ExpenseShare),
		payments: make(map[ledger.PaymentID]ledger.Payment),
	}
}

// =============================================================================
// GROUPS & MEMBERSHIP
// =============================================================================

func (m *Memory) SaveGroup(_ context.Context, group groups.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[group.ID] = group
	return nil
}

func (m *Memory) GetGroup(_ context.Context, id ledger.GroupID) (*groups.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	group, ok := m.groups[id]
	if !ok {
		return nil, groups.ErrGroupNotFound
	}
	return &group, nil
}

func (m *Memory) DeleteGroup(_ context.Context, id ledger.GroupID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[id]; !ok {
		return groups.ErrGroupNotFound
	}
	delete(m.groups, id)
	delete(m.members, id)
	return nil
}

func (m *Memory) AddMember(_ context.Context, groupID ledger.GroupID, user groups.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[groupID]; !ok {
		return groups.ErrGroupNotFound
	}
	// Mirror SQLite's UNIQUE(group_id, email): the service checks first,
	// but two concurrent AddMember calls can both pass that check, so the
	// store enforces uniqueness under its own write lock.
	for _, member := range m.members[groupID] {
		if member.Email == user.Email {
			return groups.ErrDuplicateMember
		}
	}
	m.members[groupID] = append(m.members[groupID], user)
	return nil
}

func (m *Memory) ListMembers(_ context.Context, groupID ledger.GroupID) ([]groups.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := m.members[groupID]
	out := make([]groups.User, len(members))
	copy(out, members)
	return out, nil
}

// =============================================================================
// EXPENSES & SHARES
// =============================================================================

func (m *Memory) CreateExpense(_ context.Context, expense ledger.Expense, shares []ledger.ExpenseShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[expense.ID] = expense
	m.shares[expense.ID] = append([]ledger.ExpenseShare(nil), shares...)
	return nil
}

func (m *Memory) GetExpense(_ context.Context, id ledger.ExpenseID) (*ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	expense, ok := m.expenses[id]
	if !ok {
		return nil, groups.ErrExpenseNotFound
	}
	return &expense, nil
}

func (m *Memory) ListExpenses(_ context.Context, groupID ledger.GroupID) ([]ledger.Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listExpensesLocked(groupID), nil
}

// listExpensesLocked returns a group's expenses sorted by date then id,
// matching the SQL store's ORDER BY. Callers must hold mu.
func (m *Memory) listExpensesLocked(groupID ledger.GroupID) []ledger.Expense {
	var out []ledger.Expense
	for _, expense := range m.expenses {
		if expense.GroupID == groupID {
			out = append(out, expense)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) SharesForExpense(_ context.Context, id ledger.ExpenseID) ([]ledger.ExpenseShare, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	shares := m.shares[id]
	out := make([]ledger.ExpenseShare, len(shares))
	copy(out, shares)
	return out, nil
}

func (m *Memory) ListShares(_ context.Context, groupID ledger.GroupID) ([]ledger.ExpenseShare, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.ExpenseShare
	for id, expense := range m.expenses {
		if expense.GroupID == groupID {
			out = append(out, m.shares[id]...)
		}
	}
	return out, nil
}

// ReplaceShares swaps the whole share set under the write lock: a
// concurrent reader sees the old set or the new one, never an empty
// in-between.
func (m *Memory) ReplaceShares(_ context.Context, id ledger.ExpenseID, shares []ledger.ExpenseShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.expenses[id]; !ok {
		return groups.ErrExpenseNotFound
	}
	m.shares[id] = append([]ledger.ExpenseShare(nil), shares...)
	return nil
}

func (m *Memory) DeleteExpense(_ context.Context, id ledger.ExpenseID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.expenses[id]; !ok {
		return groups.ErrExpenseNotFound
	}
	delete(m.expenses, id)
	delete(m.shares, id)
	return nil
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot gathers the group's whole ledger state under one RLock, so no
// writer can land between the expense, share, and payment reads.
func (m *Memory) Snapshot(_ context.Context, groupID ledger.GroupID) (ledger.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.groups[groupID]; !ok {
		return ledger.Snapshot{}, groups.ErrGroupNotFound
	}

	expenses := m.listExpensesLocked(groupID)
	var shares []ledger.ExpenseShare
	for _, expense := range expenses {
		shares = append(shares, m.shares[expense.ID]...)
	}
	var payments []ledger.Payment
	for _, payment := range m.payments {
		if payment.GroupID == groupID {
			payments = append(payments, payment)
		}
	}

	return ledger.Snapshot{
		GroupID:  groupID,
		Expenses: expenses,
		Shares:   shares,
		Payments: payments,
	}, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) CreatePayment(_ context.Context, payment ledger.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
	return nil
}

func (m *Memory) ListPayments(_ context.Context, groupID ledger.GroupID) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Payment
	for _, payment := range m.payments {
		if payment.GroupID == groupID {
			out = append(out, payment)
		}
	}
	return out, nil
}

func (m *Memory) DeletePayment(_ context.Context, id ledger.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[id]; !ok {
		return groups.ErrPaymentNotFound
	}
	delete(m.payments, id)
	return nil
}

func (m *Memory) Close() error { return nil }
