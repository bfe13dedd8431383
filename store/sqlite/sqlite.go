/*
Package sqlite provides a SQLite-backed implementation of groups.Store.

PURPOSE:
  Implements the persistence contract of the groups domain layer using
  SQLite. In production the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

ATOMICITY:
  The three operations the domain layer requires to be atomic run inside a
  single SQL transaction:
  - CreateExpense: expense row + share rows committed together
  - ReplaceShares: DELETE old set + INSERT new set in one transaction, so a
    concurrent snapshot read sees old-or-new, never an empty in-between
  - DeleteExpense: share rows removed with the expense row

KEY TABLES:
  groups:         group records
  group_members:  per-group member identities (email normalized upstream)
  expenses:       one row per expense, decimal amount stored as TEXT
  expense_shares: UNIQUE(expense_id, user_id) - at most one share per pair
  payments:       immutable direct transfers (insert and delete only)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. With PostgreSQL, database-level
  concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) and foreign keys on:
  multiple readers don't block, a single writer at a time, and share rows
  cannot outlive their expense.

USAGE:
  store, err := sqlite.New("./data/settle.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
  svc := groups.NewService(store)

SEE ALSO:
  - groups/store.go: interface definition and atomicity contract
  - groups/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/settle-engine/groups"
	"github.com/warp/settle-engine/ledger"
)

// Store implements groups.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ groups.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS group_members (
		user_id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(group_id, email)
	);

	CREATE INDEX IF NOT EXISTS idx_members_group
		ON group_members(group_id);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL REFERENCES groups(id),
		payer_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_group
		ON expenses(group_id);

	-- At most one share per (expense, user); shares cannot outlive their
	-- expense
	CREATE TABLE IF NOT EXISTS expense_shares (
		expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		UNIQUE(expense_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_shares_expense
		ON expense_shares(expense_id);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		group_id TEXT NOT NULL REFERENCES groups(id),
		payer_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_group
		ON payments(group_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// GROUPS & MEMBERSHIP
// =============================================================================

func (s *Store) SaveGroup(ctx context.Context, group groups.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (id, name, description, created_at)
		VALUES (?, ?, ?, ?)`,
		group.ID, group.Name, group.Description,
		group.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetGroup(ctx context.Context, id ledger.GroupID) (*groups.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at FROM groups WHERE id = ?`, id)

	var group groups.Group
	var createdAt string
	err := row.Scan(&group.ID, &group.Name, &group.Description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, groups.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	group.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &group, nil
}

func (s *Store) DeleteGroup(ctx context.Context, id ledger.GroupID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM groups WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return groups.ErrGroupNotFound
	}
	return nil
}

func (s *Store) AddMember(ctx context.Context, groupID ledger.GroupID, user groups.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (user_id, group_id, name, email, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID, groupID, user.Name, user.Email,
		user.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListMembers(ctx context.Context, groupID ledger.GroupID) ([]groups.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, name, email, created_at
		FROM group_members WHERE group_id = ? ORDER BY created_at, user_id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []groups.User
	for rows.Next() {
		var user groups.User
		var createdAt string
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &createdAt); err != nil {
			return nil, err
		}
		user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		members = append(members, user)
	}
	return members, rows.Err()
}

// =============================================================================
// EXPENSES & SHARES
// =============================================================================

// CreateExpense writes the expense and its shares in one transaction.
func (s *Store) CreateExpense(ctx context.Context, expense ledger.Expense, shares []ledger.ExpenseShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, group_id, payer_id, amount, date, name, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.PayerID,
		expense.Amount.String(),
		expense.Date.UTC().Format(time.RFC3339),
		expense.Name, expense.Description,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	if err := insertShares(ctx, tx, shares); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetExpense(ctx context.Context, id ledger.ExpenseID) (*ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, group_id, payer_id, amount, date, name, description
		FROM expenses WHERE id = ?`, id)

	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, groups.ErrExpenseNotFound
	}
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *Store) ListExpenses(ctx context.Context, groupID ledger.GroupID) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryExpenses(ctx, s.db, groupID)
}

func (s *Store) SharesForExpense(ctx context.Context, id ledger.ExpenseID) ([]ledger.ExpenseShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT expense_id, user_id, amount
		FROM expense_shares WHERE expense_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShares(rows)
}

func (s *Store) ListShares(ctx context.Context, groupID ledger.GroupID) ([]ledger.ExpenseShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryShares(ctx, s.db, groupID)
}

// ReplaceShares swaps the whole share set inside one transaction. A reader
// sees the old set until commit, then the new one.
func (s *Store) ReplaceShares(ctx context.Context, id ledger.ExpenseID, shares []ledger.ExpenseShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return groups.ErrExpenseNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_shares WHERE expense_id = ?`, id); err != nil {
		return err
	}
	if err := insertShares(ctx, tx, shares); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteExpense removes the expense and its shares as one unit.
func (s *Store) DeleteExpense(ctx context.Context, id ledger.ExpenseID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expense_shares WHERE expense_id = ?`, id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return groups.ErrExpenseNotFound
	}
	return tx.Commit()
}

func insertShares(ctx context.Context, tx *sql.Tx, shares []ledger.ExpenseShare) error {
	for _, share := range shares {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expense_shares (expense_id, user_id, amount)
			VALUES (?, ?, ?)`,
			share.ExpenseID, share.UserID, share.Amount.String(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot reads the group's expenses, shares, and payments inside ONE
// transaction, so a writer committing mid-read (possible under WAL, where
// readers don't block writers) can never produce a torn view.
func (s *Store) Snapshot(ctx context.Context, groupID ledger.GroupID) (ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM groups WHERE id = ?`, groupID).Scan(&exists); err != nil {
		return ledger.Snapshot{}, err
	}
	if exists == 0 {
		return ledger.Snapshot{}, groups.ErrGroupNotFound
	}

	expenses, err := queryExpenses(ctx, tx, groupID)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	shares, err := queryShares(ctx, tx, groupID)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	payments, err := queryPayments(ctx, tx, groupID)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.Snapshot{}, err
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

func (s *Store) CreatePayment(ctx context.Context, payment ledger.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (id, group_id, payer_id, receiver_id, amount, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.GroupID, payment.PayerID, payment.ReceiverID,
		payment.Amount.String(),
		payment.Date.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) ListPayments(ctx context.Context, groupID ledger.GroupID) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPayments(ctx, s.db, groupID)
}

func (s *Store) DeletePayment(ctx context.Context, id ledger.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return groups.ErrPaymentNotFound
	}
	return nil
}

// =============================================================================
// QUERY & SCAN HELPERS
// =============================================================================

// querier is satisfied by both *sql.DB and *sql.Tx, so the same queries
// serve the individual List methods and the transactional Snapshot.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryExpenses(ctx context.Context, q querier, groupID ledger.GroupID) ([]ledger.Expense, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, group_id, payer_id, amount, date, name, description
		FROM expenses WHERE group_id = ? ORDER BY date, id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []ledger.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *expense)
	}
	return expenses, rows.Err()
}

func queryShares(ctx context.Context, q querier, groupID ledger.GroupID) ([]ledger.ExpenseShare, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT es.expense_id, es.user_id, es.amount
		FROM expense_shares es
		JOIN expenses e ON e.id = es.expense_id
		WHERE e.group_id = ?`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectShares(rows)
}

func queryPayments(ctx context.Context, q querier, groupID ledger.GroupID) ([]ledger.Payment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, group_id, payer_id, receiver_id, amount, date
		FROM payments WHERE group_id = ? ORDER BY date, id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		var payment ledger.Payment
		var amount, date string
		err := rows.Scan(&payment.ID, &payment.GroupID, &payment.PayerID,
			&payment.ReceiverID, &amount, &date)
		if err != nil {
			return nil, err
		}
		payment.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("payment %s: bad amount %q: %w", payment.ID, amount, err)
		}
		payment.Date, _ = time.Parse(time.RFC3339, date)
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(row scanner) (*ledger.Expense, error) {
	var expense ledger.Expense
	var amount, date string
	err := row.Scan(&expense.ID, &expense.GroupID, &expense.PayerID,
		&amount, &date, &expense.Name, &expense.Description)
	if err != nil {
		return nil, err
	}
	expense.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("expense %s: bad amount %q: %w", expense.ID, amount, err)
	}
	expense.Date, _ = time.Parse(time.RFC3339, date)
	return &expense, nil
}

func collectShares(rows *sql.Rows) ([]ledger.ExpenseShare, error) {
	var shares []ledger.ExpenseShare
	for rows.Next() {
		var share ledger.ExpenseShare
		var amount string
		if err := rows.Scan(&share.ExpenseID, &share.UserID, &amount); err != nil {
			return nil, err
		}
		var err error
		share.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("share for expense %s: bad amount %q: %w",
				share.ExpenseID, amount, err)
		}
		shares = append(shares, share)
	}
	return shares, rows.Err()
}
