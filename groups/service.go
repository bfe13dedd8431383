/*
service.go - Domain operations for groups, expenses, and payments

PURPOSE:
  Implements the write-side rules around the balance core:
  - expenses and their shares are created, replaced, and deleted as units
  - share sets are validated BEFORE they hit the store, so persisted data
    always passes snapshot validation
  - payments must be positive at creation and are immutable afterwards
  - emails are normalized once, here, at the ingestion boundary

READ PATH:
  Snapshot() assembles the immutable ledger.Snapshot from the store in one
  consistent read; BalanceReport() feeds it straight into ledger.Build.
  Nothing is cached: a report is always a pure function of current state.

AUTHORIZATION:
  None here. The caller has already authorized the request and supplies
  only data it is entitled to see.

SEE ALSO:
  - store.go: the persistence contract, including atomicity requirements
  - ledger/report.go: report assembly
*/
package groups

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/settle-engine/ledger"
)

// Service exposes the domain operations. Safe for concurrent use as long
// as the underlying Store is.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// =============================================================================
// GROUPS & MEMBERSHIP
// =============================================================================

func (s *Service) CreateGroup(ctx context.Context, name, description string) (*Group, error) {
	group := Group{
		ID:          ledger.GroupID(uuid.NewString()),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.SaveGroup(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return &group, nil
}

func (s *Service) GetGroup(ctx context.Context, id ledger.GroupID) (*Group, error) {
	return s.store.GetGroup(ctx, id)
}

// DeleteGroup removes a group. Refused while the group still has expenses,
// so ledger history cannot vanish by accident.
func (s *Service) DeleteGroup(ctx context.Context, id ledger.GroupID) error {
	if _, err := s.store.GetGroup(ctx, id); err != nil {
		return err
	}
	expenses, err := s.store.ListExpenses(ctx, id)
	if err != nil {
		return err
	}
	if len(expenses) > 0 {
		return fmt.Errorf("delete group %s: %w", id, ErrGroupHasExpenses)
	}
	return s.store.DeleteGroup(ctx, id)
}

// AddMember adds a user to a group. The email is normalized here, once;
// a second member with the same normalized email is rejected.
func (s *Service) AddMember(ctx context.Context, groupID ledger.GroupID, name, email string) (*User, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	email = NormalizeEmail(email)
	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.Email == email {
			return nil, fmt.Errorf("add member %s: %w", email, ErrDuplicateMember)
		}
	}

	user := User{
		ID:        ledger.UserID(uuid.NewString()),
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AddMember(ctx, groupID, user); err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	return &user, nil
}

func (s *Service) Members(ctx context.Context, groupID ledger.GroupID) ([]User, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, groupID)
}

// =============================================================================
// EXPENSES
// =============================================================================

// ShareInput is one user's allocated portion in an expense write.
type ShareInput struct {
	UserID ledger.UserID
	Amount decimal.Decimal
}

// ExpenseInput carries everything needed to record an expense with its
// shares in one operation.
type ExpenseInput struct {
	GroupID     ledger.GroupID
	PayerID     ledger.UserID
	Amount      decimal.Decimal
	Date        time.Time
	Name        string
	Description string
	Shares      []ShareInput
}

// RecordExpense creates an expense together with its shares. The share set
// is checked here (non-empty, unique users, members only, sum within
// Epsilon of the amount) so the store never holds data that would fail
// snapshot validation.
func (s *Service) RecordExpense(ctx context.Context, input ExpenseInput) (*ledger.Expense, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("record expense: %w", ErrNonPositiveAmount)
	}

	members, err := s.memberSet(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}
	if !members[input.PayerID] {
		return nil, fmt.Errorf("payer %s: %w", input.PayerID, ErrNotMember)
	}

	expenseID := ledger.ExpenseID(uuid.NewString())
	shares, err := buildShares(expenseID, input.Amount, input.Shares, members)
	if err != nil {
		return nil, err
	}

	expense := ledger.Expense{
		ID:          expenseID,
		GroupID:     input.GroupID,
		PayerID:     input.PayerID,
		Amount:      input.Amount,
		Date:        input.Date,
		Name:        input.Name,
		Description: input.Description,
	}
	if err := s.store.CreateExpense(ctx, expense, shares); err != nil {
		return nil, fmt.Errorf("record expense: %w", err)
	}
	return &expense, nil
}

// ReplaceShares swaps an expense's entire share set. The new set is built
// and validated fully before the single atomic store operation, so a
// concurrent snapshot never observes an intermediate empty split.
func (s *Service) ReplaceShares(ctx context.Context, expenseID ledger.ExpenseID, inputs []ShareInput) error {
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return err
	}

	members, err := s.memberSet(ctx, expense.GroupID)
	if err != nil {
		return err
	}
	shares, err := buildShares(expenseID, expense.Amount, inputs, members)
	if err != nil {
		return err
	}
	return s.store.ReplaceShares(ctx, expenseID, shares)
}

// DeleteExpense removes an expense and its shares as one unit.
func (s *Service) DeleteExpense(ctx context.Context, expenseID ledger.ExpenseID) error {
	if _, err := s.store.GetExpense(ctx, expenseID); err != nil {
		return err
	}
	return s.store.DeleteExpense(ctx, expenseID)
}

func (s *Service) Expenses(ctx context.Context, groupID ledger.GroupID) ([]ledger.Expense, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListExpenses(ctx, groupID)
}

func (s *Service) SharesForExpense(ctx context.Context, expenseID ledger.ExpenseID) ([]ledger.ExpenseShare, error) {
	if _, err := s.store.GetExpense(ctx, expenseID); err != nil {
		return nil, err
	}
	return s.store.SharesForExpense(ctx, expenseID)
}

// buildShares turns share inputs into a validated share set for one
// expense: at least one share, no duplicate users, members only, and a sum
// within Epsilon of the expense amount.
func buildShares(expenseID ledger.ExpenseID, amount decimal.Decimal, inputs []ShareInput, members map[ledger.UserID]bool) ([]ledger.ExpenseShare, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("expense %s: %w", expenseID, ErrEmptyShares)
	}

	seen := make(map[ledger.UserID]bool, len(inputs))
	shares := make([]ledger.ExpenseShare, 0, len(inputs))
	sum := decimal.Zero
	for _, in := range inputs {
		if seen[in.UserID] {
			return nil, fmt.Errorf("user %s: %w", in.UserID, ErrDuplicateShare)
		}
		seen[in.UserID] = true
		if !members[in.UserID] {
			return nil, fmt.Errorf("share user %s: %w", in.UserID, ErrNotMember)
		}
		shares = append(shares, ledger.ExpenseShare{
			ExpenseID: expenseID,
			UserID:    in.UserID,
			Amount:    in.Amount,
		})
		sum = sum.Add(in.Amount)
	}

	if !ledger.WithinEpsilon(sum, amount) {
		return nil, &ShareSumError{ExpenseID: expenseID, Expected: amount, Actual: sum}
	}
	return shares, nil
}

func (s *Service) memberSet(ctx context.Context, groupID ledger.GroupID) (map[ledger.UserID]bool, error) {
	members, err := s.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}
	set := make(map[ledger.UserID]bool, len(members))
	for _, m := range members {
		set[m.ID] = true
	}
	return set, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentInput carries a direct settling transfer to record.
type PaymentInput struct {
	GroupID    ledger.GroupID
	PayerID    ledger.UserID
	ReceiverID ledger.UserID
	Amount     decimal.Decimal
	Date       time.Time
}

// RecordPayment creates an immutable payment. Non-positive amounts are
// rejected here, at creation, so a stored payment can never trip the
// snapshot validator.
func (s *Service) RecordPayment(ctx context.Context, input PaymentInput) (*ledger.Payment, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("record payment: %w", ErrNonPositiveAmount)
	}

	members, err := s.memberSet(ctx, input.GroupID)
	if err != nil {
		return nil, err
	}
	if !members[input.PayerID] {
		return nil, fmt.Errorf("payer %s: %w", input.PayerID, ErrNotMember)
	}
	if !members[input.ReceiverID] {
		return nil, fmt.Errorf("receiver %s: %w", input.ReceiverID, ErrNotMember)
	}

	payment := ledger.Payment{
		ID:         ledger.PaymentID(uuid.NewString()),
		GroupID:    input.GroupID,
		PayerID:    input.PayerID,
		ReceiverID: input.ReceiverID,
		Amount:     input.Amount,
		Date:       input.Date,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}
	return &payment, nil
}

func (s *Service) DeletePayment(ctx context.Context, id ledger.PaymentID) error {
	return s.store.DeletePayment(ctx, id)
}

// SettleUp turns a chosen settlement transfer into a real payment record.
// The transfer itself was only ever a suggestion; this is the explicit,
// separate action that makes it count.
func (s *Service) SettleUp(ctx context.Context, groupID ledger.GroupID, transfer ledger.SettlementTransfer) (*ledger.Payment, error) {
	return s.RecordPayment(ctx, PaymentInput{
		GroupID:    groupID,
		PayerID:    transfer.FromUserID,
		ReceiverID: transfer.ToUserID,
		Amount:     transfer.Amount,
		Date:       time.Now().UTC(),
	})
}

// =============================================================================
// SNAPSHOT & REPORT
// =============================================================================

// Snapshot assembles the immutable point-in-time view of a group's ledger.
// The store performs the whole read as one consistent operation: composing
// it here from separate List calls would let a concurrent expense write
// land between them and produce a torn view (an expense without its
// shares, or shares without their expense).
func (s *Service) Snapshot(ctx context.Context, groupID ledger.GroupID) (ledger.Snapshot, error) {
	return s.store.Snapshot(ctx, groupID)
}

// BalanceReport recomputes the full report from current ledger state.
func (s *Service) BalanceReport(ctx context.Context, groupID ledger.GroupID) (*ledger.BalanceReport, error) {
	snap, err := s.Snapshot(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return ledger.Build(snap)
}
