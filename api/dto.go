/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  All amounts cross the wire as decimal strings ("12.50"), never JSON
  numbers, so clients cannot lose cents to float parsing.

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"sort"
	"time"

	"github.com/warp/settle-engine/groups"
	"github.com/warp/settle-engine/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// GroupDTO represents a group in API responses.
type GroupDTO struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	CreatedAt   string      `json:"created_at"`
	Members     []MemberDTO `json:"members,omitempty"`
}

// CreateGroupRequest is the request to create a group.
type CreateGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MemberDTO represents a group member in API responses.
type MemberDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AddMemberRequest is the request to add a member to a group.
type AddMemberRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ShareDTO is one user's allocated portion of an expense.
type ShareDTO struct {
	UserID string `json:"user_id"`
	Amount string `json:"amount"`
}

// ExpenseDTO represents an expense with its shares in API responses.
type ExpenseDTO struct {
	ID          string     `json:"id"`
	GroupID     string     `json:"group_id"`
	PayerID     string     `json:"payer_id"`
	Amount      string     `json:"amount"`
	Date        string     `json:"date"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Shares      []ShareDTO `json:"shares,omitempty"`
}

// CreateExpenseRequest records an expense together with its shares.
type CreateExpenseRequest struct {
	PayerID     string     `json:"payer_id"`
	Amount      string     `json:"amount"`
	Date        string     `json:"date"` // YYYY-MM-DD
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Shares      []ShareDTO `json:"shares"`
}

// ReplaceSharesRequest swaps an expense's whole share set.
type ReplaceSharesRequest struct {
	Shares []ShareDTO `json:"shares"`
}

// PaymentDTO represents a direct payment in API responses.
type PaymentDTO struct {
	ID         string `json:"id"`
	GroupID    string `json:"group_id"`
	PayerID    string `json:"payer_id"`
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
	Date       string `json:"date"`
}

// CreatePaymentRequest records a direct payment between two members.
type CreatePaymentRequest struct {
	PayerID    string `json:"payer_id"`
	ReceiverID string `json:"receiver_id"`
	Amount     string `json:"amount"`
	Date       string `json:"date"` // YYYY-MM-DD
}

// RecordSettlementRequest turns a suggested transfer into a payment.
type RecordSettlementRequest struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Amount     string `json:"amount"`
}

// NetPositionDTO is one user's line in the balance report.
type NetPositionDTO struct {
	UserID string `json:"user_id"`
	Credit string `json:"credit"`
	Debit  string `json:"debit"`
	Net    string `json:"net"`
}

// TransferDTO is one suggested settling transfer.
type TransferDTO struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Amount     string `json:"amount"`
}

// BalanceReportDTO is the full derived balance view of a group.
type BalanceReportDTO struct {
	GroupID   string           `json:"group_id"`
	Positions []NetPositionDTO `json:"positions"`
	Plan      []TransferDTO    `json:"plan"`
}

// ViolationDTO describes one ledger consistency violation.
type ViolationDTO struct {
	Kind      string `json:"kind"`
	ExpenseID string `json:"expense_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	Expected  string `json:"expected,omitempty"`
	Actual    string `json:"actual,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error      string         `json:"error"`
	Detail     string         `json:"detail,omitempty"`
	Violations []ViolationDTO `json:"violations,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func groupDTO(group *groups.Group, members []groups.User) GroupDTO {
	dto := GroupDTO{
		ID:          string(group.ID),
		Name:        group.Name,
		Description: group.Description,
		CreatedAt:   group.CreatedAt.Format(time.RFC3339),
	}
	for _, m := range members {
		dto.Members = append(dto.Members, MemberDTO{
			ID:    string(m.ID),
			Name:  m.Name,
			Email: m.Email,
		})
	}
	return dto
}

func expenseDTO(expense ledger.Expense, shares []ledger.ExpenseShare) ExpenseDTO {
	dto := ExpenseDTO{
		ID:          string(expense.ID),
		GroupID:     string(expense.GroupID),
		PayerID:     string(expense.PayerID),
		Amount:      expense.Amount.String(),
		Date:        expense.Date.Format("2006-01-02"),
		Name:        expense.Name,
		Description: expense.Description,
	}
	for _, share := range shares {
		dto.Shares = append(dto.Shares, ShareDTO{
			UserID: string(share.UserID),
			Amount: share.Amount.String(),
		})
	}
	return dto
}

func paymentDTO(payment ledger.Payment) PaymentDTO {
	return PaymentDTO{
		ID:         string(payment.ID),
		GroupID:    string(payment.GroupID),
		PayerID:    string(payment.PayerID),
		ReceiverID: string(payment.ReceiverID),
		Amount:     payment.Amount.String(),
		Date:       payment.Date.Format("2006-01-02"),
	}
}

func reportDTO(report *ledger.BalanceReport) BalanceReportDTO {
	dto := BalanceReportDTO{
		GroupID:   string(report.GroupID),
		Positions: []NetPositionDTO{},
		Plan:      []TransferDTO{},
	}
	for _, pos := range report.PerUser {
		dto.Positions = append(dto.Positions, NetPositionDTO{
			UserID: string(pos.UserID),
			Credit: pos.Credit.String(),
			Debit:  pos.Debit.String(),
			Net:    pos.Net.String(),
		})
	}
	// Positions sorted by user id for stable JSON output.
	sort.Slice(dto.Positions, func(i, j int) bool {
		return dto.Positions[i].UserID < dto.Positions[j].UserID
	})
	for _, transfer := range report.Plan {
		dto.Plan = append(dto.Plan, TransferDTO{
			FromUserID: string(transfer.FromUserID),
			ToUserID:   string(transfer.ToUserID),
			Amount:     transfer.Amount.String(),
		})
	}
	return dto
}

func violationDTOs(violations []ledger.Violation) []ViolationDTO {
	dtos := make([]ViolationDTO, len(violations))
	for i, v := range violations {
		dto := ViolationDTO{
			Kind:      string(v.Kind),
			ExpenseID: string(v.ExpenseID),
			PaymentID: string(v.PaymentID),
		}
		switch v.Kind {
		case ledger.ViolationSplitMismatch:
			dto.Expected = v.Expected.String()
			dto.Actual = v.Actual.String()
		case ledger.ViolationOrphanShare, ledger.ViolationInvalidPayment:
			dto.Actual = v.Actual.String()
		}
		dtos[i] = dto
	}
	return dtos
}
