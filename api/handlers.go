/*
handlers.go - HTTP API handlers for the settlement engine

PURPOSE:
  Exposes the groups domain layer via REST. Handles HTTP request/response,
  JSON serialization, and delegates everything else to the domain logic.

ENDPOINTS:
  Groups:
    POST   /api/groups                       Create group
    GET    /api/groups/{id}                  Group details + members
    DELETE /api/groups/{id}                  Delete (409 while expenses exist)
    POST   /api/groups/{id}/members          Add member

  Expenses:
    GET    /api/groups/{id}/expenses         List expenses with shares
    POST   /api/groups/{id}/expenses         Record expense + shares
    PUT    /api/expenses/{id}/shares         Atomic share replace
    DELETE /api/expenses/{id}                Delete expense + shares

  Payments & balance:
    POST   /api/groups/{id}/payments         Record payment
    DELETE /api/payments/{id}                Delete payment
    GET    /api/groups/{id}/balance          Balance report
    POST   /api/groups/{id}/settlements      Record payment from a transfer

ERROR HANDLING:
  - 400: malformed body, bad decimal/date, invalid input
  - 404: group/expense/payment not found
  - 409: conflicts (duplicate member, group still has expenses)
  - 422: ledger violations; the body carries the full violation list
  - 500: everything else

SECURITY NOTE:
  No authentication or authorization here. The deployment in front of this
  service owns both.

SEE ALSO:
  - dto.go: request/response data structures
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/settle-engine/groups"
	"github.com/warp/settle-engine/ledger"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *groups.Service
}

// NewHandler creates a new handler around the domain service.
func NewHandler(service *groups.Service) *Handler {
	return &Handler{Service: service}
}

// =============================================================================
// GROUP HANDLERS
// =============================================================================

// CreateGroup creates a new group.
func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Group name is required", nil)
		return
	}

	group, err := h.Service.CreateGroup(r.Context(), req.Name, req.Description)
	if err != nil {
		writeDomainError(w, "Failed to create group", err)
		return
	}
	writeJSON(w, http.StatusCreated, groupDTO(group, nil))
}

// GetGroup returns a group with its members.
func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "id"))

	group, err := h.Service.GetGroup(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, "Failed to get group", err)
		return
	}
	members, err := h.Service.Members(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, "Failed to list members", err)
		return
	}
	writeJSON(w, http.StatusOK, groupDTO(group, members))
}

// DeleteGroup deletes a group; refused while it still has expenses.
func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "id"))

	if err := h.Service.DeleteGroup(r.Context(), groupID); err != nil {
		writeDomainError(w, "Failed to delete group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMember adds a member to a group.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "id"))

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required", nil)
		return
	}

	user, err := h.Service.AddMember(r.Context(), groupID, req.Name, req.Email)
	if err != nil {
		writeDomainError(w, "Failed to add member", err)
		return
	}
	writeJSON(w, http.StatusCreated, MemberDTO{
		ID:    string(user.ID),
		Name:  user.Name,
		Email: user.Email,
	})
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// ListExpenses returns a group's expenses with their shares.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "id"))

	expenses, err := h.Service.Expenses(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, "Failed to list expenses", err)
		return
	}

	dtos := make([]ExpenseDTO, 0, len(expenses))
	for _, expense := range expenses {
		shares, err := h.Service.SharesForExpense(r.Context(), expense.ID)
		if err != nil {
			writeDomainError(w, "Failed to load shares", err)
			return
		}
		dtos = append(dtos, expenseDTO(expense, shares))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateExpense records an expense together with its shares.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "id"))

	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount (use a decimal string)", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	shares, err := parseShares(req.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid share amount", err)
		return
	}

	expense, err := h.Service.RecordExpense(r.Context(), groups.ExpenseInput{
		GroupID:     groupID,
		PayerID:     ledger.UserID(req.PayerID),
		Amount:      amount,
		Date:        date,
		Name:        req.Name,
		Description: req.Description,
		Shares:      shares,
	})
	if err != nil {
		writeDomainError(w, "Failed to record expense", err)
		return
	}

	recorded, err := h.Service.SharesForExpense(r.Context(), expense.ID)
	if err != nil {
		writeDomainError(w, "Failed to load shares", err)
		return
	}
	expensesRecorded.Inc()
	writeJSON(w, http.StatusCreated, expenseDTO(*expense, recorded))
}

// ReplaceShares swaps an expense's whole share set atomically.
func (h *Handler) ReplaceShares(w http.ResponseWriter, r *http.Request) {
	expenseID := ledger.ExpenseID(chi.URLParam(r, "id"))

	var req ReplaceSharesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	shares, err := parseShares(req.Shares)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid share amount", err)
		return
	}

	if err := h.Service.ReplaceShares(r.Context(), expenseID, shares); err != nil {
		writeDomainError(w, "Failed to replace shares", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteExpense removes an expense and its shares.
func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	expenseID := ledger.ExpenseID(chi.URLParam(r, "id"))

	if err := h.Service.DeleteExpense(r.Context(), expenseID); err != nil {
		writeDomainError(w, "Failed to delete expense", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// CreatePayment records a direct payment between two members.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "id"))

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount (use a decimal string)", err)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	payment, err := h.Service.RecordPayment(r.Context(), groups.PaymentInput{
		GroupID:    groupID,
		PayerID:    ledger.UserID(req.PayerID),
		ReceiverID: ledger.UserID(req.ReceiverID),
		Amount:     amount,
		Date:       date,
	})
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentDTO(*payment))
}

// DeletePayment removes a payment.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	paymentID := ledger.PaymentID(chi.URLParam(r, "id"))

	if err := h.Service.DeletePayment(r.Context(), paymentID); err != nil {
		writeDomainError(w, "Failed to delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordSettlement turns a chosen settlement transfer into a payment.
func (h *Handler) RecordSettlement(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "id"))

	var req RecordSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount (use a decimal string)", err)
		return
	}

	payment, err := h.Service.SettleUp(r.Context(), groupID, ledger.SettlementTransfer{
		FromUserID: ledger.UserID(req.FromUserID),
		ToUserID:   ledger.UserID(req.ToUserID),
		Amount:     amount,
	})
	if err != nil {
		writeDomainError(w, "Failed to record settlement", err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentDTO(*payment))
}

// =============================================================================
// BALANCE HANDLER
// =============================================================================

// GetBalance recomputes and returns the group's balance report.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	groupID := ledger.GroupID(chi.URLParam(r, "id"))

	report, err := h.Service.BalanceReport(r.Context(), groupID)
	if err != nil {
		var inconsistent *ledger.InconsistentLedgerError
		if errors.As(err, &inconsistent) {
			writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:      "Ledger is inconsistent",
				Violations: violationDTOs(inconsistent.Violations),
			})
			return
		}
		writeDomainError(w, "Failed to compute balance", err)
		return
	}
	reportsComputed.Inc()
	writeJSON(w, http.StatusOK, reportDTO(report))
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func parseShares(dtos []ShareDTO) ([]groups.ShareInput, error) {
	shares := make([]groups.ShareInput, 0, len(dtos))
	for _, dto := range dtos {
		amount, err := decimal.NewFromString(dto.Amount)
		if err != nil {
			return nil, err
		}
		shares = append(shares, groups.ShareInput{
			UserID: ledger.UserID(dto.UserID),
			Amount: amount,
		})
	}
	return shares, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case groups.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case groups.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case groups.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		slog.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
