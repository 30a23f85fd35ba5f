package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"spendtrack/internal/core"
)

const dateLayout = "2006-01-02"

type expenseRequest struct {
	Title       string `json:"title"`
	UserEmail   string `json:"user_email"`
	Amount      string `json:"amount"`
	Budget      int64  `json:"budget"`
	Category    string `json:"category"`
	PaymentMode string `json:"payment_mode"`
	ExpenseDone string `json:"expense_done"`
	Notes       string `json:"notes"`
	Recurring   bool   `json:"recurring"`
}

// toExpense converts the wire representation, wrapping parse failures in the
// matching domain error so the boundary maps them to 400.
func (req expenseRequest) toExpense() (core.Expense, error) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, req.Amount)
	}
	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %q", err, req.Category)
	}
	mode, err := core.ParsePaymentMode(req.PaymentMode)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %q", err, req.PaymentMode)
	}
	if req.ExpenseDone == "" {
		return core.Expense{}, core.ErrMissingDate
	}
	done, err := time.Parse(dateLayout, req.ExpenseDone)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: want YYYY-MM-DD, got %q", core.ErrMissingDate, req.ExpenseDone)
	}

	return core.Expense{
		Title:       req.Title,
		UserEmail:   req.UserEmail,
		Amount:      core.Money{Cents: cents},
		Budget:      req.Budget,
		Category:    category,
		PaymentMode: mode,
		ExpenseDone: done,
		Notes:       req.Notes,
		Recurring:   req.Recurring,
	}, nil
}

type expenseResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	UserEmail   string `json:"user_email"`
	Amount      string `json:"amount"`
	Budget      int64  `json:"budget"`
	Category    string `json:"category"`
	PaymentMode string `json:"payment_mode,omitempty"`
	ExpenseDone string `json:"expense_done"`
	Notes       string `json:"notes,omitempty"`
	Recurring   bool   `json:"recurring"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		Title:       e.Title,
		UserEmail:   e.UserEmail,
		Amount:      e.Amount.String(),
		Budget:      e.Budget,
		Category:    string(e.Category),
		PaymentMode: string(e.PaymentMode),
		ExpenseDone: e.ExpenseDone.Format(dateLayout),
		Notes:       e.Notes,
		Recurring:   e.Recurring,
	}
	if !e.CreatedAt.IsZero() {
		resp.CreatedAt = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !e.UpdatedAt.IsZero() {
		resp.UpdatedAt = e.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type createExpenseResponse struct {
	Expense    expenseResponse `json:"expense"`
	AlertLevel string          `json:"alert_level"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	e, err := req.toExpense()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	saved, level, err := s.expenses.Submit(r.Context(), e)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense creation failed",
			"title", e.Title, "user_email", e.UserEmail, "error", err)
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, createExpenseResponse{
		Expense:    toExpenseResponse(saved),
		AlertLevel: level.String(),
	})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListExpenses(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeExpenseList(w, items)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	e, err := s.store.GetExpense(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, err := req.toExpense()
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	e.ID = id

	updated, err := s.expenses.Update(r.Context(), e)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toExpenseResponse(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.expenses.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteAllExpenses(w http.ResponseWriter, r *http.Request) {
	if err := s.expenses.DeleteAll(r.Context()); err != nil {
		s.writeDomainError(w, err)
		return
	}
	slog.InfoContext(r.Context(), "All expenses deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListByCategory(w http.ResponseWriter, r *http.Request) {
	category, err := core.ParseCategory(r.PathValue("category"))
	if err != nil {
		s.writeDomainError(w, fmt.Errorf("%w: %q", err, r.PathValue("category")))
		return
	}
	items, err := s.store.ListByCategory(r.Context(), category)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeExpenseList(w, items)
}

func (s *Server) handleListByPaymentMode(w http.ResponseWriter, r *http.Request) {
	mode, err := core.ParsePaymentMode(r.PathValue("mode"))
	if err != nil || mode == "" {
		s.writeDomainError(w, fmt.Errorf("%w: %q", core.ErrInvalidPaymentMode, r.PathValue("mode")))
		return
	}
	items, err := s.store.ListByPaymentMode(r.Context(), mode)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeExpenseList(w, items)
}

func (s *Server) handleListByDateRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(dateLayout, r.URL.Query().Get("start"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid start date: want YYYY-MM-DD")
		return
	}
	end, err := time.Parse(dateLayout, r.URL.Query().Get("end"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid end date: want YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		s.writeError(w, http.StatusBadRequest, "end date before start date")
		return
	}
	items, err := s.store.ListByDateRange(r.Context(), start, end)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeExpenseList(w, items)
}

// handleListRecent returns expenses from the last 7 days.
func (s *Server) handleListRecent(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	items, err := s.store.ListByDateRange(r.Context(), now.AddDate(0, 0, -7), now)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeExpenseList(w, items)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListRecurring(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeExpenseList(w, items)
}

func (s *Server) handleListAmountAbove(w http.ResponseWriter, r *http.Request) {
	s.listByAmount(w, r, s.store.ListAmountAbove)
}

func (s *Server) handleListAmountBelow(w http.ResponseWriter, r *http.Request) {
	s.listByAmount(w, r, s.store.ListAmountBelow)
}

func (s *Server) listByAmount(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, cents int64) ([]core.Expense, error)) {
	cents, err := core.ParseDecimalToCents(r.PathValue("amount"))
	if err != nil {
		s.writeDomainError(w, fmt.Errorf("%w: %q", core.ErrInvalidAmount, r.PathValue("amount")))
		return
	}
	items, err := list(r.Context(), cents)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeExpenseList(w, items)
}

// writeExpenseList renders a list result; an empty list is 204 No Content.
func (s *Server) writeExpenseList(w http.ResponseWriter, items []core.Expense) {
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	out := make([]expenseResponse, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseResponse(e))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		s.writeError(w, http.StatusBadRequest, "invalid expense id")
		return 0, false
	}
	return id, true
}
