package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendtrack/internal/core"
)

// ExpenseService orchestrates expense submission: validation, persistence and
// the inline budget evaluation that may trigger an alert.
type ExpenseService struct {
	store   ExpenseStore
	monitor *BudgetMonitor
	now     func() time.Time
}

func NewExpenseService(store ExpenseStore, monitor *BudgetMonitor, now func() time.Time) *ExpenseService {
	if now == nil {
		now = time.Now
	}
	return &ExpenseService{
		store:   store,
		monitor: monitor,
		now:     now,
	}
}

// Submit validates and persists an expense, then evaluates the user's budget
// for the current month. Alerting never fails the submission: monitor errors
// are logged and reported as AlertNone.
func (s *ExpenseService) Submit(ctx context.Context, e core.Expense) (core.Expense, core.AlertLevel, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, core.AlertNone, err
	}

	now := s.now()
	e.CreatedAt = now
	e.UpdatedAt = now

	id, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, core.AlertNone, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Expense created",
		"id", id,
		"title", e.Title,
		"user_email", e.UserEmail,
		"amount_cents", e.Amount.Cents,
		"category", string(e.Category))

	level := core.AlertNone
	if s.monitor != nil {
		var merr error
		level, _, merr = s.monitor.EvaluateAndNotify(ctx, e.UserEmail, e.Budget, now)
		if merr != nil {
			slog.ErrorContext(ctx, "Budget evaluation failed",
				"id", id, "user_email", e.UserEmail, "error", merr)
			level = core.AlertNone
		}
	}

	return e, level, nil
}

// Update replaces the client-supplied fields of an existing expense.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	current, err := s.store.GetExpense(ctx, e.ID)
	if err != nil {
		return core.Expense{}, err
	}

	e.CreatedAt = current.CreatedAt
	e.LastMaterialized = current.LastMaterialized
	e.UpdatedAt = s.now()

	if err := s.store.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return e, nil
}

// Delete removes one expense, surfacing core.ErrNotFound for absent ids.
func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if _, err := s.store.GetExpense(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteExpense(ctx, id)
}

// DeleteAll removes every expense record.
func (s *ExpenseService) DeleteAll(ctx context.Context) error {
	return s.store.DeleteAllExpenses(ctx)
}
