package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendtrack/internal/core"
	"spendtrack/internal/notify"
)

// BudgetMonitor maps month-to-date spend against a declared budget to a
// discrete alert level and dispatches a notification when a new level is
// crossed. Dispatch is best-effort: a failing dispatcher is logged and never
// fails the caller.
type BudgetMonitor struct {
	store      MonthReader
	alerts     AlertLog
	dispatcher notify.Dispatcher
}

func NewBudgetMonitor(store MonthReader, alerts AlertLog, dispatcher notify.Dispatcher) *BudgetMonitor {
	return &BudgetMonitor{
		store:      store,
		alerts:     alerts,
		dispatcher: dispatcher,
	}
}

// EvaluateAndNotify computes the alert level for the user's spend in the
// calendar month of asOf. A non-trivial level is dispatched only when it
// exceeds the highest level already notified for that (user, month), then the
// watermark is raised. The caller must reject non-positive budgets before
// submission reaches this point; the monitor still fails fast on violation.
func (m *BudgetMonitor) EvaluateAndNotify(ctx context.Context, userEmail string, budget int64, asOf time.Time) (core.AlertLevel, bool, error) {
	if budget <= 0 {
		return core.AlertNone, false, core.ErrInvalidBudget
	}

	total, err := m.store.MonthTotal(ctx, userEmail, asOf.Year(), asOf.Month())
	if err != nil {
		return core.AlertNone, false, fmt.Errorf("month total: %w", err)
	}

	pct, err := core.BudgetPercentage(total, budget)
	if err != nil {
		return core.AlertNone, false, err
	}

	level := core.LevelForPercentage(pct)
	if level == core.AlertNone {
		return level, false, nil
	}

	// Watermark read failures must not block alerting; fall back to NONE and
	// accept a possible duplicate.
	highest, err := m.alerts.HighestNotified(ctx, userEmail, asOf.Year(), asOf.Month())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read alert watermark",
			"user_email", userEmail, "error", err)
		highest = core.AlertNone
	}
	if level <= highest {
		slog.DebugContext(ctx, "Alert level already notified this month",
			"user_email", userEmail,
			"level", level.String(),
			"watermark", highest.String())
		return level, false, nil
	}

	body := core.AlertBody(total, budget, pct)
	if err := m.dispatcher.Send(ctx, userEmail, level.Subject(), body); err != nil {
		slog.ErrorContext(ctx, "Failed to dispatch budget alert",
			"user_email", userEmail,
			"level", level.String(),
			"percentage", pct,
			"error", err)
		return level, false, nil
	}

	if err := m.alerts.RecordNotified(ctx, userEmail, asOf.Year(), asOf.Month(), level); err != nil {
		slog.ErrorContext(ctx, "Failed to record alert watermark",
			"user_email", userEmail,
			"level", level.String(),
			"error", err)
	}

	slog.InfoContext(ctx, "Budget alert dispatched",
		"user_email", userEmail,
		"level", level.String(),
		"spent_cents", total.Cents,
		"budget", budget,
		"percentage", pct)

	return level, true, nil
}
