package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"spendtrack/internal/core"
)

// RecurringProcessor materializes concrete expense entries from records
// flagged recurring. A template is materialized at most once per calendar
// month: the last-materialized timestamp is checked before creating an
// instance, so re-running the job within the same month is a no-op.
type RecurringProcessor struct {
	store RecurringStore
}

func NewRecurringProcessor(store RecurringStore) *RecurringProcessor {
	return &RecurringProcessor{store: store}
}

// MaterializeDue creates one instance for every due recurring template and
// returns the number created. Per-record persistence failures are logged and
// skipped; the job itself fails only when the template query fails.
func (p *RecurringProcessor) MaterializeDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.store.ListRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring templates: %w", err)
	}

	slog.InfoContext(ctx, "Materializing recurring expenses",
		"templates", len(templates),
		"run_date", now.Format("2006-01-02"))

	created := 0
	for _, tpl := range templates {
		if !tpl.LastMaterialized.IsZero() && core.SameMonth(tpl.LastMaterialized, now) {
			slog.DebugContext(ctx, "Template already materialized this month",
				"template_id", tpl.ID,
				"last_materialized", tpl.LastMaterialized.Format("2006-01-02"))
			continue
		}

		instance := core.Expense{
			Title:       tpl.Title,
			UserEmail:   tpl.UserEmail,
			Amount:      tpl.Amount,
			Budget:      tpl.Budget,
			Category:    tpl.Category,
			PaymentMode: tpl.PaymentMode,
			ExpenseDone: core.DateOnly(now),
			Notes:       tpl.Notes,
			Recurring:   false,
		}

		id, err := p.store.CreateExpense(ctx, instance)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from recurring template",
				"template_id", tpl.ID,
				"title", tpl.Title,
				"error", err)
			continue
		}

		if err := p.store.MarkMaterialized(ctx, tpl.ID, now); err != nil {
			// The instance exists; the template will be retried next run and
			// the month check keeps that from duplicating it only after the
			// stamp lands, so log loudly.
			slog.ErrorContext(ctx, "Failed to stamp template after materialization",
				"template_id", tpl.ID,
				"instance_id", id,
				"error", err)
			continue
		}

		created++
		slog.InfoContext(ctx, "Created expense from recurring template",
			"template_id", tpl.ID,
			"instance_id", id,
			"title", tpl.Title,
			"amount_cents", tpl.Amount.Cents)
	}

	slog.InfoContext(ctx, "Recurring materialization complete",
		"created", created,
		"templates_checked", len(templates))

	return created, nil
}
