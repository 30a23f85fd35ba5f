package services

import (
	"context"
	"time"

	"spendtrack/internal/core"
)

// Ports for the storage collaborator. The SQLite repository implements all of
// them; tests substitute in-memory fakes.
type (
	// ExpenseStore owns persisted expense records.
	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (int64, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id int64) error
		DeleteAllExpenses(ctx context.Context) error
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		ListByCategory(ctx context.Context, c core.Category) ([]core.Expense, error)
		ListByPaymentMode(ctx context.Context, m core.PaymentMode) ([]core.Expense, error)
		ListByDateRange(ctx context.Context, start, end time.Time) ([]core.Expense, error)
		ListRecurring(ctx context.Context) ([]core.Expense, error)
		ListAmountAbove(ctx context.Context, cents int64) ([]core.Expense, error)
		ListAmountBelow(ctx context.Context, cents int64) ([]core.Expense, error)
	}

	// MonthReader provides the aggregate queries the summary service and the
	// budget monitor are built on. All queries are scoped to one user.
	MonthReader interface {
		MonthTotal(ctx context.Context, userEmail string, year int, month time.Month) (core.Money, error)
		CategoryTotalsForMonth(ctx context.Context, userEmail string, year int, month time.Month) ([]core.CategoryTotal, error)
		DistinctSpendDays(ctx context.Context, userEmail string, year int, month time.Month) (int, error)
	}

	// RecurringStore is the slice of storage the scheduler needs.
	RecurringStore interface {
		ListRecurring(ctx context.Context) ([]core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (int64, error)
		// MarkMaterialized stamps the template's expense date and
		// last-materialized timestamp after an instance has been created.
		MarkMaterialized(ctx context.Context, id int64, at time.Time) error
	}

	// AlertLog keeps the per-user-per-month watermark of the highest alert
	// level already notified, so a crossing is signalled at most once.
	AlertLog interface {
		HighestNotified(ctx context.Context, userEmail string, year int, month time.Month) (core.AlertLevel, error)
		RecordNotified(ctx context.Context, userEmail string, year int, month time.Month, level core.AlertLevel) error
	}
)
