// Package storage implements the expense store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"spendtrack/internal/core"

	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

const expenseColumns = `id, title, user_email, amount_cents, budget, category,
	payment_mode, expense_done, notes, recurring, last_materialized,
	created_at, updated_at`

// SQLiteRepository owns the persisted expense records and the alert
// watermark table.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateExpense inserts a record and returns its assigned id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (title, user_email, amount_cents, budget, category,
			payment_mode, expense_done, notes, recurring, last_materialized,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.UserEmail, e.Amount.Cents, e.Budget, string(e.Category),
		string(e.PaymentMode), e.ExpenseDone.Format(dateLayout), e.Notes,
		boolToInt(e.Recurring), formatNullableTime(e.LastMaterialized),
		e.CreatedAt.Format(timeLayout), e.UpdatedAt.Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET title = ?, user_email = ?, amount_cents = ?, budget = ?,
			category = ?, payment_mode = ?, expense_done = ?, notes = ?,
			recurring = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, e.UserEmail, e.Amount.Cents, e.Budget, string(e.Category),
		string(e.PaymentMode), e.ExpenseDone.Format(dateLayout), e.Notes,
		boolToInt(e.Recurring), e.UpdatedAt.Format(timeLayout), e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteAllExpenses(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("delete all expenses: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.list(ctx,
		`SELECT `+expenseColumns+` FROM expenses ORDER BY expense_done DESC, id DESC`)
}

func (r *SQLiteRepository) ListByCategory(ctx context.Context, c core.Category) ([]core.Expense, error) {
	return r.list(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE category = ? ORDER BY expense_done DESC, id DESC`,
		string(c))
}

func (r *SQLiteRepository) ListByPaymentMode(ctx context.Context, m core.PaymentMode) ([]core.Expense, error) {
	return r.list(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE payment_mode = ? ORDER BY expense_done DESC, id DESC`,
		string(m))
}

func (r *SQLiteRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]core.Expense, error) {
	return r.list(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE expense_done >= ? AND expense_done <= ? ORDER BY expense_done DESC, id DESC`,
		start.Format(dateLayout), end.Format(dateLayout))
}

func (r *SQLiteRepository) ListAmountAbove(ctx context.Context, cents int64) ([]core.Expense, error) {
	return r.list(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE amount_cents > ? ORDER BY amount_cents DESC, id DESC`,
		cents)
}

func (r *SQLiteRepository) ListAmountBelow(ctx context.Context, cents int64) ([]core.Expense, error) {
	return r.list(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE amount_cents < ? ORDER BY amount_cents ASC, id DESC`,
		cents)
}

func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.Expense, error) {
	return r.list(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE recurring = 1 ORDER BY id ASC`)
}

// MarkMaterialized advances the template's attributed date and stamps its
// last-materialized timestamp after an instance has been created from it.
func (r *SQLiteRepository) MarkMaterialized(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET expense_done = ?, last_materialized = ?, updated_at = ?
		WHERE id = ?`,
		at.Format(dateLayout), at.UTC().Format(timeLayout),
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("mark materialized: %w", err)
	}
	return requireRow(res)
}

// MonthTotal sums the user's spend attributed to the given calendar month.
// Returns zero when no records match.
func (r *SQLiteRepository) MonthTotal(ctx context.Context, userEmail string, year int, month time.Month) (core.Money, error) {
	start, end := monthBounds(year, month)
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
		WHERE user_email = ? AND expense_done >= ? AND expense_done < ?`,
		userEmail, start, end).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("month total: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// CategoryTotalsForMonth sums the user's month per category, largest first.
// Deterministic tie-breaking is applied by the summary service.
func (r *SQLiteRepository) CategoryTotalsForMonth(ctx context.Context, userEmail string, year int, month time.Month) ([]core.CategoryTotal, error) {
	start, end := monthBounds(year, month)
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_cents) AS total FROM expenses
		WHERE user_email = ? AND expense_done >= ? AND expense_done < ?
		GROUP BY category
		ORDER BY total DESC`,
		userEmail, start, end)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryTotal
	for rows.Next() {
		var cat string
		var cents int64
		if err := rows.Scan(&cat, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, core.CategoryTotal{
			Category: core.Category(cat),
			Total:    core.Money{Cents: cents},
		})
	}
	return totals, rows.Err()
}

// DistinctSpendDays counts the distinct dates with at least one record in the
// user's month.
func (r *SQLiteRepository) DistinctSpendDays(ctx context.Context, userEmail string, year int, month time.Month) (int, error) {
	start, end := monthBounds(year, month)
	var days int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT expense_done) FROM expenses
		WHERE user_email = ? AND expense_done >= ? AND expense_done < ?`,
		userEmail, start, end).Scan(&days)
	if err != nil {
		return 0, fmt.Errorf("distinct spend days: %w", err)
	}
	return days, nil
}

// HighestNotified returns the alert watermark for the user's month, AlertNone
// when no alert has been dispatched yet.
func (r *SQLiteRepository) HighestNotified(ctx context.Context, userEmail string, year int, month time.Month) (core.AlertLevel, error) {
	var level int
	err := r.db.QueryRowContext(ctx, `
		SELECT level FROM alert_watermarks
		WHERE user_email = ? AND year = ? AND month = ?`,
		userEmail, year, int(month)).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return core.AlertNone, nil
	}
	if err != nil {
		return core.AlertNone, fmt.Errorf("read alert watermark: %w", err)
	}
	return core.AlertLevel(level), nil
}

// RecordNotified raises the watermark for the user's month.
func (r *SQLiteRepository) RecordNotified(ctx context.Context, userEmail string, year int, month time.Month, level core.AlertLevel) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_watermarks (user_email, year, month, level, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_email, year, month)
		DO UPDATE SET level = excluded.level, updated_at = excluded.updated_at`,
		userEmail, year, int(month), int(level), time.Now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record alert watermark: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                core.Expense
		category         string
		paymentMode      string
		expenseDone      string
		recurring        int
		lastMaterialized string
		createdAt        string
		updatedAt        string
	)
	err := row.Scan(&e.ID, &e.Title, &e.UserEmail, &e.Amount.Cents, &e.Budget,
		&category, &paymentMode, &expenseDone, &e.Notes, &recurring,
		&lastMaterialized, &createdAt, &updatedAt)
	if err != nil {
		return core.Expense{}, err
	}

	e.Category = core.Category(category)
	e.PaymentMode = core.PaymentMode(paymentMode)
	e.Recurring = recurring != 0

	if e.ExpenseDone, err = time.Parse(dateLayout, expenseDone); err != nil {
		return core.Expense{}, fmt.Errorf("parse expense_done %q: %w", expenseDone, err)
	}
	if e.LastMaterialized, err = parseNullableTime(lastMaterialized); err != nil {
		return core.Expense{}, fmt.Errorf("parse last_materialized %q: %w", lastMaterialized, err)
	}
	if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return core.Expense{}, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return e, nil
}

// monthBounds returns the half-open [first-of-month, first-of-next-month)
// date strings used by the monthly queries.
func monthBounds(year int, month time.Month) (string, string) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start.Format(dateLayout), start.AddDate(0, 1, 0).Format(dateLayout)
}

// requireRow maps a zero-row write to core.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatNullableTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseNullableTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
