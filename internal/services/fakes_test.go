package services

import (
	"context"
	"sync"
	"time"

	"spendtrack/internal/core"
)

// fakeStore is an in-memory ExpenseStore/MonthReader/RecurringStore used by
// the service tests. Aggregates are computed by scanning the slice, which
// keeps the fake honest about the scoping rules.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	items    []core.Expense
	failWith error
	writes   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1}
}

func (s *fakeStore) add(e core.Expense) core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	s.items = append(s.items, e)
	return e
}

func (s *fakeStore) CreateExpense(_ context.Context, e core.Expense) (int64, error) {
	if s.failWith != nil {
		return 0, s.failWith
	}
	s.writes++
	return s.add(e).ID, nil
}

func (s *fakeStore) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.items {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (s *fakeStore) UpdateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	for i := range s.items {
		if s.items[i].ID == e.ID {
			s.items[i] = e
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *fakeStore) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *fakeStore) DeleteAllExpenses(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return nil
}

func (s *fakeStore) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...), nil
}

func (s *fakeStore) ListByCategory(_ context.Context, c core.Category) ([]core.Expense, error) {
	return s.filter(func(e core.Expense) bool { return e.Category == c })
}

func (s *fakeStore) ListByPaymentMode(_ context.Context, m core.PaymentMode) ([]core.Expense, error) {
	return s.filter(func(e core.Expense) bool { return e.PaymentMode == m })
}

func (s *fakeStore) ListByDateRange(_ context.Context, start, end time.Time) ([]core.Expense, error) {
	return s.filter(func(e core.Expense) bool {
		return !e.ExpenseDone.Before(start) && !e.ExpenseDone.After(end)
	})
}

func (s *fakeStore) ListAmountAbove(_ context.Context, cents int64) ([]core.Expense, error) {
	return s.filter(func(e core.Expense) bool { return e.Amount.Cents > cents })
}

func (s *fakeStore) ListAmountBelow(_ context.Context, cents int64) ([]core.Expense, error) {
	return s.filter(func(e core.Expense) bool { return e.Amount.Cents < cents })
}

func (s *fakeStore) ListRecurring(_ context.Context) ([]core.Expense, error) {
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.filter(func(e core.Expense) bool { return e.Recurring })
}

func (s *fakeStore) MarkMaterialized(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].ExpenseDone = core.DateOnly(at)
			s.items[i].LastMaterialized = at
			s.items[i].UpdatedAt = at
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *fakeStore) filter(keep func(core.Expense) bool) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for _, e := range s.items {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *fakeStore) MonthTotal(_ context.Context, userEmail string, year int, month time.Month) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, e := range s.items {
		if e.UserEmail == userEmail && e.ExpenseDone.Year() == year && e.ExpenseDone.Month() == month {
			total += e.Amount.Cents
		}
	}
	return core.Money{Cents: total}, nil
}

func (s *fakeStore) CategoryTotalsForMonth(_ context.Context, userEmail string, year int, month time.Month) ([]core.CategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := make(map[core.Category]int64)
	for _, e := range s.items {
		if e.UserEmail == userEmail && e.ExpenseDone.Year() == year && e.ExpenseDone.Month() == month {
			sums[e.Category] += e.Amount.Cents
		}
	}
	var out []core.CategoryTotal
	for _, c := range core.Categories() {
		if cents, ok := sums[c]; ok {
			out = append(out, core.CategoryTotal{Category: c, Total: core.Money{Cents: cents}})
		}
	}
	return out, nil
}

func (s *fakeStore) DistinctSpendDays(_ context.Context, userEmail string, year int, month time.Month) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days := make(map[string]struct{})
	for _, e := range s.items {
		if e.UserEmail == userEmail && e.ExpenseDone.Year() == year && e.ExpenseDone.Month() == month {
			days[e.ExpenseDone.Format("2006-01-02")] = struct{}{}
		}
	}
	return len(days), nil
}

// fakeAlertLog records watermarks in memory.
type fakeAlertLog struct {
	mu       sync.Mutex
	levels   map[string]core.AlertLevel
	failWith error
}

func newFakeAlertLog() *fakeAlertLog {
	return &fakeAlertLog{levels: make(map[string]core.AlertLevel)}
}

func alertKey(userEmail string, year int, month time.Month) string {
	return userEmail + "/" + time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func (l *fakeAlertLog) HighestNotified(_ context.Context, userEmail string, year int, month time.Month) (core.AlertLevel, error) {
	if l.failWith != nil {
		return core.AlertNone, l.failWith
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.levels[alertKey(userEmail, year, month)], nil
}

func (l *fakeAlertLog) RecordNotified(_ context.Context, userEmail string, year int, month time.Month, level core.AlertLevel) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.levels[alertKey(userEmail, year, month)] = level
	return nil
}

// fakeDispatcher records sent notifications and can be made to fail.
type fakeDispatcher struct {
	mu       sync.Mutex
	sent     []sentAlert
	failWith error
}

type sentAlert struct {
	recipient string
	subject   string
	body      string
}

func (d *fakeDispatcher) Send(_ context.Context, recipient, subject, body string) error {
	if d.failWith != nil {
		return d.failWith
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentAlert{recipient: recipient, subject: subject, body: body})
	return nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}
