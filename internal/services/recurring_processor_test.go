package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"spendtrack/internal/core"
)

func recurringTemplate(title string) core.Expense {
	return core.Expense{
		Title:       title,
		UserEmail:   "user@example.com",
		Amount:      core.Money{Cents: 120000},
		Budget:      5000,
		Category:    core.CategoryRent,
		PaymentMode: core.PaymentNetBanking,
		ExpenseDone: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Notes:       "monthly rent",
		Recurring:   true,
	}
}

func TestRecurringProcessor_NoTemplates(t *testing.T) {
	store := newFakeStore()
	processor := NewRecurringProcessor(store)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	created, err := processor.MaterializeDue(context.Background(), now)
	if err != nil {
		t.Fatalf("MaterializeDue(): %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
	if store.writes != 0 {
		t.Errorf("store writes = %d, want 0", store.writes)
	}
}

func TestRecurringProcessor_MaterializesOne(t *testing.T) {
	store := newFakeStore()
	tpl := store.add(recurringTemplate("Rent"))
	processor := NewRecurringProcessor(store)
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	created, err := processor.MaterializeDue(context.Background(), now)
	if err != nil {
		t.Fatalf("MaterializeDue(): %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}

	all, _ := store.ListExpenses(context.Background())
	if len(all) != 2 {
		t.Fatalf("store has %d records, want template + instance", len(all))
	}

	var instance core.Expense
	for _, e := range all {
		if e.ID != tpl.ID {
			instance = e
		}
	}
	wantDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if !instance.ExpenseDone.Equal(wantDate) {
		t.Errorf("instance date = %v, want %v", instance.ExpenseDone, wantDate)
	}
	if instance.Recurring {
		t.Error("materialized instance must not itself be recurring")
	}
	if instance.Title != tpl.Title || instance.Amount != tpl.Amount ||
		instance.Category != tpl.Category || instance.PaymentMode != tpl.PaymentMode ||
		instance.Notes != tpl.Notes || instance.UserEmail != tpl.UserEmail {
		t.Errorf("instance fields differ from template: %+v", instance)
	}

	updatedTpl, _ := store.GetExpense(context.Background(), tpl.ID)
	if !updatedTpl.ExpenseDone.Equal(wantDate) {
		t.Errorf("template date = %v, want advanced to %v", updatedTpl.ExpenseDone, wantDate)
	}
	if !core.SameMonth(updatedTpl.LastMaterialized, now) {
		t.Errorf("template LastMaterialized = %v, want stamped in %v", updatedTpl.LastMaterialized, now.Month())
	}
}

func TestRecurringProcessor_RerunSameMonthIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.add(recurringTemplate("Rent"))
	processor := NewRecurringProcessor(store)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	if _, err := processor.MaterializeDue(context.Background(), now); err != nil {
		t.Fatalf("first run: %v", err)
	}
	created, err := processor.MaterializeDue(context.Background(), now.AddDate(0, 0, 10))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if created != 0 {
		t.Errorf("second run created = %d, want 0", created)
	}
	all, _ := store.ListExpenses(context.Background())
	if len(all) != 2 {
		t.Errorf("store has %d records after re-run, want 2", len(all))
	}

	// The next month is due again.
	created, err = processor.MaterializeDue(context.Background(), now.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("next month run: %v", err)
	}
	if created != 1 {
		t.Errorf("next month created = %d, want 1", created)
	}
}

func TestRecurringProcessor_ListFailureFailsJob(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("db locked")
	processor := NewRecurringProcessor(store)

	_, err := processor.MaterializeDue(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected error when template query fails")
	}
}

func TestRecurringProcessor_CreateFailureSkipsRecord(t *testing.T) {
	store := newFakeStore()
	store.add(recurringTemplate("Rent"))
	processor := NewRecurringProcessor(store)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	// Fail inserts only: ListRecurring must still succeed.
	failing := &createFailingStore{fakeStore: store}
	processor = NewRecurringProcessor(failing)

	created, err := processor.MaterializeDue(context.Background(), now)
	if err != nil {
		t.Fatalf("per-record failure must not fail the job: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
	tpl, _ := store.GetExpense(context.Background(), 1)
	if !tpl.LastMaterialized.IsZero() {
		t.Error("template must not be stamped when the instance was not created")
	}
}

type createFailingStore struct {
	*fakeStore
}

func (s *createFailingStore) CreateExpense(context.Context, core.Expense) (int64, error) {
	return 0, errors.New("disk full")
}
