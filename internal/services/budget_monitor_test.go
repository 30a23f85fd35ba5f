package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"spendtrack/internal/core"
)

func monitorWith(store *fakeStore) (*BudgetMonitor, *fakeAlertLog, *fakeDispatcher) {
	alerts := newFakeAlertLog()
	dispatcher := &fakeDispatcher{}
	return NewBudgetMonitor(store, alerts, dispatcher), alerts, dispatcher
}

func TestBudgetMonitor_Scenarios(t *testing.T) {
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		spentCents   int64
		budget       int64
		wantLevel    core.AlertLevel
		wantNotified bool
	}{
		{name: "spend 750 of 1000", spentCents: 75000, budget: 1000, wantLevel: core.AlertNone, wantNotified: false},
		{name: "spend 800 of 1000", spentCents: 80000, budget: 1000, wantLevel: core.AlertWarn80, wantNotified: true},
		{name: "spend 950 of 1000", spentCents: 95000, budget: 1000, wantLevel: core.AlertWarn90, wantNotified: true},
		{name: "spend 1000 of 1000", spentCents: 100000, budget: 1000, wantLevel: core.AlertLimit100, wantNotified: true},
		{name: "spend 1250 of 1000", spentCents: 125000, budget: 1000, wantLevel: core.AlertOverspent120, wantNotified: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.add(spend("user@example.com", tt.spentCents, core.CategoryFood, 1))
			monitor, _, dispatcher := monitorWith(store)

			level, notified, err := monitor.EvaluateAndNotify(context.Background(), "user@example.com", tt.budget, asOf)
			if err != nil {
				t.Fatalf("EvaluateAndNotify(): %v", err)
			}
			if level != tt.wantLevel {
				t.Errorf("level = %v, want %v", level, tt.wantLevel)
			}
			if notified != tt.wantNotified {
				t.Errorf("notified = %v, want %v", notified, tt.wantNotified)
			}
			wantSent := 0
			if tt.wantNotified {
				wantSent = 1
			}
			if dispatcher.count() != wantSent {
				t.Errorf("dispatcher sent %d messages, want %d", dispatcher.count(), wantSent)
			}
		})
	}
}

func TestBudgetMonitor_SubjectCarriesMarker(t *testing.T) {
	store := newFakeStore()
	store.add(spend("user@example.com", 80000, core.CategoryFood, 1))
	monitor, _, dispatcher := monitorWith(store)
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	if _, _, err := monitor.EvaluateAndNotify(context.Background(), "user@example.com", 1000, asOf); err != nil {
		t.Fatalf("EvaluateAndNotify(): %v", err)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("dispatcher sent %d messages, want 1", dispatcher.count())
	}
	msg := dispatcher.sent[0]
	if msg.recipient != "user@example.com" {
		t.Errorf("recipient = %q", msg.recipient)
	}
	if !strings.Contains(msg.subject, "80%") {
		t.Errorf("subject = %q, want 80%% marker", msg.subject)
	}
	if !strings.Contains(msg.body, "800.00") || !strings.Contains(msg.body, "80%") {
		t.Errorf("body = %q, want spent amount and percentage", msg.body)
	}
}

func TestBudgetMonitor_InvalidBudget(t *testing.T) {
	monitor, _, dispatcher := monitorWith(newFakeStore())
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	for _, budget := range []int64{0, -100} {
		level, notified, err := monitor.EvaluateAndNotify(context.Background(), "user@example.com", budget, asOf)
		if !errors.Is(err, core.ErrInvalidBudget) {
			t.Errorf("budget %d: error = %v, want ErrInvalidBudget", budget, err)
		}
		if level != core.AlertNone || notified {
			t.Errorf("budget %d: level = %v notified = %v, want NONE/false", budget, level, notified)
		}
	}
	if dispatcher.count() != 0 {
		t.Errorf("dispatcher invoked on invalid budget")
	}
}

func TestBudgetMonitor_WatermarkSuppressesRepeats(t *testing.T) {
	store := newFakeStore()
	store.add(spend("user@example.com", 80000, core.CategoryFood, 1))
	monitor, _, dispatcher := monitorWith(store)
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	_, notified, err := monitor.EvaluateAndNotify(context.Background(), "user@example.com", 1000, asOf)
	if err != nil || !notified {
		t.Fatalf("first evaluation: notified = %v, err = %v", notified, err)
	}

	// Same total re-evaluated later the same month: suppressed.
	_, notified, err = monitor.EvaluateAndNotify(context.Background(), "user@example.com", 1000, asOf.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("second evaluation: %v", err)
	}
	if notified {
		t.Error("repeated evaluation at the same level should not re-notify")
	}
	if dispatcher.count() != 1 {
		t.Errorf("dispatcher sent %d messages, want 1", dispatcher.count())
	}

	// Crossing into a higher band notifies again.
	store.add(spend("user@example.com", 15000, core.CategoryTravel, 20))
	level, notified, err := monitor.EvaluateAndNotify(context.Background(), "user@example.com", 1000, asOf.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("third evaluation: %v", err)
	}
	if level != core.AlertWarn90 || !notified {
		t.Errorf("level = %v notified = %v, want WARN_90/true", level, notified)
	}

	// A new month starts from a clean watermark.
	nextMonth := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	store.add(core.Expense{
		Title: "rent", UserEmail: "user@example.com",
		Amount: core.Money{Cents: 85000}, Budget: 1000,
		Category: core.CategoryRent, ExpenseDone: nextMonth,
	})
	_, notified, err = monitor.EvaluateAndNotify(context.Background(), "user@example.com", 1000, nextMonth)
	if err != nil {
		t.Fatalf("next month evaluation: %v", err)
	}
	if !notified {
		t.Error("a fresh month should notify again")
	}
}

func TestBudgetMonitor_DispatchFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	store.add(spend("user@example.com", 90000, core.CategoryFood, 1))
	alerts := newFakeAlertLog()
	dispatcher := &fakeDispatcher{failWith: errors.New("smtp down")}
	monitor := NewBudgetMonitor(store, alerts, dispatcher)
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	level, notified, err := monitor.EvaluateAndNotify(context.Background(), "user@example.com", 1000, asOf)
	if err != nil {
		t.Fatalf("dispatch failure must not propagate, got %v", err)
	}
	if level != core.AlertWarn90 {
		t.Errorf("level = %v, want WARN_90", level)
	}
	if notified {
		t.Error("notified must be false when dispatch fails")
	}

	// The watermark must not advance, so a retry can deliver.
	dispatcher.failWith = nil
	_, notified, err = monitor.EvaluateAndNotify(context.Background(), "user@example.com", 1000, asOf)
	if err != nil || !notified {
		t.Errorf("retry after dispatcher recovery: notified = %v, err = %v", notified, err)
	}
}

func TestBudgetMonitor_WatermarkReadFailureStillNotifies(t *testing.T) {
	store := newFakeStore()
	store.add(spend("user@example.com", 80000, core.CategoryFood, 1))
	alerts := newFakeAlertLog()
	alerts.failWith = errors.New("table locked")
	dispatcher := &fakeDispatcher{}
	monitor := NewBudgetMonitor(store, alerts, dispatcher)
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	_, notified, err := monitor.EvaluateAndNotify(context.Background(), "user@example.com", 1000, asOf)
	if err != nil {
		t.Fatalf("EvaluateAndNotify(): %v", err)
	}
	if !notified {
		t.Error("a watermark read failure should not block alerting")
	}
}
