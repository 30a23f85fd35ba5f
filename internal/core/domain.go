package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryFood      Category = "FOOD"
	CategoryTravel    Category = "TRAVEL"
	CategoryRent      Category = "RENT"
	CategoryUtilities Category = "UTILITIES"
	CategoryOther     Category = "OTHER"
)

const (
	PaymentCash       PaymentMode = "CASH"
	PaymentCard       PaymentMode = "CARD"
	PaymentUPI        PaymentMode = "UPI"
	PaymentNetBanking PaymentMode = "NETBANKING"
)

type (
	Category string

	PaymentMode string

	Expense struct {
		ID          int64
		Title       string
		UserEmail   string
		Amount      Money
		Budget      int64 // monthly ceiling in whole currency units
		Category    Category
		PaymentMode PaymentMode // optional
		ExpenseDone time.Time   // date the spend is attributed to
		Notes       string
		Recurring   bool
		// LastMaterialized is set by the scheduler when this record is used
		// as a recurring template; zero means never materialized.
		LastMaterialized time.Time
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}
)

var (
	ErrEmptyTitle         = errors.New("empty title")
	ErrEmptyUserEmail     = errors.New("empty user email")
	ErrInvalidUserEmail   = errors.New("invalid user email")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidBudget      = errors.New("budget must be positive")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidPaymentMode = errors.New("invalid payment mode")
	ErrTitleTooLong       = errors.New("title too long (max 200 characters)")
	ErrNotesTooLong       = errors.New("notes too long (max 500 characters)")
	ErrMissingDate        = errors.New("missing expense date")
	ErrNotFound           = errors.New("expense not found")
)

// categoryOrder fixes the enumeration order used to break ties when
// categories are ranked by total.
var categoryOrder = []Category{
	CategoryFood,
	CategoryTravel,
	CategoryRent,
	CategoryUtilities,
	CategoryOther,
}

// Categories returns all categories in enumeration order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Rank returns the position of the category in the enumeration order.
// Unknown categories rank last.
func (c Category) Rank() int {
	for i, cat := range categoryOrder {
		if c == cat {
			return i
		}
	}
	return len(categoryOrder)
}

func (c Category) Valid() bool {
	for _, cat := range categoryOrder {
		if c == cat {
			return true
		}
	}
	return false
}

// ParseCategory matches a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentNetBanking:
		return true
	}
	return false
}

// ParsePaymentMode matches a payment mode case-insensitively.
// The empty string is allowed: payment mode is an optional field.
func ParsePaymentMode(s string) (PaymentMode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	m := PaymentMode(s)
	if !m.Valid() {
		return "", ErrInvalidPaymentMode
	}
	return m, nil
}

// Validate checks the client-supplied fields of an expense. System-assigned
// fields (ID, timestamps, LastMaterialized) are not inspected.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return ErrTitleTooLong
	}
	if err := ValidateEmail(e.UserEmail); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Budget <= 0 {
		return ErrInvalidBudget
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if e.PaymentMode != "" && !e.PaymentMode.Valid() {
		return ErrInvalidPaymentMode
	}
	if e.ExpenseDone.IsZero() {
		return ErrMissingDate
	}
	if len(e.Notes) > 500 {
		return ErrNotesTooLong
	}
	return nil
}

// ValidateEmail applies the minimal email shape check used for the owning
// user identifier.
func ValidateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmptyUserEmail
	}
	at := strings.Index(s, "@")
	if at < 1 || at == len(s)-1 || strings.Count(s, "@") != 1 {
		return ErrInvalidUserEmail
	}
	return nil
}

// SameMonth reports whether two instants fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// DateOnly truncates an instant to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
