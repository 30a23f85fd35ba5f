package core

import "fmt"

// AlertLevel is the discrete budget-alert band derived from the
// spend-to-budget ratio. Levels are ordered: a higher value always means a
// more severe crossing, which is what the per-month watermark compares.
type AlertLevel int

const (
	AlertNone AlertLevel = iota
	AlertWarn80
	AlertWarn90
	AlertLimit100
	AlertOverspent120
)

func (l AlertLevel) String() string {
	switch l {
	case AlertNone:
		return "NONE"
	case AlertWarn80:
		return "WARN_80"
	case AlertWarn90:
		return "WARN_90"
	case AlertLimit100:
		return "LIMIT_100"
	case AlertOverspent120:
		return "OVERSPENT_120"
	}
	return fmt.Sprintf("AlertLevel(%d)", int(l))
}

// Subject returns the notification subject line for a non-trivial level.
func (l AlertLevel) Subject() string {
	switch l {
	case AlertWarn80:
		return "Budget alert: 80% of budget reached"
	case AlertWarn90:
		return "Budget alert: 90% of budget reached"
	case AlertLimit100:
		return "Budget limit reached: 100% of budget spent"
	case AlertOverspent120:
		return "Overspent: 120% of budget crossed"
	}
	return ""
}

// BudgetPercentage computes round-half-up(spent / budget * 100) with integer
// arithmetic. budget is in whole currency units, spent in cents, so the ratio
// in percent is exactly spent.Cents / budget. budget must be positive.
func BudgetPercentage(spent Money, budget int64) (int, error) {
	if budget <= 0 {
		return 0, ErrInvalidBudget
	}
	if spent.Cents < 0 {
		return 0, ErrInvalidAmount
	}
	return int((2*spent.Cents + budget) / (2 * budget)), nil
}

// LevelForPercentage maps an integer percentage to its alert band. Bands are
// half-open and evaluated in ascending order.
func LevelForPercentage(pct int) AlertLevel {
	switch {
	case pct < 80:
		return AlertNone
	case pct < 90:
		return AlertWarn80
	case pct < 100:
		return AlertWarn90
	case pct < 120:
		return AlertLimit100
	default:
		return AlertOverspent120
	}
}

// AlertBody formats the notification body embedding spent amount, budget
// limit and percentage.
func AlertBody(spent Money, budget int64, pct int) string {
	return fmt.Sprintf(
		"Hi,\n\nYou have spent %s out of your %d.00 budget (%d%%).\nPlease review your expenses.\n\nspendtrack",
		spent, budget, pct)
}
