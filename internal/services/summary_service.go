package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"spendtrack/internal/core"
)

// SummaryService computes the monthly aggregate: total spend, average spend
// per distinct spend day, and category totals ranked descending. It is a
// read-only scan over the store, recomputed on every call.
type SummaryService struct {
	store MonthReader
}

func NewSummaryService(store MonthReader) *SummaryService {
	return &SummaryService{store: store}
}

// MonthSummaryFor aggregates the user's spend for the calendar month of asOf.
// A month with no matching records yields a zero total and a zero average
// daily spend; it is never an error.
func (s *SummaryService) MonthSummaryFor(ctx context.Context, userEmail string, asOf time.Time) (core.MonthSummary, error) {
	year, month := asOf.Year(), asOf.Month()
	summary := core.MonthSummary{Year: year, Month: int(month)}

	total, err := s.store.MonthTotal(ctx, userEmail, year, month)
	if err != nil {
		return summary, fmt.Errorf("month total: %w", err)
	}
	summary.Total = total

	days, err := s.store.DistinctSpendDays(ctx, userEmail, year, month)
	if err != nil {
		return summary, fmt.Errorf("distinct spend days: %w", err)
	}
	// No spend days means no division: the average is defined as zero.
	if days > 0 {
		summary.AverageDaily = core.Money{Cents: roundedQuotient(total.Cents, int64(days))}
	}

	totals, err := s.store.CategoryTotalsForMonth(ctx, userEmail, year, month)
	if err != nil {
		return summary, fmt.Errorf("category totals: %w", err)
	}
	summary.TopCategories = rankCategoryTotals(totals)

	return summary, nil
}

// rankCategoryTotals orders totals descending by amount, breaking ties by the
// category enumeration order so the ranking is deterministic.
func rankCategoryTotals(totals []core.CategoryTotal) []core.CategoryTotal {
	ranked := make([]core.CategoryTotal, len(totals))
	copy(ranked, totals)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Total.Cents != ranked[j].Total.Cents {
			return ranked[i].Total.Cents > ranked[j].Total.Cents
		}
		return ranked[i].Category.Rank() < ranked[j].Category.Rank()
	})
	return ranked
}

// roundedQuotient divides a by b with half-up rounding. b must be positive.
func roundedQuotient(a, b int64) int64 {
	return (2*a + b) / (2 * b)
}
