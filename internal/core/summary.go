package core

// CategoryTotal is an amount summed per category.
type CategoryTotal struct {
	Category Category
	Total    Money
}

// MonthSummary is a derived, non-persisted aggregate for one user's calendar
// month: total spend, average spend per distinct spend day, and category
// totals ranked descending.
type MonthSummary struct {
	Year          int
	Month         int // 1-12
	Total         Money
	AverageDaily  Money
	TopCategories []CategoryTotal
}

// Top returns at most n leading categories.
func (s MonthSummary) Top(n int) []CategoryTotal {
	if n < 0 || n > len(s.TopCategories) {
		n = len(s.TopCategories)
	}
	return s.TopCategories[:n]
}
