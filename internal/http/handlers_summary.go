package http

import (
	"net/http"
	"strconv"
	"time"

	"spendtrack/internal/core"
)

type categoryTotalResponse struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type monthSummaryResponse struct {
	Year          int                     `json:"year"`
	Month         int                     `json:"month"`
	Total         string                  `json:"total"`
	AverageDaily  string                  `json:"average_daily"`
	TopCategories []categoryTotalResponse `json:"top_categories"`
}

// handleMonthSummary returns the monthly aggregate for one user. Defaults to
// the current month; year and month query parameters select another one.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if err := core.ValidateEmail(user); err != nil {
		s.writeDomainError(w, err)
		return
	}

	asOf := s.now()
	yearParam := r.URL.Query().Get("year")
	monthParam := r.URL.Query().Get("month")
	if yearParam != "" || monthParam != "" {
		year, err := strconv.Atoi(yearParam)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		month, err := strconv.Atoi(monthParam)
		if err != nil || month < 1 || month > 12 {
			s.writeError(w, http.StatusBadRequest, "invalid month: must be 1-12")
			return
		}
		asOf = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	}

	summary, err := s.summaries.MonthSummaryFor(r.Context(), user, asOf)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := monthSummaryResponse{
		Year:          summary.Year,
		Month:         summary.Month,
		Total:         summary.Total.String(),
		AverageDaily:  summary.AverageDaily.String(),
		TopCategories: make([]categoryTotalResponse, 0, 3),
	}
	for _, ct := range summary.Top(3) {
		resp.TopCategories = append(resp.TopCategories, categoryTotalResponse{
			Category: string(ct.Category),
			Total:    ct.Total.String(),
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}
