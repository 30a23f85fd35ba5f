package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"spendtrack/internal/core"
)

// errorResponse is the JSON body returned for every failed request.
type errorResponse struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{
		Error:     msg,
		Status:    status,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

// writeDomainError translates an error kind into an HTTP status.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	s.writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrEmptyUserEmail),
		errors.Is(err, core.ErrInvalidUserEmail),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidBudget),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidPaymentMode),
		errors.Is(err, core.ErrTitleTooLong),
		errors.Is(err, core.ErrNotesTooLong),
		errors.Is(err, core.ErrMissingDate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
