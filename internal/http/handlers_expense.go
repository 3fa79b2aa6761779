package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tresor/internal/auth"
	"tresor/internal/core"
	"tresor/internal/events"
	applog "tresor/internal/log"
	"tresor/internal/storage"
)

type expenseRequest struct {
	Name       string     `json:"name"`
	Amount     float64    `json:"amount"`
	Category   string     `json:"category"`
	OccurredAt *time.Time `json:"occurredAt"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := time.Now().UTC()
	e := core.Expense{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       req.Name,
		Amount:     req.Amount,
		Category:   req.Category,
		OccurredAt: now,
		CreatedAt:  now,
	}
	if req.OccurredAt != nil {
		e.OccurredAt = req.OccurredAt.UTC()
	}
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.storage.CreateExpense(r.Context(), e); err != nil {
		slog.ErrorContext(r.Context(), "Failed creating expense", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to add expense")
		return
	}

	s.invalidateOverview(userID)
	msg := events.NewAlertMessage(userID, events.KindExpenseCreated, e.Name, e.Amount)
	msg.Category = e.Category
	s.publishAlert(r.Context(), msg)

	slog.InfoContext(r.Context(), "Expense created",
		applog.FieldUserID, userID,
		applog.FieldExpenseID, e.ID,
		applog.FieldAmount, e.Amount,
		applog.FieldCategory, e.Category)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	expenses, err := s.storage.ListExpenses(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed listing expenses", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch expenses")
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing id")
		return
	}

	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	e := core.Expense{
		ID:         id,
		UserID:     userID,
		Name:       req.Name,
		Amount:     req.Amount,
		Category:   req.Category,
		OccurredAt: time.Now().UTC(),
	}
	if req.OccurredAt != nil {
		e.OccurredAt = req.OccurredAt.UTC()
	}
	if err := e.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.storage.UpdateExpense(r.Context(), e); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed updating expense", applog.FieldError, err, applog.FieldUserID, userID, applog.FieldExpenseID, id)
		writeError(w, http.StatusInternalServerError, "Unable to update expense")
		return
	}

	s.invalidateOverview(userID)
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing id")
		return
	}

	if err := s.storage.DeleteExpense(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed deleting expense", applog.FieldError, err, applog.FieldUserID, userID, applog.FieldExpenseID, id)
		writeError(w, http.StatusInternalServerError, "Unable to delete expense")
		return
	}

	s.invalidateOverview(userID)
	slog.InfoContext(r.Context(), "Expense deleted", applog.FieldUserID, userID, applog.FieldExpenseID, id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
