package http

import (
	"context"
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

type budgetRequest struct {
	Name               string            `json:"name"`
	Income             float64           `json:"income"`
	SavingsPercentage  float64           `json:"savingsPercentage"`
	Expenses           []core.BudgetLine `json:"expenses"`
	UnexpectedIncome   float64           `json:"unexpectedIncome"`
	UnexpectedExpenses float64           `json:"unexpectedExpenses"`
	Status             core.BudgetStatus `json:"status"`
}

// budgetUpdateRequest uses pointers so absent fields keep their stored value.
type budgetUpdateRequest struct {
	Name               *string            `json:"name"`
	Income             *float64           `json:"income"`
	SavingsPercentage  *float64           `json:"savingsPercentage"`
	Expenses           *[]core.BudgetLine `json:"expenses"`
	UnexpectedIncome   *float64           `json:"unexpectedIncome"`
	UnexpectedExpenses *float64           `json:"unexpectedExpenses"`
	Status             *core.BudgetStatus `json:"status"`
}

// validateBudget enforces the boundary ranges; the engine downstream only
// ever sees budgets that passed here.
func validateBudget(b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.SavingsPercentage > 100 {
		return core.ErrMalformedPercentage
	}
	return nil
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	now := time.Now().UTC()
	b := core.Budget{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Name:               req.Name,
		Income:             req.Income,
		SavingsPercentage:  req.SavingsPercentage,
		Expenses:           req.Expenses,
		UnexpectedIncome:   req.UnexpectedIncome,
		UnexpectedExpenses: req.UnexpectedExpenses,
		Status:             req.Status,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if b.Status == "" {
		b.Status = core.StatusActive
	}
	if err := validateBudget(b); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	derived, err := core.ComputeBudgetDerived(b)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	b.Debt = derived.Debt

	if err := s.storage.CreateBudget(r.Context(), b); err != nil {
		slog.ErrorContext(r.Context(), "Failed creating budget", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to create budget")
		return
	}

	s.invalidateOverview(userID)
	s.publishAlert(r.Context(), events.NewAlertMessage(userID, events.KindBudgetCreated, b.Name, b.Income))
	if b.Debt > 0 {
		s.publishAlert(r.Context(), events.NewAlertMessage(userID, events.KindBudgetDebt, b.Name, b.Debt))
	}

	slog.InfoContext(r.Context(), "Budget created",
		applog.FieldUserID, userID,
		applog.FieldBudgetID, b.ID,
		applog.FieldDebt, b.Debt)
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	budgets, err := s.storage.ListBudgets(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed listing budgets", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch budgets")
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	b, err := s.storage.GetBudget(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed loading budget", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch budget")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var req budgetUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b, err := s.storage.GetBudget(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed loading budget", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to update budget")
		return
	}

	if req.Name != nil {
		b.Name = *req.Name
	}
	if req.Income != nil {
		b.Income = *req.Income
	}
	if req.SavingsPercentage != nil {
		b.SavingsPercentage = *req.SavingsPercentage
	}
	if req.Expenses != nil {
		b.Expenses = *req.Expenses
	}
	if req.UnexpectedIncome != nil {
		b.UnexpectedIncome = *req.UnexpectedIncome
	}
	if req.UnexpectedExpenses != nil {
		b.UnexpectedExpenses = *req.UnexpectedExpenses
	}
	if req.Status != nil {
		b.Status = *req.Status
	}

	if err := validateBudget(b); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// Debt is derived state; every write recomputes it from scratch.
	derived, err := core.ComputeBudgetDerived(b)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	b.Debt = derived.Debt
	b.UpdatedAt = time.Now().UTC()

	if err := s.storage.UpdateBudget(r.Context(), b); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed updating budget", applog.FieldError, err, applog.FieldUserID, userID, applog.FieldBudgetID, id)
		writeError(w, http.StatusInternalServerError, "Unable to update budget")
		return
	}

	s.invalidateOverview(userID)
	if b.Debt > 0 {
		s.publishAlert(r.Context(), events.NewAlertMessage(userID, events.KindBudgetDebt, b.Name, b.Debt))
	}

	slog.InfoContext(r.Context(), "Budget updated",
		applog.FieldUserID, userID,
		applog.FieldBudgetID, b.ID,
		applog.FieldDebt, b.Debt)
	writeJSON(w, http.StatusOK, b)
}

// publishAlert sends an alert event when a broker is configured. Failures are
// logged and swallowed; a broker outage never fails the originating request.
func (s *Server) publishAlert(ctx context.Context, msg *events.AlertMessage) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAlert(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Failed publishing alert event",
			applog.FieldError, err,
			applog.FieldEventKind, msg.Kind)
	}
}
