package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"tresor/internal/auth"
	"tresor/internal/core"
	applog "tresor/internal/log"
	"tresor/internal/storage"
)

const unreadNotificationLimit = 5

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	if cached, ok := s.overviewCache.Get(userID); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	var (
		user          core.User
		budgets       []core.Budget
		expenses      []core.Expense
		notifications []core.Notification
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		user, err = s.storage.GetUserByID(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.storage.ListBudgets(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.storage.ListExpenses(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		notifications, err = s.storage.ListUnreadNotifications(ctx, userID, unreadNotificationLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		slog.ErrorContext(r.Context(), "Failed loading overview data", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch overview")
		return
	}

	overview, err := core.AggregateOverview(budgets, expenses, notifications, user, time.Now())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed aggregating overview", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch overview")
		return
	}

	s.overviewCache.Set(userID, overview)
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var (
		budgets  []core.Budget
		expenses []core.Expense
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		budgets, err = s.storage.ListBudgets(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.storage.ListExpenses(ctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(r.Context(), "Failed loading history data", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch history")
		return
	}

	history, err := core.AggregateHistory(budgets, expenses)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed aggregating history", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch history")
		return
	}

	writeJSON(w, http.StatusOK, history)
}
