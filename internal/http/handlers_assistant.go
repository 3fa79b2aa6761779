package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"tresor/internal/assistant"
	"tresor/internal/auth"
	"tresor/internal/core"
	applog "tresor/internal/log"
)

type assistantRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "Assistant is not configured")
		return
	}

	var req assistantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Missing or invalid prompt")
		return
	}

	// Personalize when the user's data loads; otherwise fall back to a
	// generic context rather than failing the request.
	systemContext := assistant.GenericContext
	var (
		user     core.User
		budgets  []core.Budget
		expenses []core.Expense
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
	if err := g.Wait(); err != nil {
		slog.WarnContext(r.Context(), "Assistant context degraded to generic",
			applog.FieldError, err,
			applog.FieldUserID, userID)
	} else {
		systemContext = assistant.BuildContext(user, budgets, expenses)
	}

	reply, err := s.assistant.Chat(r.Context(), systemContext, req.Prompt)
	if err != nil {
		if errors.Is(err, assistant.ErrNoReply) {
			writeError(w, http.StatusBadGateway, "No response from AI model")
			return
		}
		slog.ErrorContext(r.Context(), "Assistant request failed", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to answer right now")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"content": reply})
}
