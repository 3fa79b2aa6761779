package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tresor/internal/auth"
	"tresor/internal/core"
	applog "tresor/internal/log"
	"tresor/internal/storage"
)

type notificationRequest struct {
	Title   string                `json:"title"`
	Message string                `json:"message"`
	Type    core.NotificationType `json:"type"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	notifications, err := s.storage.ListNotifications(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed listing notifications", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch notifications")
		return
	}
	if notifications == nil {
		notifications = []core.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req notificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Type == "" {
		req.Type = core.NotifInfo
	}

	n := core.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     req.Title,
		Message:   req.Message,
		Type:      req.Type,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.storage.CreateNotification(r.Context(), n); err != nil {
		slog.ErrorContext(r.Context(), "Failed creating notification", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to create notification")
		return
	}

	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing id")
		return
	}

	if err := s.storage.MarkNotificationRead(r.Context(), userID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed marking notification read", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to update notification")
		return
	}

	s.invalidateOverview(userID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
