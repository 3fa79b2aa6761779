package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"tresor/internal/auth"
	"tresor/internal/core"
	applog "tresor/internal/log"
	"tresor/internal/storage"
)

type preferencesPayload struct {
	Currency      core.Currency             `json:"currency"`
	Theme         string                    `json:"theme"`
	Language      string                    `json:"language"`
	Notifications core.NotificationSettings `json:"notifications"`
}

type avatarRequest struct {
	AvatarURL string `json:"avatarUrl"`
}

func validLanguage(lang string) bool {
	return lang == "en" || lang == "fr" || lang == "rw"
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	user, err := s.storage.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		slog.ErrorContext(r.Context(), "Failed loading user", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to fetch preferences")
		return
	}

	writeJSON(w, http.StatusOK, preferencesPayload{
		Currency:      user.Currency,
		Theme:         user.Theme,
		Language:      user.Language,
		Notifications: user.Notifications,
	})
}

func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req preferencesPayload
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !req.Currency.Valid() {
		writeError(w, http.StatusBadRequest, "Unsupported currency")
		return
	}
	if req.Theme == "" {
		req.Theme = "dark"
	}
	if req.Language == "" {
		req.Language = "en"
	}
	if !validLanguage(req.Language) {
		writeError(w, http.StatusBadRequest, "Unsupported language")
		return
	}

	if err := s.storage.UpdatePreferences(r.Context(), userID, req.Currency, req.Theme, req.Language, req.Notifications); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		slog.ErrorContext(r.Context(), "Failed updating preferences", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to update preferences")
		return
	}

	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req avatarRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	url := strings.TrimSpace(req.AvatarURL)
	if url == "" {
		writeError(w, http.StatusBadRequest, "Missing avatar URL")
		return
	}

	if err := s.storage.UpdateAvatar(r.Context(), userID, url); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		slog.ErrorContext(r.Context(), "Failed updating avatar", applog.FieldError, err, applog.FieldUserID, userID)
		writeError(w, http.StatusInternalServerError, "Unable to update avatar")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatarUrl": url})
}
