package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tresor/internal/auth"
	"tresor/internal/core"
	applog "tresor/internal/log"
	"tresor/internal/storage"
)

const defaultPhone = "+250 788 123 456"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string    `json:"token"`
	User  core.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case len(req.Name) < 2:
		writeError(w, http.StatusBadRequest, "Name must be at least 2 characters")
		return
	case !strings.Contains(req.Email, "@"):
		writeError(w, http.StatusBadRequest, "Invalid email")
		return
	case len(req.Password) < 6:
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed hashing password", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Unable to register")
		return
	}

	phone := req.Phone
	if phone == "" {
		phone = defaultPhone
	}

	user := core.User{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Email:         req.Email,
		PasswordHash:  hash,
		Phone:         phone,
		Location:      req.Location,
		MemberSince:   time.Now().UTC(),
		Currency:      core.RWF,
		Theme:         "dark",
		Language:      "en",
		Notifications: core.DefaultNotificationSettings(),
	}

	if err := s.storage.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "Account already exists")
			return
		}
		slog.ErrorContext(r.Context(), "Failed creating user", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Unable to register")
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed issuing token", applog.FieldError, err, applog.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "Unable to register")
		return
	}

	slog.InfoContext(r.Context(), "User registered", applog.FieldUserID, user.ID)
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.storage.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		slog.ErrorContext(r.Context(), "Failed loading user", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Unable to login")
		return
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed issuing token", applog.FieldError, err, applog.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "Unable to login")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.storage.GetUserByID(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		slog.ErrorContext(r.Context(), "Failed loading user", applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "Unable to fetch profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
