// Package http exposes the JSON API: auth, budgets, expenses, dashboard
// aggregates, notifications, preferences and the finance assistant.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tresor/internal/auth"
	"tresor/internal/cache"
	"tresor/internal/config"
	"tresor/internal/core"
	"tresor/internal/events"
	applog "tresor/internal/log"
	"tresor/internal/storage"
)

// Assistant answers a user message given a system context. Nil disables the
// assistant endpoint.
type Assistant interface {
	Chat(ctx context.Context, systemContext, message string) (string, error)
}

type Server struct {
	http.Server
	storage   *storage.Repository
	tokens    *auth.TokenIssuer
	publisher events.Publisher
	assistant Assistant

	rateLimiter *rateLimiter

	// Per-user overview responses, invalidated on every write.
	overviewCache *cache.LRUCache[core.Overview]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// publisher and ai may be nil; the matching features degrade gracefully.
func NewServer(cfg *config.Config, logger *applog.Logger, store *storage.Repository, tokens *auth.TokenIssuer, publisher events.Publisher, ai Assistant) *Server {
	mux := http.NewServeMux()

	s := &Server{
		storage:       store,
		tokens:        tokens,
		publisher:     publisher,
		assistant:     ai,
		rateLimiter:   newRateLimiter(60, time.Minute),
		overviewCache: cache.NewLRUCache[core.Overview](cfg.OverviewCacheSize, cfg.OverviewCacheTTL),
		cacheManager:  cache.NewManager(),
	}
	s.cacheManager.Register(s.overviewCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	protected := auth.Middleware(tokens)
	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protected(h))
	}

	authed("GET /api/auth/me", s.handleMe)

	authed("GET /api/budgets", s.handleListBudgets)
	authed("POST /api/budgets", s.handleCreateBudget)
	authed("GET /api/budgets/{id}", s.handleGetBudget)
	authed("PUT /api/budgets/{id}", s.handleUpdateBudget)

	authed("GET /api/expenses", s.handleListExpenses)
	authed("POST /api/expenses", s.handleCreateExpense)
	authed("PUT /api/expenses", s.handleUpdateExpense)
	authed("DELETE /api/expenses", s.handleDeleteExpense)

	authed("GET /api/overview", s.handleOverview)
	authed("GET /api/history", s.handleHistory)

	authed("GET /api/notifications", s.handleListNotifications)
	authed("POST /api/notifications", s.handleCreateNotification)
	authed("PATCH /api/notifications", s.handleMarkNotificationRead)

	authed("GET /api/preferences", s.handleGetPreferences)
	authed("PUT /api/preferences", s.handleUpdatePreferences)
	authed("PUT /api/profile/avatar", s.handleUpdateAvatar)

	authed("POST /api/assistant", s.handleAssistant)

	s.Server = http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           applog.Middleware(logger)(s.withObservability(mux)),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s
}

// withObservability adds request IDs, security headers, rate limiting on
// writes, and request logging around the whole route table.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ip := clientIP(r)
		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if !s.rateLimiter.allow(ip) {
				slog.WarnContext(ctx, "Rate limit exceeded",
					applog.FieldClientIP, ip,
					applog.FieldMethod, r.Method,
					applog.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds(),
			applog.FieldClientIP, ip)
	})
}

type requestIDCtxKey struct{}

var requestIDKey requestIDCtxKey

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// invalidateOverview drops the cached dashboard for a user after any write
// that feeds it.
func (s *Server) invalidateOverview(userID string) {
	s.overviewCache.Delete(userID)
}

// Shutdown stops background cleanup goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
