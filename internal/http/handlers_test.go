package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tresor/internal/auth"
	"tresor/internal/config"
	"tresor/internal/core"
	applog "tresor/internal/log"
	"tresor/internal/storage"
)

type stubAssistant struct {
	lastContext string
	reply       string
}

func (a *stubAssistant) Chat(_ context.Context, systemContext, _ string) (string, error) {
	a.lastContext = systemContext
	return a.reply, nil
}

func newTestServer(t *testing.T, ai Assistant) *httptest.Server {
	t.Helper()

	store, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		Port:              "0",
		JWTSecret:         "test-secret-at-least-16-chars",
		TokenTTL:          time.Hour,
		OverviewCacheSize: 100,
		OverviewCacheTTL:  time.Minute,
	}
	logger := applog.New(applog.DefaultConfig())
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	srv := NewServer(cfg, logger, store, tokens, nil, ai)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func registerUser(t *testing.T, ts *httptest.Server, email string) (token string, user core.User) {
	t.Helper()
	resp, body := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "Alice",
		"email":    email,
		"password": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d, body %s", resp.StatusCode, body)
	}
	var out authResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	return out.Token, out.User
}

func TestRegisterLoginMe(t *testing.T) {
	ts := newTestServer(t, nil)

	token, user := registerUser(t, ts, "alice@example.com")
	if token == "" {
		t.Fatal("expected a token")
	}
	if user.Phone != defaultPhone {
		t.Errorf("Phone = %q, want default %q", user.Phone, defaultPhone)
	}
	if user.Currency != core.RWF || user.Theme != "dark" || user.Language != "en" {
		t.Errorf("unexpected profile defaults: %+v", user)
	}
	if !user.Notifications.BudgetAlerts {
		t.Error("notification toggles should default on")
	}

	// The hash must never serialize.
	_, raw := doJSON(t, ts, http.MethodGet, "/api/auth/me", token, nil)
	if bytes.Contains(raw, []byte("password")) || bytes.Contains(raw, []byte("$2a$")) {
		t.Errorf("profile response leaks password material: %s", raw)
	}

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "secret123",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("duplicate register status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-pass",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}

	resp, body := doJSON(t, ts, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "secret123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %s", resp.StatusCode, body)
	}
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short name", map[string]string{"name": "A", "email": "a@example.com", "password": "secret123"}},
		{"bad email", map[string]string{"name": "Alice", "email": "nope", "password": "secret123"}},
		{"short password", map[string]string{"name": "Alice", "email": "a@example.com", "password": "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, ts, http.MethodPost, "/api/auth/register", "", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, path := range []string{"/api/budgets", "/api/expenses", "/api/overview", "/api/history"} {
		resp, _ := doJSON(t, ts, http.MethodGet, path, "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s status = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestBudgetLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := registerUser(t, ts, "bob@example.com")

	create := map[string]any{
		"name":              "June",
		"income":            1000.0,
		"savingsPercentage": 10.0,
		"expenses": []map[string]any{
			{"name": "Rent", "amount": 700.0, "category": "Housing"},
			{"name": "Food", "amount": 250.0, "category": "Food"},
		},
	}
	resp, body := doJSON(t, ts, http.MethodPost, "/api/budgets", token, create)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}
	var b core.Budget
	if err := json.Unmarshal(body, &b); err != nil {
		t.Fatalf("unmarshal budget: %v", err)
	}
	// net = 1000 - 100 - 950 = -50
	if b.Debt != 50 {
		t.Errorf("Debt = %v, want 50", b.Debt)
	}
	if b.Status != core.StatusActive {
		t.Errorf("Status = %q, want active", b.Status)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/api/budgets/"+b.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, body %s", resp.StatusCode, body)
	}

	// Dropping the savings rate clears the shortfall.
	resp, body = doJSON(t, ts, http.MethodPut, "/api/budgets/"+b.ID, token, map[string]any{
		"savingsPercentage": 0.0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %s", resp.StatusCode, body)
	}
	var updated core.Budget
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("unmarshal updated budget: %v", err)
	}
	if updated.Debt != 0 {
		t.Errorf("Debt after update = %v, want 0", updated.Debt)
	}
	if updated.Name != "June" || len(updated.Expenses) != 2 {
		t.Errorf("partial update lost fields: %+v", updated)
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/budgets/no-such-id", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", resp.StatusCode)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/api/budgets", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list []core.Budget
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list length = %d, want 1", len(list))
	}
}

func TestBudgetValidationRejected(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := registerUser(t, ts, "carol@example.com")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"negative income", map[string]any{"name": "X", "income": -1.0, "savingsPercentage": 10.0}},
		{"savings over 100", map[string]any{"name": "X", "income": 100.0, "savingsPercentage": 150.0}},
		{"negative line", map[string]any{"name": "X", "income": 100.0, "savingsPercentage": 0.0,
			"expenses": []map[string]any{{"name": "Y", "amount": -5.0, "category": "Z"}}}},
		{"empty name", map[string]any{"name": "  ", "income": 100.0, "savingsPercentage": 0.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, ts, http.MethodPost, "/api/budgets", token, tt.body)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", resp.StatusCode)
			}
		})
	}
}

func TestExpenseEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := registerUser(t, ts, "dave@example.com")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/expenses", token, map[string]any{
		"name": "Taxi", "amount": 3000.0, "category": "Transport",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}
	var e core.Expense
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("unmarshal expense: %v", err)
	}
	if e.OccurredAt.IsZero() {
		t.Error("occurredAt should default to now")
	}

	resp, body = doJSON(t, ts, http.MethodPut, "/api/expenses?id="+e.ID, token, map[string]any{
		"name": "Taxi home", "amount": 3500.0, "category": "Transport",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %s", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/expenses", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("delete without id status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/expenses?id=no-such-id", token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete unknown id status = %d, want 404", resp.StatusCode)
	}

	resp, _ = doJSON(t, ts, http.MethodDelete, "/api/expenses?id="+e.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d, want 200", resp.StatusCode)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/api/expenses", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list []core.Expense
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("list after delete = %d entries, want 0", len(list))
	}
}

func TestOverviewReflectsWrites(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := registerUser(t, ts, "erin@example.com")

	resp, body := doJSON(t, ts, http.MethodGet, "/api/overview", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("overview status = %d, body %s", resp.StatusCode, body)
	}
	var before core.Overview
	if err := json.Unmarshal(body, &before); err != nil {
		t.Fatalf("unmarshal overview: %v", err)
	}
	if before.Totals.Income != 0 {
		t.Errorf("empty account income = %v, want 0", before.Totals.Income)
	}

	// A second read comes from the cache and must match.
	_, body2 := doJSON(t, ts, http.MethodGet, "/api/overview", token, nil)
	if !bytes.Equal(body, body2) {
		t.Error("cached overview differs from first read")
	}

	doJSON(t, ts, http.MethodPost, "/api/expenses", token, map[string]any{
		"name": "Groceries", "amount": 25000.0, "category": "Food",
	})

	_, body = doJSON(t, ts, http.MethodGet, "/api/overview", token, nil)
	var after core.Overview
	if err := json.Unmarshal(body, &after); err != nil {
		t.Fatalf("unmarshal overview: %v", err)
	}
	if after.Totals.Expenses != 25000 {
		t.Errorf("expenses after write = %v, want 25000 (stale cache?)", after.Totals.Expenses)
	}
	if after.Stats.ExpensesTracked != 1 {
		t.Errorf("ExpensesTracked = %d, want 1", after.Stats.ExpensesTracked)
	}
}

func TestHistoryMergesBudgetsAndExpenses(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := registerUser(t, ts, "frank@example.com")

	doJSON(t, ts, http.MethodPost, "/api/budgets", token, map[string]any{
		"name": "June", "income": 1000.0, "savingsPercentage": 10.0,
	})
	doJSON(t, ts, http.MethodPost, "/api/expenses", token, map[string]any{
		"name": "Taxi", "amount": 3000.0, "category": "Transport",
	})

	resp, body := doJSON(t, ts, http.MethodGet, "/api/history", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history status = %d, body %s", resp.StatusCode, body)
	}
	var h core.History
	if err := json.Unmarshal(body, &h); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(h.History) != 2 {
		t.Fatalf("history entries = %d, want 2", len(h.History))
	}
	if h.Totals.TotalAmount != 3000 {
		t.Errorf("TotalAmount = %v, want 3000", h.Totals.TotalAmount)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := registerUser(t, ts, "grace@example.com")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/notifications", token, map[string]any{
		"title": "Welcome", "message": "Hello",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}
	var n core.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		t.Fatalf("unmarshal notification: %v", err)
	}
	if n.Type != core.NotifInfo {
		t.Errorf("Type = %q, want default info", n.Type)
	}

	resp, _ = doJSON(t, ts, http.MethodPatch, "/api/notifications?id="+n.ID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read status = %d", resp.StatusCode)
	}

	_, body = doJSON(t, ts, http.MethodGet, "/api/notifications", token, nil)
	var list []core.Notification
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 1 || !list[0].Read {
		t.Errorf("expected one read notification, got %+v", list)
	}
}

func TestPreferencesAndAvatar(t *testing.T) {
	ts := newTestServer(t, nil)
	token, _ := registerUser(t, ts, "heidi@example.com")

	resp, _ := doJSON(t, ts, http.MethodPut, "/api/preferences", token, map[string]any{
		"currency":      "gbp",
		"notifications": map[string]bool{},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad currency status = %d, want 400", resp.StatusCode)
	}

	settings := core.DefaultNotificationSettings()
	settings.ExpenseAlerts = false
	resp, body := doJSON(t, ts, http.MethodPut, "/api/preferences", token, preferencesPayload{
		Currency:      core.USD,
		Language:      "fr",
		Notifications: settings,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, body %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, ts, http.MethodGet, "/api/preferences", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var prefs preferencesPayload
	if err := json.Unmarshal(body, &prefs); err != nil {
		t.Fatalf("unmarshal preferences: %v", err)
	}
	if prefs.Currency != core.USD || prefs.Language != "fr" || prefs.Theme != "dark" {
		t.Errorf("preferences not persisted: %+v", prefs)
	}
	if prefs.Notifications.ExpenseAlerts {
		t.Error("expense alerts toggle should persist off")
	}

	resp, body = doJSON(t, ts, http.MethodPut, "/api/profile/avatar", token, map[string]string{
		"avatarUrl": "https://cdn.example.com/avatars/heidi.png",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("avatar status = %d, body %s", resp.StatusCode, body)
	}
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal avatar response: %v", err)
	}
	if out["avatarUrl"] != "https://cdn.example.com/avatars/heidi.png" {
		t.Errorf("avatarUrl = %q", out["avatarUrl"])
	}
}

func TestAssistantEndpoint(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		ts := newTestServer(t, nil)
		token, _ := registerUser(t, ts, "ivan@example.com")
		resp, _ := doJSON(t, ts, http.MethodPost, "/api/assistant", token, map[string]string{"prompt": "hi"})
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", resp.StatusCode)
		}
	})

	t.Run("personalized context", func(t *testing.T) {
		ai := &stubAssistant{reply: "Save more."}
		ts := newTestServer(t, ai)
		token, _ := registerUser(t, ts, "judy@example.com")

		doJSON(t, ts, http.MethodPost, "/api/budgets", token, map[string]any{
			"name": "June", "income": 800000.0, "savingsPercentage": 15.0,
		})

		resp, body := doJSON(t, ts, http.MethodPost, "/api/assistant", token, map[string]string{
			"prompt": "How am I doing?",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %s", resp.StatusCode, body)
		}
		var out map[string]string
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if out["content"] != "Save more." {
			t.Errorf("content = %q", out["content"])
		}
		for _, want := range []string{"Alice", "Total income: 800000"} {
			if !bytes.Contains([]byte(ai.lastContext), []byte(want)) {
				t.Errorf("system context missing %q:\n%s", want, ai.lastContext)
			}
		}
	})

	t.Run("missing prompt", func(t *testing.T) {
		ts := newTestServer(t, &stubAssistant{reply: "x"})
		token, _ := registerUser(t, ts, "kate@example.com")
		resp, _ := doJSON(t, ts, http.MethodPost, "/api/assistant", token, map[string]string{"prompt": "  "})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestOwnerScoping(t *testing.T) {
	ts := newTestServer(t, nil)
	tokenA, _ := registerUser(t, ts, "owner@example.com")
	tokenB, _ := registerUser(t, ts, "intruder@example.com")

	resp, body := doJSON(t, ts, http.MethodPost, "/api/budgets", tokenA, map[string]any{
		"name": "June", "income": 1000.0, "savingsPercentage": 0.0,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var b core.Budget
	if err := json.Unmarshal(body, &b); err != nil {
		t.Fatalf("unmarshal budget: %v", err)
	}

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/budgets/"+b.ID, tokenB, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user get status = %d, want 404", resp.StatusCode)
	}
	resp, _ = doJSON(t, ts, http.MethodPut, fmt.Sprintf("/api/budgets/%s", b.ID), tokenB, map[string]any{"name": "stolen"})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("cross-user update status = %d, want 404", resp.StatusCode)
	}
}
