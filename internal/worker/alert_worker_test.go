package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"tresor/internal/core"
	"tresor/internal/events"
	"tresor/internal/storage"
)

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *storage.Repository, settings core.NotificationSettings) core.User {
	t.Helper()
	u := core.User{
		ID:            uuid.NewString(),
		Name:          "Alice",
		Email:         uuid.NewString() + "@example.com",
		PasswordHash:  "x",
		MemberSince:   time.Now().UTC(),
		Currency:      core.RWF,
		Theme:         "dark",
		Language:      "en",
		Notifications: settings,
	}
	if err := repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestHandleAlertStoresNotification(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, core.DefaultNotificationSettings())
	w := NewAlertWorker(repo)

	msg := events.NewAlertMessage(user.ID, events.KindBudgetDebt, "June", 25000)
	if err := w.HandleAlert(context.Background(), msg); err != nil {
		t.Fatalf("HandleAlert() error = %v", err)
	}

	got, err := repo.ListNotifications(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].Type != core.NotifWarning {
		t.Errorf("Type = %q, want %q", got[0].Type, core.NotifWarning)
	}
	if got[0].Read {
		t.Error("new notification should be unread")
	}
}

func TestHandleAlertSuppressedBySettings(t *testing.T) {
	repo := newTestRepo(t)
	settings := core.DefaultNotificationSettings()
	settings.ExpenseAlerts = false
	user := seedUser(t, repo, settings)
	w := NewAlertWorker(repo)

	msg := events.NewAlertMessage(user.ID, events.KindExpenseCreated, "Taxi", 3000)
	msg.Category = "Transport"
	if err := w.HandleAlert(context.Background(), msg); err != nil {
		t.Fatalf("HandleAlert() error = %v", err)
	}

	got, err := repo.ListNotifications(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListNotifications() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no notifications, got %d", len(got))
	}
}

func TestHandleAlertUnknownUserDropped(t *testing.T) {
	repo := newTestRepo(t)
	w := NewAlertWorker(repo)

	msg := events.NewAlertMessage(uuid.NewString(), events.KindBudgetCreated, "July", 500000)
	if err := w.HandleAlert(context.Background(), msg); err != nil {
		t.Fatalf("HandleAlert() should drop unknown users, got error %v", err)
	}
}

func TestBuildNotification(t *testing.T) {
	all := core.DefaultNotificationSettings()
	noBudget := all
	noBudget.BudgetAlerts = false

	tests := []struct {
		name     string
		settings core.NotificationSettings
		msg      events.AlertMessage
		want     core.NotificationType
		ok       bool
	}{
		{"debt", all, events.AlertMessage{Kind: events.KindBudgetDebt, Name: "June", Amount: 100}, core.NotifWarning, true},
		{"budget created", all, events.AlertMessage{Kind: events.KindBudgetCreated, Name: "June", Amount: 100}, core.NotifSuccess, true},
		{"expense", all, events.AlertMessage{Kind: events.KindExpenseCreated, Name: "Taxi", Amount: 100, Category: "Transport"}, core.NotifInfo, true},
		{"debt suppressed", noBudget, events.AlertMessage{Kind: events.KindBudgetDebt, Name: "June", Amount: 100}, "", false},
		{"created suppressed", noBudget, events.AlertMessage{Kind: events.KindBudgetCreated, Name: "June", Amount: 100}, "", false},
		{"unknown kind", all, events.AlertMessage{Kind: "budget.deleted"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := BuildNotification(tt.settings, &tt.msg)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if tt.ok && n.Type != tt.want {
				t.Errorf("Type = %q, want %q", n.Type, tt.want)
			}
		})
	}
}
