// Package worker turns alert events into stored notifications, honoring each
// user's notification toggles.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tresor/internal/core"
	"tresor/internal/events"
	"tresor/internal/storage"
)

type AlertWorker struct {
	storage *storage.Repository
}

func NewAlertWorker(storage *storage.Repository) *AlertWorker {
	return &AlertWorker{storage: storage}
}

// HandleAlert processes a single alert event. Events for unknown users and
// events the user has toggled off are dropped, not requeued.
func (w *AlertWorker) HandleAlert(ctx context.Context, msg *events.AlertMessage) error {
	user, err := w.storage.GetUserByID(ctx, msg.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Dropping alert for unknown user",
				"user_id", msg.UserID,
				"event_kind", msg.Kind)
			return nil
		}
		return fmt.Errorf("load user: %w", err)
	}

	n, ok := BuildNotification(user.Notifications, msg)
	if !ok {
		slog.DebugContext(ctx, "Alert suppressed by user settings",
			"user_id", msg.UserID,
			"event_kind", msg.Kind)
		return nil
	}

	n.ID = uuid.NewString()
	n.UserID = user.ID
	n.CreatedAt = time.Now().UTC()

	if err := w.storage.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	slog.InfoContext(ctx, "Notification created from alert event",
		"user_id", user.ID,
		"event_kind", msg.Kind,
		"type", string(n.Type))

	return nil
}

// BuildNotification maps an alert event to the notification it should
// produce, or reports false when the user's settings suppress it or the kind
// is unknown.
func BuildNotification(settings core.NotificationSettings, msg *events.AlertMessage) (core.Notification, bool) {
	switch msg.Kind {
	case events.KindBudgetDebt:
		if !settings.BudgetAlerts {
			return core.Notification{}, false
		}
		return core.Notification{
			Title:   "Budget shortfall",
			Message: fmt.Sprintf("Budget %q is over its limits by %.0f RWF.", msg.Name, msg.Amount),
			Type:    core.NotifWarning,
		}, true

	case events.KindBudgetCreated:
		if !settings.BudgetAlerts {
			return core.Notification{}, false
		}
		return core.Notification{
			Title:   "Budget created",
			Message: fmt.Sprintf("Budget %q is now tracking %.0f RWF of income.", msg.Name, msg.Amount),
			Type:    core.NotifSuccess,
		}, true

	case events.KindExpenseCreated:
		if !settings.ExpenseAlerts {
			return core.Notification{}, false
		}
		message := fmt.Sprintf("Recorded %q: %.0f RWF", msg.Name, msg.Amount)
		if msg.Category != "" {
			message += fmt.Sprintf(" in %s", msg.Category)
		}
		return core.Notification{
			Title:   "Expense recorded",
			Message: message + ".",
			Type:    core.NotifInfo,
		}, true
	}

	return core.Notification{}, false
}
