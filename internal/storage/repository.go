// Package storage persists users, budgets, expenses and notifications in
// SQLite. Every query is scoped to the owning user; the repository never
// returns or mutates another user's records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tresor/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, u core.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, name, email, password_hash, phone, location, avatar_url,
			member_since, currency, theme, language,
			notif_push, notif_email, notif_budget_alerts, notif_savings_reminders, notif_expense_alerts,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Phone, u.Location, u.AvatarURL,
		u.MemberSince, string(u.Currency), u.Theme, u.Language,
		u.Notifications.PushNotifications, u.Notifications.EmailNotifications,
		u.Notifications.BudgetAlerts, u.Notifications.SavingsReminders, u.Notifications.ExpenseAlerts,
		now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, password_hash, phone, location, avatar_url,
	member_since, currency, theme, language,
	notif_push, notif_email, notif_budget_alerts, notif_savings_reminders, notif_expense_alerts`

func scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var currency string
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Location, &u.AvatarURL,
		&u.MemberSince, &currency, &u.Theme, &u.Language,
		&u.Notifications.PushNotifications, &u.Notifications.EmailNotifications,
		&u.Notifications.BudgetAlerts, &u.Notifications.SavingsReminders, &u.Notifications.ExpenseAlerts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, ErrNotFound
		}
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Currency = core.Currency(currency)
	return u, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// UpdatePreferences replaces the user's currency, theme, language and
// notification toggles.
func (r *Repository) UpdatePreferences(ctx context.Context, userID string, currency core.Currency, theme, language string, settings core.NotificationSettings) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET currency = ?, theme = ?, language = ?,
			notif_push = ?, notif_email = ?, notif_budget_alerts = ?,
			notif_savings_reminders = ?, notif_expense_alerts = ?,
			updated_at = ?
		WHERE id = ?`,
		string(currency), theme, language,
		settings.PushNotifications, settings.EmailNotifications, settings.BudgetAlerts,
		settings.SavingsReminders, settings.ExpenseAlerts,
		time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	return requireAffected(res)
}

func (r *Repository) UpdateAvatar(ctx context.Context, userID, avatarURL string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET avatar_url = ?, updated_at = ? WHERE id = ?`,
		avatarURL, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return requireAffected(res)
}

// --- budgets ---

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO budgets (
			id, user_id, name, income, savings_percentage,
			unexpected_income, unexpected_expenses, debt, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.Name, b.Income, b.SavingsPercentage,
		b.UnexpectedIncome, b.UnexpectedExpenses, b.Debt, string(b.Status), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}

	if err := insertBudgetItems(ctx, tx, b.ID, b.Expenses); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateBudget replaces the budget row and its line items. Scoped to the
// owning user; updating someone else's budget reports ErrNotFound.
func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE budgets SET name = ?, income = ?, savings_percentage = ?,
			unexpected_income = ?, unexpected_expenses = ?, debt = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		b.Name, b.Income, b.SavingsPercentage,
		b.UnexpectedIncome, b.UnexpectedExpenses, b.Debt, string(b.Status), time.Now().UTC(),
		b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_items WHERE budget_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear budget items: %w", err)
	}
	if err := insertBudgetItems(ctx, tx, b.ID, b.Expenses); err != nil {
		return err
	}

	return tx.Commit()
}

func insertBudgetItems(ctx context.Context, tx *sql.Tx, budgetID string, items []core.BudgetLine) error {
	for i, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO budget_items (budget_id, position, name, amount, category)
			VALUES (?, ?, ?, ?, ?)`,
			budgetID, i, item.Name, item.Amount, item.Category)
		if err != nil {
			return fmt.Errorf("insert budget item %d: %w", i, err)
		}
	}
	return nil
}

func (r *Repository) GetBudget(ctx context.Context, userID, id string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, income, savings_percentage,
			unexpected_income, unexpected_expenses, debt, status, created_at, updated_at
		FROM budgets WHERE id = ? AND user_id = ?`, id, userID)

	b, err := scanBudget(row.Scan)
	if err != nil {
		return core.Budget{}, err
	}

	items, err := r.budgetItems(ctx, b.ID)
	if err != nil {
		return core.Budget{}, err
	}
	b.Expenses = items
	return b, nil
}

// ListBudgets returns the user's budgets newest-first, line items included.
func (r *Repository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, income, savings_percentage,
			unexpected_income, unexpected_expenses, debt, status, created_at, updated_at
		FROM budgets WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows.Scan)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	for i := range budgets {
		items, err := r.budgetItems(ctx, budgets[i].ID)
		if err != nil {
			return nil, err
		}
		budgets[i].Expenses = items
	}
	return budgets, nil
}

func scanBudget(scan func(...any) error) (core.Budget, error) {
	var b core.Budget
	var status string
	err := scan(&b.ID, &b.UserID, &b.Name, &b.Income, &b.SavingsPercentage,
		&b.UnexpectedIncome, &b.UnexpectedExpenses, &b.Debt, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Budget{}, ErrNotFound
		}
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	b.Status = core.BudgetStatus(status)
	return b, nil
}

func (r *Repository) budgetItems(ctx context.Context, budgetID string) ([]core.BudgetLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, amount, category FROM budget_items
		WHERE budget_id = ? ORDER BY position`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget items: %w", err)
	}
	defer rows.Close()

	items := []core.BudgetLine{}
	for rows.Next() {
		var item core.BudgetLine
		if err := rows.Scan(&item.Name, &item.Amount, &item.Category); err != nil {
			return nil, fmt.Errorf("scan budget item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// --- expenses ---

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, name, amount, category, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Name, e.Amount, e.Category, e.OccurredAt, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET name = ?, amount = ?, category = ?, occurred_at = ?
		WHERE id = ? AND user_id = ?`,
		e.Name, e.Amount, e.Category, e.OccurredAt, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireAffected(res)
}

func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireAffected(res)
}

// ListExpenses returns the user's standalone expenses ordered by occurrence
// date descending, as the aggregation engine expects.
func (r *Repository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, amount, category, occurred_at, created_at
		FROM expenses WHERE user_id = ? ORDER BY occurred_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		var e core.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Amount, &e.Category, &e.OccurredAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// --- notifications ---

func (r *Repository) CreateNotification(ctx context.Context, n core.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, n.Message, string(n.Type), n.Read, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *Repository) ListNotifications(ctx context.Context, userID string) ([]core.Notification, error) {
	return r.listNotifications(ctx, `
		SELECT id, user_id, title, message, type, read, created_at
		FROM notifications WHERE user_id = ? ORDER BY created_at DESC`, userID)
}

// ListUnreadNotifications returns at most limit unread notifications,
// newest first.
func (r *Repository) ListUnreadNotifications(ctx context.Context, userID string, limit int) ([]core.Notification, error) {
	return r.listNotifications(ctx, `
		SELECT id, user_id, title, message, type, read, created_at
		FROM notifications WHERE user_id = ? AND read = 0
		ORDER BY created_at DESC LIMIT ?`, userID, limit)
}

func (r *Repository) listNotifications(ctx context.Context, query string, args ...any) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := []core.Notification{}
	for rows.Next() {
		var n core.Notification
		var typ string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Type = core.NotificationType(typ)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *Repository) MarkNotificationRead(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
