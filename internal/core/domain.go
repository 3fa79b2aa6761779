package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	StatusActive    BudgetStatus = "active"
	StatusCompleted BudgetStatus = "completed"
)

const (
	NotifInfo    NotificationType = "info"
	NotifWarning NotificationType = "warning"
	NotifSuccess NotificationType = "success"
)

type (
	BudgetStatus     string
	NotificationType string

	// BudgetLine is a planned line-item expense inside a budget.
	BudgetLine struct {
		Name     string  `json:"name"`
		Amount   float64 `json:"amount"`
		Category string  `json:"category"`
	}

	// Budget represents one planning period. All monetary fields are in the
	// base currency unit; Debt is derived, never mutated independently.
	Budget struct {
		ID                 string       `json:"id"`
		UserID             string       `json:"-"`
		Name               string       `json:"name"`
		Income             float64      `json:"income"`
		SavingsPercentage  float64      `json:"savingsPercentage"`
		Expenses           []BudgetLine `json:"expenses"`
		UnexpectedIncome   float64      `json:"unexpectedIncome"`
		UnexpectedExpenses float64      `json:"unexpectedExpenses"`
		Debt               float64      `json:"debt"`
		Status             BudgetStatus `json:"status"`
		CreatedAt          time.Time    `json:"createdAt"`
		UpdatedAt          time.Time    `json:"updatedAt"`
	}

	// Expense is a standalone spending record outside any budget.
	Expense struct {
		ID         string    `json:"id"`
		UserID     string    `json:"-"`
		Name       string    `json:"name"`
		Amount     float64   `json:"amount"`
		Category   string    `json:"category"`
		OccurredAt time.Time `json:"occurredAt"`
		CreatedAt  time.Time `json:"createdAt"`
	}

	// NotificationSettings holds the per-user alert toggles.
	NotificationSettings struct {
		PushNotifications  bool `json:"pushNotifications"`
		EmailNotifications bool `json:"emailNotifications"`
		BudgetAlerts       bool `json:"budgetAlerts"`
		SavingsReminders   bool `json:"savingsReminders"`
		ExpenseAlerts      bool `json:"expenseAlerts"`
	}

	Notification struct {
		ID        string           `json:"id"`
		UserID    string           `json:"-"`
		Title     string           `json:"title"`
		Message   string           `json:"message"`
		Type      NotificationType `json:"type"`
		Read      bool             `json:"read"`
		CreatedAt time.Time        `json:"createdAt"`
	}

	User struct {
		ID            string               `json:"id"`
		Name          string               `json:"name"`
		Email         string               `json:"email"`
		PasswordHash  string               `json:"-"`
		Phone         string               `json:"phone"`
		Location      string               `json:"location"`
		AvatarURL     string               `json:"avatarUrl"`
		MemberSince   time.Time            `json:"memberSince"`
		Currency      Currency             `json:"currency"`
		Theme         string               `json:"theme"`
		Language      string               `json:"language"`
		Notifications NotificationSettings `json:"notifications"`
	}
)

var (
	ErrMalformedAmount     = errors.New("malformed amount")
	ErrMalformedPercentage = errors.New("malformed savings percentage")
	ErrEmptyName           = errors.New("empty name")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidType         = errors.New("invalid notification type")
)

// DefaultNotificationSettings returns the settings a new account starts with:
// every toggle on.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		PushNotifications:  true,
		EmailNotifications: true,
		BudgetAlerts:       true,
		SavingsReminders:   true,
		ExpenseAlerts:      true,
	}
}

func (s BudgetStatus) Valid() bool {
	return s == StatusActive || s == StatusCompleted
}

func (t NotificationType) Valid() bool {
	return t == NotifInfo || t == NotifWarning || t == NotifSuccess
}

// checkAmount rejects the malformed-input class: non-finite values and
// negatives where a non-negative amount is required.
func checkAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return ErrMalformedAmount
	}
	return nil
}

func (l BudgetLine) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrEmptyName
	}
	return checkAmount(l.Amount)
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := checkAmount(b.Income); err != nil {
		return err
	}
	if math.IsNaN(b.SavingsPercentage) || math.IsInf(b.SavingsPercentage, 0) || b.SavingsPercentage < 0 {
		return ErrMalformedPercentage
	}
	for _, l := range b.Expenses {
		if err := l.Validate(); err != nil {
			return err
		}
	}
	if err := checkAmount(b.UnexpectedIncome); err != nil {
		return err
	}
	if err := checkAmount(b.UnexpectedExpenses); err != nil {
		return err
	}
	if !b.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	return checkAmount(e.Amount)
}

func (n Notification) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyName
	}
	if !n.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}
