package events

import (
	"encoding/json"
	"time"
)

// Alert kinds published by the API and consumed by the alert worker.
const (
	KindBudgetDebt     = "budget.debt"
	KindBudgetCreated  = "budget.created"
	KindExpenseCreated = "expense.created"
)

// AlertMessage is the lightweight event the API publishes when a write should
// produce a user-facing notification. The worker owns wording and dispatch;
// the message carries only the facts.
type AlertMessage struct {
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Amount    float64   `json:"amount"`
	Category  string    `json:"category,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAlertMessage creates an alert event stamped with the current time.
func NewAlertMessage(userID, kind, name string, amount float64) *AlertMessage {
	return &AlertMessage{
		UserID:    userID,
		Kind:      kind,
		Name:      name,
		Amount:    amount,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AlertMessageFromJSON creates a message from JSON bytes
func AlertMessageFromJSON(data []byte) (*AlertMessage, error) {
	var msg AlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
