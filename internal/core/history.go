package core

import (
	"fmt"
	"sort"
	"time"
)

const (
	HistoryBudget  HistoryKind = "budget"
	HistoryExpense HistoryKind = "expense"
)

type (
	HistoryKind string

	// HistoryEntry is a unified projection of either a budget or a standalone
	// expense into one chronological feed item. Savings, Expenses and Status
	// are set for budget entries, Category for expense entries.
	HistoryEntry struct {
		ID       string      `json:"id"`
		Type     HistoryKind `json:"type"`
		Name     string      `json:"name"`
		Amount   float64     `json:"amount"`
		Savings  float64     `json:"savings,omitempty"`
		Expenses float64     `json:"expenses,omitempty"`
		Category string      `json:"category,omitempty"`
		Status   string      `json:"status,omitempty"`
		Date     time.Time   `json:"date"`
		Month    string      `json:"month"`
	}

	HistoryTotals struct {
		Budgets     int     `json:"budgets"`
		Expenses    int     `json:"expenses"`
		TotalAmount float64 `json:"totalAmount"`
	}

	History struct {
		History []HistoryEntry `json:"history"`
		Totals  HistoryTotals  `json:"totals"`
	}
)

// AggregateHistory merges budgets and standalone expenses into one feed
// ordered by date descending. Entries with identical timestamps keep a stable
// relative order (budgets before expenses, each in input order), though
// callers must not rely on which comes first. Totals.TotalAmount sums the
// standalone expense amounts only.
func AggregateHistory(budgets []Budget, expenses []Expense) (History, error) {
	entries := make([]HistoryEntry, 0, len(budgets)+len(expenses))

	for i, b := range budgets {
		d, err := ComputeBudgetDerived(b)
		if err != nil {
			return History{}, fmt.Errorf("budget %d (%s): %w", i, b.ID, err)
		}
		entries = append(entries, HistoryEntry{
			ID:       b.ID,
			Type:     HistoryBudget,
			Name:     b.Name,
			Amount:   b.Income,
			Savings:  d.SavingsAmount,
			Expenses: d.TotalExpenses,
			Status:   string(b.Status),
			Date:     b.CreatedAt,
			Month:    b.CreatedAt.Month().String(),
		})
	}

	var expenseTotal float64
	for i, e := range expenses {
		if err := checkAmount(e.Amount); err != nil {
			return History{}, fmt.Errorf("expense %d (%s): %w", i, e.ID, err)
		}
		expenseTotal += e.Amount
		entries = append(entries, HistoryEntry{
			ID:       e.ID,
			Type:     HistoryExpense,
			Name:     e.Name,
			Amount:   e.Amount,
			Category: e.Category,
			Date:     e.OccurredAt,
			Month:    e.OccurredAt.Month().String(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Date.After(entries[j].Date)
	})

	return History{
		History: entries,
		Totals: HistoryTotals{
			Budgets:     len(budgets),
			Expenses:    len(expenses),
			TotalAmount: expenseTotal,
		},
	}, nil
}
