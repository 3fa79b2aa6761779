package assistant

import (
	"strings"
	"testing"
	"time"

	"tresor/internal/core"
)

func TestBuildContext(t *testing.T) {
	user := core.User{
		Name:        "Alice",
		Currency:    core.RWF,
		MemberSince: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	budgets := []core.Budget{
		{Income: 500000, SavingsPercentage: 20, Status: core.StatusActive},
		{Income: 300000, SavingsPercentage: 10, Status: core.StatusCompleted},
	}
	expenses := []core.Expense{
		{Name: "Taxi", Amount: 3000, Category: "Transport", OccurredAt: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{Name: "Groceries", Amount: 25000, Category: "Food", OccurredAt: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)},
	}

	got := BuildContext(user, budgets, expenses)

	for _, want := range []string{
		"- Name: Alice",
		"- Currency: RWF",
		"- Member since: 2025-03-10",
		"- Total income: 800000",
		"- Total expenses: 28000",
		"- Total saved (from budgets): 130000",
		"- Active budgets: 1",
		"- Taxi: 3000 in category Transport on 2025-06-15",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q\n\n%s", want, got)
		}
	}
}

func TestBuildContextCapsRecentExpenses(t *testing.T) {
	var expenses []core.Expense
	for i := 0; i < 8; i++ {
		expenses = append(expenses, core.Expense{
			Name:       "Item",
			Amount:     100,
			Category:   "Misc",
			OccurredAt: time.Now(),
		})
	}
	got := BuildContext(core.User{Currency: core.RWF, MemberSince: time.Now()}, nil, expenses)

	if n := strings.Count(got, "- Item:"); n != recentExpenseLimit {
		t.Errorf("listed %d expenses, want %d", n, recentExpenseLimit)
	}
}

func TestBuildContextEmptyData(t *testing.T) {
	got := BuildContext(core.User{Name: "Bob", Currency: core.USD, MemberSince: time.Now()}, nil, nil)
	for _, want := range []string{
		"- Total income: 0",
		"- Total expenses: 0",
		"- Active budgets: 0",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q", want)
		}
	}
}
