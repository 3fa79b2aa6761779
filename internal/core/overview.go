package core

import (
	"fmt"
	"math"
	"time"
)

// How many budgets feed the monthly chart and how many standalone expenses
// appear in the recent list.
const (
	chartBudgets   = 6
	recentExpenses = 5
)

type (
	// Overview is the dashboard projection for one user.
	Overview struct {
		Totals         OverviewTotals  `json:"totals"`
		MonthlyChart   []ChartPoint    `json:"monthlyChart"`
		RecentExpenses []RecentExpense `json:"recentExpenses"`
		Notifications  []Notification  `json:"notifications"`
		Stats          OverviewStats   `json:"stats"`
	}

	OverviewTotals struct {
		Income   float64 `json:"income"`
		Expenses float64 `json:"expenses"`
		Savings  float64 `json:"savings"`
		Balance  float64 `json:"balance"`
	}

	ChartPoint struct {
		Month    string  `json:"month"`
		Income   float64 `json:"income"`
		Expenses float64 `json:"expenses"`
		Savings  float64 `json:"savings"`
	}

	RecentExpense struct {
		ID       string    `json:"id"`
		Name     string    `json:"name"`
		Amount   float64   `json:"amount"`
		Category string    `json:"category"`
		Date     time.Time `json:"date"`
	}

	OverviewStats struct {
		ActiveBudgets   int     `json:"activeBudgets"`
		ExpensesTracked int     `json:"expensesTracked"`
		TotalSaved      float64 `json:"totalSaved"`
		DaysActive      int     `json:"daysActive"`
	}
)

// AggregateOverview builds the dashboard projection from a consistent snapshot
// of one user's records. Budgets must be sorted newest-first and expenses by
// occurrence date descending; the caller owns that ordering. Inputs are never
// mutated. A malformed record fails the whole aggregation.
func AggregateOverview(budgets []Budget, expenses []Expense, notifications []Notification, user User, now time.Time) (Overview, error) {
	var totalIncome, totalSavings float64
	for i, b := range budgets {
		d, err := ComputeBudgetDerived(b)
		if err != nil {
			return Overview{}, fmt.Errorf("budget %d (%s): %w", i, b.ID, err)
		}
		totalIncome += b.Income
		totalSavings += d.SavingsAmount
	}

	// Totals.Expenses covers standalone expenses only, not budget line items.
	var totalExpenses float64
	for i, e := range expenses {
		if err := checkAmount(e.Amount); err != nil {
			return Overview{}, fmt.Errorf("expense %d (%s): %w", i, e.ID, err)
		}
		totalExpenses += e.Amount
	}

	chart := make([]ChartPoint, 0, chartBudgets)
	for _, b := range budgets {
		if len(chart) == chartBudgets {
			break
		}
		savings, _ := savingsAmount(b)
		lines := lineTotal(b)
		chart = append(chart, ChartPoint{
			Month:    shortMonth(b.CreatedAt),
			Income:   b.Income,
			Expenses: lines,
			Savings:  savings - lines,
		})
	}

	recent := make([]RecentExpense, 0, recentExpenses)
	for _, e := range expenses {
		if len(recent) == recentExpenses {
			break
		}
		recent = append(recent, RecentExpense{
			ID:       e.ID,
			Name:     e.Name,
			Amount:   e.Amount,
			Category: e.Category,
			Date:     e.OccurredAt,
		})
	}

	active := 0
	for _, b := range budgets {
		if b.Status == StatusActive {
			active++
		}
	}

	if notifications == nil {
		notifications = []Notification{}
	}

	return Overview{
		Totals: OverviewTotals{
			Income:   totalIncome,
			Expenses: totalExpenses,
			Savings:  totalSavings,
			Balance:  totalIncome - totalExpenses - totalSavings,
		},
		MonthlyChart:   chart,
		RecentExpenses: recent,
		Notifications:  notifications,
		Stats: OverviewStats{
			ActiveBudgets:   active,
			ExpensesTracked: len(expenses),
			TotalSaved:      totalSavings,
			DaysActive:      daysActive(user.MemberSince, now),
		},
	}, nil
}

// daysActive counts whole days since the account was created, at least 1 for
// any existing account and 0 when memberSince is absent.
func daysActive(memberSince, now time.Time) int {
	if memberSince.IsZero() {
		return 0
	}
	days := int(math.Ceil(now.Sub(memberSince).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// shortMonth is the fixed-locale three-letter month label used by the chart.
func shortMonth(t time.Time) string {
	return t.Month().String()[:3]
}
