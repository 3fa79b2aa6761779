package assistant

import (
	"fmt"
	"strings"

	"tresor/internal/core"
)

// GenericContext is used when the user's data cannot be loaded.
const GenericContext = "You are Tresor Budget AI, a financial assistant. " +
	"The user's financial data could not be loaded, so answer in a general but practical way."

const recentExpenseLimit = 5

// BuildContext renders the system prompt for a personalized answer: profile,
// aggregated stats and the latest expenses. Expenses must be sorted newest
// first, matching the storage layer's ordering.
func BuildContext(user core.User, budgets []core.Budget, expenses []core.Expense) string {
	var totalIncome, totalSaved float64
	activeBudgets := 0
	for _, b := range budgets {
		totalIncome += b.Income
		totalSaved += b.Income * b.SavingsPercentage / 100
		if b.Status == core.StatusActive {
			activeBudgets++
		}
	}

	var totalExpenses float64
	for _, e := range expenses {
		totalExpenses += e.Amount
	}

	var sb strings.Builder
	sb.WriteString("You are Tresor Budget AI. You are helping a single user based on their real financial data from the app.\n\n")
	sb.WriteString("User profile:\n")
	fmt.Fprintf(&sb, "- Name: %s\n", user.Name)
	fmt.Fprintf(&sb, "- Currency: %s\n", strings.ToUpper(string(user.Currency)))
	fmt.Fprintf(&sb, "- Member since: %s\n\n", user.MemberSince.Format("2006-01-02"))
	sb.WriteString("Aggregated stats:\n")
	fmt.Fprintf(&sb, "- Total income: %g\n", totalIncome)
	fmt.Fprintf(&sb, "- Total expenses: %g\n", totalExpenses)
	fmt.Fprintf(&sb, "- Total saved (from budgets): %g\n", totalSaved)
	fmt.Fprintf(&sb, "- Active budgets: %d\n\n", activeBudgets)
	fmt.Fprintf(&sb, "Recent expenses (up to %d):\n", recentExpenseLimit)
	for i, e := range expenses {
		if i == recentExpenseLimit {
			break
		}
		fmt.Fprintf(&sb, "- %s: %g in category %s on %s\n",
			e.Name, e.Amount, e.Category, e.OccurredAt.Format("2006-01-02"))
	}
	sb.WriteString("\nPrimary role: Give concrete, personalized financial advice using these numbers.\n")
	sb.WriteString("If the user asks about something completely unrelated to personal finance " +
		"(like general knowledge or fun facts), you may still answer briefly and clearly, " +
		"then gently relate it back to money or budgeting when possible.")
	return sb.String()
}
