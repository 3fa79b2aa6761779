// Package core implements the budget aggregation engine: pure, deterministic
// transforms over already-fetched budget and expense records. It performs no
// I/O and assumes callers validated user-supplied ranges at the boundary;
// non-finite or negative numbers are still rejected here rather than silently
// coerced, since a coerced zero would corrupt debt and balance figures.
package core

import "fmt"

// Derived holds the figures computed from a budget's inputs.
type Derived struct {
	TotalExpenses float64 `json:"totalExpenses"`
	SavingsAmount float64 `json:"savingsAmount"`
	Net           float64 `json:"net"`
	Debt          float64 `json:"debt"`
}

// ComputeBudgetDerived recomputes a budget's derived figures:
//
//	totalExpenses = sum of line-item amounts
//	savingsAmount = income * savingsPercentage / 100
//	net           = income - savingsAmount - totalExpenses + unexpectedIncome - unexpectedExpenses
//	debt          = max(0, -net)
//
// It is the single source of truth for the debt formula. Every budget write
// path must call it and persist the returned Debt.
func ComputeBudgetDerived(b Budget) (Derived, error) {
	if err := checkAmount(b.Income); err != nil {
		return Derived{}, fmt.Errorf("income: %w", err)
	}
	if err := checkAmount(b.UnexpectedIncome); err != nil {
		return Derived{}, fmt.Errorf("unexpected income: %w", err)
	}
	if err := checkAmount(b.UnexpectedExpenses); err != nil {
		return Derived{}, fmt.Errorf("unexpected expenses: %w", err)
	}
	savings, err := savingsAmount(b)
	if err != nil {
		return Derived{}, err
	}

	var total float64
	for i, l := range b.Expenses {
		if err := checkAmount(l.Amount); err != nil {
			return Derived{}, fmt.Errorf("line item %d: %w", i, err)
		}
		total += l.Amount
	}

	net := b.Income - savings - total + b.UnexpectedIncome - b.UnexpectedExpenses
	debt := 0.0
	if net < 0 {
		debt = -net
	}

	return Derived{
		TotalExpenses: total,
		SavingsAmount: savings,
		Net:           net,
		Debt:          debt,
	}, nil
}

func savingsAmount(b Budget) (float64, error) {
	if err := checkAmount(b.SavingsPercentage); err != nil {
		return 0, fmt.Errorf("savings percentage: %w", ErrMalformedPercentage)
	}
	return b.Income * b.SavingsPercentage / 100, nil
}

func lineTotal(b Budget) float64 {
	var total float64
	for _, l := range b.Expenses {
		total += l.Amount
	}
	return total
}
