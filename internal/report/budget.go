package report

import (
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Tier classifies budget utilization for display.
type Tier string

const (
	TierOK      Tier = "ok"      // below 80%
	TierWarning Tier = "warning" // 80% up to 100%
	TierOver    Tier = "over"    // at or past the limit
)

// Usage is the derived utilization of one budget. Percent is clamped to
// [0, 100]; Remaining is not clamped and goes negative when over budget.
type Usage struct {
	Budget    core.Budget
	Percent   float64
	Remaining decimal.Decimal
	Tier      Tier
}

// BudgetUsage computes utilization for one budget. A zero or negative limit
// is treated as 0% utilization by convention: there is no meaningful ratio
// to take, and rejecting would turn a bad server row into a broken view.
// Remaining is still limit minus spent.
func BudgetUsage(b core.Budget) Usage {
	u := Usage{
		Budget:    b,
		Remaining: b.LimitAmount.Sub(b.SpentAmount),
		Tier:      TierOK,
	}
	if !b.LimitAmount.IsPositive() {
		return u
	}

	ratio, _ := b.SpentAmount.Div(b.LimitAmount).Mul(decimal.NewFromInt(100)).Float64()
	switch {
	case ratio >= 100:
		u.Tier = TierOver
	case ratio >= 80:
		u.Tier = TierWarning
	}
	u.Percent = min(max(ratio, 0), 100)
	return u
}

// BudgetUsageAll computes utilization for every budget, preserving order.
// Unlike Breakdown, budgets with zero spending are kept.
func BudgetUsageAll(budgets []core.Budget) []Usage {
	usages := make([]Usage, len(budgets))
	for i, b := range budgets {
		usages[i] = BudgetUsage(b)
	}
	return usages
}
