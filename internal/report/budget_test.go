package report

import (
	"testing"

	"expensetracker/internal/core"
)

func TestBudgetUsage(t *testing.T) {
	cases := []struct {
		name      string
		limit     string
		spent     string
		percent   float64
		remaining string
		tier      Tier
	}{
		{"under", "300", "75", 25, "225", TierOK},
		{"warning at 80", "100", "80", 80, "20", TierWarning},
		{"just below warning", "100", "79.99", 79.99, "0.01", TierOK},
		{"at limit", "100", "100", 100, "0", TierOver},
		{"over budget clamps percent not remaining", "100", "150", 100, "-50", TierOver},
		{"zero limit treated as zero utilization", "0", "50", 0, "-50", TierOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := BudgetUsage(core.Budget{
				LimitAmount: dec(tc.limit),
				SpentAmount: dec(tc.spent),
			})
			if u.Percent != tc.percent {
				t.Fatalf("percent = %v, want %v", u.Percent, tc.percent)
			}
			if !u.Remaining.Equal(dec(tc.remaining)) {
				t.Fatalf("remaining = %s, want %s", u.Remaining, tc.remaining)
			}
			if u.Tier != tc.tier {
				t.Fatalf("tier = %s, want %s", u.Tier, tc.tier)
			}
		})
	}
}

func TestBudgetUsageAllKeepsZeroSpend(t *testing.T) {
	usages := BudgetUsageAll([]core.Budget{
		{ID: 1, LimitAmount: dec("100"), SpentAmount: dec("0")},
		{ID: 2, LimitAmount: dec("100"), SpentAmount: dec("90")},
	})
	if len(usages) != 2 {
		t.Fatalf("len = %d, want 2 (zero-spend budgets stay visible)", len(usages))
	}
	if usages[0].Percent != 0 || usages[1].Tier != TierWarning {
		t.Fatalf("usages = %+v", usages)
	}
}
