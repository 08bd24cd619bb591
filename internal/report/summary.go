package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Uncategorized is the display name for a transaction whose category id no
// longer resolves. Such transactions are rendered, not rejected, and count
// toward neither income nor expenses.
const Uncategorized = "Uncategorized"

// Summary is the balance overview of a set of transactions.
type Summary struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Balance  decimal.Decimal
}

// kindIndex maps category ids to their kind for quick resolution.
func kindIndex(categories []core.Category) map[int64]core.CategoryKind {
	idx := make(map[int64]core.CategoryKind, len(categories))
	for _, c := range categories {
		idx[c.ID] = c.Kind
	}
	return idx
}

// CategoryName resolves an expense's display name, falling back to
// Uncategorized.
func CategoryName(categories []core.Category, categoryID int64) string {
	for _, c := range categories {
		if c.ID == categoryID {
			return c.Name
		}
	}
	return Uncategorized
}

// Summarize totals income and expenses by the referenced category's kind.
// The identity Income - Expenses == Balance holds for any input, including
// empty collections.
func Summarize(expenses []core.Expense, categories []core.Category) Summary {
	kinds := kindIndex(categories)
	var s Summary
	for _, e := range expenses {
		switch kinds[e.CategoryID] {
		case core.KindIncome:
			s.Income = s.Income.Add(e.Amount)
		case core.KindExpense:
			s.Expenses = s.Expenses.Add(e.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expenses)
	return s
}

// Slice is one category's share of total spending.
type Slice struct {
	Name  string
	Value decimal.Decimal
	Color string
}

// Breakdown sums spending per Expense-kind category, in category order.
// Categories with no matching transactions are omitted; budget views keep
// them, breakdown views do not.
func Breakdown(expenses []core.Expense, categories []core.Category) []Slice {
	var slices []Slice
	for _, c := range categories {
		if c.Kind != core.KindExpense {
			continue
		}
		value := decimal.Zero
		for _, e := range expenses {
			if e.CategoryID == c.ID {
				value = value.Add(e.Amount)
			}
		}
		if value.IsPositive() {
			slices = append(slices, Slice{Name: c.Name, Value: value, Color: c.Color})
		}
	}
	return slices
}

// Top returns the n largest transactions by amount, largest first. Ties keep
// their input order. A non-positive n yields nil.
func Top(expenses []core.Expense, n int) []core.Expense {
	if n <= 0 {
		return nil
	}
	sorted := make([]core.Expense, len(expenses))
	copy(sorted, expenses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.GreaterThan(sorted[j].Amount)
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}
