// Package report computes the derived financial views: balance summary,
// category breakdown, trend buckets, display grouping, and budget
// utilization. Every function is pure over the collections it is given; a
// not-yet-loaded collection is simply an empty slice, never an error.
package report

import "expensetracker/internal/core"

// AllCategories selects every category in a Filter.
const AllCategories int64 = 0

// Filter narrows the expense collection before aggregation. Conditions
// compose with AND semantics. An expense without a resolvable date passes
// any date condition (fail-open), matching how the views treat undated
// backend rows.
type Filter struct {
	CategoryID int64 // AllCategories or a specific id
	From, To   core.Date
}

// Apply returns the expenses that pass the filter, preserving order.
func (f Filter) Apply(expenses []core.Expense) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.CategoryID != AllCategories && e.CategoryID != f.CategoryID {
			continue
		}
		if !e.Date.IsZero() {
			if !f.From.IsZero() && e.Date.Before(f.From) {
				continue
			}
			if !f.To.IsZero() && e.Date.After(f.To) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}
