package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// TrendPoint is one calendar-day bucket of spending.
type TrendPoint struct {
	Date   core.Date
	Label  string // short weekday, e.g. "Mon"
	Amount decimal.Decimal
}

// Trend buckets Expense-kind transactions by calendar date over the trailing
// window of `days` days ending at `today`. The series always has exactly
// `days` points; a day without transactions contributes zero, not a gap.
// Dates are matched as calendar days, never as timestamps.
func Trend(expenses []core.Expense, categories []core.Category, today core.Date, days int) []TrendPoint {
	if days <= 0 {
		return nil
	}
	kinds := kindIndex(categories)

	byDay := make(map[string]decimal.Decimal, days)
	for _, e := range expenses {
		if kinds[e.CategoryID] != core.KindExpense || e.Date.IsZero() {
			continue
		}
		key := e.Date.String()
		byDay[key] = byDay[key].Add(e.Amount)
	}

	points := make([]TrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := today.Add(-i)
		points = append(points, TrendPoint{
			Date:   d,
			Label:  d.Weekday().String()[:3],
			Amount: byDay[d.String()],
		})
	}
	return points
}

// Day-group display labels.
const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"
)

// DayGroup is the set of transactions sharing one calendar date, labelled
// for display.
type DayGroup struct {
	Date     core.Date
	Label    string
	Expenses []core.Expense
}

// GroupByDay groups transactions under Today / Yesterday / date labels,
// newest first. Equal dates land in one group regardless of any time
// component the backend attached. Undated transactions group last under an
// empty label.
func GroupByDay(expenses []core.Expense, today core.Date) []DayGroup {
	byDay := make(map[string][]core.Expense)
	for _, e := range expenses {
		key := e.Date.String()
		byDay[key] = append(byDay[key], e)
	}

	keys := make([]string, 0, len(byDay))
	for key := range byDay {
		keys = append(keys, key)
	}
	// YYYY-MM-DD sorts lexicographically; newest first, "" (undated) last.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	groups := make([]DayGroup, 0, len(keys))
	for _, key := range keys {
		var d core.Date
		if key != "" {
			d = core.MustParseDate(key)
		}
		label := key
		switch {
		case key == "":
			label = ""
		case d.Equal(today):
			label = LabelToday
		case d.Equal(today.Add(-1)):
			label = LabelYesterday
		}
		groups = append(groups, DayGroup{Date: d, Label: label, Expenses: byDay[key]})
	}
	return groups
}
