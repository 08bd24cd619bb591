package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
)

// CreateExpenseRequest is the POST /expenses body.
type CreateExpenseRequest struct {
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Date       core.Date       `json:"expense_date"`
	Note       string          `json:"note,omitempty"`
	UserID     int64           `json:"user_id"`
}

func (r CreateExpenseRequest) Validate() error {
	return core.Expense{
		CategoryID: r.CategoryID,
		Amount:     r.Amount,
		Date:       r.Date,
	}.Validate()
}

// ExpensesQuery is the cached list-expenses endpoint.
func (c *Client) ExpensesQuery() cache.Query[[]core.Expense] {
	return cache.Query[[]core.Expense]{
		Endpoint: "getExpenses",
		Fetch: func(ctx context.Context, _ string) ([]core.Expense, error) {
			var out []core.Expense
			if err := c.gw.Send(ctx, http.MethodGet, "/expenses", nil, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
		Tags: func(_ string, result []core.Expense) []cache.Tag {
			tags := make([]cache.Tag, 0, len(result)+1)
			for _, e := range result {
				tags = append(tags, cache.EntityTag(TagExpenses, e.ID))
			}
			return append(tags, cache.ListTag(TagExpenses))
		},
	}
}

// WatchExpenses subscribes to the expense collection.
func (c *Client) WatchExpenses(onChange func(cache.Result[[]core.Expense])) *cache.Subscription[[]core.Expense] {
	return cache.Subscribe(c.store, c.ExpensesQuery(), "", onChange)
}

// Expenses returns the expense collection, serving the cache when fresh.
func (c *Client) Expenses(ctx context.Context) ([]core.Expense, error) {
	return once(ctx, c.store, c.ExpensesQuery())
}

// CreateExpense records a transaction and invalidates the expense list.
func (c *Client) CreateExpense(ctx context.Context, req CreateExpenseRequest) (core.Expense, error) {
	if err := req.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return cache.Mutate(ctx, c.store, cache.Mutation[CreateExpenseRequest, core.Expense]{
		Endpoint: "createExpense",
		Do: func(ctx context.Context, arg CreateExpenseRequest) (core.Expense, error) {
			var out core.Expense
			err := c.gw.Send(ctx, http.MethodPost, "/expenses", arg, &out)
			return out, err
		},
		Invalidates: func(CreateExpenseRequest) []cache.Tag {
			return []cache.Tag{cache.ListTag(TagExpenses)}
		},
	}, req)
}

// DeleteExpense removes a transaction.
func (c *Client) DeleteExpense(ctx context.Context, id int64) error {
	_, err := cache.Mutate(ctx, c.store, cache.Mutation[int64, struct{}]{
		Endpoint: "deleteExpense",
		Do: func(ctx context.Context, id int64) (struct{}, error) {
			return struct{}{}, c.gw.Send(ctx, http.MethodDelete, fmt.Sprintf("/expenses/%d", id), nil, nil)
		},
		Invalidates: func(id int64) []cache.Tag {
			return []cache.Tag{
				cache.ListTag(TagExpenses),
				cache.EntityTag(TagExpenses, id),
			}
		},
	}, id)
	return err
}
