package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
)

// CreateBudgetRequest is the POST /budgets body. The server owns the period
// (monthly) and the spent amount.
type CreateBudgetRequest struct {
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
}

func (r CreateBudgetRequest) Validate() error {
	return core.Budget{CategoryID: r.CategoryID, LimitAmount: r.Amount}.Validate()
}

// BudgetsQuery is the cached list-budgets endpoint.
func (c *Client) BudgetsQuery() cache.Query[[]core.Budget] {
	return cache.Query[[]core.Budget]{
		Endpoint: "getBudgets",
		Fetch: func(ctx context.Context, _ string) ([]core.Budget, error) {
			var out []core.Budget
			if err := c.gw.Send(ctx, http.MethodGet, "/budgets", nil, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
		Tags: func(_ string, result []core.Budget) []cache.Tag {
			tags := make([]cache.Tag, 0, len(result)+1)
			for _, b := range result {
				tags = append(tags, cache.EntityTag(TagBudgets, b.ID))
			}
			return append(tags, cache.ListTag(TagBudgets))
		},
	}
}

// WatchBudgets subscribes to the budget collection.
func (c *Client) WatchBudgets(onChange func(cache.Result[[]core.Budget])) *cache.Subscription[[]core.Budget] {
	return cache.Subscribe(c.store, c.BudgetsQuery(), "", onChange)
}

// Budgets returns the budget collection, serving the cache when fresh.
func (c *Client) Budgets(ctx context.Context) ([]core.Budget, error) {
	return once(ctx, c.store, c.BudgetsQuery())
}

// CreateBudget sets a category's monthly limit and invalidates the budget
// list.
func (c *Client) CreateBudget(ctx context.Context, req CreateBudgetRequest) (core.Budget, error) {
	if err := req.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return cache.Mutate(ctx, c.store, cache.Mutation[CreateBudgetRequest, core.Budget]{
		Endpoint: "createBudget",
		Do: func(ctx context.Context, arg CreateBudgetRequest) (core.Budget, error) {
			var out core.Budget
			err := c.gw.Send(ctx, http.MethodPost, "/budgets", arg, &out)
			return out, err
		},
		Invalidates: func(CreateBudgetRequest) []cache.Tag {
			return []cache.Tag{cache.ListTag(TagBudgets)}
		},
	}, req)
}

// DeleteBudget removes a budget.
func (c *Client) DeleteBudget(ctx context.Context, id int64) error {
	_, err := cache.Mutate(ctx, c.store, cache.Mutation[int64, struct{}]{
		Endpoint: "deleteBudget",
		Do: func(ctx context.Context, id int64) (struct{}, error) {
			return struct{}{}, c.gw.Send(ctx, http.MethodDelete, fmt.Sprintf("/budgets/%d", id), nil, nil)
		},
		Invalidates: func(id int64) []cache.Tag {
			return []cache.Tag{
				cache.ListTag(TagBudgets),
				cache.EntityTag(TagBudgets, id),
			}
		},
	}, id)
	return err
}
