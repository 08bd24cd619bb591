package services

import (
	"context"
	"fmt"
	"net/http"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
)

// CreateCategoryRequest is the POST /categories body.
type CreateCategoryRequest struct {
	Name   string            `json:"name"`
	UserID int64             `json:"userId"`
	Kind   core.CategoryKind `json:"type"`
	Color  string            `json:"color"`
}

func (r CreateCategoryRequest) Validate() error {
	return core.Category{Name: r.Name, Kind: r.Kind}.Validate()
}

// CategoriesQuery is the cached list-categories endpoint. Each result
// provides one tag per returned id plus Categories:LIST; a nil result still
// provides the list tag so a later create reaches the errored entry.
func (c *Client) CategoriesQuery() cache.Query[[]core.Category] {
	return cache.Query[[]core.Category]{
		Endpoint: "getCategories",
		Fetch: func(ctx context.Context, _ string) ([]core.Category, error) {
			var out []core.Category
			if err := c.gw.Send(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
				return nil, err
			}
			return out, nil
		},
		Tags: func(_ string, result []core.Category) []cache.Tag {
			tags := make([]cache.Tag, 0, len(result)+1)
			for _, cat := range result {
				tags = append(tags, cache.EntityTag(TagCategories, cat.ID))
			}
			return append(tags, cache.ListTag(TagCategories))
		},
	}
}

// WatchCategories subscribes to the category collection.
func (c *Client) WatchCategories(onChange func(cache.Result[[]core.Category])) *cache.Subscription[[]core.Category] {
	return cache.Subscribe(c.store, c.CategoriesQuery(), "", onChange)
}

// Categories returns the category collection, serving the cache when fresh.
func (c *Client) Categories(ctx context.Context) ([]core.Category, error) {
	return once(ctx, c.store, c.CategoriesQuery())
}

// CreateCategory creates a category and invalidates the category list.
func (c *Client) CreateCategory(ctx context.Context, req CreateCategoryRequest) (core.Category, error) {
	if err := req.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return cache.Mutate(ctx, c.store, cache.Mutation[CreateCategoryRequest, core.Category]{
		Endpoint: "createCategory",
		Do: func(ctx context.Context, arg CreateCategoryRequest) (core.Category, error) {
			var out core.Category
			err := c.gw.Send(ctx, http.MethodPost, "/categories", arg, &out)
			return out, err
		},
		Invalidates: func(CreateCategoryRequest) []cache.Tag {
			return []cache.Tag{cache.ListTag(TagCategories)}
		},
	}, req)
}

// DeleteCategory deletes a category, invalidating both the list and the
// entity tag of the deleted id.
func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	_, err := cache.Mutate(ctx, c.store, cache.Mutation[int64, struct{}]{
		Endpoint: "deleteCategory",
		Do: func(ctx context.Context, id int64) (struct{}, error) {
			return struct{}{}, c.gw.Send(ctx, http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil)
		},
		Invalidates: func(id int64) []cache.Tag {
			return []cache.Tag{
				cache.ListTag(TagCategories),
				cache.EntityTag(TagCategories, id),
			}
		},
	}, id)
	return err
}
