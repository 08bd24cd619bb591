// Package services defines the application's endpoints: each query binds an
// HTTP call to its cache key and tag provider, each mutation to the tags it
// invalidates. This is the only package that knows both the wire format and
// the cache layout.
package services

import (
	"context"
	"fmt"

	"expensetracker/internal/cache"
	"expensetracker/internal/credstore"
	"expensetracker/internal/gateway"
	"expensetracker/internal/log"
)

// Tag types, one per entity collection.
const (
	TagCategories = "Categories"
	TagExpenses   = "Expenses"
	TagBudgets    = "Budgets"
)

// Client wires the gateway, the entity cache, and the credential store into
// typed operations.
type Client struct {
	gw    *gateway.Client
	store *cache.Store
	creds *credstore.Store
	log   *log.Logger
}

// New creates the endpoint client. All dependencies are required.
func New(gw *gateway.Client, store *cache.Store, creds *credstore.Store, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		gw:    gw,
		store: store,
		creds: creds,
		log:   logger.WithComponent(log.ComponentServices),
	}
}

// Store exposes the underlying cache for callers that subscribe directly.
func (c *Client) Store() *cache.Store { return c.store }

// once subscribes, waits for the first settled state, and unsubscribes.
// It is the fetch-or-serve-cached read used by one-shot callers.
func once[T any](ctx context.Context, s *cache.Store, q cache.Query[T]) (T, error) {
	results := make(chan cache.Result[T], 4)
	sub := cache.Subscribe(s, q, "", func(r cache.Result[T]) {
		select {
		case results <- r:
		default:
		}
	})
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case r := <-results:
			switch r.Status {
			case cache.StatusSuccess:
				if !r.Stale {
					return r.Data, nil
				}
			case cache.StatusError:
				var zero T
				return zero, fmt.Errorf("%s: %w", q.Endpoint, r.Err)
			}
		}
	}
}
