// Package storage provides the durable key-value store that survives
// process restarts. The credential store keeps its session state here.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// KV is a durable string key-value store. Deleting a missing key is not an
// error; callers use errors.Is(err, ErrNotFound) on reads.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
