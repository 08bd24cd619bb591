package storage

import (
	"context"
	"sync"
)

// MemoryKV is an in-memory KV for tests and throwaway sessions.
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string]string
}

var _ KV = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *MemoryKV) Close() error { return nil }
