package memory

import (
	"context"
	"sync"
)

// Backend keeps records in process memory. It backs the store when no
// Redis address is configured, and in tests.
type Backend struct {
	mu      sync.RWMutex
	records map[string][]byte // key -> JSON value
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		records: make(map[string][]byte),
	}
}

// Get returns a copy of the value stored under key.
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.records[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set replaces the whole value stored under key.
func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes keys; missing keys are ignored.
func (b *Backend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range keys {
		delete(b.records, k)
	}
	return nil
}

// Ping always succeeds.
func (b *Backend) Ping(context.Context) error { return nil }

// Count returns the number of stored records.
func (b *Backend) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.records)
}
