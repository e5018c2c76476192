package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps the mapping in process memory. It is used in tests
// and for throwaway sessions.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
	// Writes counts Set calls.
	Writes int
}

// NewMemoryBackend returns a backend pre-seeded with a copy of initial.
func NewMemoryBackend(initial map[string]string) *MemoryBackend {
	m := &MemoryBackend{values: make(map[string]string, len(initial))}
	for k, v := range initial {
		m.values[k] = v
	}
	return m
}

// GetAll implements Backend.
func (m *MemoryBackend) GetAll(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

// Set implements Backend.
func (m *MemoryBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.Writes++
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }
