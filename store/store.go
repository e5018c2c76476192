// Package store persists translations edited by the user.
//
// A Store overlays parsed bundle values: a key is "saved" once Set has been
// called for it, even with an empty string, and stays saved across process
// restarts. Persistence goes through a Backend, which keeps the whole
// key → value mapping under one slot and rewrites it on every Set.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Slot is the fixed name under which backends keep the mapping.
const Slot = "translations"

// Backend is the storage port used by Store.
type Backend interface {
	// GetAll returns the full persisted mapping. A backend with nothing
	// stored yet returns an empty map.
	GetAll(ctx context.Context) (map[string]string, error)
	// Set durably records one entry. Implementations read the whole
	// mapping, update it, and write it back.
	Set(ctx context.Context, key, value string) error
	// Close releases backend resources.
	Close() error
}

// Store is the translation overlay. It is safe for use by one editor at a
// time; the mutex only protects the in-memory snapshot.
type Store struct {
	mu      sync.Mutex
	backend Backend
	values  map[string]string
	closed  bool
}

// Open loads the persisted mapping from backend.
func Open(ctx context.Context, backend Backend) (*Store, error) {
	values, err := backend.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading translations: %w", err)
	}
	if values == nil {
		values = make(map[string]string)
	}
	log.Debug().Int("entries", len(values)).Msg("translation store opened")
	return &Store{backend: backend, values: values}, nil
}

// Get returns the saved value for key. ok is false when the key was never
// saved; an explicitly saved empty string returns ("", true).
func (s *Store) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// Saved reports whether key has been explicitly saved.
func (s *Store) Saved(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set persists value for key. The value is durable when Set returns nil.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err := s.backend.Set(ctx, key, value); err != nil {
		return fmt.Errorf("saving %q: %w", key, err)
	}
	s.values[key] = value
	return nil
}

// All returns a copy of every saved entry.
func (s *Store) All() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := make(map[string]string, len(s.values))
	for k, v := range s.values {
		m[k] = v
	}
	return m
}

// Keys returns the saved keys, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of saved entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Close closes the backend. Further Set calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.backend.Close()
}
