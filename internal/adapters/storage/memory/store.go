// Package memory provides a process-local KeyValueStore, used when durability
// is not wanted and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/jsamuelsen/quote-keeper/internal/domain"
	"github.com/jsamuelsen/quote-keeper/internal/ports"
)

// Store is a map guarded by a mutex. Values are copied in and out.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var (
	_ ports.KeyValueStore = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get implements ports.KeyValueStore.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, domain.NewNotFoundError("key", key)
	}

	return append([]byte(nil), v...), nil
}

// Set implements ports.KeyValueStore.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), value...)

	return nil
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error { return ctx.Err() }

// Close is a no-op; it lets the memory store stand in wherever a backend is closed.
func (s *Store) Close() error { return nil }
