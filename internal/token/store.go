// Package token holds the bearer token slot and the decoder for its claims.
package token

import (
	"context"
	"sync"
)

// Store is a single persisted slot for the bearer token.
// It performs no validation: it keeps whatever string it is given.
type Store interface {
	// Set replaces the stored token.
	Set(ctx context.Context, token string) error
	// Get returns the stored token, or "" when the slot is empty.
	Get(ctx context.Context) (string, error)
	// Remove empties the slot. Removing an empty slot is not an error.
	Remove(ctx context.Context) error
}

// MemoryStore keeps the token for the lifetime of the process only.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryStore) Get(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryStore) Remove(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}
