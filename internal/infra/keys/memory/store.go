package memory

import (
	"context"
	"errors"
	"sync"

	"jsonsig/internal/domain"
)

// Store is the default in-process KeyStore. Records live for the lifetime
// of the process.
type Store struct {
	mu   sync.RWMutex
	keys map[string]domain.KeyPair
}

func NewStore() *Store {
	return &Store{keys: make(map[string]domain.KeyPair)}
}

func (s *Store) Get(_ context.Context, id string) (*domain.KeyPair, bool, error) {
	if s == nil {
		return nil, false, errors.New("memory key store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	pair, ok := s.keys[id]
	if !ok {
		return nil, false, nil
	}
	return &pair, true, nil
}

func (s *Store) Set(_ context.Context, id string, pair domain.KeyPair) error {
	if s == nil {
		return errors.New("memory key store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys == nil {
		s.keys = make(map[string]domain.KeyPair)
	}
	s.keys[id] = pair
	return nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

var _ domain.KeyStore = (*Store)(nil)
