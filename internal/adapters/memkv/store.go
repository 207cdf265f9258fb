package memkv

// Package memkv provides an in-memory settings backend for development and
// tests. State is lost on restart.

import (
	"context"
	"sync"

	"github.com/filegate/filegate/internal/ports"
)

// Store is a concurrency-safe in-memory ports.SettingsStore.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ ports.SettingsStore = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{data: map[string][]byte{}}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ports.ErrSettingNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
