package memory

import (
	"context"
	"sync"
)

// SettingsStore es el settings key/value en memoria (modo dev y tests).
type SettingsStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{values: make(map[string]string)}
}

func (s *SettingsStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

func (s *SettingsStore) Set(ctx context.Context, key string, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = raw
	return nil
}
