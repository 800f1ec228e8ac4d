package credstore

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials in process memory. Blobs are copied on the
// way in and out so callers cannot mutate stored data.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Retrieve(_ context.Context, tenantID string) ([]byte, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.data[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(blob), nil
}

func (s *MemoryStore) Save(_ context.Context, tenantID string, credential []byte) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}
	s.mu.Lock()
	s.data[tenantID] = cloneBytes(credential)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, tenantID string) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.data, tenantID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, tenantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[tenantID]
	return ok
}

// Len returns the number of stored credentials.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
