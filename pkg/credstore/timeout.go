package credstore

import (
	"context"
	"time"
)

// DefaultTimeout bounds store calls made through WithTimeout when no
// positive duration is given.
const DefaultTimeout = 5 * time.Second

type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout wraps store so every call runs under its own deadline.
// A caller deadline that is shorter still wins.
func WithTimeout(store Store, d time.Duration) Store {
	if d <= 0 {
		d = DefaultTimeout
	}
	return &timeoutStore{next: store, timeout: d}
}

func (s *timeoutStore) Retrieve(ctx context.Context, tenantID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Retrieve(ctx, tenantID)
}

func (s *timeoutStore) Save(ctx context.Context, tenantID string, credential []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Save(ctx, tenantID, credential)
}

func (s *timeoutStore) Delete(ctx context.Context, tenantID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Delete(ctx, tenantID)
}

func (s *timeoutStore) Exists(ctx context.Context, tenantID string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.next.Exists(ctx, tenantID)
}
