package credstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "wamux:credential:"

// RedisStore keeps each credential under <prefix><tenant>.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisTTL expires credentials that are not refreshed within ttl.
// Zero keeps them until deleted.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Retrieve(ctx context.Context, tenantID string) ([]byte, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, s.key(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, tenantID string, credential []byte) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(tenantID), credential, s.ttl).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, tenantID string) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(tenantID)).Err(); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, tenantID string) bool {
	if ValidateTenantID(tenantID) != nil {
		return false
	}
	n, err := s.client.Exists(ctx, s.key(tenantID)).Result()
	return err == nil && n > 0
}

func (s *RedisStore) key(tenantID string) string {
	return s.prefix + tenantID
}
