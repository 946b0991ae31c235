// Package cache wraps the Redis key-value store behind a small contract
// the rest of the application depends on. Entries are opaque byte
// payloads; a TTL of zero means no expiry.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the key-value collaborator contract: TTL-bounded set, get,
// and unconditional delete. In-memory, networked or persistent engines
// all satisfy it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisStore backs Store with a Redis client.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (s *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, payload, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// NoOpStore satisfies Store without retaining anything. It is the
// degraded mode used when Redis is unreachable at startup: every lookup
// misses and the service keeps working, just without memoization.
type NoOpStore struct{}

func NewNoOpStore() *NoOpStore { return &NoOpStore{} }

func (*NoOpStore) Get(ctx context.Context, key string) ([]byte, bool) { return nil, false }

func (*NoOpStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return nil
}

func (*NoOpStore) Delete(ctx context.Context, key string) error { return nil }
