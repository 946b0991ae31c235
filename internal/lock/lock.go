// Package lock implements the per-requester concurrency gate: at most
// one scrape may be in flight per requester identity. The Redis gate is
// safe across multiple server processes; the memory gate serves tests
// and single-process development.
package lock

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "flights:lock:"

// Gate is the mutual-exclusion collaborator contract. Acquire is an
// atomic create-if-absent with a fixed expiry and reports false when the
// lock is already held; Release deletes unconditionally. Callers must
// release on every exit path; a leaked lock only degrades into
// "temporarily unavailable" until the expiry runs out.
type Gate interface {
	Acquire(ctx context.Context, requesterID string) (bool, error)
	Release(ctx context.Context, requesterID string) error
}

// RedisGate backs Gate with Redis SET NX.
type RedisGate struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGate(client *redis.Client, ttl time.Duration) *RedisGate {
	return &RedisGate{client: client, ttl: ttl}
}

func (g *RedisGate) Acquire(ctx context.Context, requesterID string) (bool, error) {
	return g.client.SetNX(ctx, keyPrefix+requesterID, "1", g.ttl).Result()
}

func (g *RedisGate) Release(ctx context.Context, requesterID string) error {
	return g.client.Del(ctx, keyPrefix+requesterID).Err()
}

// MemoryGate is a single-process Gate with the same expiry semantics.
type MemoryGate struct {
	mu   sync.Mutex
	held map[string]time.Time
	ttl  time.Duration
}

func NewMemoryGate(ttl time.Duration) *MemoryGate {
	return &MemoryGate{held: make(map[string]time.Time), ttl: ttl}
}

func (g *MemoryGate) Acquire(ctx context.Context, requesterID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if exp, ok := g.held[requesterID]; ok && time.Now().Before(exp) {
		return false, nil
	}
	g.held[requesterID] = time.Now().Add(g.ttl)
	return true, nil
}

func (g *MemoryGate) Release(ctx context.Context, requesterID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, requesterID)
	return nil
}
