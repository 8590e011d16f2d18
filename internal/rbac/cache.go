package rbac

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultContextCacheSize = 4096
	// DefaultContextTTL bounds how long a revoked permission can remain
	// effective when the write path fails to invalidate explicitly.
	// Eventual consistency within this window is a deliberate tradeoff.
	DefaultContextTTL = 2 * time.Minute
)

// ContextCache stores built user contexts keyed by user id. Entries are
// eventually consistent: concurrent requests may read a stale snapshot until
// the TTL lapses or a write path invalidates explicitly. The cache is never
// ambient state; every mutation of roles, permissions, or memberships calls
// Invalidate on its way out.
type ContextCache interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserContext, bool)
	Set(ctx context.Context, userID uuid.UUID, uc *UserContext) error
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// MemoryContextCache is the in-process implementation backed by an
// expirable LRU. Suitable for a single-instance deployment; multi-instance
// deployments should prefer the Redis implementation so invalidation is
// visible across replicas.
type MemoryContextCache struct {
	lru *expirable.LRU[uuid.UUID, *UserContext]
}

// NewMemoryContextCache creates an in-process cache with the given TTL.
// A non-positive TTL falls back to DefaultContextTTL.
func NewMemoryContextCache(ttl time.Duration) *MemoryContextCache {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	return &MemoryContextCache{
		lru: expirable.NewLRU[uuid.UUID, *UserContext](defaultContextCacheSize, nil, ttl),
	}
}

func (c *MemoryContextCache) Get(_ context.Context, userID uuid.UUID) (*UserContext, bool) {
	return c.lru.Get(userID)
}

func (c *MemoryContextCache) Set(_ context.Context, userID uuid.UUID, uc *UserContext) error {
	c.lru.Add(userID, uc)
	return nil
}

func (c *MemoryContextCache) Invalidate(_ context.Context, userID uuid.UUID) error {
	c.lru.Remove(userID)
	return nil
}
