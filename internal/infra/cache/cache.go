// Package cache implements the TTL response cache backed by a shared remote
// store (redis) with an always-present in-memory fallback. Remote failures
// never propagate to callers; they degrade to the local store.
package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultTTL applies when neither the request nor the provider specifies one.
const DefaultTTL = time.Hour

// RemoteStore is the shared cross-process store. Implemented by
// internal/infra/redis.Client; nil means local-only mode.
type RemoteStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (int, error)
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
	Ping(ctx context.Context) error
}

// Stats holds cache hit/miss counters.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Cache is the two-tier TTL store.
type Cache struct {
	remote RemoteStore
	local  *localStore
	prefix string
	logger *slog.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a cache. remote may be nil for local-only mode; prefix is
// prepended to every key written to the remote store.
func New(remote RemoteStore, prefix string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		remote: remote,
		local:  newLocalStore(),
		prefix: prefix,
		logger: logger,
	}
}

// Get returns the cached value for key. Remote errors degrade silently to a
// local lookup; Get never fails.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.remote != nil {
		value, ok, err := c.remote.Get(ctx, c.prefix+key)
		if err == nil {
			if ok {
				c.hits.Add(1)
				return value, true
			}
		} else {
			c.logger.Warn("remote cache read failed, using local store", "key", key, "error", err)
		}
	}

	value, ok := c.local.get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

// Set writes to the local store unconditionally and best-effort to the
// remote store. ttl <= 0 falls back to DefaultTTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c.local.set(key, value, ttl)

	if c.remote != nil {
		if err := c.remote.Set(ctx, c.prefix+key, value, ttl); err != nil {
			c.logger.Warn("remote cache write failed", "key", key, "error", err)
		}
	}
}

// Delete removes key from both stores and returns how many entries went away.
func (c *Cache) Delete(ctx context.Context, key string) int {
	removed := c.local.delete(key)

	if c.remote != nil {
		n, err := c.remote.Delete(ctx, c.prefix+key)
		if err != nil {
			c.logger.Warn("remote cache delete failed", "key", key, "error", err)
		} else {
			removed += n
		}
	}
	return removed
}

// ClearPrefix removes every entry whose key starts with keyPrefix from both
// stores and returns the removal count.
func (c *Cache) ClearPrefix(ctx context.Context, keyPrefix string) int {
	removed := c.local.deleteByPrefix(keyPrefix)

	if c.remote != nil {
		n, err := c.remote.DeleteByPattern(ctx, c.prefix+keyPrefix+"*")
		if err != nil {
			c.logger.Warn("remote cache clear failed", "prefix", keyPrefix, "error", err)
		} else {
			removed += n
		}
	}
	return removed
}

// ClearAll empties both stores.
func (c *Cache) ClearAll(ctx context.Context) int {
	removed := c.local.clear()

	if c.remote != nil {
		n, err := c.remote.DeleteByPattern(ctx, c.prefix+"*")
		if err != nil {
			c.logger.Warn("remote cache clear failed", "error", err)
		} else {
			removed += n
		}
	}
	return removed
}

// HealthCheck reports remote liveness. Local-only mode is always healthy.
func (c *Cache) HealthCheck(ctx context.Context) bool {
	if c.remote == nil {
		return true
	}
	return c.remote.Ping(ctx) == nil
}

// Stats returns the hit/miss counters.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
