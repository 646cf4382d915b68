package collector

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin optional response cache in front of the external source
// APIs. A nil Cache, or one with a nil client, is a no-op: collectors always
// fall through to the live fetch.
type Cache struct {
	RDB *redis.Client
	TTL time.Duration
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c == nil || c.RDB == nil || key == "" {
		return nil, false
	}
	raw, err := c.RDB.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (c *Cache) Set(ctx context.Context, key string, val []byte) {
	if c == nil || c.RDB == nil || key == "" || len(val) == 0 {
		return
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	// Cache write failures are not worth failing a cycle over.
	_ = c.RDB.Set(ctx, key, val, ttl).Err()
}
