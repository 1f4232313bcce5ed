// Package cache caches revocation membership lookups in Redis so status
// polling by external verifiers does not hit PostgreSQL on every request.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	platformredis "certo/internal/platform/redis"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds cache staleness after a revocation.
const DefaultTTL = 5 * time.Minute

// RevocationCache answers "is this entry revoked on this issuer's list"
// from Redis. All methods degrade to a miss on Redis errors; callers fall
// through to the store.
type RevocationCache struct {
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(client *platformredis.Client, ttl time.Duration, logger *slog.Logger) *RevocationCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RevocationCache{client: client, ttl: ttl, logger: logger}
}

func key(issuerID int64, entry string) string {
	return fmt.Sprintf("rvl:%d:%s", issuerID, entry)
}

// Get returns (revoked, found). found is false on a miss or any Redis
// error.
func (c *RevocationCache) Get(ctx context.Context, issuerID int64, entry string) (bool, bool) {
	if c == nil || c.client == nil {
		return false, false
	}
	value, err := c.client.Get(ctx, key(issuerID, entry)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("revocation cache read failed", "error", err.Error())
		}
		return false, false
	}
	return value == "1", true
}

// Set records the membership result.
func (c *RevocationCache) Set(ctx context.Context, issuerID int64, entry string, revoked bool) {
	if c == nil || c.client == nil {
		return
	}
	value := "0"
	if revoked {
		value = "1"
	}
	if err := c.client.SetEx(ctx, key(issuerID, entry), value, c.ttl).Err(); err != nil {
		c.logger.Warn("revocation cache write failed", "error", err.Error())
	}
}

// Invalidate drops a cached entry, called when a revocation lands.
func (c *RevocationCache) Invalidate(ctx context.Context, issuerID int64, entry string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key(issuerID, entry)).Err(); err != nil {
		c.logger.Warn("revocation cache invalidation failed", "error", err.Error())
	}
}
