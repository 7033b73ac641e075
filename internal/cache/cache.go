package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricehawk/price-monitor/internal/models"
)

// DiscoveryCache memoizes discovery results in Redis so repeated
// discover calls for the same store do not re-crawl the catalog.
// A nil client disables caching entirely.
type DiscoveryCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewDiscoveryCache(client *redis.Client, ttl time.Duration) *DiscoveryCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &DiscoveryCache{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "discovery_cache"),
	}
}

func discoveryKey(storeURL, keyword string, limit int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", storeURL, keyword, limit)))
	return "discovery:" + hex.EncodeToString(sum[:16])
}

// Get returns a cached discovery result, or nil on miss. Redis being
// down is treated as a miss, never an error for the caller.
func (c *DiscoveryCache) Get(ctx context.Context, storeURL, keyword string, limit int) *models.DiscoveryResult {
	if c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, discoveryKey(storeURL, keyword, limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		c.logger.Warn("cache read failed", "error", err)
		return nil
	}

	var result models.DiscoveryResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", "error", err)
		return nil
	}

	return &result
}

// Set stores a discovery result. Failed discoveries are not cached so a
// transient outage on the store's side does not stick for the TTL.
func (c *DiscoveryCache) Set(ctx context.Context, storeURL, keyword string, limit int, result models.DiscoveryResult) {
	if c.client == nil || result.Error != "" {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn("failed to marshal discovery result", "error", err)
		return
	}

	if err := c.client.Set(ctx, discoveryKey(storeURL, keyword, limit), data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
}
