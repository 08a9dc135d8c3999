package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// tombstone marks a key whose entity was deleted. Get treats it as a miss and
// SetIfAbsent cannot overwrite it until it expires.
const tombstone = "\x00deleted"

// ViewCache is a generic JSON-backed Redis cache for read model projections.
// Bind it to a specific view type T; each instance holds a Redis client and an
// optional TTL (pass 0 for keys that should not expire).
type ViewCache[T any] struct {
	client *goredis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewViewCache creates a ViewCache backed by the provided Redis client.
func NewViewCache[T any](client *goredis.Client, ttl time.Duration, logger *zap.Logger) *ViewCache[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewCache[T]{client: client, ttl: ttl, logger: logger}
}

// Get retrieves and unmarshals a value from Redis.
// Returns (nil, false) on any miss or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("ViewCache read error", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if data == tombstone {
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		c.logger.Warn("ViewCache decode error", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &v, true
}

// Set marshals value and stores it in Redis under key.
// Errors are logged rather than returned; a failed cache write is non-fatal.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("ViewCache marshal error", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("ViewCache write error", zap.String("key", key), zap.Error(err))
	}
}

// SetIfAbsent stores value only when key holds nothing, not even a
// tombstone. Use it for warming the cache from a read that may already be
// stale; writers that just committed use Set.
func (c *ViewCache[T]) SetIfAbsent(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("ViewCache marshal error", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.SetNX(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("ViewCache write error", zap.String("key", key), zap.Error(err))
	}
}

// Tombstone replaces key with a deletion marker for one TTL, so a warm that
// read the row before it was deleted cannot bring it back. Without a TTL the
// key is simply deleted.
func (c *ViewCache[T]) Tombstone(ctx context.Context, key string) {
	if c.ttl <= 0 {
		c.Delete(ctx, key)
		return
	}
	if err := c.client.Set(ctx, key, tombstone, c.ttl).Err(); err != nil {
		c.logger.Warn("ViewCache tombstone error", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a key from Redis.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("ViewCache delete error", zap.String("key", key), zap.Error(err))
	}
}
