package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/flocknet/flock/pkg/config"
	"github.com/flocknet/flock/pkg/logging"
)

// keyNamespace prefixes every key so a shared Redis can host other tenants.
const keyNamespace = "flock:"

// Cache wraps Redis client. All operations are bounded by opTimeout so a
// slow or partitioned Redis degrades requests instead of stalling them. A
// nil *Cache is valid and reports ErrCacheDisabled from every operation.
type Cache struct {
	client    *redis.Client
	opTimeout time.Duration
}

// New creates a new Redis cache client
func New(cfg *config.RedisConfig, tuning *config.CacheConfig) (*Cache, error) {
	if !cfg.Enabled {
		logging.GetLogger().Info("Redis cache disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetLogger().Info("Redis connection established")

	return &Cache{
		client:    client,
		opTimeout: tuning.OpTimeout,
	}, nil
}

func (c *Cache) namespaceKey(key string) string {
	return keyNamespace + key
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

// Get retrieves a value from cache
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrCacheDisabled
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.Get(ctx, c.namespaceKey(key)).Result()
}

// Set sets a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.Set(ctx, c.namespaceKey(key), value, ttl).Err()
}

// GetJSON retrieves a JSON value from cache and unmarshals it into dest.
// The bool reports whether the key was present; a miss is not an error.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil || c.client == nil {
		return false, ErrCacheDisabled
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	raw, err := c.client.Get(ctx, c.namespaceKey(key)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// Corrupt entry, treat as a miss and surface the parse error
		return false, fmt.Errorf("failed to decode cached value for %s: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals value as JSON and stores it with TTL
func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.Set(ctx, c.namespaceKey(key), data, ttl).Err()
}

// Incr atomically increments a counter key and returns the new value.
// Missing keys start at zero, so the first increment yields 1.
func (c *Cache) Incr(ctx context.Context, key string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, ErrCacheDisabled
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.client.Incr(ctx, c.namespaceKey(key)).Result()
}

// GetInt64 retrieves an integer counter. The bool reports presence; a
// missing counter reads as 0, false with no error.
func (c *Cache) GetInt64(ctx context.Context, key string) (int64, bool, error) {
	if c == nil || c.client == nil {
		return 0, false, ErrCacheDisabled
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	n, err := c.client.Get(ctx, c.namespaceKey(key)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Delete removes keys from cache. Large key sets are split into pipelined
// DEL batches so a post with many followers does not block Redis.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	namespaced := make([]string, len(keys))
	for i, key := range keys {
		namespaced[i] = c.namespaceKey(key)
	}

	const batch = 512
	pipe := c.client.Pipeline()
	for start := 0; start < len(namespaced); start += batch {
		end := start + batch
		if end > len(namespaced) {
			end = len(namespaced)
		}
		pipe.Del(ctx, namespaced[start:end]...)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// IncrAll atomically increments each counter key in a single pipeline.
// Used by feed invalidation to bump many follower versions at once.
func (c *Cache) IncrAll(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	pipe := c.client.Pipeline()
	for _, key := range keys {
		pipe.Incr(ctx, c.namespaceKey(key))
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Exists checks if a key exists
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if c == nil || c.client == nil {
		return false, ErrCacheDisabled
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	count, err := c.client.Exists(ctx, c.namespaceKey(key)).Result()
	return count > 0, err
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Health checks Redis health
func (c *Cache) Health(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrCacheDisabled
	}
	return c.client.Ping(ctx).Err()
}

// HashKey builds a deterministic 32-character key segment from parts.
// Used where raw parts would make keys unbounded or unprintable.
func HashKey(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(sum[:])
}

var (
	// ErrCacheDisabled is returned when cache operations are attempted but cache is disabled
	ErrCacheDisabled = fmt.Errorf("cache is disabled")
)
