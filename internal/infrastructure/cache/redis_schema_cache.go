package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"archie-core-forms-layer/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultKeyPrefix     = "forms:schema"
	defaultScanBatchSize = 100
)

// RedisSchemaCache implements SchemaCache using Redis
type RedisSchemaCache struct {
	client    *redis.Client
	keyPrefix string
	logger    zerolog.Logger
}

// NewRedisSchemaCache connects to the Redis URL and verifies the connection
func NewRedisSchemaCache(ctx context.Context, redisURL string, logger zerolog.Logger) (*RedisSchemaCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSchemaCacheWithClient(client, logger), nil
}

// NewRedisSchemaCacheWithClient creates a cache with an existing Redis client.
// The caller keeps ownership of the client.
func NewRedisSchemaCacheWithClient(client *redis.Client, logger zerolog.Logger) *RedisSchemaCache {
	return &RedisSchemaCache{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		logger:    logger,
	}
}

func (c *RedisSchemaCache) key(integrationID, objectType string) string {
	return fmt.Sprintf("%s:%s:%s", c.keyPrefix, integrationID, objectType)
}

// Get retrieves a cached property list
func (c *RedisSchemaCache) Get(ctx context.Context, integrationID, objectType string) ([]domain.RemoteProperty, bool, error) {
	cacheKey := c.key(integrationID, objectType)

	data, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get schema from cache: %w", err)
	}

	var props []domain.RemoteProperty
	if err := json.Unmarshal(data, &props); err != nil {
		c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Dropping corrupted schema cache entry")
		_ = c.client.Del(ctx, cacheKey)
		return nil, false, nil
	}
	return props, true, nil
}

// Set stores a property list with a TTL
func (c *RedisSchemaCache) Set(ctx context.Context, integrationID, objectType string, props []domain.RemoteProperty, ttl time.Duration) error {
	data, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	if err := c.client.Set(ctx, c.key(integrationID, objectType), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set schema in cache: %w", err)
	}
	return nil
}

// Invalidate deletes every cached object type of an integration
func (c *RedisSchemaCache) Invalidate(ctx context.Context, integrationID string) error {
	pattern := fmt.Sprintf("%s:%s:*", c.keyPrefix, integrationID)

	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, defaultScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan schema keys: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete schema keys: %w", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	c.logger.Debug().Str("integration", integrationID).Int("keys", deleted).Msg("Schema cache invalidated")
	return nil
}

// Close closes the underlying client
func (c *RedisSchemaCache) Close() error {
	return c.client.Close()
}
