package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/activitylens/pkg/activity"
	"github.com/platinummonkey/activitylens/pkg/config"
	"github.com/platinummonkey/activitylens/pkg/observability"
	"github.com/platinummonkey/activitylens/pkg/resolver"
)

// DefaultKeyPrefix namespaces cache keys.
const DefaultKeyPrefix = "activitylens:entity"

const cacheType = "entity"

// NewClient connects to the configured Redis URL and verifies the connection.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// Cache stores fetched entities in Redis.
type Cache struct {
	client  redis.Cmdable
	ttl     time.Duration
	prefix  string
	logger  *observability.Logger
	metrics *observability.Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for Redis errors.
func WithLogger(logger *observability.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records a hit or miss per identifier.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// NewCache creates a cache. A non-positive ttl stores entries without expiry.
func NewCache(client redis.Cmdable, ttl time.Duration, opts ...Option) *Cache {
	if ttl < 0 {
		ttl = 0
	}
	c := &Cache{
		client: client,
		ttl:    ttl,
		prefix: DefaultKeyPrefix,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) key(entityType, id string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, entityType, id)
}

// cachedEntity is the stored JSON form of an entity.
type cachedEntity struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Wrap returns a FetchFunc that consults the cache before calling fetch. Its signature
// matches sqlstore.FetchWrapper.
func (c *Cache) Wrap(entityType string, fetch resolver.FetchFunc) resolver.FetchFunc {
	return func(ctx context.Context, ids []string) (map[string]activity.Entity, error) {
		if len(ids) == 0 {
			return map[string]activity.Entity{}, nil
		}

		result, misses := c.lookup(ctx, entityType, ids)
		if len(misses) == 0 {
			return result, nil
		}

		fetched, err := fetch(ctx, misses)
		if err != nil {
			return nil, err
		}
		for id, e := range fetched {
			result[id] = e
		}
		c.store(ctx, entityType, fetched)
		return result, nil
	}
}

// lookup returns the cached entities and the identifiers that missed.
func (c *Cache) lookup(ctx context.Context, entityType string, ids []string) (map[string]activity.Entity, []string) {
	result := make(map[string]activity.Entity, len(ids))

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(entityType, id)
	}

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.WithError(err).WithField("entity_type", entityType).Warn("entity cache read failed")
		for range ids {
			c.metrics.RecordCache(cacheType, false)
		}
		return result, ids
	}

	var misses, corrupt []string
	for i, id := range ids {
		raw, ok := values[i].(string)
		if !ok {
			misses = append(misses, id)
			c.metrics.RecordCache(cacheType, false)
			continue
		}

		var cached cachedEntity
		if err := json.Unmarshal([]byte(raw), &cached); err != nil || cached.ID == "" {
			corrupt = append(corrupt, keys[i])
			misses = append(misses, id)
			c.metrics.RecordCache(cacheType, false)
			continue
		}

		result[id] = activity.NewMapEntity(cached.ID, cached.Fields)
		c.metrics.RecordCache(cacheType, true)
	}

	if len(corrupt) > 0 {
		if err := c.client.Del(ctx, corrupt...).Err(); err != nil {
			c.logger.WithError(err).Warn("failed to delete corrupt entity cache entries")
		}
	}

	return result, misses
}

func (c *Cache) store(ctx context.Context, entityType string, entities map[string]activity.Entity) {
	if len(entities) == 0 {
		return
	}

	pipe := c.client.Pipeline()
	queued := 0
	for id, e := range entities {
		m, ok := e.(*activity.MapEntity)
		if !ok {
			continue
		}
		data, err := json.Marshal(cachedEntity{ID: m.ID, Fields: m.Fields})
		if err != nil {
			c.logger.WithError(err).WithField("entity_id", id).Debug("entity is not cacheable")
			continue
		}
		pipe.Set(ctx, c.key(entityType, id), data, c.ttl)
		queued++
	}
	if queued == 0 {
		return
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WithError(err).WithField("entity_type", entityType).Warn("entity cache write failed")
	}
}

// Invalidate removes the cached entries of the given identifiers.
func (c *Cache) Invalidate(ctx context.Context, entityType string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(entityType, id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate %s entities: %w", entityType, err)
	}
	return nil
}
