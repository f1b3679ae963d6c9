// Package redisstore provides a Redis read-through cache for entity fetchers.
//
// # Overview
//
// Cache.Wrap decorates a resolver.FetchFunc. Each batch is served with a single MGET; the
// identifiers that miss are passed to the wrapped fetch and the entities it returns are stored
// with a TTL through one pipeline. The cache is best effort: Redis errors and corrupt entries
// fall through to the wrapped fetch and never fail a resolution.
//
// Only *activity.MapEntity values are cached. Cached field values go through JSON, so numbers
// come back as float64.
//
// # Usage Example
//
//	client, err := redisstore.NewClient(ctx, cfg.Redis)
//	if err != nil {
//		return err
//	}
//	cache := redisstore.NewCache(client, cfg.Redis.TTL, redisstore.WithMetrics(metrics))
//	err = entities.Register(registry, cache.Wrap)
//
// # Related Packages
//
//   - pkg/storage/sqlstore: the fetchers usually wrapped by this cache
//   - pkg/resolver: FetchFunc
package redisstore
