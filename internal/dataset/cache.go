package dataset

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/warehouse-sla-monitor/internal/pkg/logger"
)

// ResultCache is an optional redis-backed cache for computed summary and
// trend responses. Results are pure functions of (dataset ID, query
// fingerprint), so entries never go stale while the dataset exists;
// deleting a dataset purges its entries.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache wraps a redis client; ttl bounds entry lifetime.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

// Key builds the cache key for a dataset and a canonicalized query
// string. The query is hashed so arbitrary filter values stay out of
// the key space.
func (c *ResultCache) Key(datasetID, kind, canonicalQuery string) string {
	sum := md5.Sum([]byte(canonicalQuery))
	return fmt.Sprintf("sla:%s:%s:%s", datasetID, kind, hex.EncodeToString(sum[:]))
}

// Get loads a cached response into v; the bool reports a hit. Redis
// errors degrade to a miss so the engine always answers.
func (c *ResultCache) Get(ctx context.Context, key string, v interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false
	}
	if err != nil {
		logger.Warn("result cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		logger.Warn("result cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores a response; failures are logged and otherwise ignored.
func (c *ResultCache) Set(ctx context.Context, key string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("result cache write failed", "key", key, "error", err)
	}
}

// Purge drops every cached entry for a dataset.
func (c *ResultCache) Purge(ctx context.Context, datasetID string) {
	pattern := fmt.Sprintf("sla:%s:*", datasetID)
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("result cache purge scan failed", "dataset_id", datasetID, "error", err)
		return
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			logger.Warn("result cache purge failed", "dataset_id", datasetID, "error", err)
		}
	}
}
