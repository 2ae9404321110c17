package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T) (*ResultCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewResultCache(client, time.Minute), mr
}

type cachedPayload struct {
	Values []float64 `json:"values"`
}

func TestResultCacheRoundTrip(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	key := cache.Key("ds1", "summary", "metric=ship_24h&group_by=warehouse")

	var out cachedPayload
	assert.False(t, cache.Get(ctx, key, &out), "cold cache misses")

	cache.Set(ctx, key, cachedPayload{Values: []float64{0.5, 0.75}})
	require.True(t, cache.Get(ctx, key, &out))
	assert.Equal(t, []float64{0.5, 0.75}, out.Values)
}

func TestResultCacheKeySeparatesQueries(t *testing.T) {
	cache, _ := testCache(t)

	k1 := cache.Key("ds1", "trend", "metric=ship_24h&granularity=day")
	k2 := cache.Key("ds1", "trend", "metric=ship_24h&granularity=week")
	k3 := cache.Key("ds2", "trend", "metric=ship_24h&granularity=day")

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestResultCachePurge(t *testing.T) {
	cache, _ := testCache(t)
	ctx := context.Background()

	k1 := cache.Key("ds1", "summary", "a")
	k2 := cache.Key("ds1", "trend", "b")
	k3 := cache.Key("ds2", "summary", "a")
	cache.Set(ctx, k1, cachedPayload{Values: []float64{1}})
	cache.Set(ctx, k2, cachedPayload{Values: []float64{2}})
	cache.Set(ctx, k3, cachedPayload{Values: []float64{3}})

	cache.Purge(ctx, "ds1")

	var out cachedPayload
	assert.False(t, cache.Get(ctx, k1, &out))
	assert.False(t, cache.Get(ctx, k2, &out))
	assert.True(t, cache.Get(ctx, k3, &out), "other datasets keep their entries")
}

func TestResultCacheDegradesWhenRedisDown(t *testing.T) {
	cache, mr := testCache(t)
	ctx := context.Background()

	key := cache.Key("ds1", "summary", "a")
	cache.Set(ctx, key, cachedPayload{Values: []float64{1}})
	mr.Close()

	var out cachedPayload
	assert.False(t, cache.Get(ctx, key, &out), "redis failure is a miss, not an error")
}
