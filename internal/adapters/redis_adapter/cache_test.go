package redis_a_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/ammerola/phoneshop-be/internal/adapters/redis_adapter"
	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/test/helpers"
)

func newTestCache(t *testing.T) (*redis_a.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redis_a.NewCache(client, 5*time.Minute, helpers.TestLogger()), mr
}

func TestCache_SetAndGet(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	t.Run("stores_and_retrieves_string", func(t *testing.T) {
		require.NoError(t, cache.SetWithTTL(ctx, "test:string", "test value", time.Minute))

		var got string
		require.NoError(t, cache.Get(ctx, "test:string", &got))
		assert.Equal(t, "test value", got)
	})

	t.Run("keeps_money_scale_through_json", func(t *testing.T) {
		b, err := domain.ComputeBalance("test", helpers.Dec("150"), domain.PaymentPayLater, helpers.DecPtr("40.5"))
		require.NoError(t, err)
		p := domain.Purchase{ID: uuid.New(), Balance: b, IsActive: true}
		require.NoError(t, cache.SetWithTTL(ctx, "test:purchase", p, time.Minute))

		var got domain.Purchase
		require.NoError(t, cache.Get(ctx, "test:purchase", &got))
		assert.Equal(t, p.ID, got.ID)
		assert.True(t, helpers.Dec("109.50").Equal(got.Remaining))
		assert.Equal(t, domain.PaymentPayLater, got.PaymentType)
	})

	t.Run("zero_ttl_uses_default", func(t *testing.T) {
		require.NoError(t, cache.SetWithTTL(ctx, "test:default", "value", 0))
		assert.Equal(t, 5*time.Minute, mr.TTL("test:default"))
	})
}

func TestCache_SetWithTTL_Expires(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	require.NoError(t, cache.SetWithTTL(ctx, "ttl:test", "value", 100*time.Millisecond))

	var result string
	require.NoError(t, cache.Get(ctx, "ttl:test", &result))
	assert.Equal(t, "value", result)

	mr.FastForward(200 * time.Millisecond)

	err := cache.Get(ctx, "ttl:test", &result)
	assert.ErrorIs(t, err, ports.ErrCacheMiss)
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	for _, key := range []string{"del:1", "del:2", "keep:1"} {
		require.NoError(t, cache.SetWithTTL(ctx, key, "value", time.Minute))
	}

	require.NoError(t, cache.Delete(ctx, "del:1", "del:2"))
	require.NoError(t, cache.Delete(ctx))

	assert.False(t, mr.Exists("del:1"))
	assert.False(t, mr.Exists("del:2"))
	assert.True(t, mr.Exists("keep:1"))
}

func TestCache_Counter(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	n, err := cache.Counter(ctx, "counter:test")
	require.NoError(t, err)
	assert.Zero(t, n, "missing counter reads as zero")

	for want := int64(1); want <= 3; want++ {
		got, err := cache.Incr(ctx, "counter:test")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	n, err = cache.Counter(ctx, "counter:test")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Zero(t, mr.TTL("counter:test"))

	require.NoError(t, cache.SetWithTTL(ctx, "counter:bad", "not a number", time.Minute))
	_, err = cache.Counter(ctx, "counter:bad")
	assert.Error(t, err)
}

func TestCacheManager_LookupStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	manager := redis_a.NewCacheManager(cache, time.Minute, helpers.TestLogger())

	purchaseKey := redis_a.BuildKey(redis_a.PrefixPurchase, uuid.NewString())
	itemKey := redis_a.BuildKey(redis_a.PrefixItem, "imei", "359000000000001")
	require.NoError(t, mr.Set("session:abc", "unrelated"))

	var miss string
	assert.False(t, manager.Lookup(ctx, purchaseKey, &miss))

	manager.Store(ctx, purchaseKey, "purchase")
	manager.Store(ctx, itemKey, "item")

	var hit string
	require.True(t, manager.Lookup(ctx, purchaseKey, &hit))
	assert.Equal(t, "purchase", hit)

	manager.Invalidate(ctx)

	assert.False(t, manager.Lookup(ctx, purchaseKey, &hit))
	assert.False(t, manager.Lookup(ctx, itemKey, &hit))
	assert.True(t, mr.Exists("session:abc"), "keys outside the ledger namespace survive invalidation")
	assert.Equal(t, "1", mustGet(t, mr, "ledger:generation"))

	manager.Store(ctx, purchaseKey, "purchase v2")
	assert.True(t, mr.Exists(purchaseKey+":g1"))

	stats := manager.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(3), stats.Misses)
	assert.Equal(t, int64(3), stats.Sets)
	assert.Equal(t, int64(1), stats.Invalidations)
	assert.InDelta(t, 0.25, stats.HitRate, 0.001)
}

func TestCacheManager_ZeroTTLDisablesReads(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	manager := redis_a.NewCacheManager(cache, 0, helpers.TestLogger())

	key := redis_a.BuildKey(redis_a.PrefixSale, "1")
	manager.Store(ctx, key, "sale")

	var got string
	assert.False(t, manager.Lookup(ctx, key, &got))
	assert.Empty(t, mr.Keys())

	manager.Invalidate(ctx)
	assert.Equal(t, int64(1), manager.GetStats().Invalidations)
}

func TestCacheManager_RedisDownIsAMiss(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	manager := redis_a.NewCacheManager(cache, time.Minute, helpers.TestLogger())
	mr.Close()

	var got string
	assert.False(t, manager.Lookup(ctx, redis_a.BuildKey(redis_a.PrefixRepair, "1"), &got))
	manager.Store(ctx, redis_a.BuildKey(redis_a.PrefixRepair, "1"), "repair")
	manager.Invalidate(ctx)

	assert.Zero(t, manager.GetStats().Sets)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestCache_BuildKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   redis_a.CacheKeyPrefix
		parts    []string
		expected string
	}{
		{
			name:     "purchase_key",
			prefix:   redis_a.PrefixPurchase,
			parts:    []string{"123"},
			expected: "ledger:purchase:123",
		},
		{
			name:     "item_by_imei_key",
			prefix:   redis_a.PrefixItem,
			parts:    []string{"imei", "359"},
			expected: "ledger:item:imei:359",
		},
		{
			name:     "no_parts",
			prefix:   redis_a.PrefixSale,
			parts:    []string{},
			expected: "ledger:sale",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, redis_a.BuildKey(tt.prefix, tt.parts...))
		})
	}
}
