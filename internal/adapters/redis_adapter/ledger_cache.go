// internal/adapters/redis_adapter/ledger_cache.go
package redis_a

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// CacheKeyPrefix defines prefixes for different cache types
type CacheKeyPrefix string

const (
	PrefixPurchase CacheKeyPrefix = "ledger:purchase"
	PrefixSale     CacheKeyPrefix = "ledger:sale"
	PrefixItem     CacheKeyPrefix = "ledger:item"
	PrefixRepair   CacheKeyPrefix = "ledger:repair"

	// generationKey versions every ledger entry; bumping it orphans the
	// previous generation, which then ages out by TTL.
	generationKey = "ledger:generation"
)

// BuildKey creates a cache key with prefix
func BuildKey(prefix CacheKeyPrefix, parts ...string) string {
	key := string(prefix)
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

// CacheStats holds cache statistics
type CacheStats struct {
	Hits          int64     `json:"hits"`
	Misses        int64     `json:"misses"`
	Sets          int64     `json:"sets"`
	Invalidations int64     `json:"invalidations"`
	HitRate       float64   `json:"hit_rate"`
	LastReset     time.Time `json:"last_reset"`
}

// CacheManager implements ports.LedgerCache over a CacheRepository. Entries
// are stored under the logical key suffixed with the current generation.
type CacheManager struct {
	cache  ports.CacheRepository
	ttl    time.Duration
	logger *slog.Logger

	hits          atomic.Int64
	misses        atomic.Int64
	sets          atomic.Int64
	invalidations atomic.Int64
	lastReset     atomic.Pointer[time.Time]
}

var _ ports.LedgerCache = (*CacheManager)(nil)

// NewCacheManager creates a new cache manager. A zero ttl disables caching
// of reads while still honoring invalidation.
func NewCacheManager(cache ports.CacheRepository, ttl time.Duration, logger *slog.Logger) *CacheManager {
	m := &CacheManager{
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "ledger_cache")),
	}
	m.ResetStats()
	return m
}

func (m *CacheManager) Lookup(ctx context.Context, key string, dest interface{}) bool {
	if m.ttl <= 0 {
		return false
	}
	physical, err := m.versioned(ctx, key)
	if err == nil {
		err = m.cache.Get(ctx, physical, dest)
	}
	if err == nil {
		m.hits.Add(1)
		return true
	}
	m.misses.Add(1)
	if !errors.Is(err, ports.ErrCacheMiss) {
		m.logger.WarnContext(ctx, "cache lookup failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return false
}

func (m *CacheManager) Store(ctx context.Context, key string, value interface{}) {
	if m.ttl <= 0 {
		return
	}
	physical, err := m.versioned(ctx, key)
	if err == nil {
		err = m.cache.SetWithTTL(ctx, physical, value, m.ttl)
	}
	if err != nil {
		m.logger.WarnContext(ctx, "cache store failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}
	m.sets.Add(1)
}

// Invalidate moves the ledger to a new generation in one round trip.
func (m *CacheManager) Invalidate(ctx context.Context) {
	gen, err := m.cache.Incr(ctx, generationKey)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to invalidate ledger cache",
			slog.String("error", err.Error()))
		return
	}
	m.invalidations.Add(1)
	m.logger.DebugContext(ctx, "ledger cache invalidated", slog.Int64("generation", gen))
}

func (m *CacheManager) versioned(ctx context.Context, key string) (string, error) {
	gen, err := m.cache.Counter(ctx, generationKey)
	if err != nil {
		return "", err
	}
	return key + ":g" + strconv.FormatInt(gen, 10), nil
}

// GetStats returns cache statistics
func (m *CacheManager) GetStats() CacheStats {
	stats := CacheStats{
		Hits:          m.hits.Load(),
		Misses:        m.misses.Load(),
		Sets:          m.sets.Load(),
		Invalidations: m.invalidations.Load(),
		LastReset:     *m.lastReset.Load(),
	}
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// ResetStats resets cache statistics
func (m *CacheManager) ResetStats() {
	m.hits.Store(0)
	m.misses.Store(0)
	m.sets.Store(0)
	m.invalidations.Store(0)
	now := time.Now()
	m.lastReset.Store(&now)
}
