// internal/core/ports/cache.go
package ports

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by CacheRepository.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository is the key/value store behind the ledger cache.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Counter reads an integer key; an absent key reads as zero.
	Counter(ctx context.Context, key string) (int64, error)
	Incr(ctx context.Context, key string) (int64, error)
}

// LedgerCache fronts detail reads of ledger records. Cache failures are
// logged and never surface to callers; a failed Lookup is a miss.
type LedgerCache interface {
	Lookup(ctx context.Context, key string, dest interface{}) bool
	Store(ctx context.Context, key string, value interface{})
	// Invalidate drops every cached ledger read. Writes cascade across
	// purchases, sales, items and repairs, so invalidation is not per key.
	Invalidate(ctx context.Context)
}
