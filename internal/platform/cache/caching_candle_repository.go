// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"stock_crawler/internal/feature/candles/domain/entity"
	"stock_crawler/internal/feature/candles/usecase"
)

// CandleStore is the full candle persistence surface: reads for the query API
// and the insert-only writes used by reconciliation.
type CandleStore interface {
	usecase.CandleRepository
	usecase.CandleStore
}

var (
	_ usecase.CandleRepository = (*CachingCandleRepository)(nil)
	_ usecase.CandleStore      = (*CachingCandleRepository)(nil)
)

// CachingCandleRepository decorates a CandleStore with Redis caching.
// Find is cache-aside; InsertNew invalidates every cached query of the
// affected (symbol, interval). Reconciliation reads bypass the cache.
type CachingCandleRepository struct {
	inner     CandleStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string

	// when set, TTLs are capped at the next scheduled backfill
	nextRefresh func(now time.Time) time.Time
	now         func() time.Time
}

// NewCachingCandleRepository decorates a CandleStore with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "candles".
// A nil rdb disables caching entirely.
func NewCachingCandleRepository(rdb *redis.Client, ttl time.Duration, inner CandleStore, namespace string) *CachingCandleRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "candles"
	}
	return &CachingCandleRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
		now:       time.Now,
	}
}

// WithRefresh caps every entry's TTL at next(now), typically the next scheduled
// backfill, so cached series never outlive the run that extends them.
func (c *CachingCandleRepository) WithRefresh(next func(now time.Time) time.Time) *CachingCandleRepository {
	c.nextRefresh = next
	return c
}

// InsertNew stores candles and invalidates related cache entries when anything was written.
func (c *CachingCandleRepository) InsertNew(ctx context.Context, candles []entity.Candle) (int, error) {
	saved, err := c.inner.InsertNew(ctx, candles)
	if err != nil {
		return saved, err
	}
	if c.rdb == nil || saved == 0 {
		return saved, nil
	}

	seen := map[string]struct{}{}
	for _, cd := range candles {
		prefix := c.cacheKeyPrefix(cd.Symbol, cd.Interval)
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		// Best effort: a stale entry expires with its TTL anyway.
		if err := c.deleteByPattern(ctx, prefix+"*"); err != nil {
			slog.Warn("candle cache invalidation failed", "prefix", prefix, "error", err)
		}
	}
	return saved, nil
}

// ExistingTimes always reads the underlying store.
func (c *CachingCandleRepository) ExistingTimes(ctx context.Context, symbol, interval string, times []time.Time) ([]time.Time, error) {
	return c.inner.ExistingTimes(ctx, symbol, interval, times)
}

// LatestTime always reads the underlying store.
func (c *CachingCandleRepository) LatestTime(ctx context.Context, symbol, interval string) (time.Time, bool, error) {
	return c.inner.LatestTime(ctx, symbol, interval)
}

// FindRange always reads the underlying store; windowed queries are not cached.
func (c *CachingCandleRepository) FindRange(ctx context.Context, symbol, interval string, from, to time.Time, limit int) ([]entity.Candle, error) {
	return c.inner.FindRange(ctx, symbol, interval, from, to, limit)
}

// Find retrieves candles, checking cache first then falling back to the database.
func (c *CachingCandleRepository) Find(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	if c.rdb == nil {
		return c.inner.Find(ctx, symbol, interval, outputsize)
	}

	key := c.cacheKey(symbol, interval, outputsize)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Candle
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.Find(ctx, symbol, interval, outputsize)
	if err != nil {
		return nil, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.entryTTL()).Err()
	}

	return out, nil
}

func (c *CachingCandleRepository) entryTTL() time.Duration {
	if c.nextRefresh == nil {
		return c.ttl
	}
	now := c.now()
	if d := c.nextRefresh(now).Sub(now); d > 0 && d < c.ttl {
		return d
	}
	return c.ttl
}

func (c *CachingCandleRepository) cacheKey(symbol, interval string, outputsize int) string {
	return fmt.Sprintf("%s:%s:%s:%d", c.namespace, safe(symbol), safe(interval), outputsize)
}

// cacheKeyPrefix is the prefix invalidated per (symbol, interval).
func (c *CachingCandleRepository) cacheKeyPrefix(symbol, interval string) string {
	return fmt.Sprintf("%s:%s:%s:", c.namespace, safe(symbol), safe(interval))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingCandleRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
