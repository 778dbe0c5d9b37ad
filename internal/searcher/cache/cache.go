// Package cache memoizes search results in Redis. Keys carry the engine
// generation, so any index mutation makes earlier entries unreachable;
// they then expire by TTL or are dropped by Invalidate.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/codesearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/codesearch/pkg/resilience"
)

const keyPrefix = "codesearch:search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Breaker string  `json:"breaker"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{}),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get returns the cached results for query at generation. Store errors
// count as misses; while Redis keeps failing the circuit breaker skips it.
func (c *QueryCache) Get(ctx context.Context, query string, limit int, generation uint64) ([]indexer.SearchResult, bool) {
	key := buildKey(query, limit, generation)
	var data string
	var found bool
	err := c.breaker.Execute(func() error {
		var err error
		data, found, err = c.store.Lookup(ctx, key)
		return err
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache get failed", "key", key, "error", err)
	}
	if err != nil || !found {
		c.miss()
		return nil, false
	}

	var results []indexer.SearchResult
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheResult(true)
	c.logger.Debug("cache hit", "query", query, "key", key)
	return results, true
}

func (c *QueryCache) Set(ctx context.Context, query string, limit int, generation uint64, results []indexer.SearchResult) {
	key := buildKey(query, limit, generation)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute serves query from the cache or runs compute once for all
// concurrent callers asking the same thing. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	generation uint64,
	compute func() ([]indexer.SearchResult, error),
) ([]indexer.SearchResult, bool, error) {
	if results, ok := c.Get(ctx, query, limit, generation); ok {
		return results, true, nil
	}
	key := buildKey(query, limit, generation)
	val, err, _ := c.group.Do(key, func() (any, error) {
		results, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, limit, generation, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]indexer.SearchResult), false, nil
}

func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() Stats {
	s := Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Breaker: c.breaker.State().String()}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheResult(false)
}

// buildKey hashes the query's sorted terms. Term order does not affect
// ranking but repeats do, so duplicates are kept.
func buildKey(query string, limit int, generation uint64) string {
	terms := tokenizer.Tokenize(query)
	sort.Strings(terms)
	raw := fmt.Sprintf("%s|limit=%d", strings.Join(terms, " "), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%sg%d:%x", keyPrefix, generation, hash[:16])
}
