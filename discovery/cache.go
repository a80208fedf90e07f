// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jcodagnone/cerca/spatial"
)

// DefaultCacheTTL bounds how long a places response is reused.
const DefaultCacheTTL = 10 * time.Minute

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores encoded search results. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CacheKey identifies a search. The origin is kept at full precision so two
// different origins never share an entry.
func CacheKey(origin spatial.Point, category string, radius int) string {
	return fmt.Sprintf("cerca:places:%s:%s:%s", origin.LatLon(), category, strconv.Itoa(radius))
}

type memoryEntry struct {
	key string
	ts  time.Time
}

// MemoryCache keeps a bounded number of entries for at most ttl.
type MemoryCache struct {
	mu       sync.Mutex
	items    map[string]memoryItem
	order    []memoryEntry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

type memoryItem struct {
	value []byte
	ts    time.Time
}

// NewMemoryCache creates a cache with the provided capacity and ttl.
func NewMemoryCache(capacity int, ttl time.Duration) *MemoryCache {
	if capacity <= 0 {
		capacity = 1
	}

	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &MemoryCache{
		items:    make(map[string]memoryItem, capacity),
		order:    make([]memoryEntry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || now.Sub(item.ts) > c.ttl {
		return nil, ErrCacheMiss
	}

	return append([]byte(nil), item.value...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = memoryItem{value: append([]byte(nil), value...), ts: now}
	c.order = append(c.order, memoryEntry{key: key, ts: now})
	c.compact(now)

	return nil
}

// Len returns the number of stored entries, expired ones included until the
// next write compacts them.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

func (c *MemoryCache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if item, ok := c.items[oldest.key]; ok && item.ts.Equal(oldest.ts) {
			delete(c.items, oldest.key)
		}
	}
}

// RedisCache stores entries in Redis with a fixed expiration.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}

	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	return value, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}
