// Package cache provides a two-tier response cache: L1 in memory and an
// optional L2 in Redis that survives restarts and is shared between
// instances.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config controls cache size and lifetime. A zero TTL disables the cache.
type Config struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
	// RedisURL enables L2 when set, e.g. redis://localhost:6379/0.
	RedisURL string
}

// Cache is safe for concurrent use.
type Cache struct {
	l1         sync.Map      // key -> *entry
	rdb        *redis.Client // nil if Redis unavailable
	ttl        time.Duration
	maxEntries int

	hits   atomic.Int64
	misses atomic.Int64
	now    func() time.Time
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// New builds the cache and starts the L1 cleanup loop, which runs until
// ctx is done. An unreachable Redis leaves L2 disabled.
func New(ctx context.Context, cfg Config) *Cache {
	c := &Cache{ttl: cfg.TTL, maxEntries: cfg.MaxEntries, now: time.Now}

	if cfg.RedisURL != "" && cfg.TTL > 0 {
		c.rdb = connectRedis(ctx, cfg.RedisURL)
	}

	log.Info().
		Dur("ttl", cfg.TTL).
		Bool("redis", c.rdb != nil).
		Int("max_entries", cfg.MaxEntries).
		Msg("cache: initialized")

	if cfg.TTL > 0 {
		go c.cleanupLoop(ctx, cfg.CleanupInterval)
	}
	return c
}

func connectRedis(ctx context.Context, url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Warn().Err(err).Msg("cache: invalid redis URL, L2 disabled")
		return nil
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", opts.Addr).Msg("cache: redis unreachable, L2 disabled")
		rdb.Close()
		return nil
	}
	log.Info().Str("addr", opts.Addr).Msg("cache: L2 redis connected")
	return rdb
}

// Key builds a deterministic cache key from parts.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("ytp:%x", hash[:12])
}

// Enabled reports whether values are cached at all.
func (c *Cache) Enabled() bool {
	return c != nil && c.ttl > 0
}

// Get tries L1, then L2. An L2 hit repopulates L1.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	if val, ok := c.l1.Load(key); ok {
		e := val.(*entry)
		if c.now().Before(e.expiresAt) {
			c.hits.Add(1)
			return e.data, true
		}
		c.l1.Delete(key)
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			log.Debug().Str("key", key).Msg("cache: L2 hit")
			c.hits.Add(1)
			c.store(key, data)
			return data, true
		}
		if err != redis.Nil {
			log.Debug().Err(err).Msg("cache: L2 get failed")
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores data in both tiers.
func (c *Cache) Set(ctx context.Context, key string, data []byte) {
	if !c.Enabled() {
		return
	}
	c.evictIfNeeded()
	c.store(key, data)

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Debug().Err(err).Msg("cache: L2 set failed")
		}
	}
}

func (c *Cache) store(key string, data []byte) {
	c.l1.Store(key, &entry{data: data, expiresAt: c.now().Add(c.ttl)})
}

// SetJSON encodes and stores v.
func SetJSON[T any](ctx context.Context, c *Cache, key string, v T) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, data)
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of L1 entries, expired ones included.
func (c *Cache) Len() int {
	n := 0
	c.l1.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// evictIfNeeded makes room for one entry: expired entries go first, then
// the ones closest to expiry.
func (c *Cache) evictIfNeeded() {
	if c.maxEntries <= 0 {
		return
	}
	count := c.Len()
	if count < c.maxEntries {
		return
	}

	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if e := val.(*entry); now.After(e.expiresAt) {
			c.l1.Delete(key)
			count--
		}
		return true
	})

	for count >= c.maxEntries {
		var oldestKey any
		var oldestAt time.Time
		c.l1.Range(func(key, val any) bool {
			e := val.(*entry)
			if oldestKey == nil || e.expiresAt.Before(oldestAt) {
				oldestKey, oldestAt = key, e.expiresAt
			}
			return true
		})
		if oldestKey == nil {
			return
		}
		c.l1.Delete(oldestKey)
		count--
	}
}

// cleanupLoop periodically removes expired L1 entries.
func (c *Cache) cleanupLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	now := c.now()
	c.l1.Range(func(key, val any) bool {
		if e := val.(*entry); now.After(e.expiresAt) {
			c.l1.Delete(key)
		}
		return true
	})
}
