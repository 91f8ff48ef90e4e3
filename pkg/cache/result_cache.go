package cache

import (
	"context"
	"encoding/json"
	"time"

	"ai-hovertip-be/internal/pkg/logger"
	"ai-hovertip-be/pkg/kv"
)

// TTLs per namespace. Computed summaries live longer than captured
// previews, whose underlying pixels go stale faster.
const (
	SummaryTTL = 10 * time.Minute
	PreviewTTL = 5 * time.Minute
)

// Entry is the stored shape: the value plus its write time. Freshness
// is judged on read, never by a background sweep.
type Entry struct {
	Value    string    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// Cache is one keyed, time-boxed namespace over the shared Store.
// Expired entries are evicted lazily: a read of a stale entry reports
// absent and deletes it as a side effect. Count is unbounded; the cache
// is page-lifetime scoped and cleared with the backing storage.
type Cache struct {
	store kv.Store
	ttl   time.Duration
	log   logger.ILogger
	now   func() time.Time
}

func New(store kv.Store, ttl time.Duration, log logger.ILogger) *Cache {
	return &Cache{
		store: store,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

// Get returns the fresh value for key, or absent. Storage failures log
// and read as a miss so a fresh fetch can proceed.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("CACHE", "Storage read failed, treating as miss", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return "", false
	}
	if !found {
		return "", false
	}

	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// Corrupt entry: drop it and miss.
		_ = c.store.Delete(ctx, key)
		return "", false
	}

	if c.now().Sub(entry.StoredAt) > c.ttl {
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Warn("CACHE", "Failed to evict expired entry", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return "", false
	}

	return entry.Value, true
}

// Set stores value under key stamped with the current time.
func (c *Cache) Set(ctx context.Context, key, value string) {
	raw, err := json.Marshal(Entry{Value: value, StoredAt: c.now()})
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, string(raw)); err != nil {
		c.log.Warn("CACHE", "Storage write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// WithClock overrides the time source. Tests use it to age entries
// without sleeping.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}
