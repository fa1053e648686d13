package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache configuration defaults.
const (
	DefaultCacheMaxEntries     = 10_000
	DefaultCacheMaxMemoryBytes = 500 * 1024 * 1024
	DefaultCacheTTL            = 24 * time.Hour
)

// CacheOptions configures the embedding cache.
type CacheOptions struct {
	MaxEntries     int
	MaxMemoryBytes int64
	TTL            time.Duration
	UpdateAgeOnGet bool
}

// DefaultCacheOptions returns the spec's default cache configuration.
func DefaultCacheOptions() CacheOptions {
	return CacheOptions{
		MaxEntries:     DefaultCacheMaxEntries,
		MaxMemoryBytes: DefaultCacheMaxMemoryBytes,
		TTL:            DefaultCacheTTL,
		UpdateAgeOnGet: true,
	}
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits            int64
	Misses          int64
	Size            int
	CalculatedBytes int64
}

// HitRate returns Hits / (Hits + Misses), or 0 when there have been no
// lookups yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a process-wide LRU+TTL embedding cache keyed by the SHA-256
// of the exact input text. It wraps hashicorp/golang-lru/v2's
// expirable LRU for entry-count and TTL eviction, adding a manual
// total-bytes accounting pass (len(vector)*8) so a cache of very large
// vectors cannot exceed MaxMemoryBytes regardless of entry count.
type Cache struct {
	opts  CacheOptions
	lru   *lru.LRU[string, []float32]
	mu    sync.Mutex
	bytes int64

	hits   int64
	misses int64

	keyLocksMu sync.Mutex
	keyLocks   map[string]*sync.Mutex
}

// NewCache builds a Cache with the given options, filling in defaults
// for any zero fields.
func NewCache(opts CacheOptions) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultCacheMaxEntries
	}
	if opts.MaxMemoryBytes <= 0 {
		opts.MaxMemoryBytes = DefaultCacheMaxMemoryBytes
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheTTL
	}

	c := &Cache{
		opts:     opts,
		keyLocks: make(map[string]*sync.Mutex),
	}

	var onEvict func(key string, vec []float32)
	onEvict = func(_ string, vec []float32) {
		c.mu.Lock()
		c.bytes -= entryBytes(vec)
		c.mu.Unlock()
	}

	c.lru = lru.NewLRU[string, []float32](opts.MaxEntries, onEvict, opts.TTL)
	return c
}

func entryBytes(vec []float32) int64 {
	return int64(len(vec) * 8)
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for text, if present and unexpired.
func (c *Cache) Get(text string) ([]float32, bool) {
	key := cacheKey(text)
	var vec []float32
	var ok bool
	if c.opts.UpdateAgeOnGet {
		vec, ok = c.lru.Get(key)
	} else {
		vec, ok = c.lru.Peek(key)
	}

	c.mu.Lock()
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()

	return vec, ok
}

// Put inserts vec under text's key, evicting the oldest entries if the
// memory budget is exceeded.
func (c *Cache) Put(text string, vec []float32) {
	key := cacheKey(text)

	c.mu.Lock()
	c.bytes += entryBytes(vec)
	c.mu.Unlock()

	c.lru.Add(key, vec)
	c.evictToBudget()
}

// evictToBudget removes the oldest entries until CalculatedBytes fits
// within MaxMemoryBytes. The expirable LRU does not expose direct
// "oldest" eviction by byte budget, so this walks Keys() in LRU order
// (oldest first) and removes from the front.
func (c *Cache) evictToBudget() {
	for {
		c.mu.Lock()
		over := c.bytes > c.opts.MaxMemoryBytes
		c.mu.Unlock()
		if !over {
			return
		}

		keys := c.lru.Keys()
		if len(keys) == 0 {
			return
		}
		c.lru.Remove(keys[0])
	}
}

// GetOrEmbed returns the cached vector for text, or calls produce
// exactly once and caches the result. Concurrent callers for the same
// key block on a per-key mutex rather than all invoking produce.
func (c *Cache) GetOrEmbed(ctx context.Context, text string, produce func(ctx context.Context) ([]float32, error)) ([]float32, error) {
	if vec, ok := c.Get(text); ok {
		return vec, nil
	}

	lock := c.keyLock(text)
	lock.Lock()
	defer lock.Unlock()

	// Re-check: another goroutine may have populated the cache while
	// we waited for the lock. Peek so this lookup is not counted as a
	// second miss.
	if vec, ok := c.lru.Peek(cacheKey(text)); ok {
		return vec, nil
	}

	vec, err := produce(ctx)
	if err != nil {
		return nil, err
	}
	c.Put(text, vec)
	return vec, nil
}

func (c *Cache) keyLock(text string) *sync.Mutex {
	key := cacheKey(text)
	c.keyLocksMu.Lock()
	defer c.keyLocksMu.Unlock()
	l, ok := c.keyLocks[key]
	if !ok {
		l = &sync.Mutex{}
		c.keyLocks[key] = l
	}
	return l
}

// Stats returns a snapshot of cache hit/miss counters and size.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:            c.hits,
		Misses:          c.misses,
		Size:            c.lru.Len(),
		CalculatedBytes: c.bytes,
	}
}

// Purge removes all entries and resets byte accounting, keeping
// hit/miss counters.
func (c *Cache) Purge() {
	c.lru.Purge()
	c.mu.Lock()
	c.bytes = 0
	c.mu.Unlock()
}
