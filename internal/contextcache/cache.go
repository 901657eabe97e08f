// Package contextcache provides a time-boxed cache for external-lookup
// results, keyed by normalized query and scoped per source type.
//
// Two guarantees matter here: a stale entry is never returned (it is
// replaced by a fresh fetch), and at most one underlying fetch runs per
// (source, key) at any time. Concurrent requests for the same key join
// the outstanding fetch instead of duplicating it.
package contextcache

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ether/internal/config"
	"ether/internal/types"
)

// FetchFunc performs one external lookup. It must honor ctx cancellation;
// a timed-out fetch is treated identically to a failed one.
type FetchFunc func(ctx context.Context) (string, error)

// Result is the outcome of a cache lookup. Miss is true when the entry
// records a failed fetch (negative cache); Value is empty in that case.
type Result struct {
	Value string
	Miss  bool
}

// Cache is a bounded TTL+LRU cache with per-key fetch coalescing.
// Construct one per assembled core; there is no process-wide instance.
type Cache struct {
	ttls    config.ParsedTTLs
	maxPer  int
	log     *zap.Logger
	now     func() time.Time
	flight  singleflight.Group
	shelves map[types.SourceType]*shelf

	// mu guards shelves; the fetch itself runs outside the lock so slow
	// sources never block lookups for other keys.
	mu sync.Mutex
}

type shelf struct {
	entries map[string]*list.Element
	lru     *list.List // front = most recently used
}

type entry struct {
	key       string
	value     string
	miss      bool
	fetchedAt time.Time
	ttl       time.Duration
}

// New creates a cache from validated configuration.
func New(cfg config.CacheConfig, log *zap.Logger) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}
	ttls, err := cfg.Parse()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Cache{
		ttls:    ttls,
		maxPer:  cfg.MaxEntriesPerSource,
		log:     log,
		now:     time.Now,
		shelves: make(map[types.SourceType]*shelf),
	}
	for _, src := range types.AllSources {
		c.shelves[src] = &shelf{
			entries: make(map[string]*list.Element),
			lru:     list.New(),
		}
	}
	return c, nil
}

// Normalize produces the cache key for a raw query: lower-cased with
// whitespace collapsed.
func Normalize(rawQuery string) string {
	return strings.Join(strings.Fields(strings.ToLower(rawQuery)), " ")
}

// Get returns the cached result for (source, rawQuery), fetching on a miss.
// A failed fetch is stored as a negative entry with the short negative TTL
// and returned as Result{Miss: true}; Get itself only errors on a source
// type outside the enumerated set.
func (c *Cache) Get(ctx context.Context, source types.SourceType, rawQuery string, fetch FetchFunc) (Result, error) {
	if !source.Valid() {
		return Result{}, fmt.Errorf("unknown source type %q", source)
	}
	key := Normalize(rawQuery)

	if res, ok := c.lookup(source, key); ok {
		return res, nil
	}

	flightKey := string(source) + "\x00" + key
	v, _, _ := c.flight.Do(flightKey, func() (interface{}, error) {
		// A request that waited on the singleflight lock may find the
		// winner's entry already live.
		if res, ok := c.lookup(source, key); ok {
			return res, nil
		}

		value, err := fetch(ctx)
		e := &entry{key: key, fetchedAt: c.now()}
		if err != nil {
			e.miss = true
			e.ttl = c.ttls.Negative
			c.log.Debug("fetch failed, caching miss",
				zap.String("source", string(source)),
				zap.String("key", key),
				zap.Error(err))
		} else {
			e.value = value
			e.ttl = c.ttlFor(source)
		}
		c.insert(source, e)
		return Result{Value: e.value, Miss: e.miss}, nil
	})

	return v.(Result), nil
}

// lookup returns a live entry and bumps its recency. Expired entries are
// left in place; insert replaces them when the fresh result lands.
func (c *Cache) lookup(source types.SourceType, key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sh := c.shelves[source]
	el, ok := sh.entries[key]
	if !ok {
		return Result{}, false
	}
	e := el.Value.(*entry)
	if !c.now().Before(e.fetchedAt.Add(e.ttl)) {
		return Result{}, false
	}
	sh.lru.MoveToFront(el)
	return Result{Value: e.value, Miss: e.miss}, true
}

// insert stores an entry, replacing any prior entry for the key and
// evicting the least-recently-used entry when the shelf is full.
func (c *Cache) insert(source types.SourceType, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sh := c.shelves[source]
	if el, ok := sh.entries[e.key]; ok {
		el.Value = e
		sh.lru.MoveToFront(el)
		return
	}

	if sh.lru.Len() >= c.maxPer {
		oldest := sh.lru.Back()
		if oldest != nil {
			evicted := oldest.Value.(*entry)
			sh.lru.Remove(oldest)
			delete(sh.entries, evicted.key)
			c.log.Debug("evicted LRU cache entry",
				zap.String("source", string(source)),
				zap.String("key", evicted.key))
		}
	}
	sh.entries[e.key] = sh.lru.PushFront(e)
}

func (c *Cache) ttlFor(source types.SourceType) time.Duration {
	switch source {
	case types.SourceWeather:
		return c.ttls.Weather
	case types.SourceNews:
		return c.ttls.News
	default:
		return c.ttls.Web
	}
}

// Len reports the number of entries currently shelved for a source.
func (c *Cache) Len(source types.SourceType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sh, ok := c.shelves[source]; ok {
		return sh.lru.Len()
	}
	return 0
}
