package compiler

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/sqlforge/pkg/core"
	"github.com/leapstack-labs/sqlforge/pkg/dialect"
)

const cacheShards = 16

// DefaultCacheSize is the capacity of the process-wide cache.
const DefaultCacheSize = 500

// cacheKey pairs the dialect instance with the structural key. Two
// dialects sharing a name (a Clone with another paramstyle) get separate
// entries.
type cacheKey struct {
	dialect *dialect.Dialect
	key     core.Key
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%p/%s", k.dialect, k.key.String())
}

type shard struct {
	mu  sync.Mutex
	lru *simplelru.LRU[cacheKey, *CompiledStatement]
}

// Cache is a bounded, concurrency-safe statement cache keyed on dialect
// and structural cache key. Entries are evicted least recently used first
// within each shard. Cached statements carry no bind values.
type Cache struct {
	shards [cacheShards]*shard
	retain bool
	group  singleflight.Group
	logger *slog.Logger

	hits, misses, evictions atomic.Int64
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache creates a cache holding about size statements. A size of zero
// or less disables retention: every lookup compiles.
func NewCache(size int, opts ...CacheOption) *Cache {
	c := &Cache{
		retain: size > 0,
		logger: slog.New(slog.DiscardHandler),
	}
	perShard := size / cacheShards
	if perShard < 1 {
		perShard = 1
	}
	for i := range c.shards {
		// NewLRU only fails for a non-positive size.
		lru, _ := simplelru.NewLRU[cacheKey, *CompiledStatement](perShard, nil)
		c.shards[i] = &shard{lru: lru}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultCache = NewCache(DefaultCacheSize)

func init() {
	dialect.OnDeregister(defaultCache.PurgeDialect)
}

// DefaultCache returns the process-wide cache.
func DefaultCache() *Cache { return defaultCache }

func (c *Cache) shardFor(k cacheKey) *shard {
	return c.shards[k.key.Lo%cacheShards]
}

// GetOrCompile returns the compilation of n for d, compiling on a miss.
// The SQL may come from another tree with the same key; the returned
// statement carries n's own bind values.
func (c *Cache) GetOrCompile(n core.Node, d *dialect.Dialect) (*CompiledStatement, error) {
	stmt, binds, err := c.lookup(n, d)
	if err != nil || !c.retain {
		return stmt, err
	}
	return stmt.rebind(binds), nil
}

// Prepare returns the compilation of n for d bound to n's own values.
func (c *Cache) Prepare(n core.Node, d *dialect.Dialect) (*Statement, error) {
	stmt, binds, err := c.lookup(n, d)
	if err != nil {
		return nil, err
	}
	return &Statement{CompiledStatement: stmt, binds: binds}, nil
}

func (c *Cache) lookup(n core.Node, d *dialect.Dialect) (*CompiledStatement, []*core.BindParameter, error) {
	if d == nil {
		return nil, nil, dialect.ErrDialectRequired
	}
	key, binds := core.CacheKey(n)
	ck := cacheKey{dialect: d, key: key}

	if !c.retain {
		c.misses.Add(1)
		stmt, err := For(d).compile(n, key, binds)
		return stmt, binds, err
	}

	sh := c.shardFor(ck)
	if stmt, ok := sh.get(ck); ok {
		c.hits.Add(1)
		return stmt, binds, nil
	}

	leader := false
	v, err, _ := c.group.Do(ck.String(), func() (any, error) {
		leader = true
		if stmt, ok := sh.get(ck); ok {
			c.hits.Add(1)
			return stmt, nil
		}
		c.misses.Add(1)
		stmt, err := For(d).compile(n, key, binds)
		if err != nil {
			return nil, err
		}
		stmt, evicted := sh.add(ck, stmt.shape())
		if evicted {
			c.evictions.Add(1)
		}
		c.logger.Debug("compiled statement", "dialect", d.Name, "key", key.String())
		return stmt, nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !leader {
		c.hits.Add(1)
	}
	return v.(*CompiledStatement), binds, nil
}

func (sh *shard) get(k cacheKey) (*CompiledStatement, bool) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.lru.Get(k)
}

// add inserts stmt unless k is already present, returning the retained
// statement and whether an older entry was evicted.
func (sh *shard) add(k cacheKey, stmt *CompiledStatement) (*CompiledStatement, bool) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if cur, ok := sh.lru.Get(k); ok {
		return cur, false
	}
	return stmt, sh.lru.Add(k, stmt)
}

// Stats returns the current counters.
func (c *Cache) Stats() CacheStats {
	st := CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
	for _, sh := range c.shards {
		sh.mu.Lock()
		st.Size += sh.lru.Len()
		sh.mu.Unlock()
	}
	return st
}

// Purge drops every entry. Counters are kept.
func (c *Cache) Purge() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		sh.lru.Purge()
		sh.mu.Unlock()
	}
}

// PurgeDialect drops the entries compiled for every dialect with the
// given name.
func (c *Cache) PurgeDialect(name string) {
	removed := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		for _, k := range sh.lru.Keys() {
			if strings.EqualFold(k.dialect.Name, name) {
				sh.lru.Remove(k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	if removed > 0 {
		c.logger.Debug("purged dialect statements", "dialect", name, "count", removed)
	}
}
