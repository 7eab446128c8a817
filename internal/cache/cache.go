// Package cache is a bounded, TTL-based memoization layer for query
// results.
//
// Entries expire ttl after they were stored. When the cache is full the
// single oldest-inserted entry is evicted (insertion order, not LRU).
// Concurrent misses on the same key share one producer call. The shared
// call is detached from the caller that started it and is cancelled only
// once every caller waiting on it has gone.
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Defaults used when New is given non-positive values.
const (
	DefaultTTL     = 5 * time.Minute
	DefaultMaxSize = 100
)

// entry is owned by the cache and never handed to callers.
type entry[T any] struct {
	key       string
	value     T
	storedAt  time.Time
	expiresAt time.Time
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Size        int   `json:"size"`
	MaxSize     int   `json:"max_size"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Cache is safe for concurrent use.
type Cache[T any] struct {
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu      sync.Mutex
	order   *list.List // front = oldest insertion
	entries map[string]*list.Element
	stats   Stats
	flights map[string]*flight

	group singleflight.Group
}

// flight is the context shared by the callers waiting on one producer call.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// outcome travels through the singleflight group. abandoned is set when
// the producer failed because all of its waiters left.
type outcome[T any] struct {
	value     T
	abandoned bool
}

// New returns an empty cache.
func New[T any](ttl time.Duration, maxSize int, opts ...Option) *Cache[T] {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Cache[T]{
		ttl:     ttl,
		maxSize: maxSize,
		now:     o.now,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		flights: make(map[string]*flight),
	}
}

// Get returns the cached value for key. An expired entry is removed and
// reported as absent.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lookup(key)
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return v, ok
}

func (c *Cache[T]) lookup(key string) (T, bool) {
	var zero T
	el, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	e := el.Value.(*entry[T])
	if !c.now().Before(e.expiresAt) {
		c.order.Remove(el)
		delete(c.entries, key)
		c.stats.Expirations++
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for one TTL. Storing a new key into a full
// cache evicts exactly the oldest entry first. Replacing an existing key
// refreshes its expiry and keeps its insertion position.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry[T])
		e.value, e.storedAt, e.expiresAt = value, now, now.Add(c.ttl)
		return
	}
	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry[T]).key)
			c.stats.Evictions++
		}
	}
	c.entries[key] = c.order.PushBack(&entry[T]{
		key:       key,
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(c.ttl),
	})
}

// FetchWithCache returns the fresh cached value for key, or calls producer
// once, stores its result and returns it. hit reports whether the value
// came from the cache. Callers racing on the same missing key wait for the
// first producer instead of starting their own. Errors are not cached.
//
// The producer gets a context that keeps ctx's values but not its
// cancellation: it is cancelled when the last waiting caller leaves. A
// caller whose ctx ends stops waiting at once and gets ctx.Err().
func (c *Cache[T]) FetchWithCache(ctx context.Context, key string, producer func(context.Context) (T, error)) (value T, hit bool, err error) {
	var zero T
	for {
		if v, ok := c.Get(key); ok {
			return v, true, nil
		}
		fl := c.join(ctx, key)
		ch := c.group.DoChan(key, func() (any, error) {
			return c.produce(key, fl, producer)
		})
		select {
		case <-ctx.Done():
			c.leave(key, fl)
			return zero, false, ctx.Err()
		case res := <-ch:
			c.leave(key, fl)
			out := res.Val.(outcome[T])
			if res.Err == nil {
				return out.value, false, nil
			}
			// joined a call abandoned by callers that were not ours
			if out.abandoned && ctx.Err() == nil {
				continue
			}
			return zero, false, res.Err
		}
	}
}

func (c *Cache[T]) produce(key string, fl *flight, producer func(context.Context) (T, error)) (any, error) {
	// another caller may have filled it while we queued
	c.mu.Lock()
	v, ok := c.lookup(key)
	c.mu.Unlock()
	if ok {
		return outcome[T]{value: v}, nil
	}
	v, err := producer(fl.ctx)
	if err != nil {
		return outcome[T]{abandoned: fl.ctx.Err() != nil}, err
	}
	c.Set(key, v)
	return outcome[T]{value: v}, nil
}

func (c *Cache[T]) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	fl, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		fl = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = fl
	}
	fl.waiters++
	return fl
}

func (c *Cache[T]) leave(key string, fl *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fl.waiters--
	if fl.waiters > 0 {
		return
	}
	fl.cancel()
	if c.flights[key] == fl {
		delete(c.flights, key)
	}
}

// Remove deletes key if present.
func (c *Cache[T]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.Remove(el)
		delete(c.entries, key)
	}
}

// Clear drops every entry. Counters are kept.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.entries)
}

// Len returns the number of stored entries, including any that have
// expired but not yet been looked up.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns a copy of the counters.
func (c *Cache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.order.Len()
	s.MaxSize = c.maxSize
	return s
}

// ─── Keys ─────────────────────────────────────────────────────────────────────

// Key derives a canonical cache key from v. v is encoded to JSON, decoded
// into generic maps, and encoded again so object keys are sorted; two
// values with the same fields produce the same key regardless of how they
// were built.
func Key(namespace string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	canon, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	return namespace + ":" + string(canon), nil
}
