package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrSuperseded = errors.New("query superseded by a newer request")

type entry struct {
	key       Key
	data      any
	hasData   bool
	stale     bool
	gen       uint64
	fetchedAt time.Time
}

// Cache holds one session's read results keyed by Key.
// Reads under one key share a single in-flight call; invalidation marks entries stale
// and prevents in-flight results that predate it from being stored.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
	// lastGen issues every entry generation. It never resets, so an entry recreated after
	// Clear or Prune cannot reuse the generation of a call still in flight.
	lastGen uint64

	fetches       uint64
	invalidations uint64
}

// NewCache returns a cache whose entries stay fresh for staleTime. A zero staleTime
// refetches on every read while still deduplicating concurrent reads.
func NewCache(staleTime time.Duration) *Cache {
	return &Cache{
		entries:   make(map[string]*entry),
		staleTime: staleTime,
		now:       time.Now,
	}
}

func (c *Cache) Fetch(ctx context.Context, key Key, fn func(context.Context) (any, error)) (any, error) {
	id := key.String()

	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: append(Key(nil), key...), gen: c.nextGenLocked()}
		c.entries[id] = e
	}
	if c.freshLocked(e) {
		data := e.data
		c.mu.Unlock()
		return data, nil
	}
	gen := e.gen
	c.mu.Unlock()

	// The generation is part of the flight key so a read issued after an invalidation
	// never joins a call that started before it.
	flight := id + "#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flight, func() (any, error) {
		atomic.AddUint64(&c.fetches, 1)
		data, err := fn(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if current, ok := c.entries[id]; ok && current.gen == gen {
			current.data = data
			current.hasData = true
			current.stale = false
			current.fetchedAt = c.now()
		}
		c.mu.Unlock()
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Peek returns the last stored value for key without fetching.
func (c *Cache) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// Invalidate marks every entry under each prefix stale. One call counts as one invalidation.
func (c *Cache) Invalidate(prefixes ...Key) {
	if len(prefixes) == 0 {
		return
	}
	c.mu.Lock()
	for _, e := range c.entries {
		for _, prefix := range prefixes {
			if e.key.HasPrefix(prefix) {
				e.stale = true
				e.gen = c.nextGenLocked()
				break
			}
		}
	}
	c.mu.Unlock()
	atomic.AddUint64(&c.invalidations, 1)
}

// Clear drops every entry, e.g. on sign-out.
func (c *Cache) Clear() {
	c.mu.Lock()
	for id := range c.entries {
		delete(c.entries, id)
	}
	c.mu.Unlock()
}

// Prune removes entries fetched longer than maxAge ago and returns how many were removed.
func (c *Cache) Prune(maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)
	removed := 0
	c.mu.Lock()
	for id, e := range c.entries {
		if e.hasData && e.fetchedAt.Before(cutoff) {
			delete(c.entries, id)
			removed++
		}
	}
	c.mu.Unlock()
	return removed
}

func (c *Cache) Fetches() uint64 {
	return atomic.LoadUint64(&c.fetches)
}

func (c *Cache) Invalidations() uint64 {
	return atomic.LoadUint64(&c.invalidations)
}

func (c *Cache) nextGenLocked() uint64 {
	c.lastGen++
	return c.lastGen
}

func (c *Cache) freshLocked(e *entry) bool {
	if !e.hasData || e.stale || c.staleTime <= 0 {
		return false
	}
	return c.now().Sub(e.fetchedAt) < c.staleTime
}

// Get is the typed form of Cache.Fetch.
func Get[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query: cached value for %v has type %T", []string(key), v)
	}
	return out, nil
}

// Mutate runs a write and, only when it succeeds, invalidates the dependent keys once.
func Mutate[T any](ctx context.Context, c *Cache, fn func(context.Context) (T, error), invalidate ...Key) (T, error) {
	out, err := fn(ctx)
	if err != nil {
		return out, err
	}
	c.Invalidate(invalidate...)
	return out, nil
}
