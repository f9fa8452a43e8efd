// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

// DefaultCacheCapacity bounds the result cache when no capacity is
// configured.
const DefaultCacheCapacity = 32

// ResultCache is a thread-safe bounded LRU over query results.
//
// # Description
//
//	Fixed-size cache keyed by normalized (concept pair, level). Evicts
//	the least recently used entry when capacity is reached. Uses
//	container/list for O(1) access and eviction.
//
//	Both Get and Set deep-copy the result. This is load-bearing for
//	correctness, not an optimization: callers mutate returned results
//	freely (e.g. to attach mitigation metadata) without corrupting the
//	cached copy.
//
// # Thread Safety
//
//	All methods are safe for concurrent use.
type ResultCache struct {
	mu       sync.Mutex
	capacity int
	items    map[datatypes.CacheKey]*list.Element
	order    *list.List // Front = most recent, Back = least recent

	// Stats (atomic for lock-free reads)
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// cacheEntry holds the key-value pair in the list.
type cacheEntry struct {
	key   datatypes.CacheKey
	value *datatypes.Result
}

// NewResultCache creates a cache with the given capacity. Capacities
// below 1 fall back to DefaultCacheCapacity.
func NewResultCache(capacity int) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &ResultCache{
		capacity: capacity,
		items:    make(map[datatypes.CacheKey]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns a deep copy of the cached result and marks the entry most
// recently used.
func (c *ResultCache) Get(key datatypes.CacheKey) (*datatypes.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		c.hits.Add(1)
		return elem.Value.(*cacheEntry).value.Clone(), true
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores a deep copy of value, evicting the least recently used
// entry if the cache is full.
func (c *ResultCache) Set(key datatypes.CacheKey, value *datatypes.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := value.Clone()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = stored
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}

	elem := c.order.PushFront(&cacheEntry{key: key, value: stored})
	c.items[key] = elem
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge removes all entries and resets counters.
func (c *ResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[datatypes.CacheKey]*list.Element, c.capacity)
	c.order.Init()
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
}

// Stats returns hit/miss counters since creation or last purge.
//
// # Thread Safety
//
//	Safe for concurrent use (lock-free).
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Evictions returns how many entries were evicted for capacity.
func (c *ResultCache) Evictions() int64 {
	return c.evictions.Load()
}

// evictOldest removes the back of the list. Caller must hold mu.
func (c *ResultCache) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*cacheEntry).key)
	c.evictions.Add(1)
}
