// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache provides a bounded frame buffer cache with eviction-order
// buffer reuse.
package cache

import (
	"container/list"
	"image"
	"sync"
)

// MinCapacity is the smallest capacity a LifoCache will accept. Two slots
// are required so that a reuse buffer donor can be distinct from the slot
// being filled.
const MinCapacity = 2

// Strategy is the set of hooks a LifoCache consults during operation.
// OnEvicted is called for every entry leaving the cache through eviction
// or replacement, before the entry is dropped; replacement is non-nil only
// when the entry is being overwritten by a Put with the same key. OnMiss is
// called by GetOrCreate when the key is absent and may supply a value to be
// inserted in its place.
type Strategy interface {
	OnEvicted(key int, old, replacement *image.RGBA)
	OnMiss(key int) (*image.RGBA, bool)
}

// entry is a cache slot. seq is the entry's insertion sequence number;
// entries with smaller seq are older and are evicted first.
type entry struct {
	key   int
	value *image.RGBA
	seq   uint64
}

// LifoCache is a fixed-capacity frame buffer cache. The name follows the
// original cn.hacktons LifoCache, but the externally observable eviction
// order is oldest insertion first; Get does not promote an entry, so the
// order is purely by insertion, not by access.
//
// All methods are safe for concurrent use. The zero value is not usable;
// use New.
type LifoCache struct {
	strategy Strategy

	mu       sync.Mutex
	capacity int
	seq      uint64
	entries  map[int]*list.Element
	order    *list.List // Front is the most recent insertion.
}

// New returns a LifoCache holding at most capacity entries. Capacities below
// MinCapacity are clamped to MinCapacity. The strategy may be nil, in which
// case evictions are silent and GetOrCreate behaves as Get.
func New(capacity int, strategy Strategy) *LifoCache {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	return &LifoCache{
		strategy: strategy,
		capacity: capacity,
		entries:  make(map[int]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the value stored for key. It does not alter eviction order.
func (c *LifoCache) Get(key int) (*image.RGBA, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.Value.(*entry).value, true
}

// GetOrCreate returns the value stored for key. If the key is absent the
// strategy's OnMiss hook is consulted; a value supplied by the hook is
// inserted through the normal insertion path and returned.
func (c *LifoCache) GetOrCreate(key int) (*image.RGBA, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.Value.(*entry).value, true
	}
	if c.strategy == nil {
		return nil, false
	}
	v, ok := c.strategy.OnMiss(key)
	if !ok || v == nil {
		return nil, false
	}
	c.put(key, v)
	return v, true
}

// Put inserts or replaces the value for key. If inserting would exceed the
// cache's capacity the oldest surviving insertion is evicted first.
func (c *LifoCache) Put(key int, value *image.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value)
}

// put implements Put. It must be called with c.mu held.
func (c *LifoCache) put(key int, value *image.RGBA) {
	if e, ok := c.entries[key]; ok {
		ent := e.Value.(*entry)
		old := ent.value
		ent.value = value
		ent.seq = c.nextSeq()
		c.order.MoveToFront(e)
		if c.strategy != nil {
			c.strategy.OnEvicted(key, old, value)
		}
		return
	}
	for len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	ent := &entry{key: key, value: value, seq: c.nextSeq()}
	c.entries[key] = c.order.PushFront(ent)
}

func (c *LifoCache) nextSeq() uint64 {
	c.seq++
	return c.seq
}

// evictOldest removes the entry with the smallest insertion sequence,
// notifying the strategy. It must be called with c.mu held.
func (c *LifoCache) evictOldest() {
	e := c.order.Back()
	if e == nil {
		return
	}
	ent := e.Value.(*entry)
	c.order.Remove(e)
	delete(c.entries, ent.key)
	if c.strategy != nil {
		c.strategy.OnEvicted(ent.key, ent.value, nil)
	}
}

// Remove removes and returns the value for key without notifying the
// strategy. It is used when the caller intends to repurpose the returned
// buffer immediately, so the buffer must not be recorded for later reuse.
func (c *LifoCache) Remove(key int) (*image.RGBA, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	ent := e.Value.(*entry)
	c.order.Remove(e)
	delete(c.entries, key)
	return ent.value, true
}

// NthFromNewest returns the key of the n-th most recent surviving insertion,
// counting from one. A second-newest request on a cache holding at least two
// entries returns the entry just below the most recent insertion.
func (c *LifoCache) NthFromNewest(n int) (key int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 1 || n > len(c.entries) {
		return 0, false
	}
	e := c.order.Front()
	for i := 1; i < n; i++ {
		e = e.Next()
	}
	return e.Value.(*entry).key, true
}

// EvictAll evicts every entry through the single-entry eviction path so the
// strategy observes each eviction.
func (c *LifoCache) EvictAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.entries) != 0 {
		c.evictOldest()
	}
}

// Resize sets the cache's capacity, evicting oldest entries as required to
// satisfy the new limit. Capacities below MinCapacity are clamped to
// MinCapacity.
func (c *LifoCache) Resize(capacity int) {
	if capacity < MinCapacity {
		capacity = MinCapacity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.capacity = capacity
	for len(c.entries) > c.capacity {
		c.evictOldest()
	}
}

// Len returns the number of entries currently held.
func (c *LifoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cap returns the cache's current capacity.
func (c *LifoCache) Cap() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity
}
