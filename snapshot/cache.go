// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"container/list"
	"context"
)

// Cache is a fixed-size LRU cache of reconstructed states keyed by entry
// ID.
//
// Description:
//
//	Frequently requested history indices (undo targets, inspector views)
//	reconstruct the same state repeatedly; the cache short-circuits the
//	replay. Get returns a deep copy, so cached states can never be
//	corrupted by callers mutating the result.
//
// Thread Safety:
//
//	NOT safe for concurrent use. The store/history pair assumes a single
//	logical thread of control.
//
// Performance:
//
//	| Operation | Complexity |
//	|-----------|------------|
//	| Get       | O(1)*      |
//	| Put       | O(1)       |
//	| Purge     | O(n)       |
//
//	*plus the cost of the defensive state copy.
type Cache struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List // Front = most recent, Back = least recent

	hits   int64
	misses int64
}

// cacheEntry holds the key-state pair in the list.
type cacheEntry struct {
	key   string
	state map[string]any
}

// NewCache creates a reconstruction cache with the given capacity.
//
// Inputs:
//   - capacity: Maximum number of cached states. Must be > 0; non-positive
//     values fall back to 16.
//
// Outputs:
//   - *Cache: The cache. Never nil.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 16
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get retrieves a cached state by entry ID.
//
// Outputs:
//   - map[string]any: Deep copy of the cached state (nil if not found).
//   - bool: True if the entry was cached.
func (c *Cache) Get(entryID string) (map[string]any, bool) {
	if elem, ok := c.items[entryID]; ok {
		c.order.MoveToFront(elem)
		c.hits++
		recordCacheAccess(context.Background(), true)
		return CloneState(elem.Value.(*cacheEntry).state), true
	}
	c.misses++
	recordCacheAccess(context.Background(), false)
	return nil, false
}

// Put stores a reconstructed state, evicting the least recently used
// entry at capacity. The state is cloned on the way in.
func (c *Cache) Put(entryID string, state map[string]any) {
	if elem, ok := c.items[entryID]; ok {
		elem.Value.(*cacheEntry).state = CloneState(state)
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}

	c.items[entryID] = c.order.PushFront(&cacheEntry{
		key:   entryID,
		state: CloneState(state),
	})
}

// Invalidate drops a single cached state.
func (c *Cache) Invalidate(entryID string) {
	if elem, ok := c.items[entryID]; ok {
		c.order.Remove(elem)
		delete(c.items, entryID)
	}
}

// Purge drops every cached state.
func (c *Cache) Purge() {
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}

// Len returns the number of cached states.
func (c *Cache) Len() int {
	return c.order.Len()
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits, c.misses
}
