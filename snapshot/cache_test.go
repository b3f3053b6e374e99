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
	"fmt"
	"reflect"
	"testing"
)

func TestCache_PutGet(t *testing.T) {
	c := NewCache(4)

	state := map[string]any{"a": 1}
	c.Put("e1", state)

	got, ok := c.Get("e1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if !reflect.DeepEqual(got, state) {
		t.Errorf("Get = %+v, want %+v", got, state)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("expected cache miss for unknown key")
	}
}

func TestCache_HitEqualsFreshReplay(t *testing.T) {
	entries := buildChain(t, []map[string]any{
		{"count": 0},
		{"count": 1, "label": "one"},
		{"count": 2},
	})

	c := NewCache(4)
	for i := range entries {
		fresh, err := Reconstruct(entries, i)
		if err != nil {
			t.Fatalf("Reconstruct(%d): %v", i, err)
		}
		c.Put(entries[i].ID, fresh)
	}

	// A cache hit must be structurally identical to a fresh replay, not
	// trusted blindly.
	for i := range entries {
		cached, ok := c.Get(entries[i].ID)
		if !ok {
			t.Fatalf("expected hit for entry %d", i)
		}
		fresh, err := Reconstruct(entries, i)
		if err != nil {
			t.Fatalf("Reconstruct(%d): %v", i, err)
		}
		if !reflect.DeepEqual(cached, fresh) {
			t.Errorf("entry %d: cached %+v != fresh %+v", i, cached, fresh)
		}
	}
}

func TestCache_GetReturnsCopy(t *testing.T) {
	c := NewCache(2)
	c.Put("e1", map[string]any{"nested": map[string]any{"x": 1}})

	first, _ := c.Get("e1")
	first["nested"].(map[string]any)["x"] = 99

	second, _ := c.Get("e1")
	if second["nested"].(map[string]any)["x"] != 1 {
		t.Error("mutating a Get result corrupted the cached state")
	}
}

func TestCache_EvictsLRU(t *testing.T) {
	c := NewCache(2)
	c.Put("a", map[string]any{"v": 1})
	c.Put("b", map[string]any{"v": 2})

	// Touch "a" so "b" becomes the eviction candidate.
	c.Get("a")
	c.Put("c", map[string]any{"v": 3})

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestCache_InvalidateAndPurge(t *testing.T) {
	c := NewCache(8)
	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("e%d", i), map[string]any{"v": i})
	}

	c.Invalidate("e0")
	if _, ok := c.Get("e0"); ok {
		t.Error("expected e0 invalidated")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len after Purge = %d, want 0", c.Len())
	}
}

func TestCache_Stats(t *testing.T) {
	c := NewCache(2)
	c.Put("a", map[string]any{})

	c.Get("a")
	c.Get("a")
	c.Get("missing")

	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("Stats = (%d, %d), want (2, 1)", hits, misses)
	}
}
