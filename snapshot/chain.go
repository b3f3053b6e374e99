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
	"context"
	"fmt"
	"time"
)

// Reconstruct materializes the state at entry index i.
//
// Description:
//
//	Walks backward from i to the nearest full snapshot (inclusive), then
//	replays every delta forward up to and including i, applying each
//	entry's changes onto a working copy. A full entry encountered
//	mid-replay resets the working copy, so chains interleaved with
//	periodic full snapshots replay correctly.
//
// Inputs:
//
//	entries - The entry sequence, oldest first.
//	i - Target index within entries.
//
// Outputs:
//
//	map[string]any - The materialized state. A fresh copy owned by the
//	caller.
//	error - ErrIndexOutOfRange, ErrMissingBase, or ErrChainBroken.
func Reconstruct(entries []*Entry, i int) (map[string]any, error) {
	start := time.Now()

	if i < 0 || i >= len(entries) {
		return nil, fmt.Errorf("%w: index %d, have %d entries", ErrIndexOutOfRange, i, len(entries))
	}

	base := -1
	for j := i; j >= 0; j-- {
		if entries[j].Kind == KindFull {
			base = j
			break
		}
	}
	if base == -1 {
		return nil, fmt.Errorf("%w: index %d", ErrMissingBase, i)
	}

	state := CloneState(entries[base].State)
	for j := base + 1; j <= i; j++ {
		e := entries[j]
		if e.Kind == KindFull {
			state = CloneState(e.State)
			continue
		}
		if e.ParentID != entries[j-1].ID {
			return nil, fmt.Errorf("%w: entry %d (%s) references parent %s, predecessor is %s",
				ErrChainBroken, j, e.ID, e.ParentID, entries[j-1].ID)
		}
		Apply(state, e.Changes)
	}

	recordReconstruct(context.Background(), time.Since(start), i-base)
	return state, nil
}

// ValidateChain checks every link of the entry sequence.
//
// Description:
//
//	Walks the full history and returns the index of the first broken
//	link. Used by eviction logic before discarding entries.
//
// Inputs:
//
//	entries - The entry sequence, oldest first.
//
// Outputs:
//
//	int - Index of the first invalid entry, or -1 when the chain is
//	valid.
//	error - Describes the first break; nil when the chain is valid.
func ValidateChain(entries []*Entry) (int, error) {
	for j, e := range entries {
		if e.Kind != KindDelta {
			continue
		}
		if j == 0 {
			return 0, fmt.Errorf("%w: history starts with a delta", ErrMissingBase)
		}
		if e.ParentID != entries[j-1].ID {
			return j, fmt.Errorf("%w: entry %d (%s) references parent %s, predecessor is %s",
				ErrChainBroken, j, e.ID, e.ParentID, entries[j-1].ID)
		}
	}
	return -1, nil
}

// Collapse converts the entry at index i into a full snapshot.
//
// Description:
//
//	Reconstructs the state at i and returns a full entry that preserves
//	the original entry's identity and metadata. Preserving the ID keeps
//	successor deltas' parent references intact, so the chain stays valid
//	after older entries are discarded.
//
// Inputs:
//
//	entries - The entry sequence, oldest first.
//	i - Index of the entry to collapse.
//
// Outputs:
//
//	*Entry - The replacement full entry.
//	error - Non-nil if reconstruction at i fails.
func Collapse(entries []*Entry, i int) (*Entry, error) {
	state, err := Reconstruct(entries, i)
	if err != nil {
		return nil, fmt.Errorf("collapse at %d: %w", i, err)
	}

	orig := entries[i]
	return &Entry{
		ID:         orig.ID,
		Kind:       KindFull,
		Label:      orig.Label,
		Source:     "collapse",
		CapturedAt: orig.CapturedAt,
		State:      state,
	}, nil
}
