// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history provides the history engine and its cursor index:
// snapshot capture on store commits, undo/redo navigation, bounded
// retention with chain-preserving eviction, and YAML configuration.
package history

// Index is a pure cursor over a linear sequence of history entries.
//
// Description:
//
//	Owns nothing but arithmetic: totalLength and currentIndex, with the
//	invariant -1 <= currentIndex < totalLength (-1 means no position).
//	Navigation methods return success booleans instead of errors;
//	callers decide whether a failed move is significant.
//
// Thread Safety:
//
//	NOT safe for concurrent use; owned exclusively by the Engine.
type Index struct {
	totalLength  int
	currentIndex int
}

// NewIndex creates an empty index with no position.
func NewIndex() Index {
	return Index{currentIndex: -1}
}

// Length returns the total number of entries the cursor ranges over.
func (x *Index) Length() int { return x.totalLength }

// Current returns the current position; -1 means no position.
func (x *Index) Current() int { return x.currentIndex }

// MoveTo positions the cursor at i.
//
// Returns false without moving when i is outside [-1, totalLength-1].
func (x *Index) MoveTo(i int) bool {
	if i < -1 || i >= x.totalLength {
		return false
	}
	x.currentIndex = i
	return true
}

// MovePrevious moves the cursor back n positions.
//
// Returns false without moving when n < 1 or the move would pass the
// "no position" marker.
func (x *Index) MovePrevious(n int) bool {
	if n < 1 || x.currentIndex-n < -1 {
		return false
	}
	x.currentIndex -= n
	return true
}

// MoveNext moves the cursor forward n positions.
//
// Returns false without moving when n < 1 or the move would pass the
// last entry.
func (x *Index) MoveNext(n int) bool {
	if n < 1 || x.currentIndex+n > x.totalLength-1 {
		return false
	}
	x.currentIndex += n
	return true
}

// MoveToFirst positions the cursor at the first entry.
//
// Returns false when the sequence is empty.
func (x *Index) MoveToFirst() bool {
	if x.totalLength == 0 {
		return false
	}
	x.currentIndex = 0
	return true
}

// MoveToLast positions the cursor at the last entry.
//
// Returns false when the sequence is empty.
func (x *Index) MoveToLast() bool {
	if x.totalLength == 0 {
		return false
	}
	x.currentIndex = x.totalLength - 1
	return true
}

// CalculateAfterAdd adjusts the cursor after count entries were inserted.
//
// Description:
//
//	atHead true means the entries were inserted before index 0; a cursor
//	pointing at an entry shifts forward so it keeps pointing at the same
//	logical entry. Tail inserts never move the cursor.
//
// Inputs:
//
//	count - Number of inserted entries. Non-positive counts are ignored.
//	atHead - True for head inserts, false for tail appends.
func (x *Index) CalculateAfterAdd(count int, atHead bool) {
	if count <= 0 {
		return
	}
	x.totalLength += count
	if atHead && x.currentIndex >= 0 {
		x.currentIndex += count
	}
}

// CalculateAfterRemove adjusts the cursor after count entries were
// removed.
//
// Description:
//
//	fromHead true means the oldest entries were evicted; a cursor past
//	the evicted range shifts back to track the same logical entry, and
//	a cursor inside it clamps to no-position. Tail removals clamp the
//	cursor to the new last entry.
//
// Inputs:
//
//	count - Number of removed entries. Non-positive counts are ignored.
//	fromHead - True for head evictions, false for tail truncations.
func (x *Index) CalculateAfterRemove(count int, fromHead bool) {
	if count <= 0 {
		return
	}
	if count > x.totalLength {
		count = x.totalLength
	}
	x.totalLength -= count

	if fromHead {
		if x.currentIndex >= 0 {
			x.currentIndex -= count
			if x.currentIndex < -1 {
				x.currentIndex = -1
			}
		}
	} else if x.currentIndex > x.totalLength-1 {
		x.currentIndex = x.totalLength - 1
	}
}

// CanUndo reports whether there is an earlier entry to step back to.
func (x *Index) CanUndo() bool {
	return x.currentIndex > 0
}

// CanRedo reports whether there is a later entry to step forward to.
func (x *Index) CanRedo() bool {
	return x.totalLength > 0 && x.currentIndex < x.totalLength-1
}
