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
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind discriminates full and delta entries.
type Kind int

const (
	// KindFull is a complete, self-sufficient capture of realized state.
	KindFull Kind = iota

	// KindDelta is a minimal diff relative to the immediately preceding
	// entry.
	KindDelta
)

// String returns the kind name for logs and metrics labels.
func (k Kind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindDelta:
		return "delta"
	default:
		return "unknown"
	}
}

// ChangeType classifies one path's transition within a delta.
type ChangeType string

const (
	// ChangeAdded means the path exists in the new state only.
	ChangeAdded ChangeType = "added"

	// ChangeRemoved means the path exists in the previous state only.
	ChangeRemoved ChangeType = "removed"

	// ChangeModified means the path exists in both states with different
	// values.
	ChangeModified ChangeType = "changed"
)

// Change records one path's transition between two states.
type Change struct {
	// Path is the state path (atom name).
	Path string `json:"path"`

	// Previous is the value before the change. Nil for added paths.
	Previous any `json:"previous_value"`

	// New is the value after the change. Nil for removed paths.
	New any `json:"new_value"`

	// Type classifies the transition.
	Type ChangeType `json:"change_type"`
}

// Entry is one history entry, either a full snapshot or a delta.
//
// Entries are immutable after creation. IDs are ULIDs, so they sort by
// creation time, which keeps logs and exported histories readable.
type Entry struct {
	// ID uniquely identifies the entry.
	ID string

	// Kind is full or delta.
	Kind Kind

	// Label is the caller-supplied action label, if any.
	Label string

	// Source identifies what produced the mutation ("set", "batch",
	// "collapse", ...).
	Source string

	// CapturedAt is when the entry was recorded.
	CapturedAt time.Time

	// State is the complete realized state. Populated for full entries
	// only.
	State map[string]any

	// Changes is the ordered change list. Populated for delta entries
	// only.
	Changes []Change

	// ParentID references the immediately preceding entry. Populated for
	// delta entries only.
	ParentID string
}

// NewFull creates a full snapshot entry.
//
// The state is cloned; later mutations of the input do not affect the
// entry.
func NewFull(state map[string]any, label, source string) *Entry {
	return &Entry{
		ID:         ulid.Make().String(),
		Kind:       KindFull,
		Label:      label,
		Source:     source,
		CapturedAt: time.Now(),
		State:      CloneState(state),
	}
}

// NewDelta creates a delta entry anchored to the entry with parentID.
func NewDelta(changes []Change, parentID, label, source string) *Entry {
	return &Entry{
		ID:         ulid.Make().String(),
		Kind:       KindDelta,
		Label:      label,
		Source:     source,
		CapturedAt: time.Now(),
		Changes:    changes,
		ParentID:   parentID,
	}
}
