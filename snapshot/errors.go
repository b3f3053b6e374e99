// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot provides full and delta snapshot entries, structural
// diffing, cadence strategies, and chain reconstruction.
//
// A history is a linear sequence of entries. Full entries are
// self-sufficient captures of the realized state; delta entries record the
// ordered changes relative to their immediate predecessor. A delta chain is
// valid only if every delta's predecessor reference resolves to the entry
// immediately before it with no gaps.
//
// # Ownership Model
//
// Entries are immutable once created; states handed out by Reconstruct and
// by the cache are defensive copies the caller may mutate freely.
//
// # Thread Safety
//
// Nothing in this package is safe for concurrent use. The store/history
// pair assumes exclusive access from one logical thread of control; this
// package inherits that contract.
package snapshot

import "errors"

// Sentinel errors for snapshot operations.
var (
	// ErrChainBroken is returned when a delta's predecessor reference does
	// not match the entry immediately preceding it.
	ErrChainBroken = errors.New("delta chain broken")

	// ErrMissingBase is returned when reconstruction finds no full
	// snapshot at or before the requested index.
	ErrMissingBase = errors.New("no full snapshot at or before index")

	// ErrIndexOutOfRange is returned when a reconstruction index falls
	// outside the entry sequence.
	ErrIndexOutOfRange = errors.New("snapshot index out of range")
)
