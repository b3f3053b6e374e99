// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import "github.com/AleutianAI/reactor/atom"

// cell is the store's mutable record for one atom.
//
// Cells are created lazily on first get/set and live until the store is
// discarded. Dependency edges are ID sets rather than pointers, keeping
// the graph flat and cycle-free at the reference level.
//
// Invariant: a cell is never clean while any of its dependencies holds a
// higher epoch than the one recorded at its last computation. The store
// maintains this by marking the transitive dependent closure dirty on
// every committed value change.
type cell struct {
	// value is the cached value; meaningful only when has is true.
	value any

	// has is true once the cell holds a realized value.
	has bool

	// epoch is the store epoch at which the cell was last computed or
	// assigned.
	epoch uint64

	// dirty means the cached value may no longer reflect the current
	// values of the cell's dependencies.
	dirty bool

	// deps holds the atoms read during the last evaluation. Replaced
	// wholesale every evaluation so untaken branches are pruned.
	deps map[atom.ID]struct{}

	// dependents is the inverse index: atoms whose last evaluation read
	// this cell.
	dependents map[atom.ID]struct{}
}

func newCell() *cell {
	return &cell{
		deps:       make(map[atom.ID]struct{}),
		dependents: make(map[atom.ID]struct{}),
	}
}
