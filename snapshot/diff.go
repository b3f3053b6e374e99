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
	"encoding/json"
	"reflect"
	"sort"
)

// Diff computes the structural difference between two realized states.
//
// Description:
//
//	Compares per top-level path. Paths present only in next are added,
//	paths present only in prev are removed, paths in both with unequal
//	values are changed. Values are compared with reflect.DeepEqual.
//
// Inputs:
//
//	prev - State before the mutation. Nil is treated as empty.
//	next - State after the mutation. Nil is treated as empty.
//
// Outputs:
//
//	[]Change - Changes ordered by path. Empty slice if the states are
//	equal.
func Diff(prev, next map[string]any) []Change {
	paths := make(map[string]struct{}, len(prev)+len(next))
	for p := range prev {
		paths[p] = struct{}{}
	}
	for p := range next {
		paths[p] = struct{}{}
	}

	ordered := make([]string, 0, len(paths))
	for p := range paths {
		ordered = append(ordered, p)
	}
	sort.Strings(ordered)

	changes := make([]Change, 0)
	for _, p := range ordered {
		prevVal, inPrev := prev[p]
		nextVal, inNext := next[p]

		switch {
		case !inPrev:
			changes = append(changes, Change{Path: p, New: CloneValue(nextVal), Type: ChangeAdded})
		case !inNext:
			changes = append(changes, Change{Path: p, Previous: CloneValue(prevVal), Type: ChangeRemoved})
		case !reflect.DeepEqual(prevVal, nextVal):
			changes = append(changes, Change{
				Path:     p,
				Previous: CloneValue(prevVal),
				New:      CloneValue(nextVal),
				Type:     ChangeModified,
			})
		}
	}

	return changes
}

// Apply mutates state in place with the given changes.
//
// Added and changed paths are set to their new value; removed paths are
// deleted. Changes must be applied onto the state the delta was computed
// against; Apply does not verify preconditions.
func Apply(state map[string]any, changes []Change) {
	for _, c := range changes {
		switch c.Type {
		case ChangeRemoved:
			delete(state, c.Path)
		default:
			state[c.Path] = CloneValue(c.New)
		}
	}
}

// EncodedSize returns the serialized byte size of a change list.
//
// Used by the size-based cadence strategy. Values that fail to marshal
// contribute zero bytes; the strategy treats size as a heuristic, not an
// exact accounting.
func EncodedSize(changes []Change) int {
	data, err := json.Marshal(changes)
	if err != nil {
		return 0
	}
	return len(data)
}

// CloneState returns a deep copy of a realized state.
//
// Map and slice values are copied recursively; scalar values are shared,
// which is safe because read functions are pure and values are treated as
// immutable once stored.
func CloneState(state map[string]any) map[string]any {
	if state == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies nested map[string]any and []any structures.
func CloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = CloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = CloneValue(inner)
		}
		return out
	default:
		return v
	}
}
