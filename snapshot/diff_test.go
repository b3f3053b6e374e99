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
	"reflect"
	"testing"
)

func TestDiff_AddedRemovedChanged(t *testing.T) {
	prev := map[string]any{"a": 1, "b": "old", "c": true}
	next := map[string]any{"b": "new", "c": true, "d": 4}

	changes := Diff(prev, next)

	want := []Change{
		{Path: "a", Previous: 1, Type: ChangeRemoved},
		{Path: "b", Previous: "old", New: "new", Type: ChangeModified},
		{Path: "d", New: 4, Type: ChangeAdded},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("Diff = %+v, want %+v", changes, want)
	}
}

func TestDiff_EqualStates(t *testing.T) {
	state := map[string]any{"a": 1, "nested": map[string]any{"x": 2}}

	changes := Diff(state, CloneState(state))
	if len(changes) != 0 {
		t.Errorf("expected no changes, got %+v", changes)
	}
}

func TestDiff_NilStates(t *testing.T) {
	changes := Diff(nil, map[string]any{"a": 1})
	if len(changes) != 1 || changes[0].Type != ChangeAdded {
		t.Errorf("Diff(nil, ...) = %+v, want single added change", changes)
	}

	changes = Diff(map[string]any{"a": 1}, nil)
	if len(changes) != 1 || changes[0].Type != ChangeRemoved {
		t.Errorf("Diff(..., nil) = %+v, want single removed change", changes)
	}

	if got := Diff(nil, nil); len(got) != 0 {
		t.Errorf("Diff(nil, nil) = %+v, want empty", got)
	}
}

func TestDiff_OrderedByPath(t *testing.T) {
	prev := map[string]any{}
	next := map[string]any{"zebra": 1, "alpha": 2, "mid": 3}

	changes := Diff(prev, next)

	var paths []string
	for _, c := range changes {
		paths = append(paths, c.Path)
	}
	want := []string{"alpha", "mid", "zebra"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestApply_RoundTrip(t *testing.T) {
	prev := map[string]any{"a": 1, "b": "old", "gone": true}
	next := map[string]any{"a": 1, "b": "new", "added": 9}

	working := CloneState(prev)
	Apply(working, Diff(prev, next))

	if !reflect.DeepEqual(working, next) {
		t.Errorf("Apply(Diff) = %+v, want %+v", working, next)
	}
}

func TestCloneState_Isolation(t *testing.T) {
	orig := map[string]any{
		"nested": map[string]any{"x": 1},
		"list":   []any{1, 2, 3},
		"scalar": "v",
	}

	clone := CloneState(orig)
	clone["nested"].(map[string]any)["x"] = 99
	clone["list"].([]any)[0] = 99
	clone["scalar"] = "w"

	if orig["nested"].(map[string]any)["x"] != 1 {
		t.Error("nested map mutation leaked into original")
	}
	if orig["list"].([]any)[0] != 1 {
		t.Error("slice mutation leaked into original")
	}
	if orig["scalar"] != "v" {
		t.Error("scalar mutation leaked into original")
	}
}

func TestEncodedSize_Nonzero(t *testing.T) {
	size := EncodedSize([]Change{{Path: "a", New: 1, Type: ChangeAdded}})
	if size <= 0 {
		t.Errorf("EncodedSize = %d, want > 0", size)
	}
	if EncodedSize(nil) <= 0 {
		t.Error("EncodedSize(nil) should still serialize to 'null'")
	}
}
