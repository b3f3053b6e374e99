// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package atom

import (
	"testing"
)

func TestRegistry_Primitive(t *testing.T) {
	r := NewRegistry()
	a := r.Primitive(42, WithName("count"))

	if a.Kind() != KindPrimitive {
		t.Errorf("Kind = %v, want primitive", a.Kind())
	}
	if a.Initial() != 42 {
		t.Errorf("Initial = %v, want 42", a.Initial())
	}
	if a.Name() != "count" {
		t.Errorf("Name = %q, want count", a.Name())
	}
	if !a.Writable() {
		t.Error("primitive should be writable")
	}
	if a.Read() != nil || a.Write() != nil {
		t.Error("primitive should have no read or write function")
	}
}

func TestRegistry_IdentityUnique(t *testing.T) {
	r := NewRegistry()

	// Identical definitions still get distinct identities.
	a := r.Primitive(0)
	b := r.Primitive(0)

	if a.ID() == b.ID() {
		t.Errorf("two atoms share identity %q", a.ID())
	}
	if a.Name() == b.Name() {
		t.Errorf("two unnamed atoms share generated name %q", a.Name())
	}
}

func TestRegistry_Computed(t *testing.T) {
	r := NewRegistry()
	a := r.Computed(func(get Getter) (any, error) { return 1, nil })

	if a.Kind() != KindComputed {
		t.Errorf("Kind = %v, want computed", a.Kind())
	}
	if a.Writable() {
		t.Error("computed atom must not be writable")
	}
	if a.Read() == nil {
		t.Error("computed atom must carry a read function")
	}
}

func TestRegistry_ComputedNilReadPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil read function")
		}
	}()
	NewRegistry().Computed(nil)
}

func TestRegistry_Writable(t *testing.T) {
	r := NewRegistry()
	a := r.Writable("x", func(get Getter, set Setter, value any) error { return nil })

	if a.Kind() != KindWritable {
		t.Errorf("Kind = %v, want writable", a.Kind())
	}
	if !a.Writable() {
		t.Error("writable atom should be writable")
	}
	if a.Write() == nil {
		t.Error("writable atom must carry a write function")
	}
	if a.Initial() != "x" {
		t.Errorf("Initial = %v, want x", a.Initial())
	}
}

func TestRegistry_DuplicateNamePanics(t *testing.T) {
	r := NewRegistry()
	r.Primitive(1, WithName("dup"))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate name")
		}
	}()
	r.Primitive(2, WithName("dup"))
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	a := r.Primitive(7, WithName("seven"))

	got, ok := r.Lookup(a.ID())
	if !ok || got != a {
		t.Fatal("Lookup by ID failed")
	}

	got, ok = r.ByName("seven")
	if !ok || got != a {
		t.Fatal("ByName failed")
	}

	if _, ok := r.ByName("missing"); ok {
		t.Error("ByName should miss unknown names")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindPrimitive, "primitive"},
		{KindComputed, "computed"},
		{KindWritable, "writable"},
		{Kind(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
