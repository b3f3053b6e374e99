// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package atom provides atom descriptors and the registry that issues them.
//
// An atom is an identity plus a pure value-computation rule (and an optional
// write rule). Atoms carry no runtime state: cached values, dependency sets,
// and dirty flags all live in the store package. Atoms are created once,
// typically at module load, and live for the process lifetime.
//
// # Ownership Model
//
// The registry owns the identity space:
//   - Every atom gets a fresh UUID identity, never reused
//   - Two atoms with identical definitions are still distinct
//   - Atoms MUST NOT be mutated after creation (they are value descriptors)
//
// # Thread Safety
//
// Registry is safe for concurrent use. Atom values are immutable after
// creation and therefore safe to share.
package atom

// ID is the opaque unique identity of an atom.
type ID string

// Kind discriminates the three atom variants.
//
// Dispatch over kind is explicit rather than inferred from the presence of
// read/write functions, so a store can reject invalid operations up front.
type Kind int

const (
	// KindPrimitive holds a plain value; set replaces it directly.
	KindPrimitive Kind = iota

	// KindComputed derives its value from other atoms via a read function
	// and cannot be set.
	KindComputed

	// KindWritable holds a plain value like a primitive but routes set
	// calls through a custom write function.
	KindWritable
)

// String returns the kind name for logs and errors.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindComputed:
		return "computed"
	case KindWritable:
		return "writable"
	default:
		return "unknown"
	}
}

// Getter resolves another atom's current value during evaluation.
//
// Calling it from inside a ReadFunc both returns the dependency's value and
// registers a dependency edge for the atom under evaluation.
type Getter func(dep *Atom) (any, error)

// Setter writes a value to another atom during a write rule.
//
// When called with the atom whose write rule is executing, the value is
// stored directly as the atom's underlying value; this is the escape hatch
// that lets a writable atom update itself without recursing into its own
// write rule.
type Setter func(target *Atom, value any) error

// ReadFunc computes a derived value from dependencies.
//
// Must be a pure, synchronous function of the values obtained through get.
// Any error returned propagates to the caller of the store's Get and the
// result is not cached.
type ReadFunc func(get Getter) (any, error)

// WriteFunc translates an external set call into underlying mutations.
//
// value is the already-resolved incoming value. The function may perform
// arbitrary nested get/set calls; all of them coalesce into the same commit.
type WriteFunc func(get Getter, set Setter, value any) error

// Atom is an immutable value descriptor.
//
// Construct through a Registry; the zero value is not usable.
type Atom struct {
	id      ID
	name    string
	kind    Kind
	initial any
	read    ReadFunc
	write   WriteFunc
}

// ID returns the atom's unique identity token.
func (a *Atom) ID() ID { return a.id }

// Name returns the stable name used as the atom's state path.
//
// Names are unique within a registry; unnamed atoms get a generated
// "atom-<seq>" name.
func (a *Atom) Name() string { return a.name }

// Kind returns the atom's variant.
func (a *Atom) Kind() Kind { return a.kind }

// Initial returns the initial value for primitive and writable atoms.
//
// Always nil for computed atoms.
func (a *Atom) Initial() any { return a.initial }

// Read returns the read function. Nil unless the atom is computed.
func (a *Atom) Read() ReadFunc { return a.read }

// Write returns the write function. Nil unless the atom is writable.
func (a *Atom) Write() WriteFunc { return a.write }

// Writable reports whether set calls are legal for this atom.
func (a *Atom) Writable() bool {
	return a.kind == KindPrimitive || a.kind == KindWritable
}
