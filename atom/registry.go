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
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Registry issues atom identities and keeps the name table.
//
// Description:
//
//	The registry is the explicit process-scoped owner of atom identities.
//	It is passed into store construction rather than living as an implicit
//	global, and must outlive every store referencing its atoms.
//
// Thread Safety:
//
//	All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	atoms  map[ID]*Atom
	byName map[string]*Atom
	seq    int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		atoms:  make(map[ID]*Atom),
		byName: make(map[string]*Atom),
	}
}

// Option customizes atom creation.
type Option func(*options)

type options struct {
	name string
}

// WithName gives the atom a stable name used as its state path in
// serialized state and history diffs.
//
// Names must be unique within a registry; registering a duplicate name
// panics, since atom definitions are load-time code, not runtime input.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// Primitive creates a plain value atom.
//
// Description:
//
//	The atom holds initial until the first set. Setting it replaces the
//	underlying value directly.
//
// Inputs:
//
//	initial - Initial value. May be nil.
//	opts - Optional settings (WithName).
//
// Outputs:
//
//	*Atom - The descriptor. Never nil.
func (r *Registry) Primitive(initial any, opts ...Option) *Atom {
	return r.register(&Atom{kind: KindPrimitive, initial: initial}, opts)
}

// Computed creates a derived atom.
//
// Description:
//
//	read is invoked lazily on first get and after invalidation. It must be
//	a pure, synchronous function of the values obtained through its get
//	capability.
//
// Inputs:
//
//	read - The read function. Must not be nil.
//	opts - Optional settings (WithName).
//
// Outputs:
//
//	*Atom - The descriptor. Never nil.
func (r *Registry) Computed(read ReadFunc, opts ...Option) *Atom {
	if read == nil {
		panic("atom: Computed requires a read function")
	}
	return r.register(&Atom{kind: KindComputed, read: read}, opts)
}

// Writable creates a primitive-like atom with a custom write rule.
//
// Description:
//
//	Reads behave like a primitive (the underlying value is returned).
//	Sets invoke write, which may perform nested get/set calls; writing to
//	the atom itself through the provided setter stores the value directly.
//
// Inputs:
//
//	initial - Initial underlying value.
//	write - The write function. Must not be nil.
//	opts - Optional settings (WithName).
//
// Outputs:
//
//	*Atom - The descriptor. Never nil.
func (r *Registry) Writable(initial any, write WriteFunc, opts ...Option) *Atom {
	if write == nil {
		panic("atom: Writable requires a write function")
	}
	return r.register(&Atom{kind: KindWritable, initial: initial, write: write}, opts)
}

func (r *Registry) register(a *Atom, opts []Option) *Atom {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	name := o.name
	if name == "" {
		name = fmt.Sprintf("atom-%d", r.seq)
	}
	if _, exists := r.byName[name]; exists {
		panic(fmt.Sprintf("atom: duplicate atom name %q", name))
	}

	a.id = ID(uuid.NewString())
	a.name = name

	r.atoms[a.id] = a
	r.byName[name] = a
	return a
}

// Lookup returns the atom with the given identity.
func (r *Registry) Lookup(id ID) (*Atom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.atoms[id]
	return a, ok
}

// ByName returns the atom registered under the given name.
func (r *Registry) ByName(name string) (*Atom, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byName[name]
	return a, ok
}

// Len returns the number of registered atoms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.atoms)
}
