// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store provides the reactive value store: cells, dynamic
// dependency discovery, dirty propagation with lazy recompute, batched
// subscriber notification, and commit hooks for history capture.
//
// # Execution Model
//
// Single-threaded, synchronous, cooperative. Get and Set never suspend;
// read and write rules must be pure, synchronous functions. There is no
// internal locking: the store assumes exclusive, non-reentrant access from
// one logical thread of control, and commit hooks must never mutate the
// store they observe.
//
// # Lifecycle
//
// Create a store over a registry with New. Cells are created lazily on
// first get/set and destroyed only with the store. Listeners, observers,
// and commit hooks are registered at any time and removed via the returned
// cancel functions.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/reactor/atom"
	"github.com/AleutianAI/reactor/pkg/logging"
	"github.com/AleutianAI/reactor/snapshot"
)

// internalBatch prefixes batch ids opened by the store itself, keeping
// them out of EndBatch's id search.
const internalBatch = "\x00internal"

// Listener is a per-atom subscriber callback.
//
// Invoked after any committed batch in which the atom was recomputed or
// reachable from a changed root; at most once per batch.
type Listener func()

// Metadata attaches an action label to a mutation for history and audit
// consumers.
type Metadata struct {
	// Label is a human-readable action name ("increment", "load-profile").
	Label string

	// Source identifies the mutation origin ("ui", "devtools", "plugin").
	Source string
}

// Commit describes one committed batch, handed to commit hooks.
type Commit struct {
	// Label is the last non-empty metadata label seen in the batch.
	Label string

	// Source is the last non-empty metadata source seen in the batch.
	Source string

	// At is when the batch flushed.
	At time.Time

	// State maps atom names to realized clean values after the batch.
	State map[string]any
}

// CommitHook observes committed batches.
//
// Hooks run synchronously at flush, before listeners. A hook returning an
// error propagates it to the caller that closed the batch. Hooks must not
// mutate the store; a set during hook execution fails with
// ErrReentrantCapture.
type CommitHook func(Commit) error

// Store owns atom cells, the dependency graph, and notification state.
//
// Thread Safety:
//
//	NOT safe for concurrent use. See the package comment.
type Store struct {
	registry *atom.Registry
	cells    map[atom.ID]*cell
	epoch    uint64

	subs         map[atom.ID]map[int]Listener
	nextSub      int
	observers    map[int]func(Event)
	nextObserver int
	journal      *ringBuffer[Event]

	hooks          []CommitHook
	inCapture      bool
	suppressCommit bool

	batch         []string
	pendingDirty  map[atom.ID]struct{}
	pendingEvents []Event
	pendingMeta   Metadata

	evalStack []*atom.Atom

	logger *logging.Logger
}

// Option customizes store construction.
type Option func(*Store)

// WithLogger injects a logger; Default() is used when absent.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithJournalCapacity bounds the change-event journal.
func WithJournalCapacity(n int) Option {
	return func(s *Store) {
		s.journal = newRingBuffer[Event](n)
	}
}

// New creates a store over the given registry.
//
// Inputs:
//
//	registry - Issues the atoms this store resolves. Must not be nil and
//	must outlive the store.
//	opts - Optional settings.
//
// Outputs:
//
//	*Store - Ready-to-use store. Never nil.
func New(registry *atom.Registry, opts ...Option) *Store {
	if registry == nil {
		panic("store: registry must not be nil")
	}

	s := &Store{
		registry:     registry,
		cells:        make(map[atom.ID]*cell),
		subs:         make(map[atom.ID]map[int]Listener),
		observers:    make(map[int]func(Event)),
		journal:      newRingBuffer[Event](256),
		pendingDirty: make(map[atom.ID]struct{}),
		logger:       logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the registry the store resolves atoms against.
func (s *Store) Registry() *atom.Registry {
	return s.registry
}

// Get resolves an atom's current value.
//
// Description:
//
//	Clean cells return their cached value without invoking any read
//	rule. Dirty or unrealized computed cells are evaluated with a
//	tracking getter: every nested dependency read is resolved through
//	this same algorithm and recorded in a fresh dependency set, replacing
//	the previous one entirely so conditional dependencies are pruned.
//
// Inputs:
//
//	a - The atom to resolve. Must belong to this store's registry.
//
// Outputs:
//
//	any - The value.
//	error - CycleError if the atom transitively depends on itself, or
//	ComputationError if a read rule fails. The cell stays dirty on
//	failure.
func (s *Store) Get(a *atom.Atom) (any, error) {
	recordGet(context.Background())
	return s.resolve(a)
}

func (s *Store) resolve(a *atom.Atom) (any, error) {
	c := s.cellFor(a.ID())
	if c.has && !c.dirty {
		return c.value, nil
	}

	if a.Kind() != atom.KindComputed {
		if !c.has {
			c.value = a.Initial()
			c.has = true
			c.epoch = s.epoch
		}
		c.dirty = false
		return c.value, nil
	}

	for i, onStack := range s.evalStack {
		if onStack.ID() == a.ID() {
			chain := make([]string, 0, len(s.evalStack)-i+1)
			for _, sa := range s.evalStack[i:] {
				chain = append(chain, sa.Name())
			}
			chain = append(chain, a.Name())
			return nil, &CycleError{Chain: chain}
		}
	}

	s.evalStack = append(s.evalStack, a)
	newDeps := make(map[atom.ID]struct{})
	getter := func(dep *atom.Atom) (any, error) {
		v, err := s.resolve(dep)
		if err != nil {
			return nil, err
		}
		newDeps[dep.ID()] = struct{}{}
		return v, nil
	}

	v, err := a.Read()(getter)
	s.evalStack = s.evalStack[:len(s.evalStack)-1]

	if err != nil {
		// Cell stays dirty: no partial caching of a failed computation.
		if errors.Is(err, ErrCycleDetected) || errors.Is(err, ErrComputation) {
			return nil, err
		}
		return nil, &ComputationError{Atom: a.Name(), Err: err}
	}

	s.rewireDeps(a.ID(), c, newDeps)
	c.value = v
	c.has = true
	c.dirty = false
	c.epoch = s.epoch
	recordRecompute(context.Background())
	return v, nil
}

// Set replaces an atom's underlying value.
//
// Description:
//
//	Fails with ErrNotWritable for computed atoms. Primitive atoms are
//	replaced directly; writable atoms run their write rule, whose nested
//	get/set calls coalesce into the same commit. After the underlying
//	value changes, the atom and the full transitive closure of its
//	dependents are marked dirty (each at most once), but nothing is
//	recomputed until the next Get.
//
// Inputs:
//
//	a - The target atom.
//	value - The new value.
//
// Outputs:
//
//	error - ErrNotWritable, ErrReentrantCapture, a ComputationError from
//	a write rule, or a commit hook error.
func (s *Store) Set(a *atom.Atom, value any) error {
	return s.SetWithMetadata(a, value, Metadata{})
}

// Update resolves the current value, applies fn, and sets the result.
func (s *Store) Update(a *atom.Atom, fn func(old any) any) error {
	cur, err := s.Get(a)
	if err != nil {
		return err
	}
	return s.Set(a, fn(cur))
}

// SetWithMetadata is Set with an action label attached for history and
// audit consumers.
func (s *Store) SetWithMetadata(a *atom.Atom, value any, meta Metadata) error {
	if s.inCapture {
		return fmt.Errorf("%w: set of %s", ErrReentrantCapture, a.Name())
	}
	if !a.Writable() {
		return fmt.Errorf("%w: %s atom %s", ErrNotWritable, a.Kind(), a.Name())
	}

	s.beginBatch(internalBatch)
	if meta.Label != "" || meta.Source != "" {
		s.pendingMeta = meta
	}

	var werr error
	switch a.Kind() {
	case atom.KindPrimitive:
		s.replaceValue(a, value, meta, EventSet)
	case atom.KindWritable:
		werr = a.Write()(s.plainGetter(), s.setterFor(a, meta), value)
		if werr != nil && !errors.Is(werr, ErrCycleDetected) &&
			!errors.Is(werr, ErrComputation) && !errors.Is(werr, ErrNotWritable) {
			werr = &ComputationError{Atom: a.Name(), Err: werr}
		}
	}

	ferr := s.endBatch()
	if werr != nil {
		return werr
	}
	return ferr
}

// plainGetter resolves dependencies for write rules without registering
// dependency edges; only read rules track dependencies.
func (s *Store) plainGetter() atom.Getter {
	return func(dep *atom.Atom) (any, error) {
		return s.resolve(dep)
	}
}

// setterFor builds the set capability handed to a write rule. Setting the
// rule's own atom stores the value directly instead of recursing into the
// rule.
func (s *Store) setterFor(self *atom.Atom, meta Metadata) atom.Setter {
	return func(target *atom.Atom, value any) error {
		if target.ID() == self.ID() {
			s.replaceValue(target, value, meta, EventSet)
			return nil
		}
		if !target.Writable() {
			return fmt.Errorf("%w: %s atom %s", ErrNotWritable, target.Kind(), target.Name())
		}
		if target.Kind() == atom.KindPrimitive {
			s.replaceValue(target, value, meta, EventSet)
			return nil
		}
		return target.Write()(s.plainGetter(), s.setterFor(target, meta), value)
	}
}

// replaceValue commits a new underlying value and invalidates dependents.
func (s *Store) replaceValue(a *atom.Atom, value any, meta Metadata, typ EventType) {
	c := s.cellFor(a.ID())
	var prev any
	if c.has {
		prev = c.value
	}

	s.epoch++
	c.value = value
	c.has = true
	c.dirty = false
	c.epoch = s.epoch

	s.markDirty(a.ID())

	ev := Event{
		Atom:     a.Name(),
		AtomID:   a.ID(),
		Type:     typ,
		Previous: prev,
		Value:    value,
		Label:    meta.Label,
		Source:   meta.Source,
		At:       time.Now(),
	}
	s.journal.Push(ev)
	s.pendingEvents = append(s.pendingEvents, ev)
	recordSet(context.Background())
}

// markDirty marks the atom and the transitive closure of its dependents
// dirty, breadth-first, each at most once per call.
func (s *Store) markDirty(root atom.ID) {
	visited := map[atom.ID]struct{}{root: {}}
	s.pendingDirty[root] = struct{}{}

	queue := []atom.ID{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		c, ok := s.cells[id]
		if !ok {
			continue
		}
		for depID := range c.dependents {
			if _, seen := visited[depID]; seen {
				continue
			}
			visited[depID] = struct{}{}
			if dc, ok := s.cells[depID]; ok {
				dc.dirty = true
			}
			s.pendingDirty[depID] = struct{}{}
			queue = append(queue, depID)
		}
	}
}

// rewireDeps replaces a computed cell's dependency set, updating inverse
// edges on both sides.
func (s *Store) rewireDeps(id atom.ID, c *cell, newDeps map[atom.ID]struct{}) {
	for old := range c.deps {
		if _, still := newDeps[old]; !still {
			if oc, ok := s.cells[old]; ok {
				delete(oc.dependents, id)
			}
		}
	}
	for nd := range newDeps {
		if _, had := c.deps[nd]; !had {
			s.cellFor(nd).dependents[id] = struct{}{}
		}
	}
	c.deps = newDeps
}

// Subscribe registers a listener for one atom.
//
// Description:
//
//	The listener fires after any committed batch in which the atom was
//	recomputed or reachable from a changed root, at most once per batch.
//	A panicking listener is logged and isolated; remaining listeners
//	still fire.
//
// Outputs:
//
//	func() - Unsubscribes. Safe to call more than once.
func (s *Store) Subscribe(a *atom.Atom, l Listener) func() {
	s.nextSub++
	id := s.nextSub

	if s.subs[a.ID()] == nil {
		s.subs[a.ID()] = make(map[int]Listener)
	}
	s.subs[a.ID()][id] = l

	atomID := a.ID()
	return func() {
		if m, ok := s.subs[atomID]; ok {
			delete(m, id)
		}
	}
}

// OnCommit registers a commit hook. Used by the history engine.
func (s *Store) OnCommit(h CommitHook) {
	s.hooks = append(s.hooks, h)
}

// Batch runs fn with listener notification suspended.
//
// Description:
//
//	Mutations inside fn coalesce into a single commit with one
//	notification pass per affected atom. Nested batches coalesce into
//	the outermost one. The batch closes and flushes even when fn
//	panics, so an error path cannot leak a permanently-suspended
//	notification state.
//
// Inputs:
//
//	fn - The batch body. Its error is returned after the flush.
//
// Outputs:
//
//	error - fn's error, or a flush (commit hook) error when fn succeeds.
func (s *Store) Batch(fn func() error) (err error) {
	s.beginBatch(internalBatch)
	defer func() {
		ferr := s.endBatch()
		if err == nil {
			err = ferr
		}
	}()
	return fn()
}

// StartBatch opens a batch keyed by a caller-supplied identifier, so
// independent instrumentation layers can nest safely.
func (s *Store) StartBatch(id string) {
	s.beginBatch(id)
}

// EndBatch closes the most recent open batch with the given identifier.
//
// Outputs:
//
//	error - ErrUnknownBatch if no open batch carries the id, otherwise
//	the flush result when this close ended the outermost batch.
func (s *Store) EndBatch(id string) error {
	for i := len(s.batch) - 1; i >= 0; i-- {
		if s.batch[i] == id {
			s.batch = append(s.batch[:i], s.batch[i+1:]...)
			if len(s.batch) == 0 {
				return s.flush()
			}
			return nil
		}
	}
	s.logger.Warn("EndBatch without matching StartBatch", "id", id)
	return fmt.Errorf("%w: %s", ErrUnknownBatch, id)
}

func (s *Store) beginBatch(id string) {
	s.batch = append(s.batch, id)
}

func (s *Store) endBatch() error {
	s.batch = s.batch[:len(s.batch)-1]
	if len(s.batch) == 0 {
		return s.flush()
	}
	return nil
}

// flush runs commit hooks, then observers, then listeners, for everything
// accumulated in the closed batch.
func (s *Store) flush() error {
	if len(s.pendingDirty) == 0 && len(s.pendingEvents) == 0 {
		return nil
	}
	start := time.Now()

	dirty := s.pendingDirty
	events := s.pendingEvents
	meta := s.pendingMeta
	s.pendingDirty = make(map[atom.ID]struct{})
	s.pendingEvents = nil
	s.pendingMeta = Metadata{}

	var hookErr error
	if !s.suppressCommit && len(s.hooks) > 0 {
		commit := Commit{
			Label:  meta.Label,
			Source: meta.Source,
			At:     time.Now(),
			State:  s.realizedState(),
		}
		s.inCapture = true
		for _, h := range s.hooks {
			if err := h(commit); err != nil && hookErr == nil {
				hookErr = err
			}
		}
		s.inCapture = false
	}

	for _, ev := range events {
		for _, obs := range s.observers {
			s.safeNotifyEvent(obs, ev)
		}
	}

	for id := range dirty {
		for _, l := range s.subs[id] {
			s.safeNotify(l)
		}
	}

	recordFlush(context.Background(), time.Since(start), len(dirty))
	return hookErr
}

func (s *Store) safeNotify(l Listener) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("listener panicked", "panic", r)
		}
	}()
	l()
}

func (s *Store) safeNotifyEvent(obs func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("observer panicked", "panic", r)
		}
	}()
	obs(ev)
}

// realizedState maps atom names to values for cells that are realized and
// clean. Never forces computation.
func (s *Store) realizedState() map[string]any {
	state := make(map[string]any)
	for id, c := range s.cells {
		if !c.has || c.dirty {
			continue
		}
		a, ok := s.registry.Lookup(id)
		if !ok {
			continue
		}
		state[a.Name()] = c.value
	}
	return snapshot.CloneState(state)
}

// GetState returns a snapshot of all currently realized clean cell
// values, keyed by atom name.
//
// Never forces computation of atoms nobody has read yet. The returned map
// is a copy owned by the caller.
func (s *Store) GetState() map[string]any {
	return s.realizedState()
}

// SerializeState returns the realized state as JSON, for external
// inspection and export.
func (s *Store) SerializeState() ([]byte, error) {
	data, err := json.Marshal(s.realizedState())
	if err != nil {
		return nil, fmt.Errorf("serialize state: %w", err)
	}
	return data, nil
}

// RestoreState pushes a materialized historical state back into the
// store.
//
// Description:
//
//	Used by the history engine to realize undo/redo. Underlying values
//	named in state are replaced; realized cells absent from state are
//	reset (primitives fall back to their initial value on next get,
//	computed cells are invalidated). Dependents of every touched value
//	are marked dirty. Commit hooks are suppressed for the whole restore,
//	so realizing a historical state never captures a new history entry;
//	listeners and observers fire once, as for any batch.
//
// Inputs:
//
//	state - Atom name to value mapping, as produced by GetState or chain
//	reconstruction.
//
// Outputs:
//
//	error - ErrReentrantCapture when called from inside a commit hook.
func (s *Store) RestoreState(state map[string]any) error {
	if s.inCapture {
		return fmt.Errorf("%w: restore", ErrReentrantCapture)
	}

	s.suppressCommit = true
	defer func() { s.suppressCommit = false }()

	s.beginBatch(internalBatch)

	// Reset realized cells that the target state does not mention.
	for id, c := range s.cells {
		if !c.has {
			continue
		}
		a, ok := s.registry.Lookup(id)
		if !ok {
			continue
		}
		if _, present := state[a.Name()]; present {
			continue
		}
		if a.Kind() == atom.KindComputed {
			if !c.dirty {
				c.dirty = true
				s.pendingDirty[id] = struct{}{}
			}
			continue
		}
		c.value = nil
		c.has = false
		c.dirty = false
		s.markDirty(id)
	}

	// Restore underlying values first, then cached computed values, so a
	// restored computed cell ends the batch clean.
	for name, v := range state {
		a, ok := s.registry.ByName(name)
		if !ok {
			s.logger.Warn("unknown state path during restore", "path", name)
			continue
		}
		if a.Kind() == atom.KindComputed {
			continue
		}
		s.replaceValue(a, v, Metadata{Source: "restore"}, EventRestore)
	}
	for name, v := range state {
		a, ok := s.registry.ByName(name)
		if !ok || a.Kind() != atom.KindComputed {
			continue
		}
		c := s.cellFor(a.ID())
		c.value = v
		c.has = true
		c.dirty = false
		c.epoch = s.epoch
	}

	return s.endBatch()
}

// Epoch returns the store's current epoch counter.
func (s *Store) Epoch() uint64 {
	return s.epoch
}

func (s *Store) cellFor(id atom.ID) *cell {
	c, ok := s.cells[id]
	if !ok {
		c = newCell()
		s.cells[id] = c
	}
	return c
}
