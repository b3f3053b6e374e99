// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"fmt"
	"time"

	"github.com/AleutianAI/reactor/pkg/logging"
	"github.com/AleutianAI/reactor/snapshot"
	"github.com/AleutianAI/reactor/store"
)

// EntryMeta is the payload-free view of one history entry, for listings
// and external inspection.
type EntryMeta struct {
	// Seq is the absolute sequence number. Sequence numbers are assigned
	// at capture and survive eviction; the oldest retained entry's Seq
	// rises as the head is evicted.
	Seq int

	// ID is the entry's ULID.
	ID string

	// Kind is full or delta.
	Kind snapshot.Kind

	// Label is the caller-supplied action label, if any.
	Label string

	// Source identifies what produced the entry.
	Source string

	// CapturedAt is when the entry was recorded.
	CapturedAt time.Time

	// Changes is the number of changed paths (zero for full entries).
	Changes int
}

// Engine captures store commits as a navigable timeline of full and delta
// snapshots.
//
// Description:
//
//	The engine registers itself as a commit hook on the store; every
//	committed set or batch becomes at most one history entry. A cadence
//	strategy decides full versus delta per capture. Undo, redo and jumps
//	reconstruct the target state from the nearest full snapshot plus its
//	delta chain and push it back into the store. Retention is bounded:
//	evicting the oldest entry first collapses its successor into a full
//	snapshot when that successor is a delta, so every retained entry
//	stays reconstructable.
//
// Thread Safety:
//
//	NOT safe for concurrent use. The engine shares the store's
//	single-threaded cooperative contract.
type Engine struct {
	store    *store.Store
	cfg      Config
	strategy snapshot.Strategy

	entries []*snapshot.Entry
	index   Index
	evicted int

	deltasSinceFull int
	lastFullAt      time.Time
	lastState       map[string]any

	cache  *snapshot.Cache
	logger *logging.Logger
}

// Option customizes engine construction.
type Option func(*Engine)

// WithLogger injects a logger; Default() is used when absent.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine attaches a history engine to a store.
//
// Description:
//
//	Validates the configuration, builds the cadence strategy, records a
//	baseline full snapshot of the store's current realized state labeled
//	"initial", and registers a commit hook so every subsequent committed
//	mutation is captured.
//
// Inputs:
//
//	st - The store to track. Must not be nil.
//	cfg - Engine configuration; DefaultConfig() for the embedded
//	defaults.
//	opts - Optional settings.
//
// Outputs:
//
//	*Engine - The attached engine.
//	error - Non-nil when the configuration is invalid.
func NewEngine(st *store.Store, cfg Config, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("history: store must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := cfg.BuildStrategy()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:    st,
		cfg:      cfg,
		strategy: strategy,
		index:    NewIndex(),
		logger:   logging.Default(),
	}
	if cfg.CacheSize > 0 {
		e.cache = snapshot.NewCache(cfg.CacheSize)
	}
	for _, opt := range opts {
		opt(e)
	}

	baseline := snapshot.NewFull(st.GetState(), "initial", "init")
	e.entries = append(e.entries, baseline)
	e.index.CalculateAfterAdd(1, false)
	e.index.MoveToLast()
	e.lastState = snapshot.CloneState(baseline.State)
	e.lastFullAt = baseline.CapturedAt
	capturesTotal.WithLabelValues(snapshot.KindFull.String()).Inc()
	entriesGauge.Set(float64(len(e.entries)))

	st.OnCommit(e.handleCommit)

	e.logger.Debug("history engine attached",
		"strategy", strategy.Name(),
		"max_entries", cfg.MaxEntries,
		"cache_size", cfg.CacheSize)
	return e, nil
}

// handleCommit is the store commit hook; one committed batch becomes at
// most one history entry.
func (e *Engine) handleCommit(c store.Commit) error {
	_, err := e.capture(c.State, c.Label, commitSource(c.Source), false)
	return err
}

func commitSource(s string) string {
	if s == "" {
		return "set"
	}
	return s
}

// Capture records a snapshot of the store's current realized state
// outside the commit flow.
//
// A manual capture always produces an entry: a full snapshot when nothing
// changed since the cursor state, otherwise full or delta per the cadence
// strategy.
//
// Outputs:
//
//	string - The new entry's ID.
//	error - Non-nil when a rewind truncation fails internally.
func (e *Engine) Capture(label string) (string, error) {
	return e.capture(e.store.GetState(), label, "manual", true)
}

// capture appends one entry for the given state.
//
// When the cursor sits before the newest entry, the redo tail beyond the
// cursor is discarded first, so the timeline stays linear.
func (e *Engine) capture(state map[string]any, label, source string, force bool) (string, error) {
	start := time.Now()

	e.truncateRedoTail()

	changes := snapshot.Diff(e.lastState, state)
	if len(changes) == 0 && !force {
		return "", nil
	}

	paths := make([]string, len(changes))
	for i, ch := range changes {
		paths[i] = ch.Path
	}
	decision := snapshot.Decision{
		ChainLength:  e.deltasSinceFull,
		Elapsed:      time.Since(e.lastFullAt),
		DeltaSize:    snapshot.EncodedSize(changes),
		ChangedPaths: paths,
		TrackedPaths: len(state),
	}

	var entry *snapshot.Entry
	if len(changes) == 0 || len(e.entries) == 0 || e.strategy.TakeFull(decision) {
		entry = snapshot.NewFull(state, label, source)
		e.deltasSinceFull = 0
		e.lastFullAt = entry.CapturedAt
	} else {
		parent := e.entries[len(e.entries)-1]
		entry = snapshot.NewDelta(changes, parent.ID, label, source)
		e.deltasSinceFull++
	}

	e.entries = append(e.entries, entry)
	e.index.CalculateAfterAdd(1, false)
	e.index.MoveToLast()
	e.lastState = snapshot.CloneState(state)

	for len(e.entries) > e.cfg.MaxEntries {
		if err := e.evictOldest(); err != nil {
			return "", err
		}
	}

	capturesTotal.WithLabelValues(entry.Kind.String()).Inc()
	entriesGauge.Set(float64(len(e.entries)))
	captureDuration.Observe(time.Since(start).Seconds())

	e.logger.Debug("captured history entry",
		"id", entry.ID,
		"kind", entry.Kind.String(),
		"label", label,
		"source", source,
		"changes", len(changes))
	return entry.ID, nil
}

// truncateRedoTail discards entries after the cursor before a new capture.
func (e *Engine) truncateRedoTail() {
	cur := e.index.Current()
	if cur < 0 || cur >= len(e.entries)-1 {
		return
	}
	for _, dropped := range e.entries[cur+1:] {
		if e.cache != nil {
			e.cache.Invalidate(dropped.ID)
		}
	}
	tail := len(e.entries) - (cur + 1)
	e.entries = e.entries[:cur+1]
	e.index.CalculateAfterRemove(tail, false)
	e.recomputeChainState()
}

// recomputeChainState rebuilds deltasSinceFull and lastFullAt from the
// retained entries after a truncation.
func (e *Engine) recomputeChainState() {
	e.deltasSinceFull = 0
	for i := len(e.entries) - 1; i >= 0; i-- {
		if e.entries[i].Kind == snapshot.KindFull {
			e.lastFullAt = e.entries[i].CapturedAt
			return
		}
		e.deltasSinceFull++
	}
}

// evictOldest drops the head entry, collapsing its successor into a full
// snapshot first when that successor is a delta.
func (e *Engine) evictOldest() error {
	if len(e.entries) < 2 {
		return nil
	}
	if e.entries[1].Kind == snapshot.KindDelta {
		collapsed, err := snapshot.Collapse(e.entries, 1)
		if err != nil {
			return fmt.Errorf("collapse before eviction: %w", err)
		}
		if e.cache != nil {
			e.cache.Invalidate(e.entries[1].ID)
		}
		e.entries[1] = collapsed
		collapsesTotal.Inc()
	}
	if e.cache != nil {
		e.cache.Invalidate(e.entries[0].ID)
	}
	e.entries = e.entries[1:]
	e.evicted++
	e.index.CalculateAfterRemove(1, true)
	evictionsTotal.Inc()
	return nil
}

// stateAtPos reconstructs the state at a retained position, consulting
// the reconstruction cache first.
func (e *Engine) stateAtPos(pos int) (map[string]any, error) {
	if e.cache != nil {
		if st, ok := e.cache.Get(e.entries[pos].ID); ok {
			return st, nil
		}
	}
	st, err := snapshot.Reconstruct(e.entries, pos)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Put(e.entries[pos].ID, st)
	}
	return st, nil
}

// restoreAt reconstructs the state at pos and pushes it into the store,
// then moves the cursor there.
func (e *Engine) restoreAt(pos int, op string) bool {
	st, err := e.stateAtPos(pos)
	if err != nil {
		e.logger.Warn("state reconstruction failed", "op", op, "position", pos, "error", err)
		navigationsTotal.WithLabelValues(op, "error").Inc()
		return false
	}
	if err := e.store.RestoreState(snapshot.CloneState(st)); err != nil {
		e.logger.Warn("state restore failed", "op", op, "position", pos, "error", err)
		navigationsTotal.WithLabelValues(op, "error").Inc()
		return false
	}
	e.index.MoveTo(pos)
	e.lastState = snapshot.CloneState(st)
	navigationsTotal.WithLabelValues(op, "ok").Inc()
	return true
}

// Undo steps the cursor back one entry and restores that state.
//
// Returns false without mutating the store when there is no earlier
// entry or reconstruction fails.
func (e *Engine) Undo() bool {
	if !e.index.CanUndo() {
		navigationsTotal.WithLabelValues("undo", "denied").Inc()
		return false
	}
	return e.restoreAt(e.index.Current()-1, "undo")
}

// Redo steps the cursor forward one entry and restores that state.
//
// Returns false without mutating the store when there is no later entry
// or reconstruction fails.
func (e *Engine) Redo() bool {
	if !e.index.CanRedo() {
		navigationsTotal.WithLabelValues("redo", "denied").Inc()
		return false
	}
	return e.restoreAt(e.index.Current()+1, "redo")
}

// JumpTo moves the cursor to an absolute sequence number and restores
// that state.
//
// Returns false without mutating the store when seq names an evicted or
// unknown entry, or reconstruction fails.
func (e *Engine) JumpTo(seq int) bool {
	pos := seq - e.evicted
	if pos < 0 || pos >= len(e.entries) {
		navigationsTotal.WithLabelValues("jump", "out_of_range").Inc()
		return false
	}
	return e.restoreAt(pos, "jump")
}

// StateAt reconstructs the state at an absolute sequence number without
// touching the store or the cursor.
//
// Outputs:
//
//	map[string]any - The reconstructed state, owned by the caller.
//	error - SequenceError when seq is evicted or unknown, or a chain
//	error when reconstruction fails.
func (e *Engine) StateAt(seq int) (map[string]any, error) {
	pos := seq - e.evicted
	if pos < 0 || pos >= len(e.entries) {
		return nil, &SequenceError{
			Seq: seq,
			Min: e.evicted,
			Max: e.evicted + len(e.entries) - 1,
		}
	}
	return e.stateAtPos(pos)
}

// Entries returns payload-free metadata for every retained entry, oldest
// first.
func (e *Engine) Entries() []EntryMeta {
	metas := make([]EntryMeta, len(e.entries))
	for i, entry := range e.entries {
		metas[i] = EntryMeta{
			Seq:        e.evicted + i,
			ID:         entry.ID,
			Kind:       entry.Kind,
			Label:      entry.Label,
			Source:     entry.Source,
			CapturedAt: entry.CapturedAt,
			Changes:    len(entry.Changes),
		}
	}
	return metas
}

// CanUndo reports whether Undo would move the cursor.
func (e *Engine) CanUndo() bool { return e.index.CanUndo() }

// CanRedo reports whether Redo would move the cursor.
func (e *Engine) CanRedo() bool { return e.index.CanRedo() }

// Len returns the number of retained entries.
func (e *Engine) Len() int { return len(e.entries) }

// CurrentSeq returns the absolute sequence number under the cursor, or
// -1 when the cursor has no position.
func (e *Engine) CurrentSeq() int {
	if e.index.Current() < 0 {
		return -1
	}
	return e.evicted + e.index.Current()
}

// Validate walks the retained timeline and reports the first broken
// link, as an absolute sequence number.
//
// Outputs:
//
//	int - Absolute sequence of the first invalid entry, -1 when valid.
//	error - The chain error for that entry, nil when valid.
func (e *Engine) Validate() (int, error) {
	idx, err := snapshot.ValidateChain(e.entries)
	if idx < 0 {
		return -1, nil
	}
	return e.evicted + idx, err
}
