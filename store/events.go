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

import (
	"time"

	"github.com/AleutianAI/reactor/atom"
)

// EventType classifies a change event.
type EventType string

const (
	// EventSet is an underlying value replaced by a set call.
	EventSet EventType = "set"

	// EventRestore is an underlying value replaced by a history restore.
	EventRestore EventType = "restore"
)

// Event is a typed change notification emitted for every committed
// underlying-value change.
//
// Events exist for external consumers (devtools bridges, audit plugins)
// that observe store mutations without participating in dependency
// tracking. They are delivered after the batch completes, alongside
// subscriber notification, and are also kept in a bounded journal.
type Event struct {
	// Atom is the stable name of the changed atom.
	Atom string

	// AtomID is the atom's identity token.
	AtomID atom.ID

	// Type classifies the change.
	Type EventType

	// Previous is the value before the change; nil if the cell was
	// unrealized.
	Previous any

	// Value is the value after the change.
	Value any

	// Label is the action label attached via SetWithMetadata, if any.
	Label string

	// Source identifies the mutation origin, if supplied.
	Source string

	// At is when the change was applied.
	At time.Time
}

// Observe registers fn to receive change events.
//
// Description:
//
//	Observers are instrumentation: they receive every committed change
//	event after the batch completes, and a panicking observer is isolated
//	(logged, others still run). Observers must not mutate the store from
//	inside the callback during a capture window.
//
// Inputs:
//
//	fn - Callback invoked per event. Must not be nil.
//
// Outputs:
//
//	func() - Cancels the registration. Safe to call more than once.
func (s *Store) Observe(fn func(Event)) func() {
	s.nextObserver++
	id := s.nextObserver
	s.observers[id] = fn

	return func() {
		delete(s.observers, id)
	}
}

// RecentEvents returns up to n of the newest change events in
// chronological order.
//
// The journal is bounded; once it wraps, the oldest events are gone.
func (s *Store) RecentEvents(n int) []Event {
	return s.journal.Last(n)
}
