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
	"errors"
	"testing"

	"github.com/AleutianAI/reactor/atom"
)

func TestBatch_NotifiesOncePerAtom(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	fired := 0
	var lastSeen any
	s.Subscribe(count, func() {
		fired++
		lastSeen = mustGet(t, s, count)
	})

	err := s.Batch(func() error {
		mustSet(t, s, count, 1)
		mustSet(t, s, count, 2)
		mustSet(t, s, count, 3)
		return nil
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}

	if fired != 1 {
		t.Errorf("listener fired %d times, want 1", fired)
	}
	if lastSeen != 3 {
		t.Errorf("listener saw %v, want final value 3", lastSeen)
	}
}

func TestBatch_NestedCoalesce(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	fired := 0
	s.Subscribe(count, func() { fired++ })

	err := s.Batch(func() error {
		mustSet(t, s, count, 1)
		return s.Batch(func() error {
			mustSet(t, s, count, 2)
			return nil
		})
	})
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if fired != 1 {
		t.Errorf("listener fired %d times, want 1 (nested batches coalesce)", fired)
	}
}

func TestBatch_FlushesOnPanic(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	fired := 0
	s.Subscribe(count, func() { fired++ })

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic should propagate out of Batch")
			}
		}()
		_ = s.Batch(func() error {
			mustSet(t, s, count, 1)
			panic("body failed")
		})
	}()

	if fired != 1 {
		t.Errorf("listener fired %d times, want 1 (batch must flush on panic)", fired)
	}

	// The store is not stuck in a suspended state.
	mustSet(t, s, count, 2)
	if fired != 2 {
		t.Errorf("listener fired %d times after follow-up set, want 2", fired)
	}
}

func TestBatch_ErrorStillFlushes(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	fired := 0
	s.Subscribe(count, func() { fired++ })

	wantErr := errors.New("body error")
	err := s.Batch(func() error {
		mustSet(t, s, count, 1)
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want body error", err)
	}
	if fired != 1 {
		t.Errorf("listener fired %d times, want 1", fired)
	}
}

func TestStartEndBatch_KeyedIdentifiers(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	fired := 0
	s.Subscribe(count, func() { fired++ })

	// Two independent instrumentation layers nest their own batches.
	s.StartBatch("outer")
	s.StartBatch("inner")
	mustSet(t, s, count, 1)

	if err := s.EndBatch("inner"); err != nil {
		t.Fatalf("EndBatch(inner): %v", err)
	}
	if fired != 0 {
		t.Fatal("flushed before the outermost batch closed")
	}

	if err := s.EndBatch("outer"); err != nil {
		t.Fatalf("EndBatch(outer): %v", err)
	}
	if fired != 1 {
		t.Errorf("listener fired %d times, want 1", fired)
	}
}

func TestEndBatch_UnknownID(t *testing.T) {
	s := New(atom.NewRegistry())

	err := s.EndBatch("never-started")
	if !errors.Is(err, ErrUnknownBatch) {
		t.Fatalf("err = %v, want ErrUnknownBatch", err)
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	fired := 0
	cancel := s.Subscribe(count, func() { fired++ })

	mustSet(t, s, count, 1)
	cancel()
	mustSet(t, s, count, 2)

	if fired != 1 {
		t.Errorf("listener fired %d times, want 1 after unsubscribe", fired)
	}
}

func TestSubscribe_DependentNotified(t *testing.T) {
	reg := atom.NewRegistry()
	base := reg.Primitive(0, atom.WithName("base"))
	derived := reg.Computed(func(get atom.Getter) (any, error) {
		return get(base)
	}, atom.WithName("derived"))
	s := New(reg)

	mustGet(t, s, derived) // realize the dependency edge

	fired := 0
	s.Subscribe(derived, func() { fired++ })

	mustSet(t, s, base, 1)
	if fired != 1 {
		t.Errorf("derived listener fired %d times, want 1", fired)
	}
}

func TestSubscribe_ListenerPanicIsolated(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	secondFired := false
	s.Subscribe(count, func() { panic("bad listener") })
	s.Subscribe(count, func() { secondFired = true })

	mustSet(t, s, count, 1)

	if !secondFired {
		t.Error("second listener did not fire after first panicked")
	}

	// The store remains usable.
	if got := mustGet(t, s, count); got != 1 {
		t.Errorf("count = %v, want 1", got)
	}
}

func TestCommitHook_ReentrantSetFails(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	var hookErr error
	s.OnCommit(func(c Commit) error {
		hookErr = s.Set(count, 99)
		return nil
	})

	mustSet(t, s, count, 1)

	if !errors.Is(hookErr, ErrReentrantCapture) {
		t.Fatalf("hook set err = %v, want ErrReentrantCapture", hookErr)
	}
	if got := mustGet(t, s, count); got != 1 {
		t.Errorf("count = %v, want 1 (reentrant set must not apply)", got)
	}
}

func TestCommitHook_ErrorPropagates(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	wantErr := errors.New("capture failed")
	s.OnCommit(func(c Commit) error { return wantErr })

	err := s.Set(count, 1)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want capture error", err)
	}
}

func TestCommitHook_SeesRealizedState(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	var seen map[string]any
	s.OnCommit(func(c Commit) error {
		seen = c.State
		return nil
	})

	if err := s.SetWithMetadata(count, 5, Metadata{Label: "bump", Source: "test"}); err != nil {
		t.Fatalf("SetWithMetadata: %v", err)
	}

	if seen["count"] != 5 {
		t.Errorf("hook state[count] = %v, want 5", seen["count"])
	}
}

func TestCommitHook_MetadataFlowsToCommit(t *testing.T) {
	reg := atom.NewRegistry()
	count := reg.Primitive(0, atom.WithName("count"))
	s := New(reg)

	var got Commit
	s.OnCommit(func(c Commit) error {
		got = c
		return nil
	})

	if err := s.SetWithMetadata(count, 1, Metadata{Label: "increment", Source: "ui"}); err != nil {
		t.Fatalf("SetWithMetadata: %v", err)
	}

	if got.Label != "increment" || got.Source != "ui" {
		t.Errorf("commit = %+v, want label increment source ui", got)
	}
}
