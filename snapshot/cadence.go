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

import "time"

// Decision carries the facts a cadence strategy may consider.
//
// Strategies are pure functions of this struct; they hold configuration but
// no mutable state, so the engine can call them any number of times without
// side effects.
type Decision struct {
	// ChainLength is the number of deltas accumulated since the last full
	// snapshot.
	ChainLength int

	// Elapsed is the time since the last full snapshot.
	Elapsed time.Duration

	// DeltaSize is the serialized byte size of the pending delta.
	DeltaSize int

	// ChangedPaths lists the paths the pending delta touches.
	ChangedPaths []string

	// TrackedPaths is the total number of paths in the current state.
	// Zero when the state is empty.
	TrackedPaths int
}

// Strategy decides whether a capture should be recorded as a full snapshot
// instead of a delta.
type Strategy interface {
	// TakeFull returns true to force a full snapshot for this capture.
	TakeFull(d Decision) bool

	// Name identifies the strategy in logs and metrics.
	Name() string
}

// NoneStrategy records every capture as a full snapshot.
type NoneStrategy struct{}

func (NoneStrategy) TakeFull(Decision) bool { return true }
func (NoneStrategy) Name() string           { return "none" }

// TimeStrategy forces a full snapshot once Interval has elapsed since the
// last full snapshot.
type TimeStrategy struct {
	Interval time.Duration
}

func (s TimeStrategy) TakeFull(d Decision) bool {
	return d.Elapsed > s.Interval
}

func (TimeStrategy) Name() string { return "time" }

// CountStrategy forces a full snapshot after MaxDeltas accumulated deltas.
type CountStrategy struct {
	MaxDeltas int
}

func (s CountStrategy) TakeFull(d Decision) bool {
	return d.ChainLength >= s.MaxDeltas
}

func (CountStrategy) Name() string { return "count" }

// SizeStrategy forces a full snapshot when the serialized delta would
// exceed MaxBytes.
type SizeStrategy struct {
	MaxBytes int
}

func (s SizeStrategy) TakeFull(d Decision) bool {
	return d.DeltaSize > s.MaxBytes
}

func (SizeStrategy) Name() string { return "size" }

// SignificanceStrategy forces a full snapshot when the diff touches more
// than Fraction of tracked paths, or touches any path flagged significant.
type SignificanceStrategy struct {
	// Fraction is the changed/tracked ratio above which a capture is
	// significant. 0.5 means "more than half the paths changed".
	Fraction float64

	// Significant flags individual paths whose change always forces a
	// full snapshot.
	Significant map[string]bool
}

func (s SignificanceStrategy) TakeFull(d Decision) bool {
	for _, p := range d.ChangedPaths {
		if s.Significant[p] {
			return true
		}
	}
	if d.TrackedPaths == 0 {
		return false
	}
	return float64(len(d.ChangedPaths))/float64(d.TrackedPaths) > s.Fraction
}

func (SignificanceStrategy) Name() string { return "significance" }
