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
	"testing"
	"time"
)

func TestNoneStrategy_AlwaysFull(t *testing.T) {
	s := NoneStrategy{}
	if !s.TakeFull(Decision{}) {
		t.Error("none strategy must always take a full snapshot")
	}
	if !s.TakeFull(Decision{ChainLength: 100, DeltaSize: 1}) {
		t.Error("none strategy must always take a full snapshot")
	}
}

func TestTimeStrategy(t *testing.T) {
	s := TimeStrategy{Interval: time.Minute}

	if s.TakeFull(Decision{Elapsed: 30 * time.Second}) {
		t.Error("should stay delta within the interval")
	}
	if !s.TakeFull(Decision{Elapsed: 2 * time.Minute}) {
		t.Error("should force full past the interval")
	}
}

func TestCountStrategy(t *testing.T) {
	s := CountStrategy{MaxDeltas: 3}

	if s.TakeFull(Decision{ChainLength: 2}) {
		t.Error("should stay delta below the count")
	}
	if !s.TakeFull(Decision{ChainLength: 3}) {
		t.Error("should force full at the count")
	}
}

func TestSizeStrategy(t *testing.T) {
	s := SizeStrategy{MaxBytes: 100}

	if s.TakeFull(Decision{DeltaSize: 100}) {
		t.Error("should stay delta at the limit")
	}
	if !s.TakeFull(Decision{DeltaSize: 101}) {
		t.Error("should force full above the limit")
	}
}

func TestSignificanceStrategy(t *testing.T) {
	t.Run("fraction of tracked paths", func(t *testing.T) {
		s := SignificanceStrategy{Fraction: 0.5}

		if s.TakeFull(Decision{ChangedPaths: []string{"a"}, TrackedPaths: 4}) {
			t.Error("1/4 changed should stay delta")
		}
		if !s.TakeFull(Decision{ChangedPaths: []string{"a", "b", "c"}, TrackedPaths: 4}) {
			t.Error("3/4 changed should force full")
		}
	})

	t.Run("significant path always forces full", func(t *testing.T) {
		s := SignificanceStrategy{
			Fraction:    0.9,
			Significant: map[string]bool{"session": true},
		}

		if !s.TakeFull(Decision{ChangedPaths: []string{"session"}, TrackedPaths: 100}) {
			t.Error("significant path must force full regardless of fraction")
		}
	})

	t.Run("empty state stays delta", func(t *testing.T) {
		s := SignificanceStrategy{Fraction: 0.0}
		if s.TakeFull(Decision{TrackedPaths: 0}) {
			t.Error("no tracked paths means nothing is significant")
		}
	})
}

func TestStrategy_Names(t *testing.T) {
	tests := []struct {
		s    Strategy
		want string
	}{
		{NoneStrategy{}, "none"},
		{TimeStrategy{}, "time"},
		{CountStrategy{}, "count"},
		{SizeStrategy{}, "size"},
		{SignificanceStrategy{}, "significance"},
	}
	for _, tt := range tests {
		if got := tt.s.Name(); got != tt.want {
			t.Errorf("Name() = %q, want %q", got, tt.want)
		}
	}
}
