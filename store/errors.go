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
	"fmt"
	"strings"
)

// Sentinel errors for store operations.
var (
	// ErrNotWritable is returned when set is called on an atom without a
	// write rule. The store state is unchanged.
	ErrNotWritable = errors.New("atom is not writable")

	// ErrCycleDetected is returned when an atom transitively depends on
	// itself within one evaluation. Matched by CycleError via errors.Is.
	ErrCycleDetected = errors.New("dependency cycle detected")

	// ErrComputation is returned when a read or write rule fails. Matched
	// by ComputationError via errors.Is.
	ErrComputation = errors.New("computation failed")

	// ErrReentrantCapture is returned when a mutation is attempted while
	// commit hooks are running. History capture must never trigger a set
	// against the same store.
	ErrReentrantCapture = errors.New("mutation during history capture")

	// ErrUnknownBatch is returned by EndBatch when no open batch carries
	// the given identifier.
	ErrUnknownBatch = errors.New("no open batch with id")
)

// CycleError reports a dependency cycle, naming the offending atom chain.
//
// The evaluation that hit the cycle fails fast and is not retried; the
// cell remains dirty.
type CycleError struct {
	// Chain lists atom names from the first repeated atom back to itself.
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Chain, " -> "))
}

// Is matches ErrCycleDetected so callers can use errors.Is without
// unpacking the chain.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// ComputationError wraps an error raised by an atom's read or write rule.
//
// The failing cell is left dirty; no partial result is cached.
type ComputationError struct {
	// Atom is the name of the atom whose rule failed.
	Atom string

	// Err is the underlying error.
	Err error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed for atom %s: %v", e.Atom, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// Is matches ErrComputation.
func (e *ComputationError) Is(target error) bool {
	return target == ErrComputation
}
