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

// ringBuffer is a fixed-size circular buffer backing the change-event
// journal.
//
// # Description
//
// O(1) push with bounded memory; when full, the oldest item is
// overwritten. Keeps the last N change events for external inspectors.
//
// # Thread Safety
//
// NOT safe for concurrent use; the store's single-threaded contract
// covers it.
type ringBuffer[T any] struct {
	data  []T
	head  int // Next write position
	count int // Current number of elements
}

// newRingBuffer creates a buffer with the given capacity.
func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	if capacity <= 0 {
		capacity = 256 // Default
	}
	return &ringBuffer[T]{data: make([]T, capacity)}
}

// Push adds an item, overwriting the oldest when full.
func (r *ringBuffer[T]) Push(item T) {
	r.data[r.head] = item
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// Slice returns all items from oldest to newest as a copy.
func (r *ringBuffer[T]) Slice() []T {
	return r.Last(r.count)
}

// Last returns up to n newest items in chronological order.
func (r *ringBuffer[T]) Last(n int) []T {
	if n <= 0 || r.count == 0 {
		return nil
	}
	if n > r.count {
		n = r.count
	}

	out := make([]T, n)
	start := r.head - n
	if start < 0 {
		start += len(r.data)
	}
	for i := 0; i < n; i++ {
		out[i] = r.data[(start+i)%len(r.data)]
	}
	return out
}

// Len returns the current number of elements.
func (r *ringBuffer[T]) Len() int {
	return r.count
}

// Cap returns the maximum capacity.
func (r *ringBuffer[T]) Cap() int {
	return len(r.data)
}

// Clear removes all elements.
func (r *ringBuffer[T]) Clear() {
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
	r.head = 0
	r.count = 0
}
