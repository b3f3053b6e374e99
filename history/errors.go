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
	"errors"
	"fmt"
)

// ErrSequenceOutOfRange indicates a request for a sequence number outside
// the retained timeline, including sequences already evicted.
var ErrSequenceOutOfRange = errors.New("history sequence out of range")

// SequenceError reports the offending sequence and the retained range.
//
// Min and Max are the oldest and newest retained sequence numbers; Max is
// -1 when the timeline is empty.
type SequenceError struct {
	Seq int
	Min int
	Max int
}

// Error implements the error interface.
func (e *SequenceError) Error() string {
	return fmt.Sprintf("history sequence %d out of range [%d, %d]", e.Seq, e.Min, e.Max)
}

// Is lets errors.Is match against ErrSequenceOutOfRange.
func (e *SequenceError) Is(target error) bool {
	return target == ErrSequenceOutOfRange
}
