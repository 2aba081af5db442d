// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package table

import "fmt"

// OverlapError is returned when a partition would intersect an occupied partition.
type OverlapError struct {
	Range Range
	With  Partition
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("range %s overlaps %s", e.Range, e.With)
}

// TooManyPartitionsError is returned when a table limit would be exceeded.
type TooManyPartitionsError struct {
	Kind  Kind
	Limit int
}

func (e *TooManyPartitionsError) Error() string {
	if e.Kind == KindFree {
		return fmt.Sprintf("too many partitions: the table supports at most %d", e.Limit)
	}

	return fmt.Sprintf("too many %s partitions: at most %d allowed", e.Kind, e.Limit)
}

// ConstraintError is returned when a range violates device or table constraints.
type ConstraintError struct {
	Reason string
}

func (e *ConstraintError) Error() string {
	return e.Reason
}

func constraintErrorf(format string, args ...any) error {
	return &ConstraintError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError is returned for a stale partition handle.
type NotFoundError struct {
	ID ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("partition %d not found", e.ID)
}
