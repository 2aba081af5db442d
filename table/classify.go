// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package table

// Class is the kind of partition free space can hold.
type Class int

// Free space classes.
const (
	ClassUnusable Class = iota
	ClassPrimary
	ClassLogical
	ClassPriLog
)

// String implements fmt.Stringer.
func (c Class) String() string {
	switch c {
	case ClassPrimary:
		return "Primary"
	case ClassLogical:
		return "Logical"
	case ClassPriLog:
		return "Pri/Log"
	case ClassUnusable:
		return "Unusable"
	default:
		return "Unknown"
	}
}

// Allows returns true if a partition of the kind can be created in free space of the class.
func (c Class) Allows(k Kind) bool {
	switch c { //nolint:exhaustive
	case ClassPrimary:
		return k == KindPrimary
	case ClassLogical:
		return k == KindLogical
	case ClassPriLog:
		return k == KindPrimary || k == KindLogical
	default:
		return false
	}
}

// Classify returns which partitions can be created in the free space entry.
//
// Occupied entries are always unusable.
func (t *Table) Classify(free Entry) Class {
	if !free.IsFree() {
		return ClassUnusable
	}

	c := t.Counts()

	if c.Occupied >= t.dev.MaxSupported {
		return ClassUnusable
	}

	if !t.dev.SupportsExtended() {
		if c.Primary >= t.dev.MaxPrimary || free.InExtended {
			return ClassUnusable
		}

		return ClassPrimary
	}

	logicalsFull := c.Logical >= t.dev.MaxLogical

	ext, hasExt := t.Extended()
	nested := hasExt && free.InExtended
	adjacent := hasExt && !free.InExtended && touches(free.Range, ext)

	if c.Primary >= t.dev.MaxPrimary {
		if logicalsFull || !hasExt {
			return ClassUnusable
		}

		if nested || adjacent {
			return ClassLogical
		}

		return ClassUnusable
	}

	if !hasExt {
		return ClassPriLog
	}

	switch {
	case nested:
		if logicalsFull {
			return ClassUnusable
		}

		return ClassLogical
	case adjacent:
		if logicalsFull {
			return ClassPrimary
		}

		return ClassPriLog
	default:
		return ClassPrimary
	}
}

// touches returns true if the free range ends right before the extended partition
// or starts right after it.
func touches(free Range, ext Partition) bool {
	return free.End+1 == ext.Start || free.Start == ext.End+1
}
