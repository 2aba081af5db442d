// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package table

import (
	"fmt"

	"github.com/google/uuid"
)

// ID is a stable handle of an occupied partition within a table.
//
// Free space entries carry NoID.
type ID uint64

// NoID is the handle of free space entries.
const NoID ID = 0

// Kind of a table entry.
type Kind int

// Entry kinds.
const (
	KindFree Kind = iota
	KindPrimary
	KindExtended
	KindLogical
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindFree:
		return "Free Space"
	case KindPrimary:
		return "Primary"
	case KindExtended:
		return "Extended"
	case KindLogical:
		return "Logical"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Flags is a set of boolean partition flags.
type Flags uint8

// Partition flags.
const (
	FlagBoot Flags = 1 << iota
)

// Has returns true if all flags in f are set.
func (flags Flags) Has(f Flags) bool {
	return flags&f == f
}

// String implements fmt.Stringer.
func (flags Flags) String() string {
	if flags.Has(FlagBoot) {
		return "Boot"
	}

	return ""
}

// Partition is a single entry of the table.
//
// Free space is represented by a Partition of KindFree; all other fields
// except the range are zero for free space.
type Partition struct {
	Range

	Kind Kind

	// ID is assigned by the table.
	ID ID

	// Number is the on-disk slot number (1-based).
	Number int

	// Type is the partition type: two hex digits for dos labels, type GUID for gpt.
	Type string

	// Name is the GPT partition name.
	Name string

	// FSType is the probed filesystem type, if any.
	FSType string

	// GUID is the unique partition GUID (gpt only).
	GUID uuid.UUID

	Flags Flags
}

// IsFree returns true for free space.
func (p Partition) IsFree() bool {
	return p.Kind == KindFree
}

// String implements fmt.Stringer.
func (p Partition) String() string {
	if p.IsFree() {
		return fmt.Sprintf("free space %s", p.Range)
	}

	return fmt.Sprintf("%s partition %d (%s)", p.Kind, p.Number, p.Range)
}

// Entry is a single row of the table layout: an occupied partition or free space.
type Entry struct {
	Partition

	// InExtended marks free space nested inside the extended partition.
	InExtended bool
}
