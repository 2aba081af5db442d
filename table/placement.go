// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package table

import (
	"slices"

	"github.com/siderolabs/partedit/geometry"
)

// Placement of a new partition inside free space.
type Placement int

// Placements.
const (
	PlaceBeginning Placement = iota
	PlaceEnd
)

// String implements fmt.Stringer.
func (p Placement) String() string {
	if p == PlaceEnd {
		return "End"
	}

	return "Beginning"
}

// Plan computes the range of a new partition inside the free region.
//
// The length is in sectors, zero (or anything not smaller than the region) means the whole region.
// Partition boundaries are aligned to the device grain when the region allows it.
// Logical partitions leave one grain in front of them for the EBR.
func (t *Table) Plan(region Range, kind Kind, length uint64, placement Placement) (Range, error) {
	if t.dev.MaxPartitionLength > 0 && length > t.dev.MaxPartitionLength {
		return Range{}, constraintErrorf("requested length %d exceeds the maximum partition length of %d sectors", length, t.dev.MaxPartitionLength)
	}

	usable := region
	grain := t.dev.Grain

	if kind == KindLogical {
		reserve := max(uint64(grain), 1)

		if region.Length() <= reserve {
			return Range{}, constraintErrorf("free space %s is too small for a logical partition", region)
		}

		usable.Start += reserve

		// keep the sector in front of the next logical partition for its EBR
		if t.startsLogical(region.End + 1) {
			usable.End--
		}
	}

	if usable.End < usable.Start {
		return Range{}, constraintErrorf("free space %s is empty", region)
	}

	whole := length == 0 || length >= usable.Length()

	var r Range

	switch placement {
	case PlaceBeginning:
		r.Start = alignStart(grain, usable.Start, usable)

		if whole {
			r.End = alignEnd(grain, usable.End, Range{Start: r.Start, End: usable.End})
		} else {
			r.End = r.Start + length - 1

			if r.End > usable.End || r.End < r.Start {
				r.End = usable.End
			} else {
				r.End = alignEnd(grain, r.End, Range{Start: r.Start, End: usable.End})
			}
		}
	case PlaceEnd:
		r.End = alignEnd(grain, usable.End, usable)

		switch {
		case whole:
			r.Start = alignStart(grain, usable.Start, Range{Start: usable.Start, End: r.End})
		case r.End+1 < usable.Start+length:
			r.Start = usable.Start
		default:
			r.Start = alignStart(grain, r.End+1-length, Range{Start: usable.Start, End: r.End})
		}
	default:
		return Range{}, constraintErrorf("unknown placement %d", placement)
	}

	if r.End < r.Start {
		return Range{}, constraintErrorf("free space %s is too small", region)
	}

	if t.dev.MaxPartitionLength > 0 && r.Length() > t.dev.MaxPartitionLength {
		return Range{}, constraintErrorf("partition length %d exceeds the maximum of %d sectors", r.Length(), t.dev.MaxPartitionLength)
	}

	return r, nil
}

// Create adds a new partition in the free space entry.
//
// The kind must be allowed by the free space class. Creating a logical partition
// creates or grows the extended partition first. The table is unchanged on error.
func (t *Table) Create(free Entry, kind Kind, length uint64, placement Placement) (ID, error) {
	if !free.IsFree() || !slices.Contains(t.entries, free) {
		return NoID, constraintErrorf("%s is not free space of this table", free.Partition)
	}

	if class := t.Classify(free); !class.Allows(kind) {
		return NoID, t.rejectKind(kind, class)
	}

	r, err := t.Plan(free.Range, kind, length, placement)
	if err != nil {
		return NoID, err
	}

	work := t.Clone()

	if kind == KindLogical {
		reserve := max(uint64(work.dev.Grain), 1)

		if err = work.Grow(Range{Start: r.Start - reserve, End: r.End}); err != nil {
			return NoID, err
		}
	}

	id, err := work.Insert(Partition{
		Range: r,
		Kind:  kind,
		Type:  work.dev.DefaultType(),
	}, free.Range)
	if err != nil {
		return NoID, err
	}

	*t = *work

	return id, nil
}

func (t *Table) rejectKind(kind Kind, class Class) error {
	c := t.Counts()

	switch {
	case c.Occupied >= t.dev.MaxSupported:
		return &TooManyPartitionsError{Kind: KindFree, Limit: t.dev.MaxSupported}
	case kind == KindPrimary && c.Primary >= t.dev.MaxPrimary:
		return &TooManyPartitionsError{Kind: KindPrimary, Limit: t.dev.MaxPrimary}
	case kind == KindLogical && c.Logical >= t.dev.MaxLogical && t.dev.SupportsExtended():
		return &TooManyPartitionsError{Kind: KindLogical, Limit: t.dev.MaxLogical}
	default:
		return constraintErrorf("cannot create %s partition in %s free space", kind, class)
	}
}

func (t *Table) startsLogical(s uint64) bool {
	return slices.ContainsFunc(t.parts, func(p Partition) bool { return p.Kind == KindLogical && p.Start == s })
}

func alignStart(grain geometry.Grain, s uint64, r Range) uint64 {
	aligned, _ := grain.AlignStart(s, r.Region())

	return aligned
}

func alignEnd(grain geometry.Grain, e uint64, r Range) uint64 {
	aligned, _ := grain.AlignEnd(e, r.Region())

	return aligned
}
