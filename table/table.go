// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package table implements the in-memory partition table model.
package table

import (
	"cmp"
	"slices"

	"github.com/siderolabs/gen/xslices"
)

// Table is the partition layout of a device.
//
// The table keeps the occupied partitions sorted by start sector, and derives
// the entry list (occupied partitions plus free space) from them after every mutation.
type Table struct {
	dev Device

	parts   []Partition
	entries []Entry

	nextID ID
}

// Counts of occupied partitions.
type Counts struct {
	// Occupied is the number of partitions, extended included.
	Occupied int
	// Primary is the number of primary slots used, extended included.
	Primary int
	Logical int

	Extended bool
}

// New loads the partitions into a table bound to the device.
//
// Partitions are validated against the device limits and each other.
// Free space entries in the input are ignored.
func New(dev Device, partitions []Partition) (*Table, error) {
	t := &Table{
		dev:    dev,
		nextID: 1,
	}

	input := xslices.Filter(partitions, func(p Partition) bool { return !p.IsFree() })

	// extended first so that logicals find their container
	slices.SortStableFunc(input, func(a, b Partition) int {
		if (a.Kind == KindLogical) != (b.Kind == KindLogical) {
			if a.Kind == KindLogical {
				return 1
			}

			return -1
		}

		return cmp.Compare(a.Start, b.Start)
	})

	for _, p := range input {
		p.ID = NoID

		if err := t.validate(p); err != nil {
			return nil, err
		}

		t.add(p)
	}

	t.renumber()
	t.recompute()

	return t, nil
}

// Device returns the device the table is bound to.
func (t *Table) Device() Device {
	return t.dev
}

// Entries returns the full layout: occupied partitions and free space, sorted by start.
//
// The extended partition precedes the entries nested in it.
func (t *Table) Entries() []Entry {
	return slices.Clone(t.entries)
}

// Visible returns the layout without the extended partition.
//
// Visible entries cover the usable area of the device exactly once.
func (t *Table) Visible() []Entry {
	return xslices.Filter(t.entries, func(e Entry) bool { return e.Kind != KindExtended })
}

// Partitions returns the occupied partitions sorted by start.
func (t *Table) Partitions() []Partition {
	return slices.Clone(t.parts)
}

// Extended returns the extended partition, if any.
func (t *Table) Extended() (Partition, bool) {
	idx := t.extendedIndex()
	if idx == -1 {
		return Partition{}, false
	}

	return t.parts[idx], true
}

// Logicals returns the logical partitions sorted by start.
func (t *Table) Logicals() []Partition {
	return xslices.Filter(t.parts, func(p Partition) bool { return p.Kind == KindLogical })
}

// Lookup returns the partition with the given handle.
func (t *Table) Lookup(id ID) (Partition, error) {
	idx := t.index(id)
	if idx == -1 {
		return Partition{}, &NotFoundError{ID: id}
	}

	return t.parts[idx], nil
}

// Counts returns the number of occupied partitions by kind.
func (t *Table) Counts() Counts {
	var c Counts

	for _, p := range t.parts {
		c.Occupied++

		switch p.Kind { //nolint:exhaustive
		case KindPrimary:
			c.Primary++
		case KindExtended:
			c.Primary++
			c.Extended = true
		case KindLogical:
			c.Logical++
		}
	}

	return c
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	return &Table{
		dev:     t.dev,
		parts:   slices.Clone(t.parts),
		entries: slices.Clone(t.entries),
		nextID:  t.nextID,
	}
}

// Insert adds a new partition inside the constraint region.
//
// The partition kind must be Primary, Logical or Extended; logical partitions
// require an extended partition containing them. The table is unchanged on error.
func (t *Table) Insert(p Partition, region Range) (ID, error) {
	if p.IsFree() {
		return NoID, constraintErrorf("cannot insert free space")
	}

	if !region.ContainsRange(p.Range) {
		return NoID, constraintErrorf("range %s is outside of region %s", p.Range, region)
	}

	p.ID = NoID
	p.Number = 0

	if err := t.validate(p); err != nil {
		return NoID, err
	}

	id := t.add(p)

	t.renumber()
	t.recompute()

	return id, nil
}

// Remove deletes the partition.
//
// Removing the extended partition removes all logical partitions as well.
// Removing a logical partition shrinks the extended partition around the remaining ones.
func (t *Table) Remove(id ID) (Partition, error) {
	idx := t.index(id)
	if idx == -1 {
		return Partition{}, &NotFoundError{ID: id}
	}

	removed := t.parts[idx]

	switch removed.Kind { //nolint:exhaustive
	case KindExtended:
		t.parts = slices.DeleteFunc(t.parts, func(p Partition) bool {
			return p.ID == id || p.Kind == KindLogical
		})
	case KindLogical:
		t.parts = slices.Delete(t.parts, idx, idx+1)
		t.shrink()
	default:
		t.parts = slices.Delete(t.parts, idx, idx+1)
	}

	t.renumber()
	t.recompute()

	return removed, nil
}

// ToggleFlag flips the flag on the partition.
func (t *Table) ToggleFlag(id ID, flag Flags) error {
	idx := t.index(id)
	if idx == -1 {
		return &NotFoundError{ID: id}
	}

	t.parts[idx].Flags ^= flag
	t.recompute()

	return nil
}

// SetType changes the partition type.
func (t *Table) SetType(id ID, typ string) error {
	idx := t.index(id)
	if idx == -1 {
		return &NotFoundError{ID: id}
	}

	if typ == "" {
		return constraintErrorf("partition type is empty")
	}

	if t.parts[idx].Kind == KindExtended {
		return constraintErrorf("cannot change the type of the extended partition")
	}

	if t.dev.Label == LabelDOS && IsExtendedType(typ) {
		return constraintErrorf("type %s is reserved for the extended partition", typ)
	}

	t.parts[idx].Type = typ
	t.recompute()

	return nil
}

// validate checks that p can be added to the table.
func (t *Table) validate(p Partition) error {
	if p.End < p.Start {
		return constraintErrorf("invalid range %s", p.Range)
	}

	if !t.dev.Usable().ContainsRange(p.Range) {
		return constraintErrorf("range %s is outside of the usable area %s", p.Range, t.dev.Usable())
	}

	if t.dev.MaxPartitionLength > 0 && p.Length() > t.dev.MaxPartitionLength {
		return constraintErrorf("partition length %d exceeds the maximum of %d sectors", p.Length(), t.dev.MaxPartitionLength)
	}

	c := t.Counts()

	if c.Occupied >= t.dev.MaxSupported {
		return &TooManyPartitionsError{Kind: KindFree, Limit: t.dev.MaxSupported}
	}

	switch p.Kind { //nolint:exhaustive
	case KindPrimary, KindExtended:
		if c.Primary >= t.dev.MaxPrimary {
			return &TooManyPartitionsError{Kind: KindPrimary, Limit: t.dev.MaxPrimary}
		}

		if p.Kind == KindExtended {
			if !t.dev.SupportsExtended() {
				return constraintErrorf("%s partition tables do not support extended partitions", t.dev.Label)
			}

			if c.Extended {
				return constraintErrorf("only one extended partition is allowed")
			}
		}

		for _, q := range t.parts {
			if q.Kind != KindLogical && q.Overlaps(p.Range) {
				return &OverlapError{Range: p.Range, With: q}
			}
		}
	case KindLogical:
		if c.Logical >= t.dev.MaxLogical {
			return &TooManyPartitionsError{Kind: KindLogical, Limit: t.dev.MaxLogical}
		}

		return t.validateLogical(p)
	default:
		return constraintErrorf("invalid partition kind %s", p.Kind)
	}

	return nil
}

func (t *Table) validateLogical(p Partition) error {
	ext, ok := t.Extended()
	if !ok {
		return constraintErrorf("logical partition %s requires an extended partition", p.Range)
	}

	if !ext.ContainsRange(p.Range) || p.Start == ext.Start {
		return constraintErrorf("logical partition %s must lie inside the extended partition %s", p.Range, ext.Range)
	}

	for _, q := range t.parts {
		if q.Kind != KindLogical {
			continue
		}

		if q.Overlaps(p.Range) {
			return &OverlapError{Range: p.Range, With: q}
		}

		// every logical partition is preceded by its EBR
		if q.End+1 == p.Start || p.End+1 == q.Start {
			return constraintErrorf("no room for the extended boot record between %s and %s", q.Range, p.Range)
		}
	}

	return nil
}

func (t *Table) add(p Partition) ID {
	p.ID = t.nextID
	t.nextID++

	idx, _ := slices.BinarySearchFunc(t.parts, p, comparePartitions)
	t.parts = slices.Insert(t.parts, idx, p)

	return p.ID
}

// comparePartitions orders by start, the extended partition before the logicals it contains.
func comparePartitions(a, b Partition) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}

	return cmp.Compare(kindOrder(a.Kind), kindOrder(b.Kind))
}

func kindOrder(k Kind) int {
	if k == KindExtended {
		return 0
	}

	return 1
}

func (t *Table) index(id ID) int {
	if id == NoID {
		return -1
	}

	return slices.IndexFunc(t.parts, func(p Partition) bool { return p.ID == id })
}

func (t *Table) extendedIndex() int {
	return slices.IndexFunc(t.parts, func(p Partition) bool { return p.Kind == KindExtended })
}

// renumber assigns slot numbers.
//
// Primary partitions keep their slot, new ones take the lowest free slot.
// Logical partitions are numbered in disk order after the primary slots.
func (t *Table) renumber() {
	used := map[int]struct{}{}
	logical := t.dev.MaxPrimary + 1

	var unnumbered []int

	for i := range t.parts {
		p := &t.parts[i]

		if p.Kind == KindLogical {
			p.Number = logical
			logical++

			continue
		}

		if _, dup := used[p.Number]; p.Number > 0 && p.Number <= t.dev.MaxPrimary && !dup {
			used[p.Number] = struct{}{}

			continue
		}

		unnumbered = append(unnumbered, i)
	}

	slot := 1

	for _, i := range unnumbered {
		for {
			if _, inUse := used[slot]; !inUse {
				break
			}

			slot++
		}

		t.parts[i].Number = slot
		used[slot] = struct{}{}
	}
}

// recompute rebuilds the entry list from the occupied partitions.
func (t *Table) recompute() {
	entries := make([]Entry, 0, 2*len(t.parts)+1)
	cursor := t.dev.FirstUsable

	for _, p := range t.parts {
		if p.Kind == KindLogical {
			continue
		}

		if p.Start > cursor {
			entries = append(entries, freeEntry(cursor, p.Start-1, false))
		}

		entries = append(entries, Entry{Partition: p})

		if p.Kind == KindExtended {
			entries = append(entries, t.nested(p)...)
		}

		cursor = p.End + 1
	}

	if cursor <= t.dev.LastUsable && t.dev.FirstUsable <= t.dev.LastUsable {
		entries = append(entries, freeEntry(cursor, t.dev.LastUsable, false))
	}

	t.entries = entries
}

// nested returns the entries inside the extended partition.
func (t *Table) nested(ext Partition) []Entry {
	var entries []Entry

	cursor := ext.Start

	for _, p := range t.parts {
		if p.Kind != KindLogical {
			continue
		}

		if p.Start > cursor {
			entries = append(entries, freeEntry(cursor, p.Start-1, true))
		}

		entries = append(entries, Entry{Partition: p})
		cursor = p.End + 1
	}

	if cursor <= ext.End {
		entries = append(entries, freeEntry(cursor, ext.End, true))
	}

	return entries
}

func freeEntry(start, end uint64, inExtended bool) Entry {
	return Entry{
		Partition: Partition{
			Range: Range{Start: start, End: end},
			Kind:  KindFree,
		},
		InExtended: inExtended,
	}
}
