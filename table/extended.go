// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package table

import "slices"

// Grow makes the extended partition cover the target range.
//
// If there is no extended partition, one is created spanning exactly the target.
// Otherwise the extended partition is extended to the union of its range and the target;
// the result must not run into neighbouring partitions or exceed the maximum partition length.
// The table is unchanged on error.
func (t *Table) Grow(target Range) error {
	if !t.dev.SupportsExtended() {
		return constraintErrorf("%s partition tables do not support extended partitions", t.dev.Label)
	}

	if target.End < target.Start || !t.dev.Usable().ContainsRange(target) {
		return constraintErrorf("range %s is outside of the usable area %s", target, t.dev.Usable())
	}

	idx := t.extendedIndex()
	if idx == -1 {
		ext := Partition{
			Range: target,
			Kind:  KindExtended,
			Type:  DOSExtendedType,
		}

		if err := t.validate(ext); err != nil {
			return err
		}

		t.add(ext)
		t.renumber()
		t.recompute()

		return nil
	}

	ext := t.parts[idx]
	grown := ext.Union(target)

	if grown == ext.Range {
		return nil
	}

	span := t.span(idx)

	if !span.ContainsRange(grown) {
		return constraintErrorf("extended partition cannot grow to %s: allowed span is %s", grown, span)
	}

	if t.dev.MaxPartitionLength > 0 && grown.Length() > t.dev.MaxPartitionLength {
		return constraintErrorf("extended partition length %d exceeds the maximum of %d sectors", grown.Length(), t.dev.MaxPartitionLength)
	}

	t.parts[idx].Range = grown
	t.recompute()

	return nil
}

// Shrink reduces the extended partition to the minimal range containing all logical partitions.
//
// Up to one grain in front of the first logical partition is kept for its EBR.
// The extended partition is removed if there are no logical partitions.
func (t *Table) Shrink() {
	t.shrink()
	t.renumber()
	t.recompute()
}

func (t *Table) shrink() {
	idx := t.extendedIndex()
	if idx == -1 {
		return
	}

	logicals := t.Logicals()
	if len(logicals) == 0 {
		t.parts = slices.Delete(t.parts, idx, idx+1)

		return
	}

	ext := &t.parts[idx]
	first, last := logicals[0], logicals[len(logicals)-1]

	room := min(uint64(t.dev.Grain), first.Start-ext.Start)

	ext.Start = first.Start - room
	ext.End = last.End
}

// span returns the largest range a top-level partition at index idx could occupy
// without overlapping other top-level partitions.
func (t *Table) span(idx int) Range {
	span := t.dev.Usable()
	self := t.parts[idx]

	for _, q := range t.parts {
		if q.ID == self.ID || q.Kind == KindLogical {
			continue
		}

		if q.End < self.Start {
			span.Start = max(span.Start, q.End+1)
		}

		if q.Start > self.End {
			span.End = min(span.End, q.Start-1)
		}
	}

	return span
}
