// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package table

// Maximize grows the end of the partition into the free space following it.
//
// Primary and extended partitions grow up to the next top-level partition or the end
// of the usable area. Logical partitions grow up to the EBR of the next logical partition,
// or past the end of the extended partition which grows along. Growth is capped by the
// maximum partition length. Maximizing a partition with no free space after it is a no-op.
func (t *Table) Maximize(id ID) error {
	idx := t.index(id)
	if idx == -1 {
		return &NotFoundError{ID: id}
	}

	p := t.parts[idx]

	var limit uint64

	switch p.Kind { //nolint:exhaustive
	case KindLogical:
		limit = t.logicalLimit(p)
	default:
		limit = t.span(idx).End
	}

	if t.dev.MaxPartitionLength > 0 {
		limit = min(limit, p.Start+t.dev.MaxPartitionLength-1)
	}

	if limit <= p.End {
		return nil
	}

	work := t.Clone()

	if p.Kind == KindLogical {
		ext, _ := work.Extended()

		if limit > ext.End {
			if err := work.Grow(Range{Start: ext.Start, End: limit}); err != nil {
				return err
			}
		}
	}

	work.parts[work.index(id)].End = limit
	work.recompute()

	*t = *work

	return nil
}

// logicalLimit returns the last sector a logical partition may grow to.
func (t *Table) logicalLimit(p Partition) uint64 {
	for _, q := range t.parts {
		if q.Kind == KindLogical && q.Start > p.End {
			// leave the sector in front of the next logical partition for its EBR
			return q.Start - 2
		}
	}

	extIdx := t.extendedIndex()
	ext := t.parts[extIdx]

	limit := max(ext.End, t.span(extIdx).End)

	if t.dev.MaxPartitionLength > 0 {
		limit = min(limit, ext.Start+t.dev.MaxPartitionLength-1)
	}

	return limit
}
