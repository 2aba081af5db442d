// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package table

import (
	"fmt"

	"github.com/siderolabs/partedit/geometry"
)

// Range is an inclusive range of sectors.
type Range struct {
	Start uint64
	End   uint64
}

// Length returns the number of sectors in the range.
func (r Range) Length() uint64 {
	if r.End < r.Start {
		return 0
	}

	return r.End - r.Start + 1
}

// Contains returns true if the sector is inside the range.
func (r Range) Contains(s uint64) bool {
	return r.Start <= s && s <= r.End
}

// ContainsRange returns true if other lies entirely inside the range.
func (r Range) ContainsRange(other Range) bool {
	return r.Start <= other.Start && other.End <= r.End
}

// Overlaps returns true if the ranges share at least one sector.
func (r Range) Overlaps(other Range) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// Union returns the smallest range covering both ranges.
func (r Range) Union(other Range) Range {
	return Range{
		Start: min(r.Start, other.Start),
		End:   max(r.End, other.End),
	}
}

// Region converts the range to an alignment bound.
func (r Range) Region() geometry.Region {
	return geometry.Region{Start: r.Start, End: r.End}
}

// String implements fmt.Stringer.
func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
