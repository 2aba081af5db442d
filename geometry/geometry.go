// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package geometry implements sector arithmetic and alignment rules.
package geometry

// DefaultAlignment is the default alignment of new partitions in bytes.
const DefaultAlignment = 2048 * 512

// Region is an inclusive sector range used as an alignment bound.
type Region struct {
	Start, End uint64
}

// Grain is the alignment grain in sectors.
type Grain uint64

// GrainFor returns the alignment grain for a device.
//
// The grain is at least 1 MiB worth of sectors, or the optimal I/O size if it is bigger.
func GrainFor(sectorSize, ioSize uint) Grain {
	if sectorSize == 0 {
		return 1
	}

	alignmentSize := max(ioSize, DefaultAlignment)

	return Grain((alignmentSize + sectorSize - 1) / sectorSize)
}

// Aligned returns true if the start boundary s is a multiple of the grain.
func (g Grain) Aligned(s uint64) bool {
	if g <= 1 {
		return true
	}

	return s%uint64(g) == 0
}

// AlignedEnd returns true if the end boundary e is aligned (e+1 is a multiple of the grain).
func (g Grain) AlignedEnd(e uint64) bool {
	return g.Aligned(e + 1)
}

// AlignStart rounds the start boundary s down to the grain.
//
// If rounding down leaves the region, the next aligned boundary is used instead.
// If there is no aligned boundary in the region, s is returned with ok == false.
func (g Grain) AlignStart(s uint64, region Region) (aligned uint64, ok bool) {
	if g <= 1 {
		return s, true
	}

	grain := uint64(g)
	candidate := s / grain * grain

	if candidate < region.Start {
		candidate += grain
	}

	if candidate < region.Start || candidate > region.End {
		return s, false
	}

	return candidate, true
}

// AlignEnd rounds the end boundary e up so that e+1 is a multiple of the grain.
//
// If rounding up leaves the region, the previous aligned boundary is used instead.
// If there is no aligned boundary in the region, e is returned with ok == false.
func (g Grain) AlignEnd(e uint64, region Region) (aligned uint64, ok bool) {
	if g <= 1 {
		return e, true
	}

	grain := uint64(g)
	candidate := (e+1+grain-1)/grain*grain - 1

	if candidate > region.End {
		if candidate < grain {
			return e, false
		}

		candidate -= grain
	}

	if candidate < region.Start || candidate > region.End {
		return e, false
	}

	return candidate, true
}

// SectorsToBytes converts a sector count to bytes.
func SectorsToBytes(sectors, sectorSize uint64) uint64 {
	return sectors * sectorSize
}

// BytesToSectors converts a byte count to sectors, rounding up.
func BytesToSectors(bytes, sectorSize uint64) uint64 {
	if sectorSize == 0 {
		return 0
	}

	sectors := bytes / sectorSize
	if bytes%sectorSize != 0 {
		sectors++
	}

	return sectors
}
