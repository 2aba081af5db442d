// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package table

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/siderolabs/partedit/geometry"
)

// Label is the partition table format.
type Label string

// Supported labels.
const (
	LabelDOS Label = "dos"
	LabelGPT Label = "gpt"
)

// ParseLabel parses the label name.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(s) {
	case "dos", "msdos", "mbr":
		return LabelDOS, nil
	case "gpt":
		return LabelGPT, nil
	default:
		return "", fmt.Errorf("unknown partition table label %q", s)
	}
}

// Default partition types.
const (
	DOSLinuxType    = "83"
	DOSExtendedType = "05"
	GPTLinuxType    = "0FC63DAF-8483-4772-8E79-3D69D8477DE4"
)

// IsExtendedType returns true if the dos partition type denotes an extended partition.
func IsExtendedType(typ string) bool {
	switch strings.ToLower(typ) {
	case "05", "0f", "85":
		return true
	default:
		return false
	}
}

// gptEntriesBytes is the size of the GPT partition entry array.
const gptEntriesBytes = 128 * 128

// Device describes the device limits the table is bound to.
type Device struct {
	Label Label

	SectorSize   uint64
	TotalSectors uint64

	Grain geometry.Grain

	FirstUsable uint64
	LastUsable  uint64

	MaxSupported int
	MaxPrimary   int
	MaxLogical   int

	// MaxPartitionLength in sectors, 0 means unlimited.
	MaxPartitionLength uint64
}

// NewDevice derives the table limits for a label on a device.
func NewDevice(label Label, sectorSize, totalSectors uint64, grain geometry.Grain) (Device, error) {
	if sectorSize == 0 {
		return Device{}, errors.New("sector size must be non-zero")
	}

	if grain == 0 {
		grain = 1
	}

	dev := Device{
		Label:        label,
		SectorSize:   sectorSize,
		TotalSectors: totalSectors,
		Grain:        grain,
	}

	switch label {
	case LabelDOS:
		if totalSectors < 2 {
			return Device{}, errors.New("device too small for dos partition table")
		}

		dev.FirstUsable = 1
		dev.LastUsable = min(totalSectors-1, math.MaxUint32)
		dev.MaxPrimary = 4
		dev.MaxLogical = 60
		dev.MaxSupported = 64
		dev.MaxPartitionLength = math.MaxUint32
	case LabelGPT:
		entriesSectors := (gptEntriesBytes + sectorSize - 1) / sectorSize

		if totalSectors < 2*(entriesSectors+2)+1 {
			return Device{}, errors.New("device too small for GPT")
		}

		dev.FirstUsable = 2 + entriesSectors
		dev.LastUsable = totalSectors - 2 - entriesSectors
		dev.MaxPrimary = 128
		dev.MaxLogical = 0
		dev.MaxSupported = 128
		dev.MaxPartitionLength = dev.LastUsable - dev.FirstUsable + 1
	default:
		return Device{}, fmt.Errorf("unsupported label %q", label)
	}

	return dev, nil
}

// Usable returns the usable sector range.
func (dev Device) Usable() Range {
	return Range{Start: dev.FirstUsable, End: dev.LastUsable}
}

// DefaultType returns the type of new data partitions.
func (dev Device) DefaultType() string {
	if dev.Label == LabelGPT {
		return GPTLinuxType
	}

	return DOSLinuxType
}

// SupportsExtended returns true if the label supports extended partitions.
func (dev Device) SupportsExtended() bool {
	return dev.MaxLogical > 0
}
