// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package geometry

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Unit is a display unit for partition sizes.
type Unit int

// Display units, in the order Next cycles through them.
const (
	UnitDecimal Unit = iota
	UnitBinary
	UnitSectors
	UnitBytes
)

// String implements fmt.Stringer.
func (u Unit) String() string {
	switch u {
	case UnitDecimal:
		return "MB"
	case UnitBinary:
		return "MiB"
	case UnitSectors:
		return "sectors"
	case UnitBytes:
		return "bytes"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// Next returns the unit following u.
func (u Unit) Next() Unit {
	return (u + 1) % (UnitBytes + 1)
}

// ParseUnit parses the unit name as accepted on the command line.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(s) {
	case "mb", "decimal", "si":
		return UnitDecimal, nil
	case "mib", "binary", "iec":
		return UnitBinary, nil
	case "s", "sector", "sectors":
		return UnitSectors, nil
	case "b", "byte", "bytes":
		return UnitBytes, nil
	default:
		return 0, fmt.Errorf("unknown unit %q", s)
	}
}

// Format renders the size of a sector count in the unit.
//
// Rounding is only applied to the rendered string.
func Format(sectors, sectorSize uint64, u Unit) string {
	bytes := SectorsToBytes(sectors, sectorSize)

	switch u {
	case UnitBinary:
		return humanize.IBytes(bytes)
	case UnitSectors:
		return humanize.Comma(int64(sectors)) + " s"
	case UnitBytes:
		return humanize.Comma(int64(bytes)) + " B"
	default:
		return humanize.Bytes(bytes)
	}
}

// ErrEmptySize is returned for an empty size input.
var ErrEmptySize = errors.New("empty size")

// ErrSizeOverflow is returned for a size which does not fit into 64 bits of bytes.
var ErrSizeOverflow = errors.New("size is too large")

// ParseSize converts user input into a sector count.
//
// Input with an "s" suffix is a sector count, input with a byte suffix ("10G", "512MiB")
// is converted to sectors rounding up, and a plain number is read in the display unit u.
func ParseSize(input string, sectorSize uint64, u Unit) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, ErrEmptySize
	}

	if n, ok := strings.CutSuffix(strings.ToLower(input), "s"); ok {
		if sectors, err := strconv.ParseUint(strings.TrimSpace(n), 10, 64); err == nil {
			return sectors, nil
		}
	}

	if n, err := strconv.ParseUint(input, 10, 64); err == nil {
		var mult uint64

		switch u {
		case UnitSectors:
			return n, nil
		case UnitBytes:
			return BytesToSectors(n, sectorSize), nil
		case UnitBinary:
			mult = humanize.MiByte
		default:
			mult = humanize.MByte
		}

		hi, bytes := bits.Mul64(n, mult)
		if hi != 0 {
			return 0, fmt.Errorf("invalid size %q: %w", input, ErrSizeOverflow)
		}

		return BytesToSectors(bytes, sectorSize), nil
	}

	bytes, err := humanize.ParseBytes(input)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", input, err)
	}

	return BytesToSectors(bytes, sectorSize), nil
}
