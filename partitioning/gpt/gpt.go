// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package gpt implements read/write support for GPT partition tables.
//
// The package encodes a finished layout: placement and alignment of the
// partitions are up to the caller.
package gpt

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/google/uuid"

	"github.com/siderolabs/partedit/internal/gptstructs"
	"github.com/siderolabs/partedit/internal/gptutil"
)

// ErrNotFound is returned by Read when the device has no valid GPT header.
var ErrNotFound = errors.New("no GPT header found")

// Device is an interface around actual block device or disk image.
type Device interface {
	io.ReaderAt
	io.WriterAt

	GetSectorSize() uint
	GetSize() uint64
	Sync() error
}

// HeaderSource is the header copy a table was read from.
type HeaderSource int

// Header copies.
const (
	HeaderPrimary HeaderSource = iota
	HeaderBackup
)

// Table is a GPT partition table of a device.
type Table struct {
	dev Device

	// entries are indexed by the partition number minus one, nil for empty slots
	entries []*Partition

	layout layout

	diskGUID uuid.UUID

	source       HeaderSource
	alternateLBA uint64

	options Options
}

// Partition is a single partition entry in GPT.
type Partition struct {
	Name string

	TypeGUID uuid.UUID
	PartGUID uuid.UUID

	FirstLBA uint64
	LastLBA  uint64

	Flags uint64
}

// LegacyBIOSBootable is the attribute bit marking the partition bootable.
const LegacyBIOSBootable = 1 << 2

// layout is the placement of the GPT structures on a device.
//
// The entry arrays always hold 128 entries.
type layout struct {
	sectorSize uint
	lastLBA    uint64

	primaryHeader, backupHeader   uint64
	primaryEntries, backupEntries uint64
	firstUsable, lastUsable       uint64
}

func newLayout(dev Device) (layout, error) {
	lastLBA, ok := gptutil.LastLBA(dev)
	if !ok {
		return layout{}, errors.New("failed to calculate last LBA (device too small?)")
	}

	if lastLBA < 33 {
		return layout{}, errors.New("device too small for GPT")
	}

	sectorSize := dev.GetSectorSize()
	entrySectors := uint64((gptstructs.ENTRY_SIZE*gptstructs.NumEntries + sectorSize - 1) / sectorSize)

	return layout{
		sectorSize:     sectorSize,
		lastLBA:        lastLBA,
		primaryHeader:  1,
		backupHeader:   lastLBA,
		primaryEntries: 2,
		backupEntries:  lastLBA - entrySectors,
		firstUsable:    2 + entrySectors,
		lastUsable:     lastLBA - entrySectors - 1,
	}, nil
}

// New creates a new (empty) partition table for a specified device.
func New(dev Device, opts ...Option) (*Table, error) {
	options := applyOptions(opts)

	l, err := newLayout(dev)
	if err != nil {
		return nil, err
	}

	diskGUID := options.DiskGUID
	if diskGUID == uuid.Nil {
		diskGUID = uuid.New()
	}

	return &Table{
		dev:          dev,
		layout:       l,
		diskGUID:     diskGUID,
		alternateLBA: l.backupHeader,
		options:      options,
	}, nil
}

// DiskGUID returns the disk GUID.
func (t *Table) DiskGUID() uuid.UUID {
	return t.diskGUID
}

// FirstUsableLBA returns the first sector available for partitions.
func (t *Table) FirstUsableLBA() uint64 {
	return t.layout.firstUsable
}

// LastUsableLBA returns the last sector available for partitions.
func (t *Table) LastUsableLBA() uint64 {
	return t.layout.lastUsable
}

// Source returns the header copy the table was read from.
func (t *Table) Source() HeaderSource {
	return t.source
}

// Misplaced is true if the primary header doesn't point to a backup header
// at the end of the device, which is the case after the device has grown.
//
// Write puts the backup at the end of the device.
func (t *Table) Misplaced() bool {
	return t.alternateLBA != t.layout.backupHeader
}

// SetPartition puts a partition into the slot with the (1-based) number.
//
// An existing partition in the slot is replaced; the range must not overlap
// the partitions in the other slots.
func (t *Table) SetPartition(no int, firstLBA, lastLBA uint64, name string, partType uuid.UUID, opts ...PartitionOption) (Partition, error) {
	var options PartitionOptions

	for _, o := range opts {
		o(&options)
	}

	if no < 1 || no > gptstructs.NumEntries {
		return Partition{}, fmt.Errorf("partition number %d out of range 1-%d", no, gptstructs.NumEntries)
	}

	if firstLBA > lastLBA || firstLBA < t.layout.firstUsable || lastLBA > t.layout.lastUsable {
		return Partition{}, fmt.Errorf("partition %d range %d-%d is outside of usable range %d-%d",
			no, firstLBA, lastLBA, t.layout.firstUsable, t.layout.lastUsable)
	}

	if partType == uuid.Nil {
		return Partition{}, fmt.Errorf("partition %d has empty type GUID", no)
	}

	for i, other := range t.entries {
		if other == nil || i == no-1 {
			continue
		}

		if firstLBA <= other.LastLBA && other.FirstLBA <= lastLBA {
			return Partition{}, fmt.Errorf("partition %d range %d-%d overlaps partition %d", no, firstLBA, lastLBA, i+1)
		}
	}

	partGUID := options.UniqueGUID
	if partGUID == uuid.Nil {
		partGUID = uuid.New()
	}

	entry := Partition{
		Name:     name,
		TypeGUID: partType,
		PartGUID: partGUID,
		FirstLBA: firstLBA,
		LastLBA:  lastLBA,
		Flags:    options.Flags,
	}

	if len(t.entries) < no {
		t.entries = append(t.entries, make([]*Partition, no-len(t.entries))...)
	}

	t.entries[no-1] = &entry

	return entry, nil
}

// Partitions returns the partition slots, nil for the empty ones.
//
// Slot i holds partition number i+1.
func (t *Table) Partitions() []*Partition {
	return slices.Clone(t.entries)
}
