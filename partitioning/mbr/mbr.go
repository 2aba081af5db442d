// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package mbr implements read/write support for MBR (DOS) partition tables.
//
// Logical partitions are stored as a chain of extended boot records (EBR) inside
// the extended partition: the first EBR is at the start of the extended partition,
// every following one is in the sector just before its logical partition.
package mbr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/google/uuid"

	"github.com/siderolabs/partedit/internal/ioutil"
)

// MBR layout constants.
const (
	// MaxPrimary is the number of partition slots in the MBR.
	MaxPrimary = 4
	// MaxLogical is the longest EBR chain which is followed.
	MaxLogical = 128

	bootCodeSize    = 440
	diskIDOffset    = 440
	entriesOffset   = 446
	entrySize       = 16
	signatureOffset = 510

	typeEmpty      = 0x00
	typeProtective = 0xee
	typeExtended   = 0x05

	bootableFlag = 0x80
)

// Common errors.
var (
	ErrNotFound   = errors.New("no MBR partition table found")
	ErrProtective = errors.New("protective MBR found, the device is GPT partitioned")
)

// Device is an interface around actual block device or disk image.
type Device interface {
	io.ReaderAt
	io.WriterAt

	GetSectorSize() uint
	GetSize() uint64
	Sync() error
}

// Table is a wrapper type around MBR partition table.
type Table struct {
	dev Device

	// partition entries are indexed with the partition number minus one:
	// 0-3 are primary partitions, 4 and above are logical partitions.
	//
	// if the partition is missing, its entry is `nil`.
	entries []*Partition

	lastLBA    uint64
	sectorSize uint

	diskID uint32
}

// Partition is a single partition entry in MBR.
type Partition struct {
	FirstLBA uint64
	LastLBA  uint64

	Type     byte
	Bootable bool
}

// IsExtended returns true if the partition type is an extended partition type.
func (p Partition) IsExtended() bool {
	return IsExtendedType(p.Type)
}

// IsExtendedType checks if a partition type is an extended partition type.
func IsExtendedType(t byte) bool {
	switch t {
	case 0x05, 0x0f, 0x85:
		return true
	default:
		return false
	}
}

// New creates a new (empty) partition table for a specified device.
func New(dev Device, opts ...Option) (*Table, error) {
	var options Options

	for _, opt := range opts {
		opt(&options)
	}

	t, err := newTable(dev)
	if err != nil {
		return nil, err
	}

	t.diskID = options.DiskID
	if t.diskID == 0 {
		id := uuid.New()
		t.diskID = binary.LittleEndian.Uint32(id[:4])
	}

	return t, nil
}

func newTable(dev Device) (*Table, error) {
	sectorSize := dev.GetSectorSize()
	if sectorSize < 512 {
		return nil, fmt.Errorf("unsupported sector size %d", sectorSize)
	}

	sectors := dev.GetSize() / uint64(sectorSize)
	if sectors < 2 {
		return nil, errors.New("device too small for MBR")
	}

	return &Table{
		dev:        dev,
		sectorSize: sectorSize,
		lastLBA:    sectors - 1,
	}, nil
}

// Read reads the partition table from the device.
func Read(dev Device, opts ...Option) (*Table, error) {
	var options Options

	for _, opt := range opts {
		opt(&options)
	}

	t, err := newTable(dev)
	if err != nil {
		return nil, err
	}

	buf, err := t.readSector(0)
	if err != nil {
		return nil, err
	}

	if !hasSignature(buf) {
		return nil, ErrNotFound
	}

	t.diskID = binary.LittleEndian.Uint32(buf[diskIDOffset:])
	if options.DiskID != 0 {
		t.diskID = options.DiskID
	}

	t.entries = make([]*Partition, MaxPrimary)

	var extended *Partition

	for i := range MaxPrimary {
		// boot sectors of filesystems carry the signature as well
		if status := buf[entriesOffset+i*entrySize]; status != 0 && status != bootableFlag {
			return nil, ErrNotFound
		}

		e := decodeEntry(buf[entriesOffset+i*entrySize:], 0)
		if e == nil {
			continue
		}

		if e.Type == typeProtective {
			return nil, ErrProtective
		}

		if e.LastLBA > t.lastLBA {
			return nil, fmt.Errorf("partition %d ends beyond the end of the device", i+1)
		}

		t.entries[i] = e

		if e.IsExtended() {
			if extended != nil {
				return nil, errors.New("more than one extended partition")
			}

			extended = e
		}
	}

	if extended != nil {
		if err = t.readLogicals(extended); err != nil {
			return nil, err
		}
	}

	t.trim()

	return t, nil
}

// readLogicals follows the EBR chain of the extended partition.
//
// The logical partition entry of an EBR is relative to the EBR itself,
// the link to the next EBR is relative to the start of the extended partition.
func (t *Table) readLogicals(extended *Partition) error {
	visited := map[uint64]struct{}{}
	ebrLBA := extended.FirstLBA

	for range MaxLogical {
		if _, ok := visited[ebrLBA]; ok {
			return fmt.Errorf("EBR chain loops at LBA %d", ebrLBA)
		}

		visited[ebrLBA] = struct{}{}

		if ebrLBA < extended.FirstLBA || ebrLBA > extended.LastLBA {
			return fmt.Errorf("EBR at LBA %d is outside of the extended partition", ebrLBA)
		}

		buf, err := t.readSector(ebrLBA)
		if err != nil {
			return err
		}

		if !hasSignature(buf) {
			if ebrLBA == extended.FirstLBA {
				// extended partition without any logical partitions
				return nil
			}

			return fmt.Errorf("EBR signature missing at LBA %d", ebrLBA)
		}

		if logical := decodeEntry(buf[entriesOffset:], ebrLBA); logical != nil {
			if logical.FirstLBA <= ebrLBA || logical.LastLBA > extended.LastLBA {
				return fmt.Errorf("logical partition at LBA %d is outside of the extended partition", logical.FirstLBA)
			}

			t.entries = append(t.entries, logical)
		}

		link := decodeEntry(buf[entriesOffset+entrySize:], extended.FirstLBA)
		if link == nil || !link.IsExtended() {
			return nil
		}

		ebrLBA = link.FirstLBA
	}

	return fmt.Errorf("EBR chain is longer than %d entries", MaxLogical)
}

func (t *Table) readSector(lba uint64) ([]byte, error) {
	buf := make([]byte, t.sectorSize)

	if err := ioutil.ReadFullAt(t.dev, buf, int64(lba)*int64(t.sectorSize)); err != nil {
		return nil, fmt.Errorf("failed to read sector %d: %w", lba, err)
	}

	return buf, nil
}

func hasSignature(buf []byte) bool {
	return buf[signatureOffset] == 0x55 && buf[signatureOffset+1] == 0xaa
}

// decodeEntry decodes a 16-byte partition entry, start LBA is relative to base.
func decodeEntry(b []byte, base uint64) *Partition {
	typ := b[4]
	start := binary.LittleEndian.Uint32(b[8:12])
	sectors := binary.LittleEndian.Uint32(b[12:16])

	if typ == typeEmpty || sectors == 0 {
		return nil
	}

	first := base + uint64(start)

	return &Partition{
		FirstLBA: first,
		LastLBA:  first + uint64(sectors) - 1,
		Type:     typ,
		Bootable: b[0] == bootableFlag,
	}
}

// DiskID returns the disk signature.
func (t *Table) DiskID() uint32 {
	return t.diskID
}

// Partitions returns the list of partitions in the table.
//
// The returned list should not be modified.
// Partitions in the list are zero-indexed, while
// Linux kernel partitions are one-indexed.
func (t *Table) Partitions() []*Partition {
	return slices.Clone(t.entries)
}

// Extended returns the extended partition, if any.
func (t *Table) Extended() (int, *Partition) {
	for i, p := range t.entries[:min(len(t.entries), MaxPrimary)] {
		if p != nil && p.IsExtended() {
			return i + 1, p
		}
	}

	return 0, nil
}

// SetPartition puts a partition into the slot with the (1-based) number.
//
// Numbers 1-4 are primary (or extended) partitions, numbers from 5 on are logical partitions.
func (t *Table) SetPartition(no int, p Partition) error {
	if no < 1 || no > MaxPrimary+MaxLogical {
		return fmt.Errorf("partition number %d out of range 1-%d", no, MaxPrimary+MaxLogical)
	}

	if p.FirstLBA == 0 || p.FirstLBA > p.LastLBA || p.LastLBA > t.lastLBA {
		return fmt.Errorf("partition %d range %d-%d is outside of the device", no, p.FirstLBA, p.LastLBA)
	}

	if p.FirstLBA > math.MaxUint32 || p.LastLBA-p.FirstLBA+1 > math.MaxUint32 {
		return fmt.Errorf("partition %d range %d-%d can't be addressed by MBR", no, p.FirstLBA, p.LastLBA)
	}

	if p.Type == typeEmpty {
		return fmt.Errorf("partition %d has empty type", no)
	}

	if no > MaxPrimary && p.IsExtended() {
		return fmt.Errorf("logical partition %d can't be extended", no)
	}

	if len(t.entries) < no {
		t.entries = append(t.entries, make([]*Partition, no-len(t.entries))...)
	}

	t.entries[no-1] = &p

	return nil
}

// DeletePartition deletes a partition from the table.
//
// The number is zero-based index in the partition list.
func (t *Table) DeletePartition(partition int) error {
	if partition < 0 || partition >= len(t.entries) || t.entries[partition] == nil {
		return fmt.Errorf("partition %d is not allocated", partition)
	}

	t.entries[partition] = nil
	t.trim()

	return nil
}

func (t *Table) trim() {
	for len(t.entries) > 0 && t.entries[len(t.entries)-1] == nil {
		t.entries = t.entries[:len(t.entries)-1]
	}
}

// logicals returns the logical partitions, they must be numbered in disk order.
func (t *Table) logicals(extended *Partition) ([]*Partition, error) {
	var logicals []*Partition

	if len(t.entries) > MaxPrimary {
		logicals = t.entries[MaxPrimary:]
	}

	for i, p := range logicals {
		if p == nil {
			return nil, fmt.Errorf("logical partition %d is missing", MaxPrimary+i+1)
		}

		if extended == nil {
			return nil, errors.New("logical partitions require an extended partition")
		}

		// each logical partition is preceded by its EBR
		if p.FirstLBA <= extended.FirstLBA || p.LastLBA > extended.LastLBA {
			return nil, fmt.Errorf("logical partition %d is outside of the extended partition", MaxPrimary+i+1)
		}

		if i > 0 && p.FirstLBA-1 <= logicals[i-1].LastLBA {
			return nil, fmt.Errorf("logical partition %d leaves no room for its EBR", MaxPrimary+i+1)
		}
	}

	return logicals, nil
}

// Write writes the partition table to the device.
//
// The boot code in the first sector is preserved, GPT headers left on the device are erased.
// The kernel is not notified about the changes.
func (t *Table) Write() error {
	_, extended := t.Extended()

	logicals, err := t.logicals(extended)
	if err != nil {
		return err
	}

	if extended != nil {
		if err = t.writeEBRs(extended, logicals); err != nil {
			return err
		}
	}

	mbr, err := t.readSector(0)
	if err != nil {
		return err
	}

	clear(mbr[bootCodeSize:])
	binary.LittleEndian.PutUint32(mbr[diskIDOffset:], t.diskID)

	for i, p := range t.entries[:min(len(t.entries), MaxPrimary)] {
		if p == nil {
			continue
		}

		encodeEntry(mbr[entriesOffset+i*entrySize:], p, 0)
	}

	mbr[signatureOffset], mbr[signatureOffset+1] = 0x55, 0xaa

	if _, err = t.dev.WriteAt(mbr, 0); err != nil {
		return fmt.Errorf("failed to write MBR: %w", err)
	}

	if err = t.clearGPT(); err != nil {
		return err
	}

	if err = t.dev.Sync(); err != nil {
		return fmt.Errorf("failed to sync device: %w", err)
	}

	return nil
}

func (t *Table) writeEBRs(extended *Partition, logicals []*Partition) error {
	if len(logicals) == 0 {
		// terminate the chain right away
		return t.writeSector(extended.FirstLBA, emptyEBR(t.sectorSize))
	}

	ebrLBA := func(i int) uint64 {
		if i == 0 {
			return extended.FirstLBA
		}

		return logicals[i].FirstLBA - 1
	}

	for i, p := range logicals {
		ebr := emptyEBR(t.sectorSize)

		encodeEntry(ebr[entriesOffset:], p, ebrLBA(i))

		if i+1 < len(logicals) {
			next := ebrLBA(i + 1)

			encodeEntry(ebr[entriesOffset+entrySize:], &Partition{
				FirstLBA: next,
				LastLBA:  logicals[i+1].LastLBA,
				Type:     typeExtended,
			}, extended.FirstLBA)
		}

		if err := t.writeSector(ebrLBA(i), ebr); err != nil {
			return err
		}
	}

	return nil
}

func emptyEBR(sectorSize uint) []byte {
	ebr := make([]byte, sectorSize)
	ebr[signatureOffset], ebr[signatureOffset+1] = 0x55, 0xaa

	return ebr
}

func (t *Table) writeSector(lba uint64, buf []byte) error {
	if _, err := t.dev.WriteAt(buf, int64(lba)*int64(t.sectorSize)); err != nil {
		return fmt.Errorf("failed to write sector %d: %w", lba, err)
	}

	return nil
}

// clearGPT erases GPT headers, otherwise the device would still be detected as GPT.
func (t *Table) clearGPT() error {
	for _, lba := range []uint64{1, t.lastLBA} {
		buf, err := t.readSector(lba)
		if err != nil {
			return err
		}

		if !bytes.HasPrefix(buf, []byte("EFI PART")) {
			continue
		}

		if err = t.writeSector(lba, make([]byte, t.sectorSize)); err != nil {
			return err
		}
	}

	return nil
}

func encodeEntry(b []byte, p *Partition, base uint64) {
	if p.Bootable {
		b[0] = bootableFlag
	} else {
		b[0] = 0
	}

	copy(b[1:4], chs(p.FirstLBA))
	b[4] = p.Type
	copy(b[5:8], chs(p.LastLBA))

	binary.LittleEndian.PutUint32(b[8:12], uint32(p.FirstLBA-base))
	binary.LittleEndian.PutUint32(b[12:16], uint32(p.LastLBA-p.FirstLBA+1))
}

// chs encodes the LBA as cylinder/head/sector for 255 heads and 63 sectors per track.
//
// Addresses beyond the CHS limit are encoded as the maximum value.
func chs(lba uint64) []byte {
	const (
		heads   = 255
		sectors = 63
	)

	if lba >= 1024*heads*sectors {
		return []byte{0xfe, 0xff, 0xff}
	}

	c := lba / (heads * sectors)
	h := (lba / sectors) % heads
	s := lba%sectors + 1

	return []byte{byte(h), byte(s) | byte((c>>2)&0xc0), byte(c)}
}
