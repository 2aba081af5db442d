// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/siderolabs/go-cmd/pkg/cmd"
	"go.uber.org/zap"

	"github.com/siderolabs/partedit/blkid"
	"github.com/siderolabs/partedit/geometry"
	"github.com/siderolabs/partedit/partitioning"
	"github.com/siderolabs/partedit/partitioning/gpt"
	"github.com/siderolabs/partedit/partitioning/mbr"
	"github.com/siderolabs/partedit/table"
)

// ErrReadOnly is returned by Commit in read-only mode.
var ErrReadOnly = errors.New("read-only mode")

// dosLimit is the largest device which gets a dos label by default.
const dosLimit = 2 << 40

// Disk is the Backend for block devices and disk images.
type Disk struct {
	options Options
}

var _ Backend = (*Disk)(nil)

// NewDisk creates a new Disk backend.
func NewDisk(opts ...Option) *Disk {
	return &Disk{
		options: applyOptions(opts...),
	}
}

// Load implements Backend.
func (d *Disk) Load(ctx context.Context, path string) (DeviceInfo, []table.Partition, error) {
	if err := ctx.Err(); err != nil {
		return DeviceInfo{}, nil, err
	}

	h, err := open(path, false, d.options.SectorSize)
	if err != nil {
		return DeviceInfo{}, nil, &DeviceError{Path: path, Err: err}
	}

	defer d.close(h)

	info, partitions, err := d.load(h)
	if err != nil {
		return DeviceInfo{}, nil, &DeviceError{Path: path, Err: err}
	}

	info.Path = path

	d.options.Logger.Info("loaded device",
		zap.String("device", path),
		zap.String("type", string(info.Type)),
		zap.String("label", string(info.Label)),
		zap.Bool("labeled", info.Labeled),
		zap.Uint64("sector_size", info.SectorSize),
		zap.Uint64("total_sectors", info.TotalSectors),
		zap.Int("partitions", len(partitions)),
	)

	return info, partitions, nil
}

func (d *Disk) load(h *handle) (DeviceInfo, []table.Partition, error) {
	sectorSize := uint64(h.GetSectorSize())
	totalSectors := h.GetSize() / sectorSize
	grain := geometry.GrainFor(h.GetSectorSize(), h.ioSize)

	found, err := readLabel(h, sectorSize, totalSectors)

	labeled := true

	if errors.Is(err, errNoLabel) {
		labeled = false
		found = onDisk{name: defaultLabel(totalSectors * sectorSize)}
	} else if err != nil {
		return DeviceInfo{}, nil, err
	}

	for _, warning := range found.warnings {
		d.options.Logger.Warn(warning)
	}

	partitions := found.partitions

	dev, err := table.NewDevice(found.name, sectorSize, totalSectors, grain)
	if err != nil {
		return DeviceInfo{}, nil, err
	}

	for i := range partitions {
		p := &partitions[i]

		if p.Kind == table.KindExtended {
			continue
		}

		res, err := blkid.ProbeRange(h, p.Start*sectorSize, p.Length()*sectorSize, blkid.WithProbeLogger(d.options.Logger))
		if err != nil {
			d.options.Logger.Warn("failed to probe partition", zap.Int("partition", p.Number), zap.Error(err))

			continue
		}

		if res != nil {
			p.FSType = res.Name
		}
	}

	return DeviceInfo{
		Device:             dev,
		Model:              h.model,
		PhysicalSectorSize: uint64(h.physicalSectorSize),
		Type:               h.typ,
		Labeled:            labeled,
		Warnings:           found.warnings,
	}, partitions, nil
}

func defaultLabel(size uint64) table.Label {
	if size < dosLimit {
		return table.LabelDOS
	}

	return table.LabelGPT
}

var errNoLabel = errors.New("no partition table found")

// onDisk is a partition table read from the device.
type onDisk struct {
	name       table.Label
	partitions []table.Partition
	warnings   []string
}

// readLabel reads the partition table.
//
// A protective MBR means GPT, any other valid MBR is a dos label.
// GPT headers without a protective MBR are recognized as well.
func readLabel(dev medium, sectorSize, totalSectors uint64) (onDisk, error) {
	mbrTable, err := mbr.Read(dev)

	switch {
	case err == nil:
		return onDisk{name: table.LabelDOS, partitions: fromMBR(mbrTable)}, nil
	case errors.Is(err, mbr.ErrProtective), errors.Is(err, mbr.ErrNotFound):
	default:
		return onDisk{}, fmt.Errorf("failed to read MBR: %w", err)
	}

	protective := errors.Is(err, mbr.ErrProtective)

	if _, err = table.NewDevice(table.LabelGPT, sectorSize, totalSectors, 1); err != nil {
		if protective {
			return onDisk{}, err
		}

		return onDisk{}, errNoLabel
	}

	gptTable, err := gpt.Read(dev)

	switch {
	case err == nil:
	case errors.Is(err, gpt.ErrNotFound) && protective:
		return onDisk{}, fmt.Errorf("protective MBR found, but GPT headers are missing or damaged: %w", err)
	case errors.Is(err, gpt.ErrNotFound):
		return onDisk{}, errNoLabel
	default:
		return onDisk{}, fmt.Errorf("failed to read GPT: %w", err)
	}

	found := onDisk{name: table.LabelGPT, partitions: fromGPT(gptTable)}

	if gptTable.Source() == gpt.HeaderBackup {
		found.warnings = append(found.warnings, "The primary GPT header is damaged, the backup header is used.")
	}

	if gptTable.Misplaced() {
		found.warnings = append(found.warnings, "The backup GPT header is not at the end of the device, it is moved on write.")
	}

	return found, nil
}

func fromMBR(t *mbr.Table) []table.Partition {
	var partitions []table.Partition

	for i, p := range t.Partitions() {
		if p == nil {
			continue
		}

		kind := table.KindPrimary

		switch {
		case i >= mbr.MaxPrimary:
			kind = table.KindLogical
		case p.IsExtended():
			kind = table.KindExtended
		}

		var flags table.Flags

		if p.Bootable {
			flags |= table.FlagBoot
		}

		partitions = append(partitions, table.Partition{
			Range:  table.Range{Start: p.FirstLBA, End: p.LastLBA},
			Kind:   kind,
			Number: i + 1,
			Type:   fmt.Sprintf("%02x", p.Type),
			Flags:  flags,
		})
	}

	return partitions
}

func fromGPT(t *gpt.Table) []table.Partition {
	var partitions []table.Partition

	for i, p := range t.Partitions() {
		if p == nil {
			continue
		}

		var flags table.Flags

		if p.Flags&gpt.LegacyBIOSBootable != 0 {
			flags |= table.FlagBoot
		}

		partitions = append(partitions, table.Partition{
			Range:  table.Range{Start: p.FirstLBA, End: p.LastLBA},
			Kind:   table.KindPrimary,
			Number: i + 1,
			Type:   strings.ToUpper(p.TypeGUID.String()),
			Name:   p.Name,
			GUID:   p.PartGUID,
			Flags:  flags,
		})
	}

	return partitions
}

// Commit implements Backend.
//
// Nothing is written if the new table can't be encoded, and the overwritten
// ranges are restored if writing fails.
func (d *Disk) Commit(ctx context.Context, info DeviceInfo, partitions []table.Partition) error {
	if d.options.ReadOnly {
		return &WriteError{Path: info.Path, Err: ErrReadOnly}
	}

	if err := ctx.Err(); err != nil {
		return &WriteError{Path: info.Path, Err: err}
	}

	h, err := open(info.Path, true, uint(info.SectorSize))
	if err != nil {
		return &WriteError{Path: info.Path, Err: err}
	}

	defer d.close(h)

	if uint64(h.GetSectorSize()) != info.SectorSize || h.GetSize()/info.SectorSize != info.TotalSectors {
		return &WriteError{Path: info.Path, Err: errors.New("device geometry has changed since it was loaded")}
	}

	if err = h.lock(); err != nil {
		return &WriteError{Path: info.Path, Err: fmt.Errorf("device is in use: %w", err)}
	}

	defer func() {
		if unlockErr := h.unlock(); unlockErr != nil {
			d.options.Logger.Warn("failed to unlock device", zap.String("device", info.Path), zap.Error(unlockErr))
		}
	}()

	st := &stage{medium: h}

	if err = encode(st, info.Label, partitions); err != nil {
		return &WriteError{Path: info.Path, Err: err}
	}

	originals, err := st.originals()
	if err != nil {
		return &WriteError{Path: info.Path, Err: err}
	}

	if d.options.BackupDir != "" {
		path := backupPath(d.options.BackupDir, info.Path, time.Now())

		if err = writeBackupFile(path, originals); err != nil {
			return &WriteError{Path: info.Path, Err: fmt.Errorf("failed to write backup: %w", err)}
		}

		d.options.Logger.Info("saved partition table backup", zap.String("device", info.Path), zap.String("backup", path))
	}

	if err = st.apply(originals); err != nil {
		return &WriteError{Path: info.Path, Err: err}
	}

	d.options.Logger.Info("partition table written",
		zap.String("device", info.Path),
		zap.String("label", string(info.Label)),
		zap.Int("writes", len(st.writes)),
	)

	if err = h.syncKernel(kernelExtents(info.SectorSize, partitions)); err != nil {
		return &SyncError{Path: info.Path, Err: err}
	}

	if d.options.Settle {
		if _, err = cmd.RunContext(ctx, "udevadm", "settle"); err != nil {
			d.options.Logger.Warn("udevadm settle failed", zap.Error(err))
		}
	}

	return nil
}

// Restore writes the records of the backup file back to the device.
func (d *Disk) Restore(ctx context.Context, path, backup string) error {
	if d.options.ReadOnly {
		return &WriteError{Path: path, Err: ErrReadOnly}
	}

	if err := ctx.Err(); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	f, err := os.Open(backup)
	if err != nil {
		return err
	}

	defer f.Close() //nolint:errcheck

	records, err := ReadBackup(f)
	if err != nil {
		return fmt.Errorf("failed to read backup %q: %w", backup, err)
	}

	h, err := open(path, true, d.options.SectorSize)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	defer d.close(h)

	if err = h.lock(); err != nil {
		return &WriteError{Path: path, Err: fmt.Errorf("device is in use: %w", err)}
	}

	defer h.unlock() //nolint:errcheck

	for _, r := range records {
		if r.Offset < 0 || uint64(r.Offset)+uint64(len(r.Data)) > h.GetSize() {
			return &WriteError{Path: path, Err: fmt.Errorf("backup record at offset %d is outside of the device", r.Offset)}
		}
	}

	if err = restore(h, records); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	d.options.Logger.Info("partition table restored", zap.String("device", path), zap.String("backup", backup), zap.Int("records", len(records)))

	return nil
}

func (d *Disk) close(h *handle) {
	if err := h.Close(); err != nil {
		d.options.Logger.Warn("failed to close device", zap.Error(err))
	}
}

func encode(dev medium, label table.Label, partitions []table.Partition) error {
	switch label {
	case table.LabelDOS:
		return encodeMBR(dev, partitions)
	case table.LabelGPT:
		return encodeGPT(dev, partitions)
	default:
		return fmt.Errorf("unsupported label %q", label)
	}
}

func encodeMBR(dev medium, partitions []table.Partition) error {
	var opts []mbr.Option

	// keep the disk identifier of the existing table
	if existing, err := mbr.Read(dev); err == nil {
		opts = append(opts, mbr.WithDiskID(existing.DiskID()))
	}

	t, err := mbr.New(dev, opts...)
	if err != nil {
		return err
	}

	for _, p := range partitions {
		typ, err := strconv.ParseUint(p.Type, 16, 8)
		if err != nil {
			return fmt.Errorf("partition %d: invalid type %q", p.Number, p.Type)
		}

		if err = t.SetPartition(p.Number, mbr.Partition{
			FirstLBA: p.Start,
			LastLBA:  p.End,
			Type:     byte(typ),
			Bootable: p.Flags.Has(table.FlagBoot),
		}); err != nil {
			return err
		}
	}

	return t.Write()
}

func encodeGPT(dev medium, partitions []table.Partition) error {
	var opts []gpt.Option

	// attributes other than the boot flag are not editable, keep them
	attributes := map[uuid.UUID]uint64{}

	if existing, err := gpt.Read(dev); err == nil {
		opts = append(opts, gpt.WithDiskGUID(existing.DiskGUID()))

		for _, p := range existing.Partitions() {
			if p != nil {
				attributes[p.PartGUID] = p.Flags &^ gpt.LegacyBIOSBootable
			}
		}
	}

	bootable := false

	for _, p := range partitions {
		bootable = bootable || p.Flags.Has(table.FlagBoot)
	}

	opts = append(opts, gpt.WithMarkPMBRBootable(bootable))

	t, err := gpt.New(dev, opts...)
	if err != nil {
		return err
	}

	for _, p := range partitions {
		typ, err := uuid.Parse(p.Type)
		if err != nil {
			return fmt.Errorf("partition %d: invalid type GUID %q", p.Number, p.Type)
		}

		partOpts := []gpt.PartitionOption{
			gpt.WithFlags(attributes[p.GUID]),
			gpt.WithLegacyBIOSBootableAttribute(p.Flags.Has(table.FlagBoot)),
		}

		if p.GUID != uuid.Nil {
			partOpts = append(partOpts, gpt.WithUniqueGUID(p.GUID))
		}

		if _, err = t.SetPartition(p.Number, p.Start, p.End, p.Name, typ, partOpts...); err != nil {
			return err
		}
	}

	return t.Write()
}

// extendedExtent is the part of an extended partition the kernel exposes, in bytes.
const extendedExtent = 1024

// kernelExtents returns the kernel view of the partitions, indexed by number minus one.
func kernelExtents(sectorSize uint64, partitions []table.Partition) []partitioning.Extent {
	last := 0

	for _, p := range partitions {
		last = max(last, p.Number)
	}

	extents := make([]partitioning.Extent, last)

	for _, p := range partitions {
		length := p.Length() * sectorSize

		if p.Kind == table.KindExtended {
			length = min(length, max(sectorSize, extendedExtent))
		}

		extents[p.Number-1] = partitioning.Extent{
			Start:  p.Start * sectorSize,
			Length: length,
		}
	}

	return extents
}
