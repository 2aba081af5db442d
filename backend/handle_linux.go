// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backend

import (
	"errors"
	"fmt"

	"github.com/siderolabs/partedit/block"
	"github.com/siderolabs/partedit/partitioning"
)

// handle is an opened device with its properties.
type handle struct {
	medium

	dev *block.Device

	model              string
	physicalSectorSize uint
	ioSize             uint

	typ DeviceType
}

// blockMedium adapts a block device to the partition table codecs.
type blockMedium struct {
	*block.Device

	size uint64
}

func (m *blockMedium) ReadAt(p []byte, off int64) (int, error) {
	return m.File().ReadAt(p, off)
}

func (m *blockMedium) WriteAt(p []byte, off int64) (int, error) {
	return m.File().WriteAt(p, off)
}

func (m *blockMedium) Sync() error {
	return m.File().Sync()
}

func (m *blockMedium) GetSize() uint64 {
	return m.size
}

// open a block device or a disk image.
//
// The sector size applies to disk images only.
func open(path string, write bool, sectorSize uint) (*handle, error) {
	var opts []block.Option

	if write {
		opts = append(opts, block.OpenForWrite())
	}

	dev, err := block.NewFromPath(path, opts...)
	if err != nil {
		return nil, err
	}

	isBlock, err := block.IsBlockDevice(dev.File())
	if err != nil {
		dev.Close() //nolint:errcheck

		return nil, err
	}

	if !isBlock {
		img, err := block.NewImage(dev.File(), sectorSize)
		if err != nil {
			dev.Close() //nolint:errcheck

			return nil, err
		}

		return &handle{
			medium:             img,
			dev:                dev,
			physicalSectorSize: sectorSize,
			typ:                DeviceTypeFile,
		}, nil
	}

	h, err := openBlock(dev, write)
	if err != nil {
		dev.Close() //nolint:errcheck

		return nil, err
	}

	return h, nil
}

func openBlock(dev *block.Device, write bool) (*handle, error) {
	if dev.IsCD() {
		return nil, errors.New("CD-ROM devices are not supported")
	}

	if write {
		readOnly, err := dev.IsReadOnly()
		if err != nil {
			return nil, err
		}

		if readOnly {
			return nil, errors.New("device is read-only")
		}
	}

	size, err := dev.GetSize()
	if err != nil {
		return nil, fmt.Errorf("failed to get device size: %w", err)
	}

	ioSize, err := dev.GetIOSize()
	if err != nil {
		return nil, fmt.Errorf("failed to get I/O size: %w", err)
	}

	sectorSize := uint64(dev.GetSectorSize())

	h := &handle{
		medium:             &blockMedium{Device: dev, size: size - size%sectorSize},
		dev:                dev,
		physicalSectorSize: dev.GetPhysicalSectorSize(),
		ioSize:             ioSize,
		typ:                DeviceTypeDisk,
	}

	// model is informational only
	h.model, _ = dev.GetModel() //nolint:errcheck

	switch {
	case dev.IsLoop():
		h.typ = DeviceTypeLoop
	default:
		whole, err := dev.IsWholeDisk()
		if err != nil {
			return nil, err
		}

		if !whole {
			h.typ = DeviceTypePartition
		}
	}

	return h, nil
}

func (h *handle) lock() error {
	return h.dev.TryLock(true)
}

func (h *handle) unlock() error {
	return h.dev.Unlock()
}

// syncKernel updates the kernel partitions of disks and loop devices.
func (h *handle) syncKernel(extents []partitioning.Extent) error {
	switch h.typ {
	case DeviceTypeDisk, DeviceTypeLoop:
		return partitioning.SyncKernel(h.dev, extents)
	case DeviceTypePartition, DeviceTypeFile:
	}

	return nil
}
