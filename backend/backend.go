// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package backend loads and commits partition tables on block devices and disk images.
package backend

import (
	"context"

	"github.com/siderolabs/partedit/table"
)

// DeviceType is the kind of the device being edited.
type DeviceType string

// Device types.
const (
	DeviceTypeDisk      DeviceType = "disk"
	DeviceTypePartition DeviceType = "partition"
	DeviceTypeLoop      DeviceType = "loop"
	DeviceTypeFile      DeviceType = "file"
)

// DeviceInfo describes the device and the limits of its partition table.
type DeviceInfo struct {
	table.Device

	Path  string
	Model string

	PhysicalSectorSize uint64

	Type DeviceType

	// Labeled is true if a partition table was found on the device.
	Labeled bool

	// Warnings are problems of the on-disk table which the next commit fixes.
	Warnings []string
}

// Size returns the device size in bytes.
func (info DeviceInfo) Size() uint64 {
	return info.TotalSectors * info.SectorSize
}

// Backend reads and writes partition tables.
type Backend interface {
	// Load reads the device and its partition table.
	Load(ctx context.Context, path string) (DeviceInfo, []table.Partition, error)
	// Commit writes the partitions to the device, replacing the partition table.
	Commit(ctx context.Context, info DeviceInfo, partitions []table.Partition) error
}
