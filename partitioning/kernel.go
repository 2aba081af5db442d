// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package partitioning

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// KernelDevice manages the kernel view of the partitions on a block device.
type KernelDevice interface {
	GetKernelLastPartitionNum() (int, error)
	KernelPartitionAdd(no int, start, length uint64) error
	KernelPartitionResize(no int, first, length uint64) error
	KernelPartitionDelete(no int) error
}

// Extent is the location of a partition on the device in bytes.
type Extent struct {
	Start  uint64
	Length uint64
}

// IsZero returns true if the extent describes a missing partition.
func (e Extent) IsZero() bool {
	return e.Length == 0
}

// SyncKernel updates the kernel partitions to match the extents.
//
// Extents are indexed by the partition number minus one, zero extents are missing partitions.
// Partitions in use are resized in place instead of being re-added.
func SyncKernel(dev KernelDevice, extents []Extent) error {
	kernelPartitionNum, err := dev.GetKernelLastPartitionNum()
	if err != nil {
		return fmt.Errorf("failed to get kernel last partition number: %w", err)
	}

	partitionNum := max(kernelPartitionNum, len(extents))

	for no := 1; no <= partitionNum; no++ {
		var extent Extent
		if no <= len(extents) {
			extent = extents[no-1]
		}

		// try to delete the partition first
		err := dev.KernelPartitionDelete(no)

		switch {
		case errors.Is(err, unix.ENXIO):
		// partition doesn't exist, ok
		case errors.Is(err, unix.EBUSY) && !extent.IsZero():
			if err = dev.KernelPartitionResize(no, extent.Start, extent.Length); err != nil {
				return fmt.Errorf("failed to resize partition %d: %w", no, err)
			}

			continue
		case err != nil:
			return fmt.Errorf("failed to delete partition %d: %w", no, err)
		}

		if extent.IsZero() {
			continue
		}

		if err = dev.KernelPartitionAdd(no, extent.Start, extent.Length); err != nil {
			return fmt.Errorf("failed to add partition %d: %w", no, err)
		}
	}

	return nil
}
