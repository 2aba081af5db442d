// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !linux

package backend

import (
	"fmt"
	"os"

	"github.com/siderolabs/partedit/block"
	"github.com/siderolabs/partedit/partitioning"
)

// handle is an opened disk image.
type handle struct {
	medium

	model              string
	physicalSectorSize uint
	ioSize             uint

	typ DeviceType
}

// open a disk image, block devices are supported on Linux only.
func open(path string, write bool, sectorSize uint) (*handle, error) {
	flag := os.O_RDONLY
	if write {
		flag = os.O_RDWR
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}

	img, err := block.NewImage(f, sectorSize)
	if err != nil {
		f.Close() //nolint:errcheck

		return nil, fmt.Errorf("only disk images are supported on this platform: %w", err)
	}

	return &handle{
		medium:             img,
		physicalSectorSize: sectorSize,
		typ:                DeviceTypeFile,
	}, nil
}

func (h *handle) lock() error {
	return nil
}

func (h *handle) unlock() error {
	return nil
}

func (h *handle) syncKernel([]partitioning.Extent) error {
	return nil
}
