// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package block

import (
	"errors"
	"fmt"
	"os"
)

// Image is a regular file used as a disk.
type Image struct {
	*os.File

	sectorSize uint
	size       uint64
}

// NewImage wraps the file as a disk with the sector size.
//
// The size is rounded down to whole sectors.
func NewImage(f *os.File, sectorSize uint) (*Image, error) {
	if sectorSize == 0 || !isPowerOf2(uint64(sectorSize)) {
		return nil, fmt.Errorf("invalid sector size %d", sectorSize)
	}

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	if !st.Mode().IsRegular() {
		return nil, errors.New("not a regular file")
	}

	size := uint64(st.Size())

	return &Image{
		File:       f,
		sectorSize: sectorSize,
		size:       size - size%uint64(sectorSize),
	}, nil
}

// GetSectorSize returns the sector size in bytes.
func (img *Image) GetSectorSize() uint {
	return img.sectorSize
}

// GetSize returns the image size in bytes.
func (img *Image) GetSize() uint64 {
	return img.size
}
