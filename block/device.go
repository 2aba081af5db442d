// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package block provides support for operations on blockdevices.
package block

import "os"

// Device wraps blockdevice operations.
type Device struct {
	f *os.File

	devNo uint64
}

// File returns the underlying file.
func (d *Device) File() *os.File {
	return d.f
}

// Close the device.
func (d *Device) Close() error {
	return d.f.Close()
}

// DefaultBlockSize is the default block size in bytes.
const DefaultBlockSize = 512
