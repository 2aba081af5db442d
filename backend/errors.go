// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backend

import "fmt"

// DeviceError is returned when the device can't be opened or read.
type DeviceError struct {
	Err  error
	Path string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %q: %s", e.Path, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// WriteError is returned when the partition table can't be written.
//
// The on-disk partition table is left unchanged.
type WriteError struct {
	Err  error
	Path string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write partition table to %q: %s", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// SyncError is returned when the partition table was written, but the kernel
// view of the partitions could not be updated.
type SyncError struct {
	Err  error
	Path string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("partition table written to %q, but the kernel was not updated (reboot or run partprobe): %s", e.Path, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}
