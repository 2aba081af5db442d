// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mbr

// Options is a set of options for creating a new partition table.
type Options struct {
	// DiskID is the disk signature.
	//
	// If not set, on partition table creation, a random one is generated.
	DiskID uint32
}

// Option is a function that sets some option.
type Option func(*Options)

// WithDiskID is an option to set the disk signature.
func WithDiskID(id uint32) Option {
	return func(o *Options) {
		o.DiskID = id
	}
}
