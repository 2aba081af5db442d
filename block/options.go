// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package block

import "os"

// Options for opening a block device.
type Options struct {
	Flag int
}

// Option is a function that sets some option.
type Option func(*Options)

// OpenForWrite opens the device for reading and writing.
func OpenForWrite() Option {
	return func(o *Options) {
		o.Flag |= os.O_RDWR
	}
}
