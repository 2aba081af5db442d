// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package chain provides a list of probers for different filesystems.
package chain

import (
	"github.com/siderolabs/partedit/blkid/internal/filesystems/ext"
	"github.com/siderolabs/partedit/blkid/internal/filesystems/luks"
	"github.com/siderolabs/partedit/blkid/internal/filesystems/swap"
	"github.com/siderolabs/partedit/blkid/internal/filesystems/vfat"
	"github.com/siderolabs/partedit/blkid/internal/filesystems/xfs"
	"github.com/siderolabs/partedit/blkid/internal/probe"
)

// Chain is a list of probers.
type Chain []probe.Prober

// MaxMagicSize returns the maximum size of the magic value in the chain.
func (chain Chain) MaxMagicSize() int {
	size := 0

	for _, prober := range chain {
		for _, magic := range prober.Magic() {
			size = max(size, magic.BlockSize())
		}
	}

	return size
}

// MagicMatches returns the probers that match the magic value in the buffer.
func (chain Chain) MagicMatches(buf []byte) []probe.MagicMatch {
	var matches []probe.MagicMatch

	for _, prober := range chain {
		for _, magic := range prober.Magic() {
			if magic.Matches(buf) {
				matches = append(matches, probe.MagicMatch{Magic: *magic, Prober: prober})
			}
		}
	}

	return matches
}

// Default returns a list of probers for the filesystems.
func Default() Chain {
	return Chain{
		&xfs.Probe{},
		&ext.Probe{},
		&vfat.Probe{},
		&swap.Probe{},
		&luks.Probe{},
	}
}
