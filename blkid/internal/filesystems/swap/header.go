// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package swap

import "encoding/binary"

// SwapHeader is a byte slice representing the swap space header.
type SwapHeader []byte

// SWAPHEADER_SIZE is the size of the SwapHeader structure in bytes.
//
//nolint:revive,stylecheck
const SWAPHEADER_SIZE = 44

// Get_version returns version.
func (h SwapHeader) Get_version() uint32 { return binary.LittleEndian.Uint32(h[0:]) }

// Get_lastpage returns lastpage.
func (h SwapHeader) Get_lastpage() uint32 { return binary.LittleEndian.Uint32(h[4:]) }

// Get_uuid returns uuid.
func (h SwapHeader) Get_uuid() []byte { return h[12:28] }

// Get_volume returns volume.
func (h SwapHeader) Get_volume() []byte { return h[28:44] }
