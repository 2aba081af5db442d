// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package luks

import "encoding/binary"

// LuksHeader is a byte slice representing the binary LUKS header.
//
// LUKS1 and LUKS2 share the magic, the version and the uuid fields.
type LuksHeader []byte

// LUKSHEADER_SIZE is the size of the LuksHeader structure in bytes.
//
//nolint:revive,stylecheck
const LUKSHEADER_SIZE = 512

// Get_magic returns magic.
func (h LuksHeader) Get_magic() []byte { return h[0:6] }

// Get_version returns version.
func (h LuksHeader) Get_version() uint16 { return binary.BigEndian.Uint16(h[6:]) }

// Get_hdr_size returns hdr_size (LUKS2 only).
func (h LuksHeader) Get_hdr_size() uint64 { return binary.BigEndian.Uint64(h[8:]) }

// Get_label returns label (LUKS2 only).
func (h LuksHeader) Get_label() []byte { return h[24:72] }

// Get_uuid returns uuid.
func (h LuksHeader) Get_uuid() []byte { return h[168:208] }
