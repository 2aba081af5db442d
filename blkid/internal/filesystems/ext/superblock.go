// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ext

import "encoding/binary"

// SuperBlock is a byte slice representing the extfs superblock.
type SuperBlock []byte

// SUPERBLOCK_SIZE is the size of the SuperBlock structure in bytes.
//
//nolint:revive,stylecheck
const SUPERBLOCK_SIZE = 1024

// Get_s_blocks_count returns s_blocks_count (low 32 bits).
func (s SuperBlock) Get_s_blocks_count() uint32 { return binary.LittleEndian.Uint32(s[0x04:]) }

// Get_s_log_block_size returns s_log_block_size.
func (s SuperBlock) Get_s_log_block_size() uint32 { return binary.LittleEndian.Uint32(s[0x18:]) }

// Get_s_magic returns s_magic.
func (s SuperBlock) Get_s_magic() uint16 { return binary.LittleEndian.Uint16(s[0x38:]) }

// Get_s_feature_compat returns s_feature_compat.
func (s SuperBlock) Get_s_feature_compat() uint32 { return binary.LittleEndian.Uint32(s[0x5c:]) }

// Get_s_feature_incompat returns s_feature_incompat.
func (s SuperBlock) Get_s_feature_incompat() uint32 { return binary.LittleEndian.Uint32(s[0x60:]) }

// Get_s_feature_ro_compat returns s_feature_ro_compat.
func (s SuperBlock) Get_s_feature_ro_compat() uint32 { return binary.LittleEndian.Uint32(s[0x64:]) }

// Get_s_uuid returns s_uuid.
func (s SuperBlock) Get_s_uuid() []byte { return s[0x68:0x78] }

// Get_s_volume_name returns s_volume_name.
func (s SuperBlock) Get_s_volume_name() []byte { return s[0x78:0x88] }

// Get_s_blocks_count_hi returns s_blocks_count_hi.
func (s SuperBlock) Get_s_blocks_count_hi() uint32 { return binary.LittleEndian.Uint32(s[0x150:]) }

// Get_s_checksum returns s_checksum.
func (s SuperBlock) Get_s_checksum() uint32 { return binary.LittleEndian.Uint32(s[0x3fc:]) }
