// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package xfs

import "encoding/binary"

// SuperBlock is a byte slice representing the XFS superblock.
//
// All fields are big endian.
type SuperBlock []byte

// SUPERBLOCK_SIZE is the size of the SuperBlock structure in bytes.
//
//nolint:revive,stylecheck
const SUPERBLOCK_SIZE = 128

// Get_sb_blocksize returns sb_blocksize.
func (s SuperBlock) Get_sb_blocksize() uint32 { return binary.BigEndian.Uint32(s[4:]) }

// Get_sb_dblocks returns sb_dblocks.
func (s SuperBlock) Get_sb_dblocks() uint64 { return binary.BigEndian.Uint64(s[8:]) }

// Get_sb_uuid returns sb_uuid.
func (s SuperBlock) Get_sb_uuid() []byte { return s[32:48] }

// Get_sb_logstart returns sb_logstart.
func (s SuperBlock) Get_sb_logstart() uint64 { return binary.BigEndian.Uint64(s[48:]) }

// Get_sb_rextsize returns sb_rextsize.
func (s SuperBlock) Get_sb_rextsize() uint32 { return binary.BigEndian.Uint32(s[80:]) }

// Get_sb_agcount returns sb_agcount.
func (s SuperBlock) Get_sb_agcount() uint32 { return binary.BigEndian.Uint32(s[88:]) }

// Get_sb_logblocks returns sb_logblocks.
func (s SuperBlock) Get_sb_logblocks() uint32 { return binary.BigEndian.Uint32(s[96:]) }

// Get_sb_sectsize returns sb_sectsize.
func (s SuperBlock) Get_sb_sectsize() uint16 { return binary.BigEndian.Uint16(s[102:]) }

// Get_sb_inodesize returns sb_inodesize.
func (s SuperBlock) Get_sb_inodesize() uint16 { return binary.BigEndian.Uint16(s[104:]) }

// Get_sb_fname returns sb_fname.
func (s SuperBlock) Get_sb_fname() []byte { return s[108:120] }

// Get_sb_blocklog returns sb_blocklog.
func (s SuperBlock) Get_sb_blocklog() uint8 { return s[120] }

// Get_sb_sectlog returns sb_sectlog.
func (s SuperBlock) Get_sb_sectlog() uint8 { return s[121] }

// Get_sb_inodelog returns sb_inodelog.
func (s SuperBlock) Get_sb_inodelog() uint8 { return s[122] }

// Get_sb_inopblog returns sb_inopblog.
func (s SuperBlock) Get_sb_inopblog() uint8 { return s[123] }

// Get_sb_imax_pct returns sb_imax_pct.
func (s SuperBlock) Get_sb_imax_pct() uint8 { return s[127] }
