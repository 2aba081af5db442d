// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package vfat

import "encoding/binary"

// MSDOSSB is a byte slice representing the FAT12/FAT16 boot sector.
type MSDOSSB []byte

// MSDOSSB_SIZE is the size of the MSDOSSB structure in bytes.
//
//nolint:revive,stylecheck
const MSDOSSB_SIZE = 512

// Get_ms_sector_size returns ms_sector_size.
func (s MSDOSSB) Get_ms_sector_size() uint16 { return binary.LittleEndian.Uint16(s[0x0b:]) }

// Get_ms_cluster_size returns ms_cluster_size.
func (s MSDOSSB) Get_ms_cluster_size() uint8 { return s[0x0d] }

// Get_ms_reserved returns ms_reserved.
func (s MSDOSSB) Get_ms_reserved() uint16 { return binary.LittleEndian.Uint16(s[0x0e:]) }

// Get_ms_fats returns ms_fats.
func (s MSDOSSB) Get_ms_fats() uint8 { return s[0x10] }

// Get_ms_sectors returns ms_sectors.
func (s MSDOSSB) Get_ms_sectors() uint16 { return binary.LittleEndian.Uint16(s[0x13:]) }

// Get_ms_media returns ms_media.
func (s MSDOSSB) Get_ms_media() uint8 { return s[0x15] }

// Get_ms_fat_length returns ms_fat_length.
func (s MSDOSSB) Get_ms_fat_length() uint16 { return binary.LittleEndian.Uint16(s[0x16:]) }

// Get_ms_total_sect returns ms_total_sect.
func (s MSDOSSB) Get_ms_total_sect() uint32 { return binary.LittleEndian.Uint32(s[0x20:]) }

// Get_ms_label returns ms_label.
func (s MSDOSSB) Get_ms_label() []byte { return s[0x2b:0x36] }

// VFATSB is a byte slice representing the FAT32 boot sector.
type VFATSB []byte

// VFATSB_SIZE is the size of the VFATSB structure in bytes.
//
//nolint:revive,stylecheck
const VFATSB_SIZE = 512

// Get_vs_cluster_size returns vs_cluster_size.
func (s VFATSB) Get_vs_cluster_size() uint8 { return s[0x0d] }

// Get_vs_label returns vs_label.
func (s VFATSB) Get_vs_label() []byte { return s[0x47:0x52] }
