// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package vfat probes FAT12/FAT16/FAT32 filesystems.
package vfat

import (
	"bytes"

	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/partedit/blkid/internal/magic"
	"github.com/siderolabs/partedit/blkid/internal/probe"
	"github.com/siderolabs/partedit/blkid/internal/utils"
	"github.com/siderolabs/partedit/internal/ioutil"
)

var (
	fatMagic1 = magic.Magic{
		Offset: 0x52,
		Value:  []byte("MSWIN"),
	}

	fatMagic2 = magic.Magic{
		Offset: 0x52,
		Value:  []byte("FAT32   "),
	}

	fatMagic3 = magic.Magic{
		Offset: 0x36,
		Value:  []byte("MSDOS"),
	}

	fatMagic4 = magic.Magic{
		Offset: 0x36,
		Value:  []byte("FAT16   "),
	}

	fatMagic5 = magic.Magic{
		Offset: 0x36,
		Value:  []byte("FAT12   "),
	}

	fatMagic6 = magic.Magic{
		Offset: 0x36,
		Value:  []byte("FAT     "),
	}
)

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{
		&fatMagic1,
		&fatMagic2,
		&fatMagic3,
		&fatMagic4,
		&fatMagic5,
		&fatMagic6,
	}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "vfat"
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	buf := make([]byte, MSDOSSB_SIZE)

	if err := ioutil.ReadFullAt(r, buf, 0); err != nil {
		return nil, err
	}

	vfatSB := VFATSB(buf)
	msdosSB := MSDOSSB(buf)

	if !isValid(msdosSB) {
		return nil, nil //nolint:nilnil
	}

	sectorCount := uint32(msdosSB.Get_ms_sectors())
	if sectorCount == 0 {
		sectorCount = msdosSB.Get_ms_total_sect()
	}

	sectorSize := uint32(msdosSB.Get_ms_sector_size())

	res := &probe.Result{
		BlockSize:           sectorSize,
		FilesystemBlockSize: uint32(vfatSB.Get_vs_cluster_size()) * sectorSize,
		ProbedSize:          uint64(sectorCount) * uint64(sectorSize),
	}

	lbl := msdosSB.Get_ms_label()
	if msdosSB.Get_ms_fat_length() == 0 {
		lbl = vfatSB.Get_vs_label()
	}

	if label := string(bytes.TrimRight(lbl, " \x00")); label != "" && label != "NO NAME" {
		res.Label = pointer.To(label)
	}

	return res, nil
}

func isValid(msdosSB MSDOSSB) bool {
	if msdosSB.Get_ms_fats() == 0 {
		return false
	}

	if msdosSB.Get_ms_reserved() == 0 {
		return false
	}

	if !(0xf8 <= msdosSB.Get_ms_media() || msdosSB.Get_ms_media() == 0xf0) {
		return false
	}

	if !utils.IsPowerOf2(msdosSB.Get_ms_cluster_size()) {
		return false
	}

	if !utils.IsPowerOf2(msdosSB.Get_ms_sector_size()) {
		return false
	}

	if msdosSB.Get_ms_sector_size() < 512 || msdosSB.Get_ms_sector_size() > 4096 {
		return false
	}

	return true
}
