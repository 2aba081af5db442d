// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ext probes extfs filesystems.
package ext

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/partedit/blkid/internal/magic"
	"github.com/siderolabs/partedit/blkid/internal/probe"
	"github.com/siderolabs/partedit/blkid/internal/utils"
	"github.com/siderolabs/partedit/internal/ioutil"
)

const sbOffset = 0x400

// Various extfs constants.
//
//nolint:stylecheck,revive
const (
	EXT3_FEATURE_COMPAT_HAS_JOURNAL      = 0x0004
	EXT4_FEATURE_INCOMPAT_EXTENTS        = 0x0040
	EXT4_FEATURE_INCOMPAT_64BIT          = 0x0080
	EXT4_FEATURE_INCOMPAT_FLEX_BG        = 0x0200
	EXT4_FEATURE_RO_COMPAT_METADATA_CSUM = 0x0400
)

var extfsMagic = magic.Magic{
	Offset: sbOffset + 0x38,
	Value:  []byte("\123\357"),
}

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{&extfsMagic}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "ext"
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	buf := make([]byte, SUPERBLOCK_SIZE)

	if err := ioutil.ReadFullAt(r, buf, sbOffset); err != nil {
		return nil, err
	}

	sb := SuperBlock(buf)

	if sb.Get_s_feature_ro_compat()&EXT4_FEATURE_RO_COMPAT_METADATA_CSUM > 0 {
		csum := utils.CRC32c(buf[:1020])

		if csum != sb.Get_s_checksum() {
			return nil, nil //nolint:nilnil
		}
	}

	uuid, err := uuid.FromBytes(sb.Get_s_uuid())
	if err != nil {
		return nil, err
	}

	res := &probe.Result{
		Name: variant(sb),
		UUID: &uuid,

		BlockSize:           sb.BlockSize(),
		FilesystemBlockSize: sb.BlockSize(),
		ProbedSize:          sb.FilesystemSize(),
	}

	lbl := sb.Get_s_volume_name()
	if lbl[0] != 0 {
		idx := bytes.IndexByte(lbl, 0)
		if idx == -1 {
			idx = len(lbl)
		}

		res.Label = pointer.To(string(lbl[:idx]))
	}

	return res, nil
}

func variant(sb SuperBlock) string {
	switch {
	case sb.Get_s_feature_incompat()&(EXT4_FEATURE_INCOMPAT_EXTENTS|EXT4_FEATURE_INCOMPAT_64BIT|EXT4_FEATURE_INCOMPAT_FLEX_BG) > 0:
		return "ext4"
	case sb.Get_s_feature_compat()&EXT3_FEATURE_COMPAT_HAS_JOURNAL > 0:
		return "ext3"
	default:
		return "ext2"
	}
}
