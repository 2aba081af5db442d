// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package luks probes LUKS encrypted volumes.
package luks

import (
	"bytes"

	"github.com/google/uuid"
	"github.com/siderolabs/go-pointer"

	"github.com/siderolabs/partedit/blkid/internal/magic"
	"github.com/siderolabs/partedit/blkid/internal/probe"
	"github.com/siderolabs/partedit/internal/ioutil"
)

var luksMagic = magic.Magic{
	Offset: 0,
	Value:  []byte("LUKS\xba\xbe"),
}

// Probe for the filesystem.
type Probe struct{}

// Magic returns the magic value for the filesystem.
func (p *Probe) Magic() []*magic.Magic {
	return []*magic.Magic{&luksMagic}
}

// Name returns the name of the filesystem.
func (p *Probe) Name() string {
	return "crypto_LUKS"
}

// Probe runs the further inspection and returns the result if successful.
func (p *Probe) Probe(r probe.Reader, _ magic.Magic) (*probe.Result, error) {
	buf := make([]byte, LUKSHEADER_SIZE)

	if err := ioutil.ReadFullAt(r, buf, 0); err != nil {
		return nil, err
	}

	hdr := LuksHeader(buf)

	res := &probe.Result{}

	switch hdr.Get_version() {
	case 1:
	case 2:
		res.Label = cstring(hdr.Get_label())
	default:
		return nil, nil //nolint:nilnil
	}

	if s := cstring(hdr.Get_uuid()); s != nil {
		if volumeUUID, err := uuid.Parse(*s); err == nil {
			res.UUID = pointer.To(volumeUUID)
		}
	}

	return res, nil
}

func cstring(b []byte) *string {
	if b[0] == 0 {
		return nil
	}

	idx := bytes.IndexByte(b, 0)
	if idx == -1 {
		idx = len(b)
	}

	return pointer.To(string(b[:idx]))
}
