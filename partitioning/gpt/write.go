// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gpt

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"slices"

	"github.com/siderolabs/partedit/internal/gptstructs"
	"github.com/siderolabs/partedit/internal/gptutil"
	"github.com/siderolabs/partedit/internal/ioutil"
)

// Write writes both copies of the partition table and the protective MBR to the device.
//
// The kernel is not notified about the changes.
func (t *Table) Write() error {
	entries, err := t.encodeEntries()
	if err != nil {
		return err
	}

	hdr := t.header(crc32.ChecksumIEEE(entries))

	for _, c := range []struct {
		name       string
		headerLBA  uint64
		altLBA     uint64
		entriesLBA uint64
	}{
		{"primary", t.layout.primaryHeader, t.layout.backupHeader, t.layout.primaryEntries},
		{"backup", t.layout.backupHeader, t.layout.primaryHeader, t.layout.backupEntries},
	} {
		copyHdr := slices.Clone(hdr)
		copyHdr.Put_my_lba(c.headerLBA)
		copyHdr.Put_alternate_lba(c.altLBA)
		copyHdr.Put_partition_entries_lba(c.entriesLBA)
		copyHdr.Put_header_crc32(copyHdr.CalculateChecksum())

		if err = t.writeAt(copyHdr, c.headerLBA); err != nil {
			return fmt.Errorf("failed to write %s header: %w", c.name, err)
		}

		if err = t.writeAt(entries, c.entriesLBA); err != nil {
			return fmt.Errorf("failed to write %s entries: %w", c.name, err)
		}
	}

	if !t.options.SkipPMBR {
		if err = t.writePMBR(); err != nil {
			return err
		}
	}

	if err = t.dev.Sync(); err != nil {
		return fmt.Errorf("failed to sync device: %w", err)
	}

	return nil
}

func (t *Table) writeAt(b []byte, lba uint64) error {
	_, err := t.dev.WriteAt(b, int64(lba)*int64(t.layout.sectorSize))

	return err
}

func (t *Table) encodeEntries() ([]byte, error) {
	buf := make([]byte, gptstructs.ENTRY_SIZE*gptstructs.NumEntries)

	for i, p := range t.entries {
		if p == nil {
			continue
		}

		name, err := encodeName(p.Name)
		if err != nil {
			return nil, err
		}

		entry := gptstructs.Entry(buf[i*gptstructs.ENTRY_SIZE : (i+1)*gptstructs.ENTRY_SIZE])
		entry.Put_partition_type_guid(gptutil.UUIDToGUID(p.TypeGUID[:]))
		entry.Put_unique_partition_guid(gptutil.UUIDToGUID(p.PartGUID[:]))
		entry.Put_starting_lba(p.FirstLBA)
		entry.Put_ending_lba(p.LastLBA)
		entry.Put_attributes(p.Flags)
		entry.Put_partition_name(name)
	}

	return buf, nil
}

func encodeName(name string) ([]byte, error) {
	b, err := utf16.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return nil, fmt.Errorf("failed to encode partition name: %w", err)
	}

	if len(b) > 72 {
		return nil, fmt.Errorf("partition name %q too long: %d bytes", name, len(b))
	}

	return b, nil
}

// header returns the fields shared by both copies, the header occupies a whole sector.
func (t *Table) header(entriesCRC uint32) gptstructs.Header {
	hdr := gptstructs.Header(make([]byte, t.layout.sectorSize))
	hdr.Put_signature(gptstructs.HeaderSignature)
	hdr.Put_revision(0x00010000)
	hdr.Put_header_size(gptstructs.HEADER_SIZE)
	hdr.Put_first_usable_lba(t.layout.firstUsable)
	hdr.Put_last_usable_lba(t.layout.lastUsable)
	hdr.Put_disk_guid(gptutil.UUIDToGUID(t.diskGUID[:]))
	hdr.Put_num_partition_entries(gptstructs.NumEntries)
	hdr.Put_sizeof_partition_entry(gptstructs.ENTRY_SIZE)
	hdr.Put_partition_entry_array_crc32(entriesCRC)

	return hdr
}

// writePMBR replaces the MBR partition entries with the single protective one.
//
// Boot code and disk signature are kept.
func (t *Table) writePMBR() error {
	pmbr := make([]byte, 512)

	if err := ioutil.ReadFullAt(t.dev, pmbr, 0); err != nil {
		return fmt.Errorf("failed to read protective MBR: %w", err)
	}

	clear(pmbr[446:510])
	pmbr[510], pmbr[511] = 0x55, 0xaa

	entry := pmbr[446 : 446+16]

	// some BIOSes in legacy mode boot only from disks with an active MBR partition
	if t.options.MarkPMBRBootable {
		entry[0] = 0x80
	}

	copy(entry[1:4], []byte{0x00, 0x02, 0x00})
	entry[4] = 0xee
	copy(entry[5:8], []byte{0xff, 0xff, 0xff})

	binary.LittleEndian.PutUint32(entry[8:12], 1)
	binary.LittleEndian.PutUint32(entry[12:16], uint32(min(t.layout.lastLBA, math.MaxUint32)))

	if _, err := t.dev.WriteAt(pmbr, 0); err != nil {
		return fmt.Errorf("failed to write protective MBR: %w", err)
	}

	return nil
}
