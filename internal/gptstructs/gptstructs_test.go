// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package gptstructs_test

import (
	"bytes"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/partedit/internal/gptstructs"
)

const (
	sectorSize = 512
	lastLBA    = 2047
)

type memDisk struct {
	*bytes.Reader
}

func (memDisk) GetSectorSize() uint {
	return sectorSize
}

func buildDisk(t *testing.T, mutate func(gptstructs.Header)) memDisk {
	t.Helper()

	disk := make([]byte, (lastLBA+1)*sectorSize)

	entries := disk[2*sectorSize : 2*sectorSize+gptstructs.NumEntries*gptstructs.ENTRY_SIZE]

	entry := gptstructs.Entry(entries[:gptstructs.ENTRY_SIZE])
	entry.Put_partition_type_guid(bytes.Repeat([]byte{0x11}, 16))
	entry.Put_starting_lba(100)
	entry.Put_ending_lba(199)

	hdr := gptstructs.Header(disk[sectorSize : 2*sectorSize])
	hdr.Put_signature(gptstructs.HeaderSignature)
	hdr.Put_revision(0x00010000)
	hdr.Put_header_size(gptstructs.HEADER_SIZE)
	hdr.Put_my_lba(1)
	hdr.Put_alternate_lba(lastLBA)
	hdr.Put_first_usable_lba(34)
	hdr.Put_last_usable_lba(lastLBA - 33)
	hdr.Put_partition_entries_lba(2)
	hdr.Put_num_partition_entries(gptstructs.NumEntries)
	hdr.Put_sizeof_partition_entry(gptstructs.ENTRY_SIZE)
	hdr.Put_partition_entry_array_crc32(crc32.ChecksumIEEE(entries))

	if mutate != nil {
		mutate(hdr)
	}

	hdr.Put_header_crc32(hdr.CalculateChecksum())

	return memDisk{bytes.NewReader(disk)}
}

func TestReadHeader(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name string

		mutate func(gptstructs.Header)

		expectedError string
	}{
		{
			name: "valid",
		},
		{
			name: "signature",
			mutate: func(h gptstructs.Header) {
				h.Put_signature(0)
			},
			expectedError: "invalid GPT header: no signature at LBA 1",
		},
		{
			name: "wrong LBA",
			mutate: func(h gptstructs.Header) {
				h.Put_my_lba(2)
			},
			expectedError: "invalid GPT header: header at LBA 1 claims LBA 2",
		},
		{
			name: "usable range",
			mutate: func(h gptstructs.Header) {
				h.Put_last_usable_lba(lastLBA + 1)
			},
			expectedError: "invalid GPT header: usable range 34-2048",
		},
		{
			name: "entries checksum",
			mutate: func(h gptstructs.Header) {
				h.Put_partition_entry_array_crc32(0)
			},
			expectedError: "invalid GPT header: partition entries checksum mismatch",
		},
		{
			name: "entry size",
			mutate: func(h gptstructs.Header) {
				h.Put_sizeof_partition_entry(64)
			},
			expectedError: "invalid GPT header: partition entry size 64",
		},
		{
			name: "entries outside",
			mutate: func(h gptstructs.Header) {
				h.Put_partition_entries_lba(lastLBA)
			},
			expectedError: "invalid GPT header: partition entries at LBA 2047 are outside of the device",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			hdr, entries, err := gptstructs.ReadHeader(buildDisk(t, test.mutate), 1, lastLBA)

			if test.expectedError != "" {
				require.ErrorIs(t, err, gptstructs.ErrInvalidHeader)
				assert.EqualError(t, err, test.expectedError)
				assert.Nil(t, hdr)

				return
			}

			require.NoError(t, err)
			require.Len(t, entries, gptstructs.NumEntries)

			assert.EqualValues(t, 1, hdr.Get_my_lba())
			assert.EqualValues(t, 100, entries[0].Get_starting_lba())
			assert.EqualValues(t, 199, entries[0].Get_ending_lba())
			assert.EqualValues(t, 0, entries[1].Get_starting_lba())
		})
	}
}

func TestHeaderChecksum(t *testing.T) {
	t.Parallel()

	disk := buildDisk(t, nil)

	buf := make([]byte, sectorSize)
	_, err := disk.ReadAt(buf, sectorSize)
	require.NoError(t, err)

	hdr := gptstructs.Header(buf)

	// checksum field itself is not covered
	sum := hdr.CalculateChecksum()
	hdr.Put_header_crc32(0xffffffff)

	assert.Equal(t, sum, hdr.CalculateChecksum())

	covered := bytes.Clone(buf[:gptstructs.HEADER_SIZE])
	clear(covered[16:20])

	assert.Equal(t, sum, crc32.ChecksumIEEE(covered))
}
