// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package mbr_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/partedit/block"
	"github.com/siderolabs/partedit/partitioning/mbr"
)

const (
	MiB = 1024 * 1024
	GiB = 1024 * MiB

	sectorSize = 512
)

func newImage(t *testing.T, size int64) *block.Image {
	t.Helper()

	f, err := os.Create(filepath.Join(t.TempDir(), "image.raw"))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, f.Close())
	})

	require.NoError(t, f.Truncate(size))

	img, err := block.NewImage(f, sectorSize)
	require.NoError(t, err)

	return img
}

func readSector(t *testing.T, img *block.Image, lba uint64) []byte {
	t.Helper()

	buf := make([]byte, sectorSize)

	_, err := img.ReadAt(buf, int64(lba)*sectorSize)
	require.NoError(t, err)

	return buf
}

var (
	bootPrimary = mbr.Partition{FirstLBA: 2048, LastLBA: 206847, Type: 0x83, Bootable: true}
	extended    = mbr.Partition{FirstLBA: 206848, LastLBA: 1050623, Type: 0x05}
	logical1    = mbr.Partition{FirstLBA: 208896, LastLBA: 413695, Type: 0x83}
	logical2    = mbr.Partition{FirstLBA: 415744, LastLBA: 620543, Type: 0x82}
)

func TestWriteRead(t *testing.T) {
	t.Parallel()

	img := newImage(t, GiB)

	table, err := mbr.New(img, mbr.WithDiskID(0xdeadbeef))
	require.NoError(t, err)

	require.NoError(t, table.SetPartition(1, bootPrimary))
	require.NoError(t, table.SetPartition(2, extended))
	require.NoError(t, table.SetPartition(5, logical1))
	require.NoError(t, table.SetPartition(6, logical2))

	require.NoError(t, table.Write())

	sector0 := readSector(t, img, 0)
	assert.Equal(t, []byte{0x55, 0xaa}, sector0[510:512])
	assert.EqualValues(t, 0xdeadbeef, binary.LittleEndian.Uint32(sector0[440:]))
	assert.EqualValues(t, 0x80, sector0[446])
	assert.EqualValues(t, 0x05, sector0[446+16+4])

	// first EBR at the start of the extended partition
	ebr1 := readSector(t, img, extended.FirstLBA)
	assert.Equal(t, []byte{0x55, 0xaa}, ebr1[510:512])
	assert.EqualValues(t, logical1.FirstLBA-extended.FirstLBA, binary.LittleEndian.Uint32(ebr1[446+8:]))
	assert.EqualValues(t, 0x05, ebr1[462+4])
	assert.EqualValues(t, logical2.FirstLBA-1-extended.FirstLBA, binary.LittleEndian.Uint32(ebr1[462+8:]))

	// second EBR just before its logical partition
	ebr2 := readSector(t, img, logical2.FirstLBA-1)
	assert.Equal(t, []byte{0x55, 0xaa}, ebr2[510:512])
	assert.EqualValues(t, 1, binary.LittleEndian.Uint32(ebr2[446+8:]))
	assert.EqualValues(t, logical2.LastLBA-logical2.FirstLBA+1, binary.LittleEndian.Uint32(ebr2[446+12:]))
	assert.EqualValues(t, 0, ebr2[462+4])

	table2, err := mbr.Read(img)
	require.NoError(t, err)

	assert.EqualValues(t, 0xdeadbeef, table2.DiskID())
	assert.Equal(t, []*mbr.Partition{&bootPrimary, &extended, nil, nil, &logical1, &logical2}, table2.Partitions())

	no, ext := table2.Extended()
	assert.Equal(t, 2, no)
	assert.Equal(t, &extended, ext)

	// re-write the table, and read it back
	require.NoError(t, table2.DeletePartition(5))
	require.NoError(t, table2.Write())

	table3, err := mbr.Read(img)
	require.NoError(t, err)

	assert.Equal(t, []*mbr.Partition{&bootPrimary, &extended, nil, nil, &logical1}, table3.Partitions())
}

func TestEmptyExtended(t *testing.T) {
	t.Parallel()

	img := newImage(t, GiB)

	// garbage in place of the first EBR
	_, err := img.WriteAt(bytes.Repeat([]byte{0xff}, sectorSize), int64(extended.FirstLBA)*sectorSize)
	require.NoError(t, err)

	table, err := mbr.New(img)
	require.NoError(t, err)

	require.NoError(t, table.SetPartition(3, extended))
	require.NoError(t, table.Write())

	table2, err := mbr.Read(img)
	require.NoError(t, err)

	assert.Equal(t, table.DiskID(), table2.DiskID())
	assert.Equal(t, []*mbr.Partition{nil, nil, &extended}, table2.Partitions())
}

func TestWritePreservesBootCode(t *testing.T) {
	t.Parallel()

	img := newImage(t, GiB)

	bootCode := bytes.Repeat([]byte{0xaa, 0x55, 0x90}, 440/3)

	_, err := img.WriteAt(bootCode, 0)
	require.NoError(t, err)

	for _, lba := range []uint64{1, img.GetSize()/sectorSize - 1} {
		_, err = img.WriteAt([]byte("EFI PART"), int64(lba)*sectorSize)
		require.NoError(t, err)
	}

	table, err := mbr.New(img)
	require.NoError(t, err)

	require.NoError(t, table.SetPartition(1, bootPrimary))
	require.NoError(t, table.Write())

	assert.Equal(t, bootCode, readSector(t, img, 0)[:len(bootCode)])
	assert.Equal(t, make([]byte, sectorSize), readSector(t, img, 1))
	assert.Equal(t, make([]byte, sectorSize), readSector(t, img, img.GetSize()/sectorSize-1))
}

func TestReadErrors(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name string

		prepare func(*testing.T, *block.Image)

		expectedError string
	}{
		{
			name:          "empty",
			expectedError: mbr.ErrNotFound.Error(),
		},
		{
			name: "protective",
			prepare: func(t *testing.T, img *block.Image) {
				t.Helper()

				sector := make([]byte, sectorSize)
				sector[510], sector[511] = 0x55, 0xaa
				sector[446+4] = 0xee
				binary.LittleEndian.PutUint32(sector[446+8:], 1)
				binary.LittleEndian.PutUint32(sector[446+12:], 1000)

				_, err := img.WriteAt(sector, 0)
				require.NoError(t, err)
			},
			expectedError: mbr.ErrProtective.Error(),
		},
		{
			name: "filesystem boot sector",
			prepare: func(t *testing.T, img *block.Image) {
				t.Helper()

				sector := bytes.Repeat([]byte{0x4e}, sectorSize)
				sector[510], sector[511] = 0x55, 0xaa

				_, err := img.WriteAt(sector, 0)
				require.NoError(t, err)
			},
			expectedError: mbr.ErrNotFound.Error(),
		},
		{
			name: "EBR loop",
			prepare: func(t *testing.T, img *block.Image) {
				t.Helper()

				table, err := mbr.New(img)
				require.NoError(t, err)

				require.NoError(t, table.SetPartition(1, extended))
				require.NoError(t, table.SetPartition(5, logical1))
				require.NoError(t, table.Write())

				// link the first EBR to itself
				ebr := readSector(t, img, extended.FirstLBA)
				ebr[462+4] = 0x05
				binary.LittleEndian.PutUint32(ebr[462+8:], 0)
				binary.LittleEndian.PutUint32(ebr[462+12:], 2048)

				_, err = img.WriteAt(ebr, int64(extended.FirstLBA)*sectorSize)
				require.NoError(t, err)
			},
			expectedError: "EBR chain loops at LBA 206848",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			img := newImage(t, GiB)

			if test.prepare != nil {
				test.prepare(t, img)
			}

			_, err := mbr.Read(img)
			require.EqualError(t, err, test.expectedError)
		})
	}
}

func TestSetPartitionErrors(t *testing.T) {
	t.Parallel()

	img := newImage(t, GiB)

	table, err := mbr.New(img)
	require.NoError(t, err)

	for _, test := range []struct {
		name string

		no        int
		partition mbr.Partition

		expectedError string
	}{
		{
			name:          "number",
			no:            0,
			partition:     bootPrimary,
			expectedError: "partition number 0 out of range 1-132",
		},
		{
			name:          "beyond device",
			no:            1,
			partition:     mbr.Partition{FirstLBA: 2048, LastLBA: 4 * GiB / sectorSize, Type: 0x83},
			expectedError: "partition 1 range 2048-8388608 is outside of the device",
		},
		{
			name:          "sector zero",
			no:            1,
			partition:     mbr.Partition{FirstLBA: 0, LastLBA: 2047, Type: 0x83},
			expectedError: "partition 1 range 0-2047 is outside of the device",
		},
		{
			name:          "empty type",
			no:            2,
			partition:     mbr.Partition{FirstLBA: 2048, LastLBA: 4095},
			expectedError: "partition 2 has empty type",
		},
		{
			name:          "nested extended",
			no:            5,
			partition:     extended,
			expectedError: "logical partition 5 can't be extended",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			require.EqualError(t, table.SetPartition(test.no, test.partition), test.expectedError)
		})
	}
}

func TestWriteErrors(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name string

		partitions map[int]mbr.Partition

		expectedError string
	}{
		{
			name: "logical without extended",
			partitions: map[int]mbr.Partition{
				5: logical1,
			},
			expectedError: "logical partitions require an extended partition",
		},
		{
			name: "logical outside extended",
			partitions: map[int]mbr.Partition{
				1: extended,
				5: bootPrimary,
			},
			expectedError: "logical partition 5 is outside of the extended partition",
		},
		{
			name: "missing logical",
			partitions: map[int]mbr.Partition{
				1: extended,
				6: logical2,
			},
			expectedError: "logical partition 5 is missing",
		},
		{
			name: "no room for EBR",
			partitions: map[int]mbr.Partition{
				1: extended,
				5: logical1,
				6: {FirstLBA: logical1.LastLBA + 1, LastLBA: logical2.LastLBA, Type: 0x83},
			},
			expectedError: "logical partition 6 leaves no room for its EBR",
		},
		{
			name: "logicals out of order",
			partitions: map[int]mbr.Partition{
				1: extended,
				5: logical2,
				6: logical1,
			},
			expectedError: "logical partition 6 leaves no room for its EBR",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			img := newImage(t, GiB)

			table, err := mbr.New(img)
			require.NoError(t, err)

			for no, p := range test.partitions {
				require.NoError(t, table.SetPartition(no, p))
			}

			require.EqualError(t, table.Write(), test.expectedError)

			// nothing was written
			_, err = mbr.Read(img)
			require.ErrorIs(t, err, mbr.ErrNotFound)
		})
	}
}
