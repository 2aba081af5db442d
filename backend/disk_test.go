// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backend_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/siderolabs/partedit/backend"
	"github.com/siderolabs/partedit/table"
)

const (
	MiB = 1024 * 1024
	GiB = 1024 * MiB
	TiB = 1024 * GiB
)

func newImage(t *testing.T, size int64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "disk.img")

	f, err := os.Create(path)
	require.NoError(t, err)

	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())

	return path
}

func newDisk(t *testing.T, opts ...backend.Option) *backend.Disk {
	t.Helper()

	return backend.NewDisk(append([]backend.Option{backend.WithLogger(zaptest.NewLogger(t))}, opts...)...)
}

// writeExt2 puts a minimal ext2 superblock at the sector.
func writeExt2(t *testing.T, path string, sector uint64) {
	t.Helper()

	sb := make([]byte, 1024)
	binary.LittleEndian.PutUint32(sb[0x04:], 1024)
	binary.LittleEndian.PutUint16(sb[0x38:], 0xef53)

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)

	_, err = f.WriteAt(sb, int64(sector*512+1024))
	require.NoError(t, err)

	require.NoError(t, f.Close())
}

func dosPartitions() []table.Partition {
	return []table.Partition{
		{Range: table.Range{Start: 2048, End: 206847}, Kind: table.KindPrimary, Number: 1, Type: "83", Flags: table.FlagBoot},
		{Range: table.Range{Start: 206848, End: 1050623}, Kind: table.KindExtended, Number: 2, Type: "05"},
		{Range: table.Range{Start: 208896, End: 413695}, Kind: table.KindLogical, Number: 5, Type: "83"},
		{Range: table.Range{Start: 415744, End: 620543}, Kind: table.KindLogical, Number: 6, Type: "82"},
	}
}

func TestLoadUnlabeled(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name string

		size int64

		expectedLabel table.Label
	}{
		{
			name:          "small",
			size:          GiB,
			expectedLabel: table.LabelDOS,
		},
		{
			name:          "large",
			size:          3 * TiB,
			expectedLabel: table.LabelGPT,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			path := newImage(t, test.size)

			info, partitions, err := newDisk(t).Load(context.Background(), path)
			require.NoError(t, err)

			assert.Empty(t, partitions)

			assert.Equal(t, path, info.Path)
			assert.Equal(t, backend.DeviceTypeFile, info.Type)
			assert.False(t, info.Labeled)
			assert.Equal(t, test.expectedLabel, info.Label)
			assert.EqualValues(t, 512, info.SectorSize)
			assert.EqualValues(t, 512, info.PhysicalSectorSize)
			assert.EqualValues(t, test.size/512, info.TotalSectors)
			assert.EqualValues(t, 2048, info.Grain)
			assert.EqualValues(t, test.size, info.Size())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, _, err := newDisk(t).Load(context.Background(), filepath.Join(t.TempDir(), "missing.img"))
	require.Error(t, err)

	var deviceErr *backend.DeviceError

	require.ErrorAs(t, err, &deviceErr)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = newDisk(t, backend.WithSectorSize(1000)).Load(context.Background(), newImage(t, MiB))
	require.ErrorAs(t, err, &deviceErr)
	assert.ErrorContains(t, err, "invalid sector size 1000")
}

func TestCommitDOS(t *testing.T) {
	t.Parallel()

	path := newImage(t, GiB)
	disk := newDisk(t)

	info, _, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, disk.Commit(context.Background(), info, dosPartitions()))

	writeExt2(t, path, 208896)

	info2, partitions, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, info2.Labeled)
	assert.Equal(t, table.LabelDOS, info2.Label)

	expected := dosPartitions()
	expected[2].FSType = "ext2"

	assert.Equal(t, expected, partitions)

	// the loaded partitions are a valid table
	_, err = table.New(info2.Device, partitions)
	require.NoError(t, err)
}

func TestCommitGPT(t *testing.T) {
	t.Parallel()

	path := newImage(t, GiB)
	disk := newDisk(t)

	info, _, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	info.Device, err = table.NewDevice(table.LabelGPT, info.SectorSize, info.TotalSectors, info.Grain)
	require.NoError(t, err)

	partitions := []table.Partition{
		{
			Range:  table.Range{Start: 2048, End: 206847},
			Kind:   table.KindPrimary,
			Number: 1,
			Type:   "C12A7328-F81F-11D2-BA4B-00A0C93EC93B",
			Name:   "EFI",
			GUID:   uuid.MustParse("DA66737E-1ED4-4DDF-B98C-70CEBFE3ADA0"),
			Flags:  table.FlagBoot,
		},
		{
			Range:  table.Range{Start: 206848, End: info.LastUsable},
			Kind:   table.KindPrimary,
			Number: 2,
			Type:   table.GPTLinuxType,
			Name:   "root",
			GUID:   uuid.MustParse("3D0FE86B-7791-4659-B564-FC49A542866D"),
		},
	}

	require.NoError(t, disk.Commit(context.Background(), info, partitions))

	info2, loaded, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, info2.Labeled)
	assert.Equal(t, table.LabelGPT, info2.Label)
	assert.Equal(t, partitions, loaded)

	// new partitions get a unique GUID
	partitions = append(partitions[:1], table.Partition{
		Range:  table.Range{Start: 206848, End: 411647},
		Kind:   table.KindPrimary,
		Number: 2,
		Type:   table.GPTLinuxType,
	})

	require.NoError(t, disk.Commit(context.Background(), info2, partitions))

	_, loaded, err = disk.Load(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, loaded, 2)
	assert.NotEqual(t, uuid.Nil, loaded[1].GUID)
	assert.EqualValues(t, 411647, loaded[1].End)
}

func TestLoadGrownGPT(t *testing.T) {
	t.Parallel()

	path := newImage(t, GiB)
	disk := newDisk(t)

	info, _, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	info.Device, err = table.NewDevice(table.LabelGPT, info.SectorSize, info.TotalSectors, info.Grain)
	require.NoError(t, err)

	partitions := []table.Partition{
		{Range: table.Range{Start: 2048, End: 206847}, Kind: table.KindPrimary, Number: 1, Type: table.GPTLinuxType},
	}

	require.NoError(t, disk.Commit(context.Background(), info, partitions))

	require.NoError(t, os.Truncate(path, 2*GiB))

	grown, loaded, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, table.LabelGPT, grown.Label)
	assert.EqualValues(t, 2*GiB/512, grown.TotalSectors)
	assert.Equal(t, []string{"The backup GPT header is not at the end of the device, it is moved on write."}, grown.Warnings)
	require.Len(t, loaded, 1)

	require.NoError(t, disk.Commit(context.Background(), grown, loaded))

	fixed, _, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Empty(t, fixed.Warnings)
}

func TestCommitSwitchLabel(t *testing.T) {
	t.Parallel()

	path := newImage(t, GiB)
	disk := newDisk(t)

	info, _, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	gptInfo := info
	gptInfo.Device, err = table.NewDevice(table.LabelGPT, info.SectorSize, info.TotalSectors, info.Grain)
	require.NoError(t, err)

	require.NoError(t, disk.Commit(context.Background(), gptInfo, []table.Partition{
		{Range: table.Range{Start: 2048, End: 4095}, Kind: table.KindPrimary, Number: 1, Type: table.GPTLinuxType},
	}))

	// back to dos, GPT headers must not be picked up anymore
	require.NoError(t, disk.Commit(context.Background(), info, dosPartitions()[:1]))

	info2, partitions, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, table.LabelDOS, info2.Label)
	assert.Equal(t, dosPartitions()[:1], partitions)
}

func TestCommitErrors(t *testing.T) {
	t.Parallel()

	path := newImage(t, GiB)

	info, _, err := newDisk(t).Load(context.Background(), path)
	require.NoError(t, err)

	for _, test := range []struct { //nolint:govet
		name string

		opts       []backend.Option
		partitions []table.Partition

		expectedError string
	}{
		{
			name:          "read-only",
			opts:          []backend.Option{backend.WithReadOnly(true)},
			partitions:    dosPartitions(),
			expectedError: "read-only mode",
		},
		{
			name: "invalid type",
			partitions: []table.Partition{
				{Range: table.Range{Start: 2048, End: 4095}, Kind: table.KindPrimary, Number: 1, Type: "zz"},
			},
			expectedError: `partition 1: invalid type "zz"`,
		},
		{
			name: "logical without extended",
			partitions: []table.Partition{
				{Range: table.Range{Start: 4096, End: 8191}, Kind: table.KindLogical, Number: 5, Type: "83"},
			},
			expectedError: "logical partitions require an extended partition",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := newDisk(t, test.opts...).Commit(context.Background(), info, test.partitions)
			require.Error(t, err)

			var writeErr *backend.WriteError

			require.ErrorAs(t, err, &writeErr)
			assert.Equal(t, path, writeErr.Path)
			assert.EqualError(t, writeErr.Err, test.expectedError)

			// nothing was written
			info2, partitions, err := newDisk(t).Load(context.Background(), path)
			require.NoError(t, err)

			assert.False(t, info2.Labeled)
			assert.Empty(t, partitions)
		})
	}
}

func TestCommitGeometryChanged(t *testing.T) {
	t.Parallel()

	path := newImage(t, GiB)
	disk := newDisk(t)

	info, _, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, os.Truncate(path, 2*GiB))

	err = disk.Commit(context.Background(), info, dosPartitions())
	require.ErrorContains(t, err, "device geometry has changed since it was loaded")
}

func TestBackupRestore(t *testing.T) {
	t.Parallel()

	path := newImage(t, GiB)
	backupDir := filepath.Join(t.TempDir(), "backups")

	disk := newDisk(t, backend.WithBackupDir(backupDir))

	info, _, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, disk.Commit(context.Background(), info, dosPartitions()[:1]))
	require.NoError(t, disk.Commit(context.Background(), info, dosPartitions()))

	backups, err := filepath.Glob(filepath.Join(backupDir, "*.bak.zst"))
	require.NoError(t, err)
	require.Len(t, backups, 2)

	// the second backup holds the table with a single partition
	f, err := os.Open(backups[1])
	require.NoError(t, err)

	records, err := backend.ReadBackup(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NotEmpty(t, records)
	assert.EqualValues(t, 0, records[len(records)-1].Offset%512)

	require.NoError(t, disk.Restore(context.Background(), path, backups[1]))

	_, partitions, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, dosPartitions()[:1], partitions)

	// the first backup brings back the empty disk
	require.NoError(t, disk.Restore(context.Background(), path, backups[0]))

	info2, partitions, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	assert.False(t, info2.Labeled)
	assert.Empty(t, partitions)
}
