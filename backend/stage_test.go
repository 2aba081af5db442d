// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backend

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/partedit/partitioning"
	"github.com/siderolabs/partedit/table"
)

type memMedium struct {
	data []byte

	failWrite int
	writes    int
	syncs     int
}

func (m *memMedium) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(m.data).ReadAt(p, off)
}

func (m *memMedium) WriteAt(p []byte, off int64) (int, error) {
	m.writes++

	if m.failWrite > 0 && m.writes == m.failWrite {
		return 0, errors.New("I/O error")
	}

	return copy(m.data[off:], p), nil
}

func (m *memMedium) GetSectorSize() uint { return 512 }
func (m *memMedium) GetSize() uint64     { return uint64(len(m.data)) }
func (m *memMedium) Close() error        { return nil }

func (m *memMedium) Sync() error {
	m.syncs++

	return nil
}

func TestStage(t *testing.T) {
	t.Parallel()

	m := &memMedium{data: bytes.Repeat([]byte{0xaa}, 4096)}
	st := &stage{medium: m}

	_, err := st.WriteAt(bytes.Repeat([]byte{1}, 512), 512)
	require.NoError(t, err)

	_, err = st.WriteAt(bytes.Repeat([]byte{2}, 256), 768)
	require.NoError(t, err)

	// device is untouched
	assert.Equal(t, bytes.Repeat([]byte{0xaa}, 4096), m.data)
	require.NoError(t, st.Sync())
	assert.Zero(t, m.syncs)

	// reads see the staged writes in order
	buf := make([]byte, 1024)
	_, err = st.ReadAt(buf, 256)
	require.NoError(t, err)

	assert.Equal(t, bytes.Repeat([]byte{0xaa}, 256), buf[:256])
	assert.Equal(t, bytes.Repeat([]byte{1}, 256), buf[256:512])
	assert.Equal(t, bytes.Repeat([]byte{2}, 256), buf[512:768])
	assert.Equal(t, bytes.Repeat([]byte{0xaa}, 256), buf[768:])

	originals, err := st.originals()
	require.NoError(t, err)
	require.Len(t, originals, 2)

	assert.Equal(t, bytes.Repeat([]byte{0xaa}, 512), originals[0].Data)

	require.NoError(t, st.apply(originals))
	assert.Equal(t, 1, m.syncs)

	assert.Equal(t, bytes.Repeat([]byte{1}, 256), m.data[512:768])
	assert.Equal(t, bytes.Repeat([]byte{2}, 256), m.data[768:1024])
}

func TestStageRestore(t *testing.T) {
	t.Parallel()

	m := &memMedium{data: bytes.Repeat([]byte{0xaa}, 4096), failWrite: 3}
	st := &stage{medium: m}

	for _, off := range []int64{0, 1024, 2048} {
		_, err := st.WriteAt(bytes.Repeat([]byte{1}, 512), off)
		require.NoError(t, err)
	}

	originals, err := st.originals()
	require.NoError(t, err)

	require.EqualError(t, st.apply(originals), "failed to write 512 bytes at offset 2048: I/O error")

	assert.Equal(t, bytes.Repeat([]byte{0xaa}, 4096), m.data)
}

func TestKernelExtents(t *testing.T) {
	t.Parallel()

	extents := kernelExtents(512, []table.Partition{
		{Range: table.Range{Start: 2048, End: 4095}, Kind: table.KindPrimary, Number: 1},
		{Range: table.Range{Start: 4096, End: 20479}, Kind: table.KindExtended, Number: 3},
		{Range: table.Range{Start: 6144, End: 8191}, Kind: table.KindLogical, Number: 5},
	})

	assert.Equal(t, []partitioning.Extent{
		{Start: 2048 * 512, Length: 2048 * 512},
		{},
		{Start: 4096 * 512, Length: 1024},
		{},
		{Start: 6144 * 512, Length: 2048 * 512},
	}, extents)

	extents = kernelExtents(4096, []table.Partition{
		{Range: table.Range{Start: 256, End: 1279}, Kind: table.KindExtended, Number: 1},
	})

	assert.Equal(t, []partitioning.Extent{{Start: 256 * 4096, Length: 4096}}, extents)
}

func TestBackupStream(t *testing.T) {
	t.Parallel()

	records := []Record{
		{Offset: 0, Data: bytes.Repeat([]byte{1}, 512)},
		{Offset: 1 << 30, Data: bytes.Repeat([]byte{2}, 16384)},
	}

	var buf bytes.Buffer

	require.NoError(t, WriteBackup(&buf, records))

	read, err := ReadBackup(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, records, read)

	var empty bytes.Buffer

	require.NoError(t, WriteBackup(&empty, nil))

	read, err = ReadBackup(&empty)
	require.NoError(t, err)
	assert.Empty(t, read)

	_, err = ReadBackup(bytes.NewReader([]byte("not zstd at all")))
	require.Error(t, err)
}
