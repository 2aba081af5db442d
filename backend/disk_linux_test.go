// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backend_test

import (
	"context"
	"os"
	"testing"

	"github.com/freddierice/go-losetup/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/partedit/backend"
	"github.com/siderolabs/partedit/block"
	"github.com/siderolabs/partedit/table"
)

func TestLoopDevice(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("skipping test; must be root")
	}

	rawImage := newImage(t, GiB)

	loDev, err := losetup.Attach(rawImage, 0, false)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, loDev.Detach())
	})

	devPath := loDev.Path()

	disk := newDisk(t)

	info, partitions, err := disk.Load(context.Background(), devPath)
	require.NoError(t, err)

	assert.Empty(t, partitions)
	assert.Equal(t, backend.DeviceTypeLoop, info.Type)
	assert.Equal(t, table.LabelDOS, info.Label)
	assert.EqualValues(t, GiB/512, info.TotalSectors)

	require.NoError(t, disk.Commit(context.Background(), info, dosPartitions()))

	dev, err := block.NewFromPath(devPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, dev.Close())
	})

	last, err := dev.GetKernelLastPartitionNum()
	require.NoError(t, err)

	assert.Equal(t, 6, last)

	// shrink to a single partition, stale kernel partitions go away
	require.NoError(t, disk.Commit(context.Background(), info, dosPartitions()[:1]))

	last, err = dev.GetKernelLastPartitionNum()
	require.NoError(t, err)

	assert.Equal(t, 1, last)

	// the partition table is locked by the holder of an exclusive lock
	require.NoError(t, dev.Lock(true))

	err = disk.Commit(context.Background(), info, dosPartitions())
	require.ErrorContains(t, err, "device is in use")

	require.NoError(t, dev.Unlock())
}
