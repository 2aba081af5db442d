// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package partitioning_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/siderolabs/partedit/partitioning"
)

type kernelMock struct {
	partitions map[int]partitioning.Extent
	busy       map[int]bool

	failAdd error
}

func (k *kernelMock) GetKernelLastPartitionNum() (int, error) {
	last := 0

	for no := range k.partitions {
		last = max(last, no)
	}

	return last, nil
}

func (k *kernelMock) KernelPartitionAdd(no int, start, length uint64) error {
	if k.failAdd != nil {
		return k.failAdd
	}

	k.partitions[no] = partitioning.Extent{Start: start, Length: length}

	return nil
}

func (k *kernelMock) KernelPartitionResize(no int, first, length uint64) error {
	k.partitions[no] = partitioning.Extent{Start: first, Length: length}

	return nil
}

func (k *kernelMock) KernelPartitionDelete(no int) error {
	if _, ok := k.partitions[no]; !ok {
		return unix.ENXIO
	}

	if k.busy[no] {
		return unix.EBUSY
	}

	delete(k.partitions, no)

	return nil
}

func TestSyncKernel(t *testing.T) {
	t.Parallel()

	for _, test := range []struct { //nolint:govet
		name string

		existing map[int]partitioning.Extent
		busy     map[int]bool
		extents  []partitioning.Extent

		expected      map[int]partitioning.Extent
		expectedError string
	}{
		{
			name: "add",

			existing: map[int]partitioning.Extent{},
			extents: []partitioning.Extent{
				{Start: 1 << 20, Length: 1 << 20},
				{},
				{Start: 3 << 20, Length: 1 << 20},
			},

			expected: map[int]partitioning.Extent{
				1: {Start: 1 << 20, Length: 1 << 20},
				3: {Start: 3 << 20, Length: 1 << 20},
			},
		},
		{
			name: "delete stale",

			existing: map[int]partitioning.Extent{
				1: {Start: 1 << 20, Length: 1 << 20},
				5: {Start: 10 << 20, Length: 1 << 20},
				6: {Start: 12 << 20, Length: 1 << 20},
			},
			extents: []partitioning.Extent{
				{Start: 1 << 20, Length: 2 << 20},
			},

			expected: map[int]partitioning.Extent{
				1: {Start: 1 << 20, Length: 2 << 20},
			},
		},
		{
			name: "resize busy",

			existing: map[int]partitioning.Extent{
				1: {Start: 1 << 20, Length: 1 << 20},
			},
			busy: map[int]bool{1: true},
			extents: []partitioning.Extent{
				{Start: 1 << 20, Length: 4 << 20},
			},

			expected: map[int]partitioning.Extent{
				1: {Start: 1 << 20, Length: 4 << 20},
			},
		},
		{
			name: "delete busy",

			existing: map[int]partitioning.Extent{
				1: {Start: 1 << 20, Length: 1 << 20},
				2: {Start: 2 << 20, Length: 1 << 20},
			},
			busy: map[int]bool{2: true},
			extents: []partitioning.Extent{
				{Start: 1 << 20, Length: 1 << 20},
			},

			expectedError: "failed to delete partition 2: device or resource busy",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			mock := &kernelMock{
				partitions: test.existing,
				busy:       test.busy,
			}

			err := partitioning.SyncKernel(mock, test.extents)
			if test.expectedError != "" {
				require.EqualError(t, err, test.expectedError)

				return
			}

			require.NoError(t, err)

			assert.Equal(t, test.expected, mock.partitions)
		})
	}
}

func TestSyncKernelAddError(t *testing.T) {
	t.Parallel()

	mock := &kernelMock{
		partitions: map[int]partitioning.Extent{},
		failAdd:    errors.New("boom"),
	}

	err := partitioning.SyncKernel(mock, []partitioning.Extent{{Start: 512, Length: 512}})
	require.EqualError(t, err, "failed to add partition 1: boom")
}
