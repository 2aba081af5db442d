// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package block_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/partedit/block"
)

const (
	MiB = 1024 * 1024
	GiB = 1024 * MiB
)

func TestImage(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "image.raw"))
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, f.Close())
	})

	require.NoError(t, f.Truncate(10*MiB+100))

	for _, test := range []struct {
		name       string
		sectorSize uint

		expectedSize  uint64
		expectedError string
	}{
		{
			name:         "512",
			sectorSize:   512,
			expectedSize: 10 * MiB,
		},
		{
			name:         "4096",
			sectorSize:   4096,
			expectedSize: 10 * MiB,
		},
		{
			name:          "zero",
			expectedError: "invalid sector size 0",
		},
		{
			name:          "not power of 2",
			sectorSize:    1000,
			expectedError: "invalid sector size 1000",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			img, err := block.NewImage(f, test.sectorSize)
			if test.expectedError != "" {
				require.EqualError(t, err, test.expectedError)

				return
			}

			require.NoError(t, err)

			assert.Equal(t, test.sectorSize, img.GetSectorSize())
			assert.Equal(t, test.expectedSize, img.GetSize())
		})
	}
}

func TestImageNotRegular(t *testing.T) {
	t.Parallel()

	dir, err := os.Open(t.TempDir())
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, dir.Close())
	})

	_, err = block.NewImage(dir, 512)
	require.EqualError(t, err, "not a regular file")
}
