// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package geometry_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/partedit/geometry"
)

func TestGrainFor(t *testing.T) {
	t.Parallel()

	assert.EqualValues(t, 2048, geometry.GrainFor(512, 512))
	assert.EqualValues(t, 256, geometry.GrainFor(4096, 4096))
	assert.EqualValues(t, 8192, geometry.GrainFor(512, 4*1024*1024))
	assert.EqualValues(t, 1, geometry.GrainFor(0, 0))
}

func TestAlignStart(t *testing.T) {
	t.Parallel()

	grain := geometry.Grain(2048)

	for _, test := range []struct { //nolint:govet
		name   string
		s      uint64
		region geometry.Region

		expected   uint64
		expectedOK bool
	}{
		{
			name:       "already aligned",
			s:          4096,
			region:     geometry.Region{Start: 0, End: 100000},
			expected:   4096,
			expectedOK: true,
		},
		{
			name:       "round down",
			s:          5000,
			region:     geometry.Region{Start: 0, End: 100000},
			expected:   4096,
			expectedOK: true,
		},
		{
			name:       "round down leaves region",
			s:          5000,
			region:     geometry.Region{Start: 4500, End: 100000},
			expected:   6144,
			expectedOK: true,
		},
		{
			name:       "no aligned sector in region",
			s:          4500,
			region:     geometry.Region{Start: 4500, End: 5000},
			expected:   4500,
			expectedOK: false,
		},
		{
			name:       "first usable sector",
			s:          34,
			region:     geometry.Region{Start: 34, End: 100000},
			expected:   2048,
			expectedOK: true,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			aligned, ok := grain.AlignStart(test.s, test.region)
			assert.Equal(t, test.expectedOK, ok)
			assert.Equal(t, test.expected, aligned)
		})
	}
}

func TestAlignEnd(t *testing.T) {
	t.Parallel()

	grain := geometry.Grain(2048)

	for _, test := range []struct { //nolint:govet
		name   string
		e      uint64
		region geometry.Region

		expected   uint64
		expectedOK bool
	}{
		{
			name:       "already aligned",
			e:          4095,
			region:     geometry.Region{Start: 0, End: 100000},
			expected:   4095,
			expectedOK: true,
		},
		{
			name:       "round up",
			e:          5000,
			region:     geometry.Region{Start: 0, End: 100000},
			expected:   6143,
			expectedOK: true,
		},
		{
			name:       "round up leaves region",
			e:          5000,
			region:     geometry.Region{Start: 0, End: 6000},
			expected:   4095,
			expectedOK: true,
		},
		{
			name:       "no aligned sector in region",
			e:          5000,
			region:     geometry.Region{Start: 4500, End: 6000},
			expected:   5000,
			expectedOK: false,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			aligned, ok := grain.AlignEnd(test.e, test.region)
			assert.Equal(t, test.expectedOK, ok)
			assert.Equal(t, test.expected, aligned)
		})
	}
}

func TestUnitGrainOfOne(t *testing.T) {
	t.Parallel()

	grain := geometry.Grain(1)

	s, ok := grain.AlignStart(17, geometry.Region{Start: 10, End: 20})
	assert.True(t, ok)
	assert.EqualValues(t, 17, s)

	assert.True(t, grain.Aligned(17))
	assert.True(t, grain.AlignedEnd(17))
}

func TestConversions(t *testing.T) {
	t.Parallel()

	assert.EqualValues(t, 2, geometry.BytesToSectors(513, 512))
	assert.EqualValues(t, 1, geometry.BytesToSectors(512, 512))
	assert.EqualValues(t, 0, geometry.BytesToSectors(0, 512))
	assert.EqualValues(t, uint64(1)<<55, geometry.BytesToSectors(math.MaxUint64, 512))
	assert.EqualValues(t, 1024*4096, geometry.SectorsToBytes(1024, 4096))
}

func TestFormat(t *testing.T) {
	t.Parallel()

	const sectors = 2 * 1024 * 1024 // 1 GiB in 512-byte sectors

	assert.Equal(t, "1.1 GB", geometry.Format(sectors, 512, geometry.UnitDecimal))
	assert.Equal(t, "1.0 GiB", geometry.Format(sectors, 512, geometry.UnitBinary))
	assert.Equal(t, "2,097,152 s", geometry.Format(sectors, 512, geometry.UnitSectors))
	assert.Equal(t, "1,073,741,824 B", geometry.Format(sectors, 512, geometry.UnitBytes))
}

func TestUnitNext(t *testing.T) {
	t.Parallel()

	u := geometry.UnitDecimal

	seen := map[geometry.Unit]struct{}{}

	for range 4 {
		seen[u] = struct{}{}
		u = u.Next()
	}

	assert.Len(t, seen, 4)
	assert.Equal(t, geometry.UnitDecimal, u)
}

func TestParseSize(t *testing.T) {
	t.Parallel()

	for _, test := range []struct { //nolint:govet
		input string
		unit  geometry.Unit

		expected    uint64
		expectedErr bool
	}{
		{input: "2048s", unit: geometry.UnitDecimal, expected: 2048},
		{input: "100", unit: geometry.UnitSectors, expected: 100},
		{input: "1", unit: geometry.UnitBinary, expected: 2048},
		{input: "1", unit: geometry.UnitDecimal, expected: 1954},
		{input: "1024", unit: geometry.UnitBytes, expected: 2},
		{input: "1GiB", unit: geometry.UnitSectors, expected: 2 * 1024 * 1024},
		{input: "10 MB", unit: geometry.UnitSectors, expected: 19532},
		{input: "", unit: geometry.UnitSectors, expectedErr: true},
		{input: "lots", unit: geometry.UnitSectors, expectedErr: true},
		{input: "18446744073709551615", unit: geometry.UnitBytes, expected: 1 << 55},
		{input: "17592186044415", unit: geometry.UnitBinary, expected: 1<<55 - 2048},
		{input: "17592186044417", unit: geometry.UnitBinary, expectedErr: true},
		{input: "18446744073710", unit: geometry.UnitDecimal, expectedErr: true},
	} {
		t.Run(test.input, func(t *testing.T) {
			t.Parallel()

			sectors, err := geometry.ParseSize(test.input, 512, test.unit)
			if test.expectedErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, test.expected, sectors)
		})
	}
}

func TestParseSizeOverflow(t *testing.T) {
	t.Parallel()

	_, err := geometry.ParseSize("17592186044417", 512, geometry.UnitBinary)
	require.ErrorIs(t, err, geometry.ErrSizeOverflow)
}

func TestParseUnit(t *testing.T) {
	t.Parallel()

	u, err := geometry.ParseUnit("MiB")
	require.NoError(t, err)
	assert.Equal(t, geometry.UnitBinary, u)

	_, err = geometry.ParseUnit("furlongs")
	require.Error(t, err)
}
