// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package chain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siderolabs/partedit/blkid/internal/chain"
)

func TestMaxMagicSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 65536, chain.Default().MaxMagicSize())
}

func TestMagicMatches(t *testing.T) {
	t.Parallel()

	buf := make([]byte, 65536)
	copy(buf[0xff6:], "SWAPSPACE2")

	matches := chain.Default().MagicMatches(buf)

	if assert.Len(t, matches, 1) {
		assert.Equal(t, "swap", matches[0].Prober.Name())
		assert.Equal(t, 0xff6, matches[0].Offset)
	}
}
