// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/siderolabs/partedit/backend"
	"github.com/siderolabs/partedit/table"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetArgs(args)
	rootCmd.SetOut(&out)

	err := rootCmd.ExecuteContext(context.Background())

	return out.String(), err
}

// The command line shares global flag state, so the steps run in order.
func TestCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	backups := filepath.Join(dir, "backups")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(1<<30))
	require.NoError(t, f.Close())

	out, err := execute(t, "print", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Partition Table: dos (new)")
	assert.Contains(t, out, "Size: 1073741824 bytes")

	disk := backend.NewDisk(backend.WithLogger(zaptest.NewLogger(t)), backend.WithBackupDir(backups))

	info, _, err := disk.Load(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, disk.Commit(context.Background(), info, []table.Partition{
		{Range: table.Range{Start: 2048, End: 206847}, Kind: table.KindPrimary, Number: 1, Type: "83"},
	}))

	out, err = execute(t, "print", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Partition Table: dos\n")
	assert.Contains(t, out, "206847")

	matches, err := filepath.Glob(filepath.Join(backups, "*.bak.zst"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	out, err = execute(t, "restore", path, matches[0])
	require.NoError(t, err)
	assert.Contains(t, out, "Restored")

	out, err = execute(t, "print", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Partition Table: dos (new)")

	_, err = execute(t, "print", filepath.Join(dir, "missing.img"))
	require.Error(t, err)

	_, err = execute(t, "--unit", "furlong", "print", path)
	require.ErrorContains(t, err, "unknown unit")
}
