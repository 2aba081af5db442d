// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package cmd implements the partedit command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/partedit/backend"
	"github.com/siderolabs/partedit/editor"
	"github.com/siderolabs/partedit/geometry"
	"github.com/siderolabs/partedit/internal/tui"
)

var rootCmdFlags struct {
	unit       string
	backupDir  string
	logFile    string
	sectorSize uint
	settle     bool
	readOnly   bool
	debug      bool
}

// rootCmd runs the interactive editor.
var rootCmd = &cobra.Command{
	Use:   "partedit DEVICE",
	Short: "Curses-based disk partition table editor",
	Long: `partedit edits dos (MBR) and GPT partition tables of block devices and disk images.

Nothing is written to the device until the table is written with the Write command.`,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogger(func(logger *zap.Logger) error {
			return runEditor(cmd.Context(), logger, args[0])
		})
	},
}

// Execute runs the command line.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())

		return err
	}

	return nil
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&rootCmdFlags.unit, "unit", "u", geometry.UnitDecimal.String(), "size display unit (MB, MiB, sectors, bytes)")
	flags.StringVar(&rootCmdFlags.backupDir, "backup-dir", "", "save the overwritten metadata into the directory before writing")
	flags.StringVar(&rootCmdFlags.logFile, "log-file", "", "write the log to the file")
	flags.UintVar(&rootCmdFlags.sectorSize, "sector-size", 512, "sector size of disk images")
	flags.BoolVar(&rootCmdFlags.settle, "settle", false, "wait for udev to settle after writing")
	flags.BoolVarP(&rootCmdFlags.readOnly, "read-only", "r", false, "never write to the device")
	flags.BoolVar(&rootCmdFlags.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(printCmd, restoreCmd)
}

func newDisk(logger *zap.Logger) *backend.Disk {
	return backend.NewDisk(
		backend.WithLogger(logger),
		backend.WithBackupDir(rootCmdFlags.backupDir),
		backend.WithSectorSize(rootCmdFlags.sectorSize),
		backend.WithSettle(rootCmdFlags.settle),
		backend.WithReadOnly(rootCmdFlags.readOnly),
	)
}

func runEditor(ctx context.Context, logger *zap.Logger, path string) error {
	unit, err := geometry.ParseUnit(rootCmdFlags.unit)
	if err != nil {
		return err
	}

	disk := newDisk(logger)

	info, partitions, err := disk.Load(ctx, path)
	if err != nil {
		return err
	}

	e, err := editor.New(info, partitions, disk,
		editor.WithLogger(logger),
		editor.WithUnit(unit),
	)
	if err != nil {
		return err
	}

	tview.Styles.PrimitiveBackgroundColor = tcell.ColorDefault

	if err = tui.New(ctx, e, tui.WithLogger(logger)).Run(); err != nil {
		return err
	}

	if e.Dirty() {
		fmt.Fprintln(os.Stderr, "The partition table was not written.")
	}

	return nil
}
