// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/partedit/editor"
	"github.com/siderolabs/partedit/geometry"
	"github.com/siderolabs/partedit/table"
)

// printCmd prints the partition table without starting the editor.
var printCmd = &cobra.Command{
	Use:   "print DEVICE",
	Short: "Print the partition table of the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogger(func(logger *zap.Logger) error {
			unit, err := geometry.ParseUnit(rootCmdFlags.unit)
			if err != nil {
				return err
			}

			info, partitions, err := newDisk(logger).Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			tbl, err := table.New(info.Device, partitions)
			if err != nil {
				return err
			}

			return editor.Print(cmd.OutOrStdout(), info, tbl, unit)
		})
	},
}
