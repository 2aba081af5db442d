// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// restoreCmd writes a metadata backup back to the device.
var restoreCmd = &cobra.Command{
	Use:   "restore DEVICE BACKUP",
	Short: "Restore the partition table from a backup made with --backup-dir",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLogger(func(logger *zap.Logger) error {
			if err := newDisk(logger).Restore(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s.\n", args[0], args[1])

			return nil
		})
	},
}
