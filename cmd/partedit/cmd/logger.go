// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cmd

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// withLogger runs f with the logger configured by the flags.
//
// The terminal belongs to the UI, so logs go to the log file only.
func withLogger(f func(logger *zap.Logger) error) error {
	if rootCmdFlags.logFile == "" {
		return f(zap.NewNop())
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{rootCmdFlags.logFile}
	config.ErrorOutputPaths = []string{rootCmdFlags.logFile}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if rootCmdFlags.debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return err
	}

	defer logger.Sync() //nolint:errcheck

	return f(logger)
}
