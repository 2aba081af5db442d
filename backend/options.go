// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package backend

import "go.uber.org/zap"

// Options for the Disk backend.
type Options struct {
	Logger *zap.Logger

	// BackupDir enables metadata backups before every commit.
	BackupDir string

	// SectorSize of disk images, block devices report their own.
	SectorSize uint

	// Settle waits for udev to process the events after the commit.
	Settle bool

	// ReadOnly refuses to commit.
	ReadOnly bool
}

// Option configures the Disk backend.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithBackupDir stores the overwritten metadata into the directory before each commit.
func WithBackupDir(dir string) Option {
	return func(o *Options) {
		o.BackupDir = dir
	}
}

// WithSectorSize sets the sector size for disk images.
func WithSectorSize(size uint) Option {
	return func(o *Options) {
		o.SectorSize = size
	}
}

// WithSettle runs `udevadm settle` after the partition table is written.
func WithSettle(settle bool) Option {
	return func(o *Options) {
		o.Settle = settle
	}
}

// WithReadOnly opens the devices read-only and refuses to commit.
func WithReadOnly(readOnly bool) Option {
	return func(o *Options) {
		o.ReadOnly = readOnly
	}
}

func applyOptions(opts ...Option) Options {
	o := Options{
		Logger:     zap.NewNop(),
		SectorSize: 512,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
