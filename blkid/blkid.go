// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package blkid detects filesystems on partitions.
package blkid

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siderolabs/partedit/blkid/internal/chain"
	"github.com/siderolabs/partedit/internal/ioutil"
)

// ProbeResult is a result of probing a single filesystem.
type ProbeResult struct { //nolint:govet
	Name  string
	UUID  *uuid.UUID
	Label *string

	BlockSize           uint32
	FilesystemBlockSize uint32
	ProbedSize          uint64
}

// ProbeOptions is the options for probing.
type ProbeOptions struct {
	// Logger to use for logging.
	Logger *zap.Logger
}

// ProbeOption is an option for probing.
type ProbeOption func(*ProbeOptions)

// WithProbeLogger sets the logger for the probe.
func WithProbeLogger(logger *zap.Logger) ProbeOption {
	return func(o *ProbeOptions) {
		o.Logger = logger
	}
}

func applyProbeOptions(opts ...ProbeOption) ProbeOptions {
	o := ProbeOptions{
		Logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// ProbeRange detects the filesystem in the byte range [offset, offset+length) of r.
//
// If no filesystem is found, nil result is returned.
func ProbeRange(r io.ReaderAt, offset, length uint64, opts ...ProbeOption) (*ProbeResult, error) {
	options := applyProbeOptions(opts...)

	probers := chain.Default()

	magicReadSize := min(uint64(probers.MaxMagicSize()), length)
	if magicReadSize == 0 {
		return nil, nil //nolint:nilnil
	}

	buf := make([]byte, magicReadSize)

	if err := ioutil.ReadFullAt(r, buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("error reading magic buffer: %w", err)
	}

	section := io.NewSectionReader(r, int64(offset), int64(length))

	for _, matched := range probers.MagicMatches(buf) {
		res, err := matched.Prober.Probe(section, matched.Magic)
		if err != nil {
			options.Logger.Debug("probe failed", zap.String("prober", matched.Prober.Name()), zap.Uint64("offset", offset), zap.Error(err))

			continue
		}

		if res == nil {
			continue
		}

		name := matched.Prober.Name()
		if res.Name != "" {
			name = res.Name
		}

		return &ProbeResult{
			Name:                name,
			UUID:                res.UUID,
			Label:               res.Label,
			BlockSize:           res.BlockSize,
			FilesystemBlockSize: res.FilesystemBlockSize,
			ProbedSize:          res.ProbedSize,
		}, nil
	}

	return nil, nil //nolint:nilnil
}
