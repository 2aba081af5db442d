// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package editor

import (
	"go.uber.org/zap"

	"github.com/siderolabs/partedit/geometry"
)

// Options configure the editor.
type Options struct {
	Logger *zap.Logger

	// Unit is the initial size display unit.
	Unit geometry.Unit
}

// Option is a function that sets some option.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithUnit sets the initial size display unit.
func WithUnit(unit geometry.Unit) Option {
	return func(o *Options) {
		o.Unit = unit
	}
}
