// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tui

import (
	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"
)

// Options for the UI.
type Options struct {
	Logger *zap.Logger

	// Screen replaces the terminal screen.
	Screen tcell.Screen
}

// Option configures the UI.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithScreen runs the UI on the screen instead of the terminal.
func WithScreen(screen tcell.Screen) Option {
	return func(o *Options) {
		o.Screen = screen
	}
}

func applyOptions(opts ...Option) Options {
	o := Options{
		Logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
