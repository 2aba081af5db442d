// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package editor implements the interactive partition editing state machine.
//
// The editor owns the partition table: all mutations go through it, and each of them
// either applies completely or leaves the table untouched.
package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/siderolabs/partedit/backend"
	"github.com/siderolabs/partedit/geometry"
	"github.com/siderolabs/partedit/table"
)

// State of the editor.
type State int

// Editor states.
const (
	StateBrowsing State = iota
	StateAwaitingSubChoice
	StateAwaitingConfirmation
	StateQuit
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateBrowsing:
		return "browsing"
	case StateAwaitingSubChoice:
		return "awaiting sub-choice"
	case StateAwaitingConfirmation:
		return "awaiting confirmation"
	case StateQuit:
		return "quit"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Action tells the UI what to do after an editor call.
type Action int

// Actions.
const (
	ActionNone Action = iota
	ActionQuit
	ActionHelp
	ActionPrint
	// ActionPrompt means the editor waits for Choose, Input or Cancel.
	ActionPrompt
	// ActionConfirm means the editor waits for the write confirmation via Input or Cancel.
	ActionConfirm
)

// Writer commits partitions to the device.
type Writer interface {
	Commit(ctx context.Context, info backend.DeviceInfo, partitions []table.Partition) error
}

// Editor is the partition editor.
type Editor struct {
	writer Writer
	logger *zap.Logger

	table *table.Table

	wizard *wizard

	message string
	info    backend.DeviceInfo

	state  State
	cursor int
	option int
	unit   geometry.Unit

	dirty bool
}

// New creates an editor for the partitions loaded from the device.
func New(info backend.DeviceInfo, partitions []table.Partition, writer Writer, opts ...Option) (*Editor, error) {
	var options Options

	for _, opt := range opts {
		opt(&options)
	}

	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	tbl, err := table.New(info.Device, partitions)
	if err != nil {
		return nil, fmt.Errorf("failed to load partition table: %w", err)
	}

	e := &Editor{
		writer: writer,
		logger: options.Logger,
		table:  tbl,
		info:   info,
		unit:   options.Unit,
	}

	e.SelectPartition(0)

	if len(info.Warnings) > 0 {
		e.message = strings.Join(info.Warnings, " ")
	}

	return e, nil
}

// Info returns the device information.
func (e *Editor) Info() backend.DeviceInfo {
	return e.info
}

// Table returns a snapshot of the partition table.
func (e *Editor) Table() *table.Table {
	return e.table.Clone()
}

// Rows returns the entries shown to the user.
func (e *Editor) Rows() []table.Entry {
	return e.table.Visible()
}

// Cursor returns the index of the selected row.
func (e *Editor) Cursor() int {
	return e.cursor
}

// Selected returns the selected row.
func (e *Editor) Selected() (table.Entry, bool) {
	rows := e.Rows()

	if e.cursor < 0 || e.cursor >= len(rows) {
		return table.Entry{}, false
	}

	return rows[e.cursor], true
}

// Options returns the menu options for the selected row.
func (e *Editor) Options() []Command {
	entry, ok := e.Selected()
	if !ok || entry.IsFree() {
		return slices.Clone(freeSpaceMenu)
	}

	return slices.Clone(partitionMenu)
}

// OptionIndex returns the index of the selected menu option.
func (e *Editor) OptionIndex() int {
	return e.option
}

// State returns the editor state.
func (e *Editor) State() State {
	return e.state
}

// Message returns the info line.
func (e *Editor) Message() string {
	return e.message
}

// Unit returns the size display unit.
func (e *Editor) Unit() geometry.Unit {
	return e.unit
}

// Dirty returns true if the table has changes which are not written to the device.
func (e *Editor) Dirty() bool {
	return e.dirty
}

// SelectPartition moves the cursor to the row.
//
// The index is clamped to the rows, and the default menu option is selected.
func (e *Editor) SelectPartition(index int) {
	rows := e.Rows()

	e.cursor = max(min(index, len(rows)-1), 0)
	e.option = min(defaultOption, len(e.Options())-1)
	e.message = e.Options()[e.option].Description()
}

// MoveCursor moves the cursor by delta rows.
func (e *Editor) MoveCursor(delta int) {
	e.SelectPartition(e.cursor + delta)
}

// MoveOption selects the menu option delta positions away.
func (e *Editor) MoveOption(delta int) {
	options := e.Options()

	e.option = max(min(e.option+delta, len(options)-1), 0)
	e.message = options[e.option].Description()
}

// Key handles a shortcut key press.
//
// Keys are ignored unless the editor is browsing.
func (e *Editor) Key(key rune) Action {
	if e.state != StateBrowsing {
		return ActionNone
	}

	cmd, ok := CommandForKey(key)
	if !ok {
		return ActionNone
	}

	if !slices.Contains(e.Options(), cmd) {
		e.message = fmt.Sprintf("%s is not a legal option for this partition.", cmd)

		return ActionNone
	}

	return e.Dispatch(cmd)
}

// Activate runs the selected menu option.
func (e *Editor) Activate() Action {
	if e.state != StateBrowsing {
		return ActionNone
	}

	return e.Dispatch(e.Options()[e.option])
}

// Dispatch runs the command on the selected row.
func (e *Editor) Dispatch(cmd Command) Action {
	entry, _ := e.Selected()

	switch cmd {
	case CommandBootable:
		e.report(e.ToggleFlag(entry.ID, table.FlagBoot), "Toggled bootable flag.")
	case CommandDelete:
		e.report(e.Delete(entry.ID), "Deleted partition.")
	case CommandHelp:
		return ActionHelp
	case CommandMaximize:
		e.report(e.Maximize(entry.ID), "Maximized partition.")
	case CommandNew:
		return e.startNewPartition(entry)
	case CommandNewTable:
		return e.startNewTable()
	case CommandPrint:
		return ActionPrint
	case CommandQuit:
		e.state = StateQuit

		return ActionQuit
	case CommandType:
		return e.startSetType(entry)
	case CommandUnits:
		e.CycleUnit()
	case CommandWrite:
		return e.startWrite()
	}

	return ActionNone
}

func (e *Editor) report(err error, success string) {
	if err != nil {
		e.logger.Info("operation rejected", zap.Error(err))
		e.message = err.Error()

		return
	}

	e.message = success
}

// mutate applies f to a copy of the table and replaces the table only if f succeeds.
func (e *Editor) mutate(f func(*table.Table) error) error {
	work := e.table.Clone()

	if err := f(work); err != nil {
		return err
	}

	e.table = work
	e.dirty = true
	e.cursor = max(min(e.cursor, len(e.Rows())-1), 0)
	e.option = min(e.option, len(e.Options())-1)

	return nil
}

// ToggleFlag flips the flag of the partition; free space is ignored.
func (e *Editor) ToggleFlag(id table.ID, flag table.Flags) error {
	if id == table.NoID {
		return nil
	}

	err := e.mutate(func(t *table.Table) error {
		return t.ToggleFlag(id, flag)
	})
	if err == nil {
		e.logger.Info("toggled partition flag", zap.Uint64("id", uint64(id)), zap.Stringer("flag", flag))
	}

	return err
}

// Delete removes the partition.
func (e *Editor) Delete(id table.ID) error {
	var removed table.Partition

	err := e.mutate(func(t *table.Table) error {
		var err error

		removed, err = t.Remove(id)

		return err
	})
	if err == nil {
		e.logger.Info("deleted partition", zap.Stringer("partition", removed))
	}

	return err
}

// CreatePartition creates a new partition in the free space entry.
//
// A zero length takes the whole region, placement decides which end of the region is used otherwise.
func (e *Editor) CreatePartition(free table.Entry, kind table.Kind, length uint64, placement table.Placement) (table.ID, error) {
	var id table.ID

	err := e.mutate(func(t *table.Table) error {
		var err error

		id, err = t.Create(free, kind, length, placement)

		return err
	})
	if err != nil {
		return table.NoID, err
	}

	p, _ := e.table.Lookup(id)

	e.logger.Info("created partition", zap.Stringer("partition", p), zap.Stringer("placement", placement))

	if idx := slices.IndexFunc(e.Rows(), func(row table.Entry) bool { return row.ID == id }); idx != -1 {
		e.SelectPartition(idx)
	}

	return id, nil
}

// Maximize grows the partition into the free space after it.
func (e *Editor) Maximize(id table.ID) error {
	err := e.mutate(func(t *table.Table) error {
		return t.Maximize(id)
	})
	if err == nil {
		e.logger.Info("maximized partition", zap.Uint64("id", uint64(id)))
	}

	return err
}

// SetType changes the partition type.
func (e *Editor) SetType(id table.ID, typ string) error {
	err := e.mutate(func(t *table.Table) error {
		return t.SetType(id, typ)
	})
	if err == nil {
		e.logger.Info("changed partition type", zap.Uint64("id", uint64(id)), zap.String("type", typ))
	}

	return err
}

// NewTable replaces the table with an empty one of the label.
func (e *Editor) NewTable(label table.Label) error {
	dev, err := table.NewDevice(label, e.info.SectorSize, e.info.TotalSectors, e.info.Grain)
	if err != nil {
		return err
	}

	tbl, err := table.New(dev, nil)
	if err != nil {
		return err
	}

	e.info.Device = dev
	e.table = tbl
	e.dirty = true

	e.logger.Info("created new partition table", zap.String("label", string(label)))

	e.SelectPartition(0)

	return nil
}

// CycleUnit switches to the next size display unit.
func (e *Editor) CycleUnit() {
	e.unit = e.unit.Next()
	e.message = fmt.Sprintf("Units: %s", e.unit)
}

// Commit writes the table to the device.
//
// On failure the writer error is returned as is, and the editor state is unchanged.
// A *backend.SyncError means the table is on the device already, so the editor
// is marked clean before the error is returned.
func (e *Editor) Commit(ctx context.Context) error {
	err := e.writer.Commit(ctx, e.info, e.table.Partitions())

	var syncErr *backend.SyncError

	switch {
	case err == nil:
	case errors.As(err, &syncErr):
		e.logger.Warn("partition table written, kernel not updated", zap.String("device", e.info.Path), zap.Error(err))
	default:
		e.logger.Error("failed to write partition table", zap.String("device", e.info.Path), zap.Error(err))

		return err
	}

	e.info.Labeled = true
	e.info.Warnings = nil
	e.dirty = false

	e.logger.Info("wrote partition table", zap.String("device", e.info.Path), zap.String("label", string(e.info.Label)))

	return err
}
