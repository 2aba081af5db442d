// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/siderolabs/gen/xslices"

	"github.com/siderolabs/partedit/geometry"
	"github.com/siderolabs/partedit/partitioning"
	"github.com/siderolabs/partedit/table"
)

// Prompt is a question the editor asks while a wizard runs.
type Prompt struct {
	Title string

	// Choices are answered with Choose; prompts without choices are answered with Input.
	Choices []string
}

// IsInput returns true if the prompt expects free text.
func (p Prompt) IsInput() bool {
	return len(p.Choices) == 0
}

type step int

const (
	stepKind step = iota
	stepSize
	stepPlacement
	stepLabel
	stepType
	stepConfirm
)

var labels = []table.Label{table.LabelDOS, table.LabelGPT}

// wizard is the state of a multi-step command.
type wizard struct {
	types []partitioning.Type

	entry table.Entry

	step   step
	kind   table.Kind
	length uint64
}

// Prompt returns the current question, if a wizard is running.
func (e *Editor) Prompt() (Prompt, bool) {
	if e.wizard == nil {
		return Prompt{}, false
	}

	w := e.wizard

	switch w.step {
	case stepKind:
		return Prompt{
			Title:   "Partition kind",
			Choices: []string{table.KindPrimary.String(), table.KindLogical.String()},
		}, true
	case stepSize:
		return Prompt{
			Title: fmt.Sprintf("Size in %s, or with a suffix (empty for all %s)",
				e.unit, geometry.Format(w.entry.Length(), e.info.SectorSize, e.unit)),
		}, true
	case stepPlacement:
		return Prompt{
			Title:   "Place the partition at",
			Choices: []string{table.PlaceBeginning.String(), table.PlaceEnd.String()},
		}, true
	case stepLabel:
		return Prompt{
			Title:   "Partition table type",
			Choices: xslices.Map(labels, func(l table.Label) string { return string(l) }),
		}, true
	case stepType:
		return Prompt{
			Title:   "Partition type",
			Choices: xslices.Map(w.types, func(t partitioning.Type) string { return t.Name }),
		}, true
	case stepConfirm:
		return Prompt{
			Title: "Are you sure you want to write the partition table to disk? (yes or no)",
		}, true
	}

	return Prompt{}, false
}

func (e *Editor) startNewPartition(entry table.Entry) Action {
	if !entry.IsFree() {
		e.message = "New is not a legal option for this partition."

		return ActionNone
	}

	w := &wizard{entry: entry, step: stepSize}

	switch class := e.table.Classify(entry); class {
	case table.ClassUnusable:
		e.message = "No room to create a partition in this free space."

		return ActionNone
	case table.ClassPrimary:
		w.kind = table.KindPrimary
	case table.ClassLogical:
		w.kind = table.KindLogical
	case table.ClassPriLog:
		w.step = stepKind
	}

	return e.startWizard(w, StateAwaitingSubChoice)
}

func (e *Editor) startNewTable() Action {
	return e.startWizard(&wizard{step: stepLabel}, StateAwaitingSubChoice)
}

func (e *Editor) startSetType(entry table.Entry) Action {
	if entry.IsFree() || entry.Kind == table.KindExtended {
		e.message = "Type is not a legal option for this partition."

		return ActionNone
	}

	return e.startWizard(&wizard{
		step:  stepType,
		entry: entry,
		types: partitioning.Types(e.info.Label),
	}, StateAwaitingSubChoice)
}

func (e *Editor) startWrite() Action {
	e.startWizard(&wizard{step: stepConfirm}, StateAwaitingConfirmation)

	return ActionConfirm
}

func (e *Editor) startWizard(w *wizard, state State) Action {
	e.wizard = w
	e.state = state

	prompt, _ := e.Prompt()
	e.message = prompt.Title

	return ActionPrompt
}

func (e *Editor) finish(message string) Action {
	e.wizard = nil
	e.state = StateBrowsing
	e.message = message

	return ActionNone
}

// Cancel aborts the running wizard without changing the table.
func (e *Editor) Cancel() Action {
	if e.wizard == nil {
		return ActionNone
	}

	if e.wizard.step == stepConfirm {
		return e.finish("Did not write partition table to disk.")
	}

	return e.finish("Cancelled.")
}

// Choose answers a prompt with choices.
func (e *Editor) Choose(index int) Action {
	prompt, ok := e.Prompt()
	if !ok || prompt.IsInput() {
		return ActionNone
	}

	if index < 0 || index >= len(prompt.Choices) {
		e.message = fmt.Sprintf("Invalid choice %d.", index+1)

		return ActionPrompt
	}

	w := e.wizard

	switch w.step { //nolint:exhaustive
	case stepKind:
		w.kind = []table.Kind{table.KindPrimary, table.KindLogical}[index]
		w.step = stepSize

		prompt, _ = e.Prompt()
		e.message = prompt.Title

		return ActionPrompt
	case stepPlacement:
		return e.create(w, []table.Placement{table.PlaceBeginning, table.PlaceEnd}[index])
	case stepLabel:
		if err := e.NewTable(labels[index]); err != nil {
			return e.finish(err.Error())
		}

		return e.finish(fmt.Sprintf("Created a new %s partition table.", labels[index]))
	case stepType:
		if err := e.SetType(w.entry.ID, w.types[index].ID); err != nil {
			return e.finish(err.Error())
		}

		return e.finish(fmt.Sprintf("Changed partition type to %s.", w.types[index].Name))
	}

	return ActionNone
}

// Input answers a prompt expecting free text.
//
// Confirming the write with "yes" commits the table to the device.
func (e *Editor) Input(ctx context.Context, text string) Action {
	prompt, ok := e.Prompt()
	if !ok || !prompt.IsInput() {
		return ActionNone
	}

	w := e.wizard

	switch w.step { //nolint:exhaustive
	case stepSize:
		length, err := geometry.ParseSize(text, e.info.SectorSize, e.unit)

		switch {
		case errors.Is(err, geometry.ErrEmptySize):
			length = 0
		case err != nil:
			e.message = err.Error()

			return ActionPrompt
		case length == 0:
			e.message = "Size must be greater than zero."

			return ActionPrompt
		}

		w.length = length

		if length == 0 || length >= w.entry.Length() {
			return e.create(w, table.PlaceBeginning)
		}

		w.step = stepPlacement

		prompt, _ = e.Prompt()
		e.message = prompt.Title

		return ActionPrompt
	case stepConfirm:
		if text != "yes" {
			return e.finish("Did not write partition table to disk.")
		}

		if err := e.Commit(ctx); err != nil {
			return e.finish(err.Error())
		}

		return e.finish("Wrote partition table to disk.")
	}

	return ActionNone
}

func (e *Editor) create(w *wizard, placement table.Placement) Action {
	if _, err := e.CreatePartition(w.entry, w.kind, w.length, placement); err != nil {
		return e.finish(err.Error())
	}

	return e.finish(fmt.Sprintf("Created %s partition.", w.kind))
}
