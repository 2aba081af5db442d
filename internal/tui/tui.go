// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package tui implements the terminal user interface of the partition editor.
package tui

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/siderolabs/partedit/editor"
)

const (
	pageMain  = "main"
	pageModal = "modal"
)

// UI is the terminal front end of an editor.
type UI struct {
	ctx context.Context //nolint:containedctx

	editor *editor.Editor
	logger *zap.Logger

	app   *tview.Application
	pages *tview.Pages

	header *tview.TextView
	list   *tview.Table
	menu   *tview.TextView
	info   *tview.TextView

	// modal is the primitive which receives the input while a modal is shown.
	modal tview.Primitive
}

// New creates the UI for the editor.
//
// The context is used for writing the partition table.
func New(ctx context.Context, e *editor.Editor, opts ...Option) *UI {
	options := applyOptions(opts...)

	ui := &UI{
		ctx:    ctx,
		editor: e,
		logger: options.Logger,
		app:    tview.NewApplication(),
		pages:  tview.NewPages(),
		header: tview.NewTextView().SetTextAlign(tview.AlignCenter),
		list:   tview.NewTable().SetSelectable(true, false).SetFixed(1, 0),
		menu:   tview.NewTextView().SetDynamicColors(true).SetTextAlign(tview.AlignCenter),
		info:   tview.NewTextView().SetTextAlign(tview.AlignCenter),
	}

	if options.Screen != nil {
		ui.app.SetScreen(options.Screen)
	}

	headerLines := len(editor.Header(e.Info())) + 1

	main := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.header, headerLines, 0, false).
		AddItem(ui.list, 0, 1, true).
		AddItem(ui.menu, 1, 0, false).
		AddItem(ui.info, 1, 0, false)

	ui.pages.AddPage(pageMain, main, true, true)

	ui.app.SetInputCapture(ui.handleKey)
	ui.app.SetRoot(ui.pages, true).SetFocus(ui.list)

	ui.refresh()

	return ui
}

// Run runs the UI until the user quits.
func (ui *UI) Run() error {
	return ui.app.Run()
}

// handleKey routes the keys of the main page to the editor.
//
// Modals handle their keys themselves.
func (ui *UI) handleKey(event *tcell.EventKey) *tcell.EventKey {
	if ui.modal != nil {
		return event
	}

	var action editor.Action

	switch event.Key() { //nolint:exhaustive
	case tcell.KeyUp:
		ui.editor.MoveCursor(-1)
	case tcell.KeyDown:
		ui.editor.MoveCursor(1)
	case tcell.KeyLeft, tcell.KeyBacktab:
		ui.editor.MoveOption(-1)
	case tcell.KeyRight, tcell.KeyTab:
		ui.editor.MoveOption(1)
	case tcell.KeyEnter:
		action = ui.editor.Activate()
	case tcell.KeyCtrlC:
		action = editor.ActionQuit
	case tcell.KeyCtrlL:
		ui.app.Sync()
	case tcell.KeyRune:
		action = ui.editor.Key(event.Rune())
	default:
		return event
	}

	ui.handleAction(action)

	return nil
}

func (ui *UI) handleAction(action editor.Action) {
	switch action {
	case editor.ActionNone:
	case editor.ActionQuit:
		ui.logger.Debug("quit")
		ui.app.Stop()

		return
	case editor.ActionHelp:
		ui.showText("Help", editor.HelpText)
	case editor.ActionPrint:
		var buf bytes.Buffer

		if err := ui.editor.Print(&buf); err != nil {
			ui.logger.Error("failed to print partition table", zap.Error(err))
		}

		ui.showText("Partition Table", buf.String())
	case editor.ActionPrompt, editor.ActionConfirm:
		ui.showPrompt()
	}

	ui.refresh()
}

// answer handles the editor action after a prompt was answered.
func (ui *UI) answer(action editor.Action) {
	if _, ok := ui.editor.Prompt(); !ok {
		ui.closeModal()
	}

	ui.handleAction(action)
}

// refresh redraws the main page from the editor state.
func (ui *UI) refresh() {
	e := ui.editor

	ui.header.SetText(strings.Join(editor.Header(e.Info()), "\n"))

	ui.list.Clear()

	for col, title := range editor.Columns {
		ui.list.SetCell(0, col, tview.NewTableCell(title).
			SetSelectable(false).
			SetExpansion(1).
			SetAttributes(tcell.AttrBold))
	}

	for i, entry := range e.Rows() {
		row := e.Row(entry)

		for col, text := range []string{row.Name, row.Flags, row.PartType, row.FSType, row.Size} {
			cell := tview.NewTableCell(tview.Escape(text)).SetExpansion(1)

			if col == len(editor.Columns)-1 {
				cell.SetAlign(tview.AlignRight)
			}

			ui.list.SetCell(i+1, col, cell)
		}
	}

	ui.list.Select(e.Cursor()+1, 0)

	options := e.Options()
	items := make([]string, 0, len(options))

	for i, cmd := range options {
		item := tview.Escape(fmt.Sprintf("[%s]", cmd))

		if i == e.OptionIndex() {
			item = "[::r]" + item + "[::-]"
		}

		items = append(items, item)
	}

	ui.menu.SetText(strings.Join(items, " "))
	ui.info.SetText(e.Message())
}

// showPrompt shows the current question of the editor, or closes the modal if there is none.
func (ui *UI) showPrompt() {
	prompt, ok := ui.editor.Prompt()
	if !ok {
		ui.closeModal()

		return
	}

	if prompt.IsInput() {
		field := tview.NewInputField().SetFieldWidth(0)
		field.SetBorder(true).SetTitle(" " + prompt.Title + " ")

		field.SetDoneFunc(func(key tcell.Key) {
			switch key { //nolint:exhaustive
			case tcell.KeyEnter:
				ui.answer(ui.editor.Input(ui.ctx, field.GetText()))
			case tcell.KeyEscape:
				ui.answer(ui.editor.Cancel())
			}
		})

		ui.showModal(field, len(prompt.Title)+8, 3)

		return
	}

	list := tview.NewList().ShowSecondaryText(false)
	list.SetBorder(true).SetTitle(" " + prompt.Title + " ")

	width := len(prompt.Title) + 4

	for i, choice := range prompt.Choices {
		shortcut := rune(0)
		if i < 9 {
			shortcut = rune('1' + i)
		}

		list.AddItem(choice, "", shortcut, nil)

		width = max(width, len(choice)+8)
	}

	list.SetSelectedFunc(func(index int, _, _ string, _ rune) {
		ui.answer(ui.editor.Choose(index))
	})

	list.SetDoneFunc(func() {
		ui.answer(ui.editor.Cancel())
	})

	ui.showModal(list, width, min(len(prompt.Choices), 20)+2)
}

// showText shows a scrollable text closed with Escape, Enter or q.
func (ui *UI) showText(title, text string) {
	view := tview.NewTextView().SetText(text)
	view.SetBorder(true).SetTitle(" " + title + " ")

	closeView := func() {
		ui.closeModal()
		ui.refresh()
	}

	view.SetDoneFunc(func(tcell.Key) {
		closeView()
	})

	view.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyRune && event.Rune() == 'q' {
			closeView()

			return nil
		}

		return event
	})

	lines := strings.Split(text, "\n")
	width := 0

	for _, line := range lines {
		width = max(width, len(line))
	}

	ui.showModal(view, width+4, len(lines)+2)
}

func (ui *UI) showModal(p tview.Primitive, width, height int) {
	ui.modal = p

	ui.pages.RemovePage(pageModal)
	ui.pages.AddPage(pageModal, center(p, width, height), true, true)
	ui.app.SetFocus(p)
}

func (ui *UI) closeModal() {
	ui.modal = nil

	ui.pages.RemovePage(pageModal)
	ui.app.SetFocus(ui.list)
}

// center places the primitive in the middle of the screen.
func center(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)
}
