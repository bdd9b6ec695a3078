package ui

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"

	"InkNote/internal/board"
	"InkNote/internal/state"
)

// AppOptions configure the desktop window.
type AppOptions struct {
	Title   string
	Padding float32
	Logger  *slog.Logger
}

// RunApp shows the board in a window and blocks until it is closed.
func RunApp(b *board.Board, opts AppOptions) {
	if opts.Title == "" {
		opts.Title = "InkNote"
	}
	myApp := app.New()
	myWindow := myApp.NewWindow(opts.Title)
	myWindow.Resize(fyne.NewSize(1280, 900))

	view := NewBoardView(b, myWindow, opts.Padding, opts.Logger)
	toolbar := NewToolbar(b, view, myWindow)

	// Board callbacks arrive on worker goroutines.
	b.Observe(board.Observer{
		History: func(av state.Availability) {
			fyne.Do(func() { toolbar.SetAvailability(av) })
		},
		Busy: func(on bool) {
			fyne.Do(func() { toolbar.SetBusy(on) })
		},
		Annotation: func(a state.Annotation) {
			fyne.Do(func() { view.ShowNote(a) })
		},
		Repaint: func() {
			fyne.Do(view.Refresh)
		},
	})
	bindShortcuts(myWindow, toolbar)

	myWindow.SetContent(container.NewBorder(toolbar.Object(), nil, nil, nil, view.Object()))
	myWindow.SetOnClosed(b.Close)
	myWindow.ShowAndRun()
}

// bindShortcuts maps Ctrl/Cmd+Z to undo and Ctrl/Cmd+Y or Ctrl/Cmd+Shift+Z
// to redo.
func bindShortcuts(w fyne.Window, t *Toolbar) {
	undo := func(fyne.Shortcut) { t.Undo() }
	redo := func(fyne.Shortcut) { t.Redo() }
	c := w.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, undo)
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierShortcutDefault}, redo)
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift}, redo)
}
