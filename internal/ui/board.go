package ui

import (
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"InkNote/internal/board"
	"InkNote/internal/diag"
	"InkNote/internal/state"
)

const minNoteWidth = 140

// noteEntry is the editor of one annotation.
type noteEntry struct {
	widget.Entry
	id   string
	view *BoardView
}

func newNoteEntry(v *BoardView, a state.Annotation) *noteEntry {
	e := &noteEntry{id: a.ID, view: v}
	e.ExtendBaseWidget(e)
	e.Wrapping = fyne.TextWrapOff
	e.SetText(a.Text)
	e.OnChanged = func(s string) {
		v.board.Overlay().SetText(e.id, s)
		v.fit(e)
	}
	return e
}

func (e *noteEntry) FocusGained() {
	e.Entry.FocusGained()
	e.view.board.Overlay().Focus(e.id)
}

// TypedKey deletes the note on Escape, whatever it contains.
func (e *noteEntry) TypedKey(key *fyne.KeyEvent) {
	if key.Name == fyne.KeyEscape {
		e.view.remove(e.id)
		return
	}
	e.Entry.TypedKey(key)
}

func (e *noteEntry) FocusLost() {
	e.Entry.FocusLost()
	e.view.blur(e)
}

// BoardView stacks the surface widget and the annotation editors.
type BoardView struct {
	board   *board.Board
	win     fyne.Window
	surface *BoardWidget
	notes   *fyne.Container
	content fyne.CanvasObject
	log     *slog.Logger

	mu      sync.Mutex
	entries map[string]*noteEntry
}

func NewBoardView(b *board.Board, win fyne.Window, padding float32, log *slog.Logger) *BoardView {
	v := &BoardView{
		board:   b,
		win:     win,
		notes:   container.NewWithoutLayout(),
		entries: make(map[string]*noteEntry),
		log:     diag.Component(log, "ui"),
	}
	v.surface = NewBoardWidget(b, padding, log)
	v.surface.OnDoubleTap = v.addNoteAt
	v.surface.OnResized = v.trackOrigin
	v.content = container.NewStack(v.surface, v.notes)
	return v
}

func (v *BoardView) Object() fyne.CanvasObject { return v.content }

func (v *BoardView) Refresh() { v.surface.Refresh() }

// trackOrigin records where the surface sits in the window so annotations
// created from window positions can be mapped back onto it.
func (v *BoardView) trackOrigin() {
	abs := fyne.CurrentApp().Driver().AbsolutePositionForObject(v.surface)
	o := abs.Add(v.surface.Origin())
	v.board.Overlay().SetOrigin(state.Point{X: float64(o.X), Y: float64(o.Y)})
}

// addNoteAt opens an empty annotation at a window position.
func (v *BoardView) addNoteAt(abs fyne.Position) {
	v.trackOrigin()
	a := v.board.Overlay().CreateInViewport(state.Point{X: float64(abs.X), Y: float64(abs.Y)}, "")
	v.ShowNote(a)
}

// ShowNote adds an editor for a, focuses it and selects its text when the
// annotation asks for that. Call on the UI goroutine.
func (v *BoardView) ShowNote(a state.Annotation) {
	e := newNoteEntry(v, a)
	v.mu.Lock()
	v.entries[a.ID] = e
	v.mu.Unlock()

	v.place(e, v.board.Overlay().SurfacePos(a))
	v.notes.Add(e)
	if a.Focused {
		v.win.Canvas().Focus(e)
		if a.SelectAll {
			e.TypedShortcut(&fyne.ShortcutSelectAll{})
		}
	}
	v.log.Debug("note shown", "id", a.ID, "x", a.Pos.X, "y", a.Pos.Y)
}

func (v *BoardView) place(e *noteEntry, p state.Point) {
	o := v.surface.Origin()
	e.Move(fyne.NewPos(float32(p.X)+o.X, float32(p.Y)+o.Y))
	v.fit(e)
}

func (v *BoardView) fit(e *noteEntry) {
	text := fyne.MeasureText(e.Text, theme.TextSize(), fyne.TextStyle{})
	w := max(float32(minNoteWidth), text.Width+theme.Padding()*6)
	e.Resize(fyne.NewSize(w, e.MinSize().Height))
}

func (v *BoardView) blur(e *noteEntry) {
	ov := v.board.Overlay()
	if !ov.Blur(e.id) {
		v.drop(e.id)
		return
	}
	if a, ok := ov.Get(e.id); ok {
		v.place(e, a.Pos)
	}
}

func (v *BoardView) remove(id string) {
	v.board.Overlay().Remove(id)
	v.drop(id)
	v.log.Debug("note removed", "id", id)
}

func (v *BoardView) drop(id string) {
	v.mu.Lock()
	e, ok := v.entries[id]
	delete(v.entries, id)
	v.mu.Unlock()
	if ok {
		v.notes.Remove(e)
	}
}

// SyncNotes drops editors whose annotation no longer exists, e.g. after a
// clear.
func (v *BoardView) SyncNotes() {
	live := make(map[string]bool)
	for _, a := range v.board.Overlay().All() {
		live[a.ID] = true
	}
	v.mu.Lock()
	var gone []string
	for id := range v.entries {
		if !live[id] {
			gone = append(gone, id)
		}
	}
	v.mu.Unlock()
	for _, id := range gone {
		v.drop(id)
	}
}
