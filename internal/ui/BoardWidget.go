package ui

import (
	"image/color"
	"log/slog"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"InkNote/internal/board"
	"InkNote/internal/diag"
)

var deskColor = color.NRGBA{R: 245, G: 246, B: 248, A: 255}

// BoardWidget shows the surface raster and turns mouse and drag input into
// board events. The surface sits Padding units in from the widget's corner.
type BoardWidget struct {
	widget.BaseWidget
	board   *board.Board
	padding float32
	log     *slog.Logger

	mu       sync.Mutex
	lastSize fyne.Size
	lastDPR  float32
	pressed  bool

	// OnResized runs after the surface got a new size.
	OnResized func()
	// OnDoubleTap receives the window position of a double tap.
	OnDoubleTap func(abs fyne.Position)
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)
var _ fyne.DoubleTappable = (*BoardWidget)(nil)

func NewBoardWidget(b *board.Board, padding float32, log *slog.Logger) *BoardWidget {
	w := &BoardWidget{board: b, padding: padding, log: diag.Component(log, "ui")}
	w.ExtendBaseWidget(w)
	return w
}

// Origin is the surface's top-left corner inside the widget.
func (w *BoardWidget) Origin() fyne.Position { return fyne.NewPos(w.padding, w.padding) }

func (w *BoardWidget) event(k board.Kind, p fyne.Position) board.Event {
	o := w.Origin()
	return board.Pointer(k, float64(p.X-o.X), float64(p.Y-o.Y))
}

func (w *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	w.mu.Lock()
	w.pressed = true
	w.mu.Unlock()
	w.board.Handle(w.event(board.KindDown, e.Position))
}

func (w *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	w.mu.Lock()
	w.pressed = false
	w.mu.Unlock()
	w.board.Handle(w.event(board.KindUp, e.Position))
}

func (w *BoardWidget) Dragged(e *fyne.DragEvent) {
	w.board.Handle(w.event(board.KindMove, e.Position))
}

// DragEnd also fires on touch devices, which never send MouseUp. The board
// ignores it when MouseUp already finished the stroke.
func (w *BoardWidget) DragEnd() {
	w.board.Handle(board.Event{Kind: board.KindUp})
}

func (w *BoardWidget) MouseIn(*desktop.MouseEvent)    {}
func (w *BoardWidget) MouseMoved(*desktop.MouseEvent) {}

func (w *BoardWidget) MouseOut() {
	w.mu.Lock()
	pressed := w.pressed
	w.pressed = false
	w.mu.Unlock()
	if pressed {
		w.board.Handle(board.Event{Kind: board.KindLeave})
	}
}

func (w *BoardWidget) DoubleTapped(e *fyne.PointEvent) {
	if w.OnDoubleTap != nil {
		w.OnDoubleTap(e.AbsolutePosition)
	}
}

func (w *BoardWidget) resizeSurface(size fyne.Size) {
	dpr := float32(1)
	if c := fyne.CurrentApp().Driver().CanvasForObject(w); c != nil {
		dpr = c.Scale()
	}
	w.mu.Lock()
	if size == w.lastSize && dpr == w.lastDPR {
		w.mu.Unlock()
		return
	}
	w.lastSize, w.lastDPR = size, dpr
	w.mu.Unlock()

	s := w.board.Resize(float64(size.Width), float64(size.Height), float64(dpr))
	w.log.Debug("surface sized", "w", s.Width, "h", s.Height, "dpr", dpr)
	if w.OnResized != nil {
		w.OnResized()
	}
}

func (w *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{w: w}
	r.background = canvas.NewRectangle(deskColor)
	r.image = canvas.NewImageFromImage(w.board.Image())
	r.image.FillMode = canvas.ImageFillStretch
	r.image.ScaleMode = canvas.ImageScaleFastest
	r.frame = canvas.NewRectangle(color.Transparent)
	r.frame.StrokeColor = color.Gray{Y: 200}
	r.frame.StrokeWidth = 1
	return r
}

type boardWidgetRenderer struct {
	w          *BoardWidget
	background *canvas.Rectangle
	image      *canvas.Image
	frame      *canvas.Rectangle
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.background, r.image, r.frame}
}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)
	r.w.resizeSurface(size)
	r.place()
}

func (r *boardWidgetRenderer) place() {
	s := r.w.board.Size()
	sz := fyne.NewSize(float32(s.Width), float32(s.Height))
	r.image.Move(r.w.Origin())
	r.image.Resize(sz)
	r.frame.Move(r.w.Origin())
	r.frame.Resize(sz)
}

func (r *boardWidgetRenderer) Refresh() {
	r.image.Image = r.w.board.Image()
	r.place()
	r.image.Refresh()
	r.background.Refresh()
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(320, 240)
}

func (r *boardWidgetRenderer) Destroy() {}
