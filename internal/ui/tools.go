package ui

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"InkNote/internal/board"
	"InkNote/internal/export"
	"InkNote/internal/recognize"
	"InkNote/internal/state"
)

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Color    color.NRGBA
	OnTapped func(color.NRGBA)
}

func newColorSwatch(c color.NRGBA, tapped func(color.NRGBA)) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(24, 24))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Color)
	}
}

var palette = []color.NRGBA{
	{R: 0x11, G: 0x11, B: 0x11, A: 0xff},
	{R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff},
	{R: 0x38, G: 0x8e, B: 0x3c, A: 0xff},
	{R: 0x19, G: 0x76, B: 0xd2, A: 0xff},
	{R: 0xfb, G: 0xc0, B: 0x2d, A: 0xff},
}

// Toolbar holds the controls that change the board's style and run its
// operations.
type Toolbar struct {
	board *board.Board
	view  *BoardView
	win   fyne.Window

	undo, redo *widget.Button
	busy       *widget.ProgressBarInfinite
	status     *widget.Label
	object     fyne.CanvasObject
}

func NewToolbar(b *board.Board, v *BoardView, win fyne.Window) *Toolbar {
	t := &Toolbar{board: b, view: v, win: win}
	style := b.Style()

	// --- Color Palette ---
	setColor := func(c color.NRGBA) {
		s := b.Style()
		s.Color = c
		b.SetStyle(s)
	}
	colorBox := container.NewHBox()
	for _, c := range palette {
		colorBox.Add(newColorSwatch(c, setColor))
	}
	colorBox.Add(widget.NewButtonWithIcon("", theme.ColorPaletteIcon(), func() {
		picker := dialog.NewColorPicker("Stroke colour", "", func(c color.Color) {
			setColor(color.NRGBAModel.Convert(c).(color.NRGBA))
		}, win)
		picker.Advanced = true
		picker.Show()
	}))

	// --- Stroke Width and Opacity ---
	width := widget.NewSlider(1, 50)
	width.Step = 1
	width.SetValue(style.Width)
	width.OnChanged = func(val float64) {
		s := b.Style()
		s.Width = val
		b.SetStyle(s)
	}
	opacity := widget.NewSlider(0.05, 1)
	opacity.Step = 0.05
	opacity.SetValue(style.Opacity)
	opacity.OnChanged = func(val float64) {
		s := b.Style()
		s.Opacity = val
		b.SetStyle(s)
	}
	sliders := container.New(layout.NewGridWrapLayout(fyne.NewSize(120, 35)), width, opacity)

	// --- Mode, Background, Recognition ---
	mode := widget.NewSelect([]string{string(state.ModeDraw), string(state.ModeErase), string(state.ModeHighlighter)}, func(v string) {
		m, err := state.ParseMode(v)
		if err != nil {
			return
		}
		s := b.Style()
		s.Mode = m
		b.SetStyle(s)
	})
	mode.SetSelected(string(style.Mode))

	background := widget.NewSelect([]string{
		string(export.PatternPlain), string(export.PatternGrid),
		string(export.PatternRuled), string(export.PatternDotted),
	}, func(v string) {
		p, err := export.ParsePattern(v)
		if err != nil {
			return
		}
		b.SetPattern(p)
		t.view.Refresh()
	})
	background.SetSelected(string(b.Pattern()))

	recognition := widget.NewSelect([]string{string(recognize.ModeOff), string(recognize.ModeDemo), string(recognize.ModeRemote)}, func(v string) {
		m, err := recognize.ParseMode(v)
		if err != nil {
			return
		}
		b.SetRecognitionMode(m)
	})
	recognition.SetSelected(string(b.RecognitionMode()))

	// --- History and Output ---
	t.undo = widget.NewButtonWithIcon("", theme.ContentUndoIcon(), t.Undo)
	t.redo = widget.NewButtonWithIcon("", theme.ContentRedoIcon(), t.Redo)
	t.SetAvailability(b.Availability())
	clearBtn := widget.NewButtonWithIcon("", theme.DeleteIcon(), t.Clear)
	save := widget.NewButtonWithIcon("PNG", theme.DocumentSaveIcon(), func() { savePNG(t) })
	pdf := widget.NewButtonWithIcon("PDF", theme.DocumentPrintIcon(), func() { exportPDF(t) })

	t.busy = widget.NewProgressBarInfinite()
	t.busy.Hide()
	t.status = widget.NewLabel("Ready")

	t.object = container.NewVBox(
		container.NewHBox(
			colorBox,
			widget.NewSeparator(),
			widget.NewLabel("Size / Opacity:"),
			sliders,
			widget.NewSeparator(),
			mode,
			background,
			widget.NewLabel("OCR:"),
			recognition,
			layout.NewSpacer(),
			t.undo, t.redo, clearBtn, save, pdf,
		),
		container.NewBorder(nil, nil, t.status, nil, t.busy),
	)
	return t
}

func (t *Toolbar) Object() fyne.CanvasObject { return t.object }

func (t *Toolbar) Undo() { t.board.Undo() }
func (t *Toolbar) Redo() { t.board.Redo() }

func (t *Toolbar) Clear() {
	t.board.Clear()
	t.view.SyncNotes()
	t.SetStatus("Cleared")
}

// SetAvailability enables the history buttons. Call on the UI goroutine.
func (t *Toolbar) SetAvailability(av state.Availability) {
	if av.CanUndo {
		t.undo.Enable()
	} else {
		t.undo.Disable()
	}
	if av.CanRedo {
		t.redo.Enable()
	} else {
		t.redo.Disable()
	}
}

// SetBusy shows or hides the recognition indicator. Call on the UI goroutine.
func (t *Toolbar) SetBusy(on bool) {
	if on {
		t.busy.Show()
		t.busy.Start()
		t.status.SetText("Recognizing…")
		return
	}
	t.busy.Stop()
	t.busy.Hide()
	t.status.SetText("Ready")
}

func (t *Toolbar) SetStatus(text string) { t.status.SetText(text) }

func (t *Toolbar) SetStatusf(format string, args ...any) { t.SetStatus(fmt.Sprintf(format, args...)) }
