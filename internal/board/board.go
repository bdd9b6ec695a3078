// Package board is the controller of one drawing surface: it turns input
// events into strokes, keeps the undo history, runs recognition on finished
// strokes and owns the text annotations.
package board

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"

	"InkNote/internal/diag"
	"InkNote/internal/export"
	"InkNote/internal/recognize"
	"InkNote/internal/state"
	"InkNote/internal/surface"
)

// Observer receives board notifications. Any field may be nil. Callbacks run
// on the goroutine that caused them, which for Busy and Annotation is the
// recognition goroutine and for Repaint after undo/redo is the restore
// goroutine.
type Observer struct {
	History    func(state.Availability)
	Busy       func(bool)
	Annotation func(state.Annotation)
	Repaint    func()
}

// Options configure a Board. A zero Recognition takes
// recognize.DefaultOptions.
type Options struct {
	Limits      surface.Limits
	Style       state.Style
	Pattern     export.Pattern
	Recognition recognize.Options
	Remote      recognize.Recognizer
	Logger      *slog.Logger
}

// Board owns the surface, history, capture state, overlay and recognition
// pipeline of one sketch.
type Board struct {
	mu      sync.Mutex // input, style and sizing
	limits  surface.Limits
	surf    *surface.Surface
	history *state.History
	overlay *state.Overlay
	capture Capture
	pipe    *recognize.Pipeline
	style   state.Style
	pattern export.Pattern
	sized   bool

	obsMu sync.RWMutex
	obs   Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *slog.Logger
}

// New returns a board with a blank fallback-sized surface and an empty
// history. The first Resize sizes the surface and records the first entry.
func New(opts Options) *Board {
	if opts.Limits == (surface.Limits{}) {
		opts.Limits = surface.DefaultLimits()
	}
	if opts.Style.Width == 0 {
		opts.Style = state.DefaultStyle()
	}
	if opts.Pattern == "" {
		opts.Pattern = export.PatternPlain
	}
	if opts.Recognition == (recognize.Options{}) {
		opts.Recognition = recognize.DefaultOptions()
	}
	ctx, cancel := context.WithCancel(context.Background())
	fallback := surface.Fixed(opts.Limits.FallbackWidth, opts.Limits.FallbackHeight, 1)
	b := &Board{
		limits:  opts.Limits,
		surf:    surface.New(fallback, surface.WithLogger(opts.Logger)),
		history: state.NewHistory(opts.Logger),
		overlay: state.NewOverlay(opts.Logger),
		pipe:    recognize.NewPipeline(opts.Recognition, opts.Remote, opts.Logger),
		style:   opts.Style,
		pattern: opts.Pattern,
		ctx:     ctx,
		cancel:  cancel,
		log:     diag.Component(opts.Logger, "board"),
	}
	return b
}

// Observe replaces the observer.
func (b *Board) Observe(o Observer) {
	b.obsMu.Lock()
	defer b.obsMu.Unlock()
	b.obs = o
}

func (b *Board) observer() Observer {
	b.obsMu.RLock()
	defer b.obsMu.RUnlock()
	return b.obs
}

func (b *Board) notifyHistory(av state.Availability) {
	if f := b.observer().History; f != nil {
		f(av)
	}
}

func (b *Board) notifyRepaint() {
	if f := b.observer().Repaint; f != nil {
		f()
	}
}

func (b *Board) setBusy(v bool) {
	if f := b.observer().Busy; f != nil {
		f(v)
	}
}

// Resize sizes the surface for a container and device pixel ratio. The first
// call blanks the surface and records the initial entry; later calls keep
// the drawing by capturing it before and restoring it after the resize.
func (b *Board) Resize(containerW, containerH, ratio float64) surface.Size {
	b.mu.Lock()
	size := surface.Compute(containerW, containerH, ratio, b.limits)
	if !b.sized {
		b.surf.Resize(size)
		b.sized = true
	} else {
		snap, err := b.surf.Capture()
		b.surf.Resize(size)
		if err != nil {
			b.log.Warn("resize without restore", "err", err)
		} else {
			b.surf.Restore(snap)
		}
	}
	av, recorded := b.record()
	b.mu.Unlock()

	if recorded {
		b.notifyHistory(av)
	}
	b.notifyRepaint()
	return size
}

// record pushes the current raster; Capture waits for any restore above.
// Failures are logged by the history and reported as false.
func (b *Board) record() (state.Availability, bool) {
	av, err := b.history.Record(b.surf)
	return av, err == nil
}

// Handle feeds one input event through the stroke state machine.
// Observers are notified after the board lock is released.
func (b *Board) Handle(ev Event) {
	p := ev.Position()
	switch ev.Kind {
	case KindDown:
		b.mu.Lock()
		b.capture.Down(p)
		b.mu.Unlock()
	case KindMove:
		b.mu.Lock()
		from, to, ok := b.capture.Move(p)
		var err error
		if ok {
			err = b.surf.Segment(from, to, b.style.Resolve(b.surf.Background()))
		}
		b.mu.Unlock()
		if !ok {
			return
		}
		if err != nil {
			b.log.Warn("segment dropped", "err", err)
			return
		}
		b.notifyRepaint()
	case KindUp, KindLeave:
		b.mu.Lock()
		box, ok := b.capture.End()
		var av state.Availability
		var recorded bool
		if ok {
			av, recorded = b.record()
		}
		b.mu.Unlock()
		if !ok {
			return
		}
		if recorded {
			b.notifyHistory(av)
		}
		if b.pipe.Enabled() {
			b.recognize(box)
		}
	}
}

// Run consumes events until the channel closes or ctx ends.
func (b *Board) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.Handle(ev)
		}
	}
}

func (b *Board) recognize(box state.Box) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		out, ok := b.pipe.Run(b.ctx, b.surf, box, b.setBusy)
		if !ok {
			return
		}
		a := b.overlay.Create(out.Pos, out.Text)
		if f := b.observer().Annotation; f != nil {
			f(a)
		}
	}()
}

// Undo steps back one entry. The repaint happens asynchronously; Repaint is
// notified once it landed. It reports whether anything changed.
func (b *Board) Undo() bool {
	snap, av, ok := b.history.Undo()
	if !ok {
		return false
	}
	b.restore(snap)
	b.notifyHistory(av)
	return true
}

// Redo steps forward one entry, mirroring Undo.
func (b *Board) Redo() bool {
	snap, av, ok := b.history.Redo()
	if !ok {
		return false
	}
	b.restore(snap)
	b.notifyHistory(av)
	return true
}

func (b *Board) restore(snap state.Snapshot) {
	done := b.surf.Restore(snap)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := <-done; err == nil {
			b.notifyRepaint()
		}
	}()
}

// Clear blanks the surface, drops every annotation and records the result.
func (b *Board) Clear() {
	b.mu.Lock()
	b.capture.End()
	b.surf.Clear()
	b.overlay.Clear()
	av, recorded := b.record()
	b.mu.Unlock()

	if recorded {
		b.notifyHistory(av)
	}
	b.notifyRepaint()
}

func (b *Board) SetStyle(s state.Style) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.style = s
}

func (b *Board) Style() state.Style {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.style
}

func (b *Board) SetRecognitionMode(m recognize.Mode) {
	b.pipe.SetMode(m)
	b.log.Info("recognition mode", "mode", string(m))
}

func (b *Board) RecognitionMode() recognize.Mode { return b.pipe.Mode() }

// SetRemote swaps the recognition collaborator, e.g. after discovery.
func (b *Board) SetRemote(r recognize.Recognizer) { b.pipe.SetRemote(r) }

// SetPattern changes the background template. It is a display and export
// setting and is not recorded in history.
func (b *Board) SetPattern(p export.Pattern) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pattern = p
}

func (b *Board) Pattern() export.Pattern {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pattern
}

func (b *Board) Overlay() *state.Overlay { return b.overlay }

func (b *Board) Availability() state.Availability { return b.history.Availability() }

func (b *Board) Size() surface.Size { return b.surf.Size() }

// Image returns a copy of the raster with the background template applied,
// suitable for display.
func (b *Board) Image() *image.RGBA {
	img := b.surf.Image()
	export.ApplyPattern(img, b.Pattern(), b.surf.Size().Scale, b.surf.Background())
	return img
}

func (b *Board) page() export.Page {
	b.surf.Settle()
	return export.Page{
		Raster:     b.surf.Image(),
		Scale:      b.surf.Size().Scale,
		Notes:      b.overlay.Visible(),
		Pattern:    b.Pattern(),
		Background: b.surf.Background(),
	}
}

// ExportPNG writes the flattened board as PNG.
func (b *Board) ExportPNG(w io.Writer) error {
	if err := export.WritePNG(w, b.page()); err != nil {
		return fmt.Errorf("export png: %w", err)
	}
	return nil
}

// ExportPDF writes the flattened board wrapped in a one-page PDF.
func (b *Board) ExportPDF(w io.Writer) error {
	if err := export.WritePDF(w, b.page()); err != nil {
		return fmt.Errorf("export pdf: %w", err)
	}
	return nil
}

// Wait blocks until pending recognitions and restores have finished.
func (b *Board) Wait() {
	b.wg.Wait()
	b.surf.Settle()
}

// Close cancels in-flight recognition and waits for it to wind down.
func (b *Board) Close() {
	b.cancel()
	b.Wait()
}
