package board

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InkNote/internal/recognize"
	"InkNote/internal/state"
	"InkNote/internal/surface"
)

var black = color.NRGBA{A: 255}

type recorder struct {
	mu    sync.Mutex
	avail []state.Availability
	busy  []bool
	notes []state.Annotation
}

func (r *recorder) observer() Observer {
	return Observer{
		History: func(a state.Availability) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.avail = append(r.avail, a)
		},
		Busy: func(v bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.busy = append(r.busy, v)
		},
		Annotation: func(a state.Annotation) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.notes = append(r.notes, a)
		},
	}
}

func (r *recorder) lastAvail() state.Availability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.avail[len(r.avail)-1]
}

func newBoard(t *testing.T, remote recognize.Recognizer) (*Board, *recorder) {
	t.Helper()
	b := New(Options{
		Limits: surface.Limits{MaxWidth: 200, MaxHeight: 100, FallbackWidth: 200, FallbackHeight: 100},
		Style:  state.Style{Color: black, Opacity: 1, Width: 4, Mode: state.ModeDraw},
		Remote: remote,
	})
	rec := &recorder{}
	b.Observe(rec.observer())
	b.Resize(200, 100, 1)
	t.Cleanup(b.Close)
	return b, rec
}

func stroke(b *Board, pts ...state.Point) {
	b.Handle(Pointer(KindDown, pts[0].X, pts[0].Y))
	for _, p := range pts[1:] {
		b.Handle(Pointer(KindMove, p.X, p.Y))
	}
	b.Handle(Pointer(KindUp, pts[len(pts)-1].X, pts[len(pts)-1].Y))
}

func line(x0, y0, x1, y1 float64) []state.Point {
	return []state.Point{{X: x0, Y: y0}, {X: x1, Y: y1}}
}

func pixel(b *Board, x, y int) color.RGBA {
	b.Wait()
	return b.surf.Image().RGBAAt(x, y)
}

func TestFirstResizeRecordsBlank(t *testing.T) {
	b, rec := newBoard(t, nil)
	assert.Equal(t, 1, b.history.Len())
	assert.Equal(t, 0, b.history.Cursor())
	assert.Equal(t, state.Availability{}, rec.lastAvail())
}

func TestStrokeRecordsOnce(t *testing.T) {
	b, rec := newBoard(t, nil)
	stroke(b, line(20, 50, 180, 50)...)
	b.Handle(Pointer(KindLeave, 180, 50))

	assert.Equal(t, 2, b.history.Len(), "leave after up is ignored")
	assert.Equal(t, state.Availability{CanUndo: true}, rec.lastAvail())
	assert.Less(t, int(pixel(b, 100, 50).R), 64)
}

func TestMoveWithoutDownIsIgnored(t *testing.T) {
	b, _ := newBoard(t, nil)
	b.Handle(Pointer(KindMove, 10, 10))
	b.Handle(Pointer(KindUp, 10, 10))
	assert.Equal(t, 1, b.history.Len())
}

func TestUndoRedoRoundTrip(t *testing.T) {
	b, rec := newBoard(t, nil)
	stroke(b, line(10, 20, 190, 20)...)
	stroke(b, line(10, 80, 190, 80)...)
	b.Wait()
	want := b.surf.Image()

	require.True(t, b.Undo())
	require.True(t, b.Undo())
	assert.False(t, b.Undo(), "cursor 0 is a boundary")
	b.Wait()
	assert.Equal(t, uint8(255), pixel(b, 100, 20).R)
	assert.Equal(t, state.Availability{CanRedo: true}, rec.lastAvail())

	require.True(t, b.Redo())
	require.True(t, b.Redo())
	assert.False(t, b.Redo())
	b.Wait()
	assert.Equal(t, want.Pix, b.surf.Image().Pix)
	assert.Equal(t, state.Availability{CanUndo: true}, rec.lastAvail())
}

func TestStrokeAfterUndoDiscardsFuture(t *testing.T) {
	b, _ := newBoard(t, nil)
	stroke(b, line(10, 20, 190, 20)...)
	stroke(b, line(10, 50, 190, 50)...)
	require.True(t, b.Undo())
	require.True(t, b.Undo())
	stroke(b, line(10, 80, 190, 80)...)

	assert.Equal(t, 2, b.history.Len())
	assert.Equal(t, 1, b.history.Cursor())
	assert.Equal(t, uint8(255), pixel(b, 100, 20).R, "undone strokes stay gone")
	assert.Less(t, int(pixel(b, 100, 80).R), 64)
}

func TestEraseAndHighlighter(t *testing.T) {
	b, _ := newBoard(t, nil)
	stroke(b, line(10, 50, 190, 50)...)

	b.SetStyle(state.Style{Color: color.NRGBA{R: 255, A: 255}, Opacity: 0.2, Width: 10, Mode: state.ModeErase})
	stroke(b, line(10, 50, 190, 50)...)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, pixel(b, 100, 50), "erase paints opaque background")

	b.SetStyle(state.Style{Color: black, Opacity: 1, Width: 2, Mode: state.ModeHighlighter})
	stroke(b, line(10, 50, 190, 50)...)
	c := pixel(b, 100, 50)
	assert.InDelta(t, 153, int(c.R), 12, "opacity clamped to 0.4")
	assert.Less(t, int(pixel(b, 100, 56).R), 200, "width raised to 16")
}

func TestRecognitionCreatesAnnotation(t *testing.T) {
	b, rec := newBoard(t, recognize.Func(func(context.Context, []byte) (string, error) {
		return "Hello", nil
	}))
	b.SetRecognitionMode(recognize.ModeRemote)
	stroke(b, state.Point{X: 40, Y: 30}, state.Point{X: 60, Y: 45}, state.Point{X: 80, Y: 40})
	b.Wait()

	require.Len(t, rec.notes, 1)
	n := rec.notes[0]
	assert.Equal(t, "Hello", n.Text)
	assert.Equal(t, state.Point{X: 40, Y: 55}, n.Pos)
	assert.True(t, n.Focused)
	assert.True(t, n.SelectAll)
	assert.Equal(t, []bool{true, false}, rec.busy)
	assert.Len(t, b.Overlay().All(), 1)
}

func TestRecognitionHonoursZeroOffset(t *testing.T) {
	remote := recognize.Func(func(context.Context, []byte) (string, error) {
		return "flush", nil
	})
	b := New(Options{
		Limits:      surface.Limits{MaxWidth: 200, MaxHeight: 100, FallbackWidth: 200, FallbackHeight: 100},
		Recognition: recognize.Options{Timeout: time.Second},
		Remote:      remote,
	})
	t.Cleanup(b.Close)
	rec := &recorder{}
	b.Observe(rec.observer())
	b.Resize(200, 100, 1)
	b.SetRecognitionMode(recognize.ModeRemote)

	stroke(b, state.Point{X: 40, Y: 30}, state.Point{X: 80, Y: 45})
	b.Wait()

	require.Len(t, rec.notes, 1)
	assert.Equal(t, state.Point{X: 40, Y: 45}, rec.notes[0].Pos)
}

func TestRecognitionFailureLeavesPlaceholder(t *testing.T) {
	b, rec := newBoard(t, recognize.Func(func(context.Context, []byte) (string, error) {
		return "", errors.New("connection refused")
	}))
	b.SetRecognitionMode(recognize.ModeRemote)
	stroke(b, line(40, 30, 80, 40)...)
	b.Wait()

	require.Len(t, rec.notes, 1)
	assert.Equal(t, recognize.ErrorText, rec.notes[0].Text)
	assert.Equal(t, []bool{true, false}, rec.busy)

	stroke(b, line(40, 60, 80, 70)...)
	assert.Equal(t, 3, b.history.Len(), "drawing continues after a failure")
}

func TestRecognitionSkipsTapsAndOffMode(t *testing.T) {
	called := false
	b, rec := newBoard(t, recognize.Func(func(context.Context, []byte) (string, error) {
		called = true
		return "x", nil
	}))
	stroke(b, line(10, 10, 50, 50)...)
	b.SetRecognitionMode(recognize.ModeRemote)
	b.Handle(Pointer(KindDown, 30, 30))
	b.Handle(Pointer(KindUp, 30, 30))
	stroke(b, line(20, 50, 180, 50)...)
	stroke(b, line(100, 10, 100, 90)...)
	b.Wait()

	assert.False(t, called, "zero-area strokes are not recognised")
	assert.Empty(t, rec.busy)
	assert.Empty(t, b.Overlay().All())
	assert.Equal(t, 5, b.history.Len(), "taps and straight lines still record history")
}

func TestClearDropsAnnotations(t *testing.T) {
	b, _ := newBoard(t, nil)
	stroke(b, line(10, 50, 190, 50)...)
	b.Overlay().Create(state.Point{X: 5, Y: 5}, "note")
	b.Clear()

	assert.Empty(t, b.Overlay().All())
	assert.Equal(t, 3, b.history.Len())
	assert.Equal(t, uint8(255), pixel(b, 100, 50).R)
	require.True(t, b.Undo())
	assert.Less(t, int(pixel(b, 100, 50).R), 64, "clear is undoable")
}

func TestResizeKeepsDrawing(t *testing.T) {
	b, _ := newBoard(t, nil)
	b.limits.MaxWidth, b.limits.MaxHeight = 400, 300
	stroke(b, line(10, 50, 190, 50)...)
	size := b.Resize(300, 200, 1)

	assert.Equal(t, 300, size.PixelWidth)
	assert.Less(t, int(pixel(b, 100, 50).R), 64)
	assert.Equal(t, uint8(255), pixel(b, 250, 150).R)
	assert.Equal(t, 3, b.history.Len())
}

func TestExportMatchesBackingStore(t *testing.T) {
	b, _ := newBoard(t, nil)
	b.Resize(200, 100, 2)
	b.Overlay().Create(state.Point{X: 10, Y: 10}, "hi")

	var buf bytes.Buffer
	require.NoError(t, b.ExportPNG(&buf))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 400, 200), img.Bounds())

	buf.Reset()
	require.NoError(t, b.ExportPDF(&buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestRunConsumesEvents(t *testing.T) {
	b, _ := newBoard(t, nil)
	events := make(chan Event, 4)
	events <- Pointer(KindDown, 10, 10)
	events <- Pointer(KindMove, 100, 10)
	events <- Pointer(KindUp, 100, 10)
	close(events)
	require.NoError(t, b.Run(context.Background(), events))
	assert.Equal(t, 2, b.history.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Run(ctx, make(chan Event)), context.Canceled)
}
