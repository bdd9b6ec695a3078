package surface

import (
	"errors"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InkNote/internal/state"
)

var black = state.Ink{Color: color.NRGBA{A: 255}, Opacity: 1, Width: 6}

func isWhite(c color.RGBA) bool { return c.R == 255 && c.G == 255 && c.B == 255 }

func TestNewSurfaceIsBlank(t *testing.T) {
	s := New(Fixed(40, 30, 2))
	img := s.Image()
	assert.Equal(t, image.Rect(0, 0, 80, 60), img.Bounds())
	for _, p := range []image.Point{{0, 0}, {79, 59}, {40, 30}} {
		assert.True(t, isWhite(img.RGBAAt(p.X, p.Y)), "pixel %v", p)
	}
}

func TestSegmentPaintsScaled(t *testing.T) {
	s := New(Fixed(60, 30, 2))
	require.NoError(t, s.Segment(state.Point{X: 10, Y: 15}, state.Point{X: 50, Y: 15}, black))
	img := s.Image()
	mid := img.RGBAAt(60, 30)
	assert.Less(t, int(mid.R), 128, "segment centre must be inked, got %v", mid)
	assert.True(t, isWhite(img.RGBAAt(60, 5)), "far from the segment stays blank")
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	s := New(Fixed(40, 40, 1))
	require.NoError(t, s.Segment(state.Point{X: 5, Y: 20}, state.Point{X: 35, Y: 20}, black))
	want := s.Image()

	snap, err := s.Capture()
	require.NoError(t, err)
	assert.Equal(t, 40, snap.Width)
	assert.NotEmpty(t, snap.Data)

	s.Clear()
	assert.True(t, isWhite(s.Image().RGBAAt(20, 20)))

	require.NoError(t, <-s.Restore(snap))
	assert.Equal(t, want.Pix, s.Image().Pix)
}

func TestRestoreLatestWins(t *testing.T) {
	s := New(Fixed(20, 20, 1))
	blank, err := s.Capture()
	require.NoError(t, err)
	require.NoError(t, s.Segment(state.Point{X: 2, Y: 10}, state.Point{X: 18, Y: 10}, black))
	inked, err := s.Capture()
	require.NoError(t, err)
	want := s.Image()

	first := s.Restore(blank)
	second := s.Restore(inked)
	errFirst, errSecond := <-first, <-second
	require.NoError(t, errSecond)
	if errFirst != nil {
		assert.ErrorIs(t, errFirst, ErrSuperseded)
	}
	s.Settle()
	assert.Equal(t, want.Pix, s.Image().Pix)
}

func TestRestoreCorruptSnapshot(t *testing.T) {
	s := New(Fixed(10, 10, 1))
	err := <-s.Restore(state.Snapshot{ID: "bad", Data: []byte("not an image")})
	assert.ErrorIs(t, err, ErrDecode)
	assert.True(t, isWhite(s.Image().RGBAAt(5, 5)), "failed restore leaves pixels alone")
}

func TestCaptureFailure(t *testing.T) {
	errDenied := errors.New("encoding not permitted")
	s := New(Fixed(10, 10, 1), WithEncoder(func(io.Writer, image.Image) error { return errDenied }))
	_, err := s.Capture()
	assert.ErrorIs(t, err, ErrCapture)
	assert.ErrorIs(t, err, errDenied)
}

func TestResizeBlanks(t *testing.T) {
	s := New(Fixed(20, 20, 1))
	require.NoError(t, s.Segment(state.Point{X: 0, Y: 10}, state.Point{X: 20, Y: 10}, black))
	s.Resize(Fixed(30, 10, 2))
	img := s.Image()
	assert.Equal(t, image.Rect(0, 0, 60, 20), img.Bounds())
	assert.True(t, isWhite(img.RGBAAt(20, 10)))
	assert.Equal(t, 30.0, s.Size().Width)
}

func TestCrop(t *testing.T) {
	s := New(Fixed(100, 50, 2))
	img, err := s.Crop(state.Rect{X: 10, Y: 10, W: 20, H: 15})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())

	img, err = s.Crop(state.Rect{X: 90, Y: 40, W: 50, H: 50})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 20), img.Bounds(), "clamped to the surface")

	_, err = s.Crop(state.Rect{X: 10, Y: 10, W: 0, H: 5})
	assert.ErrorIs(t, err, ErrEmptyRegion)
	_, err = s.Crop(state.Rect{X: 200, Y: 10, W: 5, H: 5})
	assert.ErrorIs(t, err, ErrEmptyRegion)
}
