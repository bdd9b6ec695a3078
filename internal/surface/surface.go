package surface

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"InkNote/internal/diag"
	"InkNote/internal/state"
)

var (
	// ErrSuperseded is returned by a restore that a newer restore replaced
	// before it could paint.
	ErrSuperseded = errors.New("restore superseded")
	// ErrEmptyRegion is returned when a crop has no area.
	ErrEmptyRegion = errors.New("empty region")
	// ErrCapture wraps snapshot encoding failures.
	ErrCapture = diag.NewKind(diag.CodeCapture, "snapshot capture failed")
	// ErrDecode wraps snapshot decoding failures.
	ErrDecode = diag.NewKind(diag.CodeCapture, "snapshot decode failed")
)

// Encoder writes a raster in some transportable encoding.
type Encoder func(w io.Writer, img image.Image) error

// Option configures a Surface.
type Option func(*Surface)

func WithLogger(l *slog.Logger) Option {
	return func(s *Surface) { s.log = diag.Component(l, "surface") }
}

// WithBackground sets the colour used by Resize, Clear and erase.
func WithBackground(c color.NRGBA) Option {
	return func(s *Surface) { s.background = c }
}

// WithEncoder replaces the snapshot encoder (PNG by default).
func WithEncoder(e Encoder) Option {
	return func(s *Surface) { s.encode = e }
}

// Surface is the single drawing raster. Every paint operation holds mu, so
// stroke segments, clears, resizes, restores and captures never interleave.
type Surface struct {
	mu         sync.Mutex
	dc         *gg.Context
	size       Size
	background color.NRGBA
	encode     Encoder
	log        *slog.Logger

	// restore bookkeeping
	rmu      sync.Mutex
	idle     *sync.Cond
	inflight int
	gen      uint64
}

// New allocates a blank surface of the given size.
func New(size Size, opts ...Option) *Surface {
	s := &Surface{
		background: state.White,
		encode:     png.Encode,
		log:        diag.Discard(),
	}
	s.idle = sync.NewCond(&s.rmu)
	for _, opt := range opts {
		opt(s)
	}
	s.dc = s.newContext(size)
	s.size = size
	return s
}

func (s *Surface) newContext(size Size) *gg.Context {
	dc := gg.NewContext(size.PixelWidth, size.PixelHeight)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.ClearWithColor(gg.FromColor(s.background))
	return dc
}

// Size returns the current logical and pixel size.
func (s *Surface) Size() Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

func (s *Surface) Background() color.NRGBA { return s.background }

// Resize reallocates the backing store and fills it with the background.
// The previous pixels are lost; callers capture before and restore after.
func (s *Surface) Resize(size Size) {
	s.Settle()
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.dc
	s.dc = s.newContext(size)
	s.size = size
	if old != nil {
		_ = old.Close()
	}
	s.log.Debug("resized", "w", size.Width, "h", size.Height, "px", size.PixelWidth, "py", size.PixelHeight)
}

// Clear fills the whole backing store with the background colour.
func (s *Surface) Clear() {
	s.Settle()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dc.ClearWithColor(gg.FromColor(s.background))
}

// Segment strokes one line segment with round caps and joins. Points and
// width are logical and scaled to the backing store here.
func (s *Surface) Segment(from, to state.Point, ink state.Ink) error {
	s.Settle()
	s.mu.Lock()
	defer s.mu.Unlock()
	k := s.size.Scale
	s.dc.SetRGBA(
		float64(ink.Color.R)/255,
		float64(ink.Color.G)/255,
		float64(ink.Color.B)/255,
		ink.Opacity,
	)
	s.dc.SetLineWidth(ink.Width * k)
	s.dc.MoveTo(from.X*k, from.Y*k)
	s.dc.LineTo(to.X*k, to.Y*k)
	return s.dc.Stroke()
}

// Image returns a copy of the backing store.
func (s *Surface) Image() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageLocked()
}

func (s *Surface) imageLocked() *image.RGBA {
	if rgba, ok := s.dc.Image().(*image.RGBA); ok {
		return rgba
	}
	src := s.dc.Image()
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// Capture encodes the full raster as a snapshot. It waits for restores in
// flight so a half-painted frame is never recorded.
func (s *Surface) Capture() (state.Snapshot, error) {
	s.Settle()
	s.mu.Lock()
	img := s.imageLocked()
	size := s.size
	s.mu.Unlock()

	var buf bytes.Buffer
	if err := s.encode(&buf, img); err != nil {
		return state.Snapshot{}, fmt.Errorf("%w: %w", ErrCapture, err)
	}
	return state.NewSnapshot(buf.Bytes(), size.PixelWidth, size.PixelHeight), nil
}

// Restore repaints snap onto the surface asynchronously. The returned
// channel receives exactly one result. A newer Restore supersedes an older
// one that has not painted yet.
func (s *Surface) Restore(snap state.Snapshot) <-chan error {
	done := make(chan error, 1)
	s.rmu.Lock()
	s.gen++
	gen := s.gen
	s.inflight++
	s.rmu.Unlock()

	go func() {
		err := s.restore(snap, gen)
		s.rmu.Lock()
		s.inflight--
		if s.inflight == 0 {
			s.idle.Broadcast()
		}
		s.rmu.Unlock()
		if err != nil && !errors.Is(err, ErrSuperseded) {
			s.log.Warn("restore failed", "id", snap.ID, "err", err)
		}
		done <- err
	}()
	return done
}

// Settle blocks until no restore is in flight.
func (s *Surface) Settle() {
	s.rmu.Lock()
	for s.inflight > 0 {
		s.idle.Wait()
	}
	s.rmu.Unlock()
}

func (s *Surface) restore(snap state.Snapshot, gen uint64) error {
	src, _, err := image.Decode(bytes.NewReader(snap.Data))
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, snap.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rmu.Lock()
	current := s.gen
	s.rmu.Unlock()
	if current != gen {
		return ErrSuperseded
	}

	pm := s.dc.ResizeTarget()
	frame := image.NewRGBA(image.Rect(0, 0, pm.Width(), pm.Height()))
	draw.Draw(frame, frame.Bounds(), image.NewUniform(s.background), image.Point{}, draw.Src)
	xdraw.Draw(frame, frame.Bounds(), src, src.Bounds().Min, xdraw.Over)
	copy(pm.Data(), frame.Pix)
	s.log.Debug("restored", "id", snap.ID, "seq", snap.Seq)
	return nil
}

// Crop copies a logical region at native resolution. The region is clamped
// to the surface; an empty result is ErrEmptyRegion.
func (s *Surface) Crop(r state.Rect) (*image.RGBA, error) {
	s.Settle()
	s.mu.Lock()
	defer s.mu.Unlock()

	scale := s.size.Scale
	px := image.Rect(
		int(math.Floor(r.X*scale)),
		int(math.Floor(r.Y*scale)),
		int(math.Round((r.X+r.W)*scale)),
		int(math.Round((r.Y+r.H)*scale)),
	).Intersect(image.Rect(0, 0, s.size.PixelWidth, s.size.PixelHeight))
	if r.Empty() || px.Empty() {
		return nil, ErrEmptyRegion
	}
	full := s.imageLocked()
	out := image.NewRGBA(image.Rect(0, 0, px.Dx(), px.Dy()))
	xdraw.Copy(out, image.Point{}, full, px, xdraw.Src, nil)
	return out, nil
}
