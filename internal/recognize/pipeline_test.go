package recognize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InkNote/internal/state"
	"InkNote/internal/surface"
)

type fakeRegion struct {
	mu    sync.Mutex
	size  surface.Size
	crops []state.Rect
	err   error
}

func (f *fakeRegion) Size() surface.Size { return f.size }

func (f *fakeRegion) Crop(r state.Rect) (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crops = append(f.crops, r)
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, int(r.W), int(r.H))), nil
}

type busyLog struct {
	mu    sync.Mutex
	calls []bool
}

func (b *busyLog) set(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, v)
}

func (b *busyLog) seen() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.calls...)
}

var stroke = state.Box{MinX: 100, MinY: 50, MaxX: 180, MaxY: 90}

func region() *fakeRegion { return &fakeRegion{size: surface.Fixed(400, 300, 1)} }

func TestCropRect(t *testing.T) {
	cases := []struct {
		name string
		box  state.Box
		want state.Rect
	}{
		{"inside", stroke, state.Rect{X: 82, Y: 32, W: 116, H: 96}},
		{"clamped top left", state.Box{MinX: 5, MinY: 3, MaxX: 25, MaxY: 13}, state.Rect{X: 0, Y: 0, W: 56, H: 66}},
		{"clamped bottom right", state.Box{MinX: 380, MinY: 280, MaxX: 399, MaxY: 299}, state.Rect{X: 362, Y: 262, W: 38, H: 38}},
		{"fractional", state.Box{MinX: 10.5, MinY: 20.5, MaxX: 30.2, MaxY: 20.7}, state.Rect{X: 0, Y: 2, W: 56, H: 57}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CropRect(tc.box, 18, 20, 400, 300))
		})
	}
}

func TestPipelineOffIsNoop(t *testing.T) {
	p := NewPipeline(DefaultOptions(), Func(func(context.Context, []byte) (string, error) {
		t.Fatal("recognizer must not be called")
		return "", nil
	}), nil)
	var busy busyLog
	_, ok := p.Run(context.Background(), region(), stroke, busy.set)
	assert.False(t, ok)
	assert.Empty(t, busy.seen())
}

func TestPipelineDegenerateIsNoop(t *testing.T) {
	cases := map[string]state.Box{
		"tap":        state.BoxAt(state.Point{X: 4, Y: 4}),
		"horizontal": {MinX: 20, MinY: 50, MaxX: 180, MaxY: 50},
		"vertical":   {MinX: 60, MinY: 10, MaxX: 60, MaxY: 90},
	}
	for name, box := range cases {
		t.Run(name, func(t *testing.T) {
			p := NewPipeline(DefaultOptions(), Func(func(context.Context, []byte) (string, error) {
				t.Fatal("recognizer must not be called")
				return "", nil
			}), nil)
			p.SetMode(ModeRemote)
			src := region()
			var busy busyLog
			_, ok := p.Run(context.Background(), src, box, busy.set)
			assert.False(t, ok)
			assert.Empty(t, busy.seen())
			assert.Empty(t, src.crops)
		})
	}
}

func TestPipelineRemoteSuccess(t *testing.T) {
	var got []byte
	p := NewPipeline(DefaultOptions(), Func(func(_ context.Context, img []byte) (string, error) {
		got = img
		return "  Hello \n", nil
	}), nil)
	p.SetMode(ModeRemote)
	src := region()
	var busy busyLog

	out, ok := p.Run(context.Background(), src, stroke, busy.set)
	require.True(t, ok)
	assert.Equal(t, "Hello", out.Text)
	assert.NoError(t, out.Err)
	assert.Equal(t, state.Point{X: 100, Y: 100}, out.Pos)
	assert.Equal(t, []bool{true, false}, busy.seen())

	require.Len(t, src.crops, 1)
	assert.Equal(t, state.Rect{X: 82, Y: 32, W: 116, H: 96}, src.crops[0])
	cfg, err := png.DecodeConfig(bytes.NewReader(got))
	require.NoError(t, err, "payload is a PNG")
	assert.Equal(t, 116, cfg.Width)
}

func TestPipelineKeepsZeroMargins(t *testing.T) {
	p := NewPipeline(Options{}, Func(func(context.Context, []byte) (string, error) {
		return "tight", nil
	}), nil)
	p.SetMode(ModeRemote)
	src := region()

	out, ok := p.Run(context.Background(), src, stroke, nil)
	require.True(t, ok)
	assert.Equal(t, state.Point{X: 100, Y: 90}, out.Pos, "annotation flush under the stroke")
	require.Len(t, src.crops, 1)
	assert.Equal(t, state.Rect{X: 100, Y: 50, W: 80, H: 40}, src.crops[0])
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 18.0, o.Margin)
	assert.Equal(t, 20.0, o.BottomSlack)
	assert.Equal(t, 10.0, o.Offset)
	assert.Equal(t, 30*time.Second, o.Timeout)
}

func TestPipelinePlaceholders(t *testing.T) {
	errBoom := errors.New("boom")
	cases := []struct {
		name    string
		remote  Recognizer
		region  *fakeRegion
		want    string
		wantErr error
	}{
		{"empty", Func(func(context.Context, []byte) (string, error) { return " ", nil }), region(), NoText, nil},
		{"failure", Func(func(context.Context, []byte) (string, error) { return "", errBoom }), region(), ErrorText, errBoom},
		{"unconfigured", nil, region(), ErrorText, ErrNotConfigured},
		{"crop failure", Func(func(context.Context, []byte) (string, error) { return "x", nil }), &fakeRegion{size: surface.Fixed(400, 300, 1), err: errBoom}, ErrorText, errBoom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPipeline(DefaultOptions(), tc.remote, nil)
			p.SetMode(ModeRemote)
			var busy busyLog
			out, ok := p.Run(context.Background(), tc.region, stroke, busy.set)
			require.True(t, ok)
			assert.Equal(t, tc.want, out.Text)
			if tc.wantErr != nil {
				assert.ErrorIs(t, out.Err, tc.wantErr)
			}
			assert.Equal(t, []bool{true, false}, busy.seen(), "busy never left on")
		})
	}
}

func TestPipelineDemo(t *testing.T) {
	opts := DefaultOptions()
	opts.Demo = Demo{Delay: 5 * time.Millisecond, Text: "demo"}
	p := NewPipeline(opts, nil, nil)
	p.SetMode(ModeDemo)
	src := region()
	var busy busyLog
	out, ok := p.Run(context.Background(), src, stroke, busy.set)
	require.True(t, ok)
	assert.Equal(t, "demo", out.Text)
	assert.Equal(t, state.Point{X: 100, Y: 100}, out.Pos)
	assert.Equal(t, []bool{true, false}, busy.seen())
	assert.Empty(t, src.crops, "demo mode does not crop")
}

func TestPipelineTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.Timeout = 10 * time.Millisecond
	p := NewPipeline(opts, Func(func(ctx context.Context, _ []byte) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}), nil)
	p.SetMode(ModeRemote)
	out, ok := p.Run(context.Background(), region(), stroke, nil)
	require.True(t, ok)
	assert.Equal(t, ErrorText, out.Text)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestPipelineSerialises(t *testing.T) {
	var active, peak atomic.Int32
	release := make(chan struct{})
	p := NewPipeline(DefaultOptions(), Func(func(context.Context, []byte) (string, error) {
		n := active.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		return "ok", nil
	}), nil)
	p.SetMode(ModeRemote)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Run(context.Background(), region(), stroke, nil)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Remote ")
	require.NoError(t, err)
	assert.Equal(t, ModeRemote, m)
	_, err = ParseMode("auto")
	assert.Error(t, err)
}
