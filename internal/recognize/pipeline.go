package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"InkNote/internal/diag"
	"InkNote/internal/state"
	"InkNote/internal/surface"
)

// Region is the part of the surface the pipeline reads from.
type Region interface {
	Crop(r state.Rect) (*image.RGBA, error)
	Size() surface.Size
}

// Options tune the pipeline. Margin, BottomSlack and Offset are used as
// given, zero included; start from DefaultOptions.
type Options struct {
	Margin      float64 // added on every side of the stroke box
	BottomSlack float64 // extra room below for descenders
	Offset      float64 // gap between the stroke and the annotation
	Timeout     time.Duration
	Demo        Demo
}

const (
	defaultTimeout  = 30 * time.Second
	defaultDemoText = "Detected text…"
)

// DefaultOptions crops 18 units around the stroke plus 20 below it and
// places the annotation 10 units under the stroke.
func DefaultOptions() Options {
	return Options{
		Margin:      18,
		BottomSlack: 20,
		Offset:      10,
		Timeout:     defaultTimeout,
		Demo:        Demo{Delay: 350 * time.Millisecond, Text: defaultDemoText},
	}
}

// defaults fills the fields that have no meaningful zero value.
func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Demo.Text == "" {
		o.Demo.Text = defaultDemoText
	}
}

// Outcome is what a finished recognition produced. Text is always set,
// either with recognised content or with a placeholder.
type Outcome struct {
	Pos  state.Point
	Text string
	Err  error
}

// Pipeline runs one recognition at a time per board.
type Pipeline struct {
	mu     sync.RWMutex
	mode   Mode
	remote Recognizer
	opts   Options
	sem    *semaphore.Weighted
	log    *slog.Logger
}

// NewPipeline returns a pipeline in ModeOff. remote may be nil until an
// endpoint is known; remote mode then yields the error placeholder.
func NewPipeline(opts Options, remote Recognizer, log *slog.Logger) *Pipeline {
	opts.defaults()
	return &Pipeline{
		mode:   ModeOff,
		remote: remote,
		opts:   opts,
		sem:    semaphore.NewWeighted(1),
		log:    diag.Component(log, "recognize"),
	}
}

func (p *Pipeline) SetMode(m Mode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = m
}

func (p *Pipeline) Mode() Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// SetRemote swaps the collaborator used in remote mode.
func (p *Pipeline) SetRemote(r Recognizer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.remote = r
}

// Enabled reports whether completed strokes should be recognised.
func (p *Pipeline) Enabled() bool { return p.Mode() != ModeOff }

// CropRect expands box by margin (plus slack at the bottom), snaps it to
// whole units and clamps it to a w x h surface.
func CropRect(box state.Box, margin, slack, w, h float64) state.Rect {
	x := math.Max(0, math.Floor(box.MinX-margin))
	y := math.Max(0, math.Floor(box.MinY-margin))
	return state.Rect{
		X: x,
		Y: y,
		W: math.Min(w-x, math.Ceil(box.Width()+margin*2)),
		H: math.Min(h-y, math.Ceil(box.Height()+margin*2+slack)),
	}
}

// Run recognises the ink under box and reports where and what to annotate.
// It returns false without touching busy when recognition is off or the box
// has no extent, or when ctx ends while waiting for an earlier run. Every
// other path toggles busy on and then off and yields an Outcome; failures
// become placeholder text and are only logged.
func (p *Pipeline) Run(ctx context.Context, src Region, box state.Box, busy func(bool)) (Outcome, bool) {
	p.mu.RLock()
	mode, remote, opts := p.mode, p.remote, p.opts
	p.mu.RUnlock()

	if mode == ModeOff {
		return Outcome{}, false
	}
	if box.Degenerate() {
		p.log.Debug("skipping degenerate stroke", "x", box.MinX, "y", box.MinY)
		return Outcome{}, false
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return Outcome{}, false
	}
	defer p.sem.Release(1)

	if busy != nil {
		busy(true)
		defer busy(false)
	}

	out := Outcome{Pos: state.Point{X: box.MinX, Y: box.MaxY + opts.Offset}}
	start := time.Now()
	var text string
	var err error
	if mode == ModeDemo {
		text, err = opts.Demo.Recognize(ctx, nil)
	} else {
		text, err = p.remoteText(ctx, remote, src, box, opts)
	}
	text = strings.TrimSpace(text)
	switch {
	case err != nil:
		out.Text, out.Err = ErrorText, err
		p.log.Error("recognition failed", "mode", string(mode), "code", string(diag.Classify(err)), "err", err)
	case text == "":
		out.Text = NoText
		p.log.Info("recognition returned no text", "mode", string(mode))
	default:
		out.Text = text
		p.log.Debug("recognized", "mode", string(mode), "chars", len(text), "took", time.Since(start))
	}
	return out, true
}

func (p *Pipeline) remoteText(ctx context.Context, r Recognizer, src Region, box state.Box, opts Options) (string, error) {
	if r == nil {
		return "", fmt.Errorf("remote mode: %w", ErrNotConfigured)
	}
	size := src.Size()
	rect := CropRect(box, opts.Margin, opts.BottomSlack, size.Width, size.Height)
	img, err := src.Crop(rect)
	if err != nil {
		return "", fmt.Errorf("crop %+v: %w", rect, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode crop: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	text, err := r.Recognize(ctx, buf.Bytes())
	if errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("recognition timed out after %s: %w", opts.Timeout, err)
	}
	return text, err
}
