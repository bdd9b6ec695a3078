package state

import (
	"fmt"
	"image/color"
	"math"
	"strings"
)

// Point is a position in surface-local logical units.
type Point struct{ X, Y float64 }

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Box is the running bounding box of a stroke.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// BoxAt returns a box covering only p.
func BoxAt(p Point) Box { return Box{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y} }

// Extend grows the box to include p.
func (b *Box) Extend(p Point) {
	b.MinX = math.Min(b.MinX, p.X)
	b.MinY = math.Min(b.MinY, p.Y)
	b.MaxX = math.Max(b.MaxX, p.X)
	b.MaxY = math.Max(b.MaxY, p.Y)
}

func (b Box) Width() float64  { return b.MaxX - b.MinX }
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// Degenerate reports a box without area: a tap, or a perfectly horizontal
// or vertical stroke.
func (b Box) Degenerate() bool { return b.Width() <= 0 || b.Height() <= 0 }

// Rect is an axis-aligned region in logical units.
type Rect struct {
	X, Y, W, H float64
}

// Empty reports a region without area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Mode selects how stroke parameters are resolved.
type Mode string

const (
	ModeDraw        Mode = "draw"
	ModeErase       Mode = "erase"
	ModeHighlighter Mode = "highlighter"
)

// ParseMode accepts the configured mode names.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeDraw, ModeErase, ModeHighlighter:
		return m, nil
	default:
		return ModeDraw, fmt.Errorf("unknown mode %q", s)
	}
}

const (
	// HighlighterMaxOpacity is the translucency ceiling of the highlighter.
	HighlighterMaxOpacity = 0.4
	// HighlighterMinWidth is the minimum highlighter thickness.
	HighlighterMinWidth = 16.0
)

// Style is what the user selected on the toolbar.
type Style struct {
	Color   color.NRGBA
	Opacity float64
	Width   float64
	Mode    Mode
}

// DefaultStyle is a thin opaque dark pen.
func DefaultStyle() Style {
	return Style{Color: color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}, Opacity: 1, Width: 4, Mode: ModeDraw}
}

// Ink is the effective paint used for one segment.
type Ink struct {
	Color   color.NRGBA
	Opacity float64
	Width   float64
}

// Resolve applies the mode policy. Erase paints opaque background; the
// highlighter clamps opacity down and width up; draw is verbatim.
func (s Style) Resolve(background color.NRGBA) Ink {
	ink := Ink{Color: s.Color, Opacity: s.Opacity, Width: s.Width}
	switch s.Mode {
	case ModeErase:
		ink.Color = background
		ink.Opacity = 1
	case ModeHighlighter:
		ink.Opacity = math.Min(ink.Opacity, HighlighterMaxOpacity)
		ink.Width = math.Max(ink.Width, HighlighterMinWidth)
	}
	return ink
}

// ParseColor reads #rgb or #rrggbb.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	var r, g, b uint8
	switch len(s) {
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
		}
	case 3:
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b); err != nil {
			return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
		}
		r, g, b = r*17, g*17, b*17
	default:
		return color.NRGBA{}, fmt.Errorf("color %q: want #rgb or #rrggbb", s)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// White is the surface background.
var White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
