package export

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
)

// Pattern is a background template drawn behind the ink.
type Pattern string

const (
	PatternPlain  Pattern = "plain"
	PatternGrid   Pattern = "grid"
	PatternRuled  Pattern = "ruled"
	PatternDotted Pattern = "dotted"
)

// Pitch is the spacing of pattern lines and dots in logical units.
const Pitch = 24.0

var (
	guideColor = color.RGBA{R: 0xdd, G: 0xe3, B: 0xea, A: 0xff}
	dotColor   = color.RGBA{R: 0xb8, G: 0xc2, B: 0xcc, A: 0xff}
)

func ParsePattern(s string) (Pattern, error) {
	switch p := Pattern(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PatternPlain:
		return PatternPlain, nil
	case PatternGrid, PatternRuled, PatternDotted:
		return p, nil
	default:
		return PatternPlain, fmt.Errorf("unknown background %q", s)
	}
}

// ApplyPattern paints the template into img in place. Only pixels that still
// hold bg are touched, so ink always stays on top of the guides.
func ApplyPattern(img *image.RGBA, p Pattern, scale float64, bg color.Color) {
	if p == PatternPlain || p == "" {
		return
	}
	if scale <= 0 {
		scale = 1
	}
	r, g, b, a := bg.RGBA()
	want := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
	step := Pitch * scale
	thick := max(1, int(math.Round(scale)))

	onGuide := func(v int) bool {
		// distance to the nearest multiple of step, in pixels
		m := math.Mod(float64(v), step)
		return int(m) < thick && v > 0
	}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := onGuide(y - bounds.Min.Y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			col := onGuide(x - bounds.Min.X)
			var c color.RGBA
			switch p {
			case PatternGrid:
				if !row && !col {
					continue
				}
				c = guideColor
			case PatternRuled:
				if !row {
					continue
				}
				c = guideColor
			case PatternDotted:
				if !row || !col {
					continue
				}
				c = dotColor
			default:
				return
			}
			if img.RGBAAt(x, y) == want {
				img.SetRGBA(x, y, c)
			}
		}
	}
}
