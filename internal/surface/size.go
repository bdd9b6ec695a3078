package surface

import "math"

// Limits bound the logical surface size.
type Limits struct {
	MaxWidth       float64
	MaxHeight      float64
	Padding        float64
	FallbackWidth  float64
	FallbackHeight float64
}

// DefaultLimits caps the surface at 1200x800 with a 20 unit frame and falls
// back to 800x600 when the container has no usable room.
func DefaultLimits() Limits {
	return Limits{MaxWidth: 1200, MaxHeight: 800, Padding: 20, FallbackWidth: 800, FallbackHeight: 600}
}

// Size is a logical size plus its backing store resolution.
type Size struct {
	Width       float64 // logical units
	Height      float64
	PixelWidth  int // backing store pixels
	PixelHeight int
	Scale       float64 // device pixel ratio
}

// Compute derives the surface size for a container and pixel ratio. The
// logical size is capped by the limits; a non-positive result falls back to
// the fallback size. The backing store is the logical size times the pixel
// ratio, never below one pixel.
func Compute(containerW, containerH, ratio float64, l Limits) Size {
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		ratio = 1
	}
	w := math.Min(containerW-l.Padding*2, l.MaxWidth)
	h := math.Min(containerH-l.Padding*2, l.MaxHeight)
	if !(w > 0) {
		w = l.FallbackWidth
	}
	if !(h > 0) {
		h = l.FallbackHeight
	}
	return Size{
		Width:       w,
		Height:      h,
		PixelWidth:  max(1, int(math.Round(w*ratio))),
		PixelHeight: max(1, int(math.Round(h*ratio))),
		Scale:       ratio,
	}
}

// Fixed returns a size for an explicit logical extent, used by tools and tests.
func Fixed(w, h, ratio float64) Size {
	return Compute(w, h, ratio, Limits{MaxWidth: w, MaxHeight: h, FallbackWidth: w, FallbackHeight: h})
}
