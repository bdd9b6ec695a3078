package board

import "InkNote/internal/state"

// Kind is the phase of an input sample.
type Kind int

const (
	KindDown Kind = iota
	KindMove
	KindUp
	KindLeave
)

func (k Kind) String() string {
	switch k {
	case KindDown:
		return "down"
	case KindMove:
		return "move"
	case KindUp:
		return "up"
	case KindLeave:
		return "leave"
	}
	return "unknown"
}

// Source tells pointer and touch input apart.
type Source int

const (
	SourcePointer Source = iota
	SourceTouch
)

// Event is one sample from the input device.
//
// Pointer events carry Offset already relative to the surface. Touch events
// carry screen positions in Touches plus the surface's screen offset in
// SurfaceOrigin.
type Event struct {
	Kind          Kind
	Source        Source
	Offset        state.Point
	Touches       []state.Point
	SurfaceOrigin state.Point
}

// Position resolves the event to surface-local coordinates. Touch input uses
// the first active touch; a touch event without touches falls back to Offset.
func (e Event) Position() state.Point {
	if e.Source == SourceTouch && len(e.Touches) > 0 {
		return e.Touches[0].Sub(e.SurfaceOrigin)
	}
	return e.Offset
}

// Pointer builds a pointer event at a surface-local position.
func Pointer(k Kind, x, y float64) Event {
	return Event{Kind: k, Source: SourcePointer, Offset: state.Point{X: x, Y: y}}
}
