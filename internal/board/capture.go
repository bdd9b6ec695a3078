package board

import "InkNote/internal/state"

// Capture is the idle/drawing state machine of a single stroke. It tracks
// the last point and the running bounding box; painting is left to the
// caller.
type Capture struct {
	drawing bool
	last    state.Point
	box     state.Box
}

// Down starts a stroke at p. A Down while drawing restarts the stroke.
func (c *Capture) Down(p state.Point) {
	c.drawing = true
	c.last = p
	c.box = state.BoxAt(p)
}

// Move extends the stroke to p and returns the segment to paint. ok is false
// when no stroke is in progress.
func (c *Capture) Move(p state.Point) (from, to state.Point, ok bool) {
	if !c.drawing {
		return state.Point{}, state.Point{}, false
	}
	c.box.Extend(p)
	from, to = c.last, p
	c.last = p
	return from, to, true
}

// End finishes the stroke and hands over its bounding box. A second End for
// the same stroke, such as a leave after an up, reports false.
func (c *Capture) End() (state.Box, bool) {
	if !c.drawing {
		return state.Box{}, false
	}
	c.drawing = false
	box := c.box
	c.box = state.Box{}
	return box, true
}

func (c *Capture) Drawing() bool { return c.drawing }
