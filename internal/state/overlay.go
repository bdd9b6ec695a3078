package state

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"InkNote/internal/diag"
)

// Frame names the coordinate frame an annotation position is expressed in.
type Frame int

const (
	// FrameSurface positions are relative to the drawing surface origin.
	FrameSurface Frame = iota
	// FrameViewport positions are relative to the window; they are normalised
	// to FrameSurface when the annotation loses focus.
	FrameViewport
)

// Annotation is an editable text region above the surface.
type Annotation struct {
	ID        string
	Pos       Point
	Frame     Frame
	Text      string
	Focused   bool
	SelectAll bool
	CreatedAt time.Time
}

// Overlay owns the text annotations of one board.
type Overlay struct {
	items  []*Annotation
	origin Point // surface origin in viewport coordinates
	mu     sync.RWMutex
	log    *slog.Logger
}

func NewOverlay(log *slog.Logger) *Overlay {
	return &Overlay{items: make([]*Annotation, 0), log: diag.Component(log, "overlay")}
}

// SetOrigin records where the surface sits in the viewport.
func (o *Overlay) SetOrigin(p Point) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.origin = p
}

func (o *Overlay) Origin() Point {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.origin
}

// Create adds a focused annotation at a surface position with its whole text
// selected, so the first keystroke replaces it. Any other focused annotation
// loses focus first.
func (o *Overlay) Create(pos Point, text string) Annotation {
	return o.create(pos, FrameSurface, text)
}

// CreateInViewport adds an annotation positioned in window coordinates.
func (o *Overlay) CreateInViewport(pos Point, text string) Annotation {
	return o.create(pos, FrameViewport, text)
}

func (o *Overlay) create(pos Point, frame Frame, text string) Annotation {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, a := range o.items {
		a.Focused = false
		a.SelectAll = false
	}
	a := &Annotation{
		ID:        NewID("note"),
		Pos:       pos,
		Frame:     frame,
		Text:      text,
		Focused:   true,
		SelectAll: true,
		CreatedAt: time.Now(),
	}
	o.items = append(o.items, a)
	o.log.Debug("annotation created", "id", a.ID, "x", pos.X, "y", pos.Y)
	return *a
}

// SetText replaces the content of an annotation. Typing clears the
// select-all state.
func (o *Overlay) SetText(id, text string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := o.find(id)
	if a == nil {
		return false
	}
	a.Text = text
	a.SelectAll = false
	return true
}

// Focus marks id as the single focused annotation.
func (o *Overlay) Focus(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	found := false
	for _, a := range o.items {
		a.Focused = a.ID == id
		found = found || a.Focused
	}
	return found
}

// Blur handles focus loss. Blank annotations are removed; the others are kept
// with their position normalised to the surface frame. It reports whether
// the annotation still exists.
func (o *Overlay) Blur(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := o.find(id)
	if a == nil {
		return false
	}
	if strings.TrimSpace(a.Text) == "" {
		o.removeLocked(id)
		o.log.Debug("empty annotation removed", "id", id)
		return false
	}
	a.Pos = o.surfacePos(*a)
	a.Frame = FrameSurface
	a.Focused = false
	a.SelectAll = false
	return true
}

// Remove deletes an annotation regardless of its text.
func (o *Overlay) Remove(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.removeLocked(id)
}

// Clear drops every annotation.
func (o *Overlay) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = make([]*Annotation, 0)
}

func (o *Overlay) Get(id string) (Annotation, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if a := o.find(id); a != nil {
		return *a, true
	}
	return Annotation{}, false
}

// All returns copies in creation order.
func (o *Overlay) All() []Annotation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Annotation, 0, len(o.items))
	for _, a := range o.items {
		out = append(out, *a)
	}
	return out
}

// Visible returns the annotations that carry text, with surface positions.
func (o *Overlay) Visible() []Annotation {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Annotation, 0, len(o.items))
	for _, a := range o.items {
		if strings.TrimSpace(a.Text) == "" {
			continue
		}
		c := *a
		c.Pos = o.surfacePos(c)
		c.Frame = FrameSurface
		out = append(out, c)
	}
	return out
}

// SurfacePos converts an annotation position into the surface frame.
func (o *Overlay) SurfacePos(a Annotation) Point {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.surfacePos(a)
}

func (o *Overlay) surfacePos(a Annotation) Point {
	if a.Frame == FrameViewport {
		return a.Pos.Sub(o.origin)
	}
	return a.Pos
}

func (o *Overlay) find(id string) *Annotation {
	for _, a := range o.items {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (o *Overlay) removeLocked(id string) bool {
	for i, a := range o.items {
		if a.ID == id {
			o.items = append(o.items[:i], o.items[i+1:]...)
			return true
		}
	}
	return false
}
