package state

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"InkNote/internal/diag"
)

// Snapshot is an opaque encoded raster of the whole surface.
type Snapshot struct {
	ID        string
	Seq       uint64
	Data      []byte
	Width     int
	Height    int
	CreatedAt time.Time
}

// NewSnapshot stamps encoded pixel data with an id and sequence number.
func NewSnapshot(data []byte, width, height int) Snapshot {
	return Snapshot{
		ID:        NewID("snap"),
		Seq:       nextSeq(),
		Data:      data,
		Width:     width,
		Height:    height,
		CreatedAt: time.Now(),
	}
}

// Capturer produces a snapshot of the current surface.
type Capturer interface {
	Capture() (Snapshot, error)
}

// Availability tells the UI which history buttons are enabled.
type Availability struct {
	CanUndo bool
	CanRedo bool
}

// History is a linear undo/redo stack of snapshots.
// Invariant: -1 <= cursor < len(entries).
type History struct {
	mu      sync.RWMutex
	entries []Snapshot
	cursor  int
	log     *slog.Logger
}

// NewHistory returns an empty history with cursor -1.
func NewHistory(log *slog.Logger) *History {
	return &History{cursor: -1, log: diag.Component(log, "history")}
}

// Record captures the surface and pushes the result. A failed capture is
// logged and skipped; the stack is left untouched.
func (h *History) Record(c Capturer) (Availability, error) {
	snap, err := c.Capture()
	if err != nil {
		h.log.Warn("snapshot skipped", "err", err, "code", string(diag.Classify(err)))
		return h.Availability(), fmt.Errorf("capture: %w", err)
	}
	return h.Push(snap), nil
}

// Push discards every entry after the cursor, appends s and moves the
// cursor to it.
func (h *History) Push(s Snapshot) Availability {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cursor < len(h.entries)-1 {
		dropped := len(h.entries) - 1 - h.cursor
		// Clear the tail so discarded rasters can be collected.
		for i := h.cursor + 1; i < len(h.entries); i++ {
			h.entries[i] = Snapshot{}
		}
		h.entries = h.entries[:h.cursor+1]
		h.log.Debug("future discarded", "count", dropped)
	}
	h.entries = append(h.entries, s)
	h.cursor = len(h.entries) - 1
	h.log.Debug("pushed", "id", s.ID, "seq", s.Seq, "cursor", h.cursor)
	return h.availabilityLocked()
}

// Undo moves the cursor back and returns the snapshot to restore.
// It is a no-op at cursor <= 0.
func (h *History) Undo() (Snapshot, Availability, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor <= 0 {
		return Snapshot{}, h.availabilityLocked(), false
	}
	h.cursor--
	return h.entries[h.cursor], h.availabilityLocked(), true
}

// Redo moves the cursor forward and returns the snapshot to restore.
// It is a no-op when the cursor is already at the last entry.
func (h *History) Redo() (Snapshot, Availability, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cursor >= len(h.entries)-1 {
		return Snapshot{}, h.availabilityLocked(), false
	}
	h.cursor++
	return h.entries[h.cursor], h.availabilityLocked(), true
}

// Current returns the snapshot at the cursor, if any.
func (h *History) Current() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.cursor < 0 {
		return Snapshot{}, false
	}
	return h.entries[h.cursor], true
}

func (h *History) Cursor() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cursor
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Entries returns the snapshot ids in order, mostly for diagnostics.
func (h *History) Entries() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, len(h.entries))
	for i, e := range h.entries {
		ids[i] = e.ID
	}
	return ids
}

func (h *History) Availability() Availability {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.availabilityLocked()
}

func (h *History) availabilityLocked() Availability {
	return Availability{
		CanUndo: h.cursor > 0,
		CanRedo: h.cursor < len(h.entries)-1,
	}
}
