package diag

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// discardHandler drops every record. Enabled reports false so callers skip
// formatting entirely.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

// Discard returns a logger that writes nothing. Packages fall back to it when
// no logger was injected.
func Discard() *slog.Logger { return slog.New(discardHandler{}) }

// NewLogger builds a text logger writing to w at the given level
// (debug|info|warn|error, default info). A nil writer means stderr.
func NewLogger(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns l tagged with comp, or a discard logger when l is nil.
func Component(l *slog.Logger, comp string) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l.With(slog.String("comp", comp))
}
