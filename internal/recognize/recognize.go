// Package recognize turns an inked region of the surface into text.
//
// A Recognizer is the external collaborator: it takes an encoded image and
// returns text. The Pipeline wraps one with the busy indicator, cropping,
// placeholders and the demo bypass so callers only ever see an outcome.
package recognize

import (
	"context"
	"fmt"
	"strings"

	"InkNote/internal/diag"
)

// Recognizer converts an encoded image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte) (string, error)
}

// Func adapts a plain function to Recognizer.
type Func func(ctx context.Context, img []byte) (string, error)

func (f Func) Recognize(ctx context.Context, img []byte) (string, error) { return f(ctx, img) }

// Mode selects how completed strokes are recognised.
type Mode string

const (
	ModeOff    Mode = "off"
	ModeDemo   Mode = "demo"
	ModeRemote Mode = "remote"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOff, ModeDemo, ModeRemote:
		return m, nil
	default:
		return ModeOff, fmt.Errorf("unknown recognition mode %q", s)
	}
}

// Placeholder texts used when recognition yields nothing usable.
const (
	NoText    = "(no text found)"
	ErrorText = "(recognition error)"
)

var (
	// ErrNotConfigured means the collaborator lacks endpoint or credentials.
	ErrNotConfigured = diag.NewKind(diag.CodeConfig, "recognizer not configured")
	// ErrUpstream is a non-success answer from the collaborator.
	ErrUpstream = diag.NewKind(diag.CodeUpstream, "recognizer upstream error")
	// ErrResponseInvalid is a response body that could not be decoded.
	ErrResponseInvalid = diag.NewKind(diag.CodeProtocol, "recognizer response invalid")
	// ErrPollExhausted is returned when an asynchronous job did not finish
	// within the allowed polling attempts.
	ErrPollExhausted = diag.NewKind(diag.CodeUpstream, "recognition still running after last poll")
	// ErrAnalysisFailed is a job the collaborator reported as failed.
	ErrAnalysisFailed = diag.NewKind(diag.CodeUpstream, "recognition analysis failed")
)
