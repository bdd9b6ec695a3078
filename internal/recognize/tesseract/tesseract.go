// Package tesseract is a local recognition engine backed by libtesseract.
// The cgo binding is only compiled with the "tesseract" build tag; without
// it every request fails with recognize.ErrNotConfigured.
package tesseract

import (
	"context"
	"fmt"
	"strings"
)

// client is the part of gosseract.Client the engine drives.
type client interface {
	SetImageFromBytes(data []byte) error
	SetLanguage(langs ...string) error
	Text() (string, error)
	Close() error
}

// Engine recognises images with a fresh client per call.
type Engine struct {
	languages     []string
	clientFactory func() (client, error)
}

// New returns an engine for the given tesseract language codes ("eng" when
// none are given).
func New(languages ...string) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{
		languages:     append([]string(nil), languages...),
		clientFactory: newClient,
	}
}

func (e *Engine) Languages() []string { return append([]string(nil), e.languages...) }

func (e *Engine) Recognize(ctx context.Context, img []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	c, err := e.clientFactory()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	defer c.Close()
	if err := c.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("tesseract: set image: %w", err)
	}
	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("tesseract: set languages: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: recognize: %w", err)
	}
	return strings.Join(strings.Fields(text), " "), nil
}
