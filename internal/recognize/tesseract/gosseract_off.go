//go:build !tesseract

package tesseract

import (
	"fmt"

	"InkNote/internal/recognize"
)

// Linked reports whether libtesseract is compiled in.
const Linked = false

func newClient() (client, error) {
	return nil, fmt.Errorf("built without the tesseract tag: %w", recognize.ErrNotConfigured)
}
