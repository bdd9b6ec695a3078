//go:build tesseract

package tesseract

import "github.com/otiai10/gosseract/v2"

// Linked reports whether libtesseract is compiled in.
const Linked = true

func newClient() (client, error) { return gosseract.NewClient(), nil }
