// Package export flattens a board into a single raster and wraps it for
// download as PNG or PDF.
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strings"
	"sync"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"

	"InkNote/internal/state"
)

// Annotation text is drawn with these metrics, in logical units.
const (
	TextSize     = 22.0
	BaselineDrop = 20.0
	LineHeight   = 26.0
)

// TextColor is the annotation ink in exports.
var TextColor = color.NRGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}

var (
	fontOnce sync.Once
	fontSrc  *text.FontSource
	fontErr  error
)

func goRegular() (*text.FontSource, error) {
	fontOnce.Do(func() {
		fontSrc, fontErr = text.NewFontSource(goregular.TTF)
	})
	return fontSrc, fontErr
}

// Page is everything needed to flatten one board.
type Page struct {
	Raster     *image.RGBA // backing store, device pixels
	Scale      float64     // device pixels per logical unit
	Notes      []state.Annotation
	Pattern    Pattern
	Background color.Color
}

// Flatten composites the raster, the background template and every visible
// annotation into a new image of the raster's pixel size.
func Flatten(p Page) (*image.RGBA, error) {
	if p.Raster == nil {
		return nil, fmt.Errorf("flatten: no raster")
	}
	scale := p.Scale
	if scale <= 0 {
		scale = 1
	}
	bg := p.Background
	if bg == nil {
		bg = state.White
	}
	b := p.Raster.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), p.Raster, b.Min, draw.Src)
	ApplyPattern(out, p.Pattern, scale, bg)

	notes := make([]state.Annotation, 0, len(p.Notes))
	for _, n := range p.Notes {
		if strings.TrimSpace(n.Text) != "" {
			notes = append(notes, n)
		}
	}
	if len(notes) == 0 {
		return out, nil
	}

	src, err := goRegular()
	if err != nil {
		return nil, fmt.Errorf("flatten: load font: %w", err)
	}
	dc := gg.NewContextForImage(out)
	defer dc.Close()
	dc.SetFont(src.Face(TextSize * scale))
	dc.SetColor(TextColor)
	for _, n := range notes {
		for i, line := range strings.Split(n.Text, "\n") {
			x := n.Pos.X * scale
			y := (n.Pos.Y + BaselineDrop + float64(i)*LineHeight) * scale
			dc.DrawString(line, x, y)
		}
	}
	if img, ok := dc.Image().(*image.RGBA); ok {
		return img, nil
	}
	flat := dc.Image()
	res := image.NewRGBA(flat.Bounds())
	draw.Draw(res, res.Bounds(), flat, flat.Bounds().Min, draw.Src)
	return res, nil
}

// WritePNG flattens p and encodes it as PNG.
func WritePNG(w io.Writer, p Page) error {
	img, err := Flatten(p)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
