package export

import (
	"bytes"
	"fmt"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF flattens p and wraps it as a single page sized to the logical
// surface, one point per logical unit.
func WritePDF(w io.Writer, p Page) error {
	img, err := Flatten(p)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}

	scale := p.Scale
	if scale <= 0 {
		scale = 1
	}
	wd := float64(img.Bounds().Dx()) / scale
	ht := float64(img.Bounds().Dy()) / scale

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("InkNote", true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("surface", opts, &buf)
	pdf.ImageOptions("surface", 0, 0, wd, ht, false, opts, 0, "")
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return pdf.Output(w)
}
