package ui

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

func exportName(ext string) string {
	return "inknote-" + time.Now().Format("20060102-150405") + ext
}

// saveWith renders into memory first so a failed export never leaves a
// truncated file behind the dialog.
func saveWith(t *Toolbar, ext, label string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		t.view.log.Error("export failed", "format", label, "err", err)
		dialog.ShowError(err, t.win)
		return
	}
	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, t.win)
			return
		}
		if writer == nil {
			return
		}
		defer func() {
			if err := writer.Close(); err != nil {
				t.view.log.Warn("closing export", "err", err)
			}
		}()
		if _, err := writer.Write(buf.Bytes()); err != nil {
			t.view.log.Error("writing export", "uri", writer.URI().String(), "err", err)
			dialog.ShowError(fmt.Errorf("write %s: %w", writer.URI().Name(), err), t.win)
			return
		}
		t.view.log.Info("exported", "format", label, "uri", writer.URI().String(), "bytes", buf.Len())
		t.SetStatusf("Saved %s", writer.URI().Name())
	}, t.win)
	d.SetFileName(exportName(ext))
	d.Show()
}

func savePNG(t *Toolbar)  { saveWith(t, ".png", "png", t.board.ExportPNG) }
func exportPDF(t *Toolbar) { saveWith(t, ".pdf", "pdf", t.board.ExportPDF) }
