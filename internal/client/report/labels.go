// Package report renders printable documents: recap reports and location
// barcode label sheets.
package report

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/dmitrijs2005/inventaire/internal/client/models"
	"github.com/jung-kurt/gofpdf"
)

const (
	labelCols   = 2
	labelRows   = 5
	labelMargin = 10.0
)

// LabelValue is the code printed on the label of l: its barcode, or its id
// when the location has none.
func LabelValue(l models.Location) string {
	if v := strings.TrimSpace(l.Barcode); v != "" {
		return v
	}
	return l.ID
}

// RenderLocationLabelsPDF lays out one Code 128 label per location, ten per
// A4 page.
func RenderLocationLabelsPDF(locations []models.Location, printedAt time.Time) ([]byte, error) {
	if len(locations) == 0 {
		return nil, fmt.Errorf("no locations to label")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Location Labels", false)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	cellW := (pageW - 2*labelMargin) / labelCols
	cellH := (pageH - 2*labelMargin) / labelRows
	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}

	for i, loc := range locations {
		slot := i % (labelCols * labelRows)
		if slot == 0 {
			pdf.AddPage()
		}
		x := labelMargin + float64(slot%labelCols)*cellW
		y := labelMargin + float64(slot/labelCols)*cellH

		value := LabelValue(loc)
		barcodePNG, err := renderCode128PNG(value, 800, 200)
		if err != nil {
			return nil, fmt.Errorf("barcode for location %s: %w", loc.ID, err)
		}

		pdf.SetLineWidth(0.2)
		pdf.Rect(x+1, y+1, cellW-2, cellH-2, "D")

		pdf.SetXY(x+3, y+4)
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(cellW-6, 7, tr(loc.Name), "", 2, "C", false, 0, "")
		if loc.Parent != nil {
			pdf.SetFont("Helvetica", "", 9)
			pdf.CellFormat(cellW-6, 5, tr(loc.Parent.Name), "", 2, "C", false, 0, "")
		}

		imageName := fmt.Sprintf("location-barcode-%d", i)
		pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(barcodePNG))
		imgW := cellW - 16
		imgH := 16.0
		pdf.ImageOptions(imageName, x+8, y+19, imgW, imgH, false, opt, 0, "")

		pdf.SetXY(x+3, y+19+imgH+1)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(cellW-6, 6, value, "", 2, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(cellW-6, 4, "Printed "+printedAt.Format("02/01/2006"), "", 2, "C", false, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func renderCode128PNG(value string, width, height int) ([]byte, error) {
	code, err := code128.Encode(value)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, err
	}
	bounds := scaled.Bounds()
	dst := image.NewNRGBA(bounds)
	draw.Draw(dst, bounds, scaled, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
