package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/inventaire/internal/client/services"
	"github.com/jung-kurt/gofpdf"
)

type column struct {
	title string
	width float64
}

type table struct {
	pdf  *gofpdf.Fpdf
	tr   func(string) string
	cols []column
}

func (t table) header() {
	t.pdf.SetFont("Helvetica", "B", 9)
	t.pdf.SetFillColor(230, 230, 230)
	for _, c := range t.cols {
		t.pdf.CellFormat(c.width, 6, t.tr(c.title), "1", 0, "L", true, 0, "")
	}
	t.pdf.Ln(-1)
	t.pdf.SetFont("Helvetica", "", 9)
}

func (t table) row(values ...string) {
	_, pageH := t.pdf.GetPageSize()
	_, _, _, bottom := t.pdf.GetMargins()
	if t.pdf.GetY()+6 > pageH-bottom {
		t.pdf.AddPage()
		t.header()
	}
	for i, c := range t.cols {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		t.pdf.CellFormat(c.width, 6, t.tr(fit(t.pdf, v, c.width-2)), "1", 0, "L", false, 0, "")
	}
	t.pdf.Ln(-1)
}

// fit shortens s so that it fits in width.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func section(pdf *gofpdf.Fpdf, tr func(string) string, title string, n int) {
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("%s (%d)", title, n)), "", 1, "L", false, 0, "")
}

// RenderRecapPDF prints the variance lists of r.
func RenderRecapPDF(r *services.Recap) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("no recap to render")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Recap "+r.Campaign.Code, false)
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr("Récapitulatif d'inventaire"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Campagne: %s %s", r.Campaign.Code, r.Campaign.Name)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr("Groupe: "+r.Group.Name), "", 1, "L", false, 0, "")
	source := "scans locaux"
	if r.RemoteIncluded {
		source = "scans locaux et serveur"
	}
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Généré le %s, %d scans (%s)",
		r.GeneratedAt.Format("02/01/2006 15:04"), r.ScanCount, source)), "", 1, "L", false, 0, "")

	missing, unexpected, unknown, matched := r.Totals()

	section(pdf, tr, "Ecart négatif", missing)
	t := table{pdf: pdf, tr: tr, cols: []column{{"Emplacement", 55}, {"Code", 40}, {"Description", 91}}}
	t.header()
	for _, it := range r.Missing {
		t.row(it.Location.Name, it.Article.Code, it.Article.Description)
	}

	section(pdf, tr, "Ecart positif", unexpected)
	t = table{pdf: pdf, tr: tr, cols: []column{{"Emplacement", 50}, {"Code", 36}, {"Attendu à", 100}}}
	t.header()
	for _, it := range r.Unexpected {
		t.row(it.Location.Name, it.Scan.Code, strings.Join(it.ExpectedLocations, ", "))
	}

	section(pdf, tr, "Articles inconnus", unknown)
	t = table{pdf: pdf, tr: tr, cols: []column{{"Emplacement", 50}, {"Code", 46}, {"Observation", 90}}}
	t.header()
	for _, it := range r.Unknown {
		t.row(it.Location.Name, it.Scan.Code, it.Scan.Observation)
	}

	section(pdf, tr, "Conformes", matched)
	t = table{pdf: pdf, tr: tr, cols: []column{{"Emplacement", 50}, {"Code", 40}, {"Etat", 30}, {"Date", 66}}}
	t.header()
	for _, it := range r.Matched {
		t.row(it.Location.Name, it.Scan.Code, string(it.Scan.Condition), it.Scan.CapturedAt.Format("02/01/2006 15:04"))
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
