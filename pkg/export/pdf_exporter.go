package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 277.0 // A4 landscape minus margins
	rowHeight  = 7.0
	headHeight = 8.0
)

// PDFExporter renders datasets into a landscape table. When GroupBy names a
// header, a shaded band is drawn each time that column's value changes.
type PDFExporter struct {
	GroupBy string
}

// NewPDFExporter constructs a PDF exporter grouping rows by groupBy.
func NewPDFExporter(groupBy string) *PDFExporter {
	return &PDFExporter{GroupBy: groupBy}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	widths := columnWidths(pdf, data)
	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(220, 220, 220)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], headHeight, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	group := ""
	for i := range data.Rows {
		if pdf.GetY()+2*rowHeight > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		if e.GroupBy != "" {
			if value := data.Rows[i][e.GroupBy]; value != group {
				group = value
				pdf.SetFont("Arial", "B", 9)
				pdf.SetFillColor(240, 240, 240)
				pdf.CellFormat(sum(widths), rowHeight, group, "1", 1, "L", true, 0, "")
				pdf.SetFont("Arial", "", 9)
			}
		}
		for col, value := range data.Record(i) {
			pdf.CellFormat(widths[col], rowHeight, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths sizes columns in proportion to their widest cell.
func columnWidths(pdf *gofpdf.Fpdf, data Dataset) []float64 {
	pdf.SetFont("Arial", "", 9)
	widths := make([]float64, len(data.Headers))
	for i, h := range data.Headers {
		widths[i] = pdf.GetStringWidth(h) + 4
	}
	for i := range data.Rows {
		for col, value := range data.Record(i) {
			if w := pdf.GetStringWidth(value) + 4; w > widths[col] {
				widths[col] = w
			}
		}
	}
	total := sum(widths)
	for i := range widths {
		widths[i] = widths[i] / total * pageWidth
	}
	return widths
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
