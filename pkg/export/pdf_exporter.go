package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a single-table A4 document.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the PDF. Core fonts are cp1252, so text is translated from UTF-8.
func (e *PDFExporter) Render(data Dataset) (Document, error) {
	if err := data.validate(); err != nil {
		return Document{}, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	colWidth := 190.0 / float64(len(data.Headers))
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, value := range row {
			align := "L"
			if i > 0 {
				align = "R"
			}
			pdf.CellFormat(colWidth, 7, tr(value), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(data.Summary) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		for _, line := range data.Summary {
			pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return Document{}, fmt.Errorf("render pdf: %w", err)
	}
	return Document{Data: buf.Bytes(), ContentType: ContentTypePDF, Extension: "pdf"}, nil
}
