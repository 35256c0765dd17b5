package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders datasets as RFC 4180 CSV. The title and summary lines
// become single-cell rows so the file stays machine readable.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) (Document, error) {
	if err := data.validate(); err != nil {
		return Document{}, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if data.Title != "" {
		if err := writer.Write([]string{data.Title}); err != nil {
			return Document{}, fmt.Errorf("write csv title: %w", err)
		}
	}
	if err := writer.Write(data.Headers); err != nil {
		return Document{}, fmt.Errorf("write csv headers: %w", err)
	}
	if err := writer.WriteAll(data.Rows); err != nil {
		return Document{}, fmt.Errorf("write csv rows: %w", err)
	}
	for _, line := range data.Summary {
		if err := writer.Write([]string{line}); err != nil {
			return Document{}, fmt.Errorf("write csv summary: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return Document{}, fmt.Errorf("flush csv: %w", err)
	}
	return Document{Data: buf.Bytes(), ContentType: ContentTypeCSV, Extension: "csv"}, nil
}
