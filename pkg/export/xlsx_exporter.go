package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXExporter renders datasets into the first sheet of a workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes title, header, rows and summary lines top to bottom.
func (e *XLSXExporter) Render(data Dataset) (Document, error) {
	if err := data.validate(); err != nil {
		return Document{}, err
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	sheet := f.GetSheetName(0)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return Document{}, fmt.Errorf("xlsx style: %w", err)
	}

	row := 1
	if data.Title != "" {
		if err := f.SetCellValue(sheet, "A1", data.Title); err != nil {
			return Document{}, fmt.Errorf("xlsx title: %w", err)
		}
		if err := f.SetCellStyle(sheet, "A1", "A1", bold); err != nil {
			return Document{}, fmt.Errorf("xlsx title style: %w", err)
		}
		row += 2
	}

	if err := writeRow(f, sheet, row, data.Headers); err != nil {
		return Document{}, err
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
	if err := f.SetCellStyle(sheet, first, last, bold); err != nil {
		return Document{}, fmt.Errorf("xlsx header style: %w", err)
	}
	row++

	for _, values := range data.Rows {
		if err := writeRow(f, sheet, row, values); err != nil {
			return Document{}, err
		}
		row++
	}

	row++
	for _, line := range data.Summary {
		if err := writeRow(f, sheet, row, []string{line}); err != nil {
			return Document{}, err
		}
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Document{}, fmt.Errorf("render xlsx: %w", err)
	}
	return Document{
		Data:        buf.Bytes(),
		ContentType: ContentTypeXLSX,
		Extension:   "xlsx",
	}, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("xlsx cell: %w", err)
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("xlsx row %d: %w", row, err)
	}
	return nil
}
