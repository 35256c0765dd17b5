package export

import "fmt"

// Dataset defines tabular export content. Rows are rendered in order and each
// row is aligned with Headers; Summary lines are printed after the table.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
	Summary []string
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	return nil
}

// MIME types of the supported formats.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ContentType returns the MIME type for a format name, defaulting to a binary stream.
func ContentType(format string) string {
	switch format {
	case "csv":
		return ContentTypeCSV
	case "pdf":
		return ContentTypePDF
	case "xlsx":
		return ContentTypeXLSX
	}
	return "application/octet-stream"
}

// Document is a rendered export ready to be stored or streamed.
type Document struct {
	Data        []byte
	ContentType string
	Extension   string
}

// Renderer turns a dataset into one file format.
type Renderer interface {
	Render(data Dataset) (Document, error)
}

// Registry resolves renderers by format name.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry returns a registry with the CSV, PDF and XLSX renderers.
func NewRegistry() *Registry {
	return &Registry{renderers: map[string]Renderer{
		"csv":  NewCSVExporter(),
		"pdf":  NewPDFExporter(),
		"xlsx": NewXLSXExporter(),
	}}
}

// Render renders data in the requested format.
func (r *Registry) Render(format string, data Dataset) (Document, error) {
	renderer, ok := r.renderers[format]
	if !ok {
		return Document{}, fmt.Errorf("unsupported export format %q", format)
	}
	return renderer.Render(data)
}
