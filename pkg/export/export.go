package export

import "fmt"

// Format identifies an export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Dataset is an ordered table. Each row has one cell per header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
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

// Renderer encodes a dataset into a downloadable document.
type Renderer interface {
	Render(Dataset) ([]byte, error)
	ContentType() string
}

// For returns the renderer registered for format.
func For(format Format) (Renderer, error) {
	switch format {
	case FormatCSV, "":
		return NewCSVRenderer(), nil
	case FormatPDF:
		return NewPDFRenderer(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
