// Package export renders customer account activity reports for
// download, as PDF via headless Chrome or as CSV.
package export

import "errors"

type Format string

const (
	FormatPDF Format = "pdf"
	FormatCSV Format = "csv"
)

// Request contains parameters for an export operation.
type Request struct {
	AccountID string
	Format    Format
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat indicates the requested format is unknown.
	ErrUnsupportedFormat = errors.New("export unsupported format")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
