package export

import (
	"bytes"
	"fmt"
	"strings"
)

// Dataset defines tabular export content. Each row is positional against Headers.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

const rowSeparator = "\r\n"

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset. Fields are comma separated
// and rows are joined with CRLF, without a trailing separator.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writeRecord(buf, data.Headers)
	for i, row := range data.Rows {
		if len(row) != len(data.Headers) {
			return nil, fmt.Errorf("csv row %d has %d cells, want %d", i, len(row), len(data.Headers))
		}
		buf.WriteString(rowSeparator)
		writeRecord(buf, row)
	}
	return buf.Bytes(), nil
}

func writeRecord(buf *bytes.Buffer, record []string) {
	for i, cell := range record {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(EscapeCell(cell))
	}
}

// EscapeCell quotes a cell only when it contains a comma, a double quote, a
// line feed or a carriage return, doubling any embedded quotes. A bare CR is
// quoted because rows end in CRLF.
func EscapeCell(cell string) string {
	if !strings.ContainsAny(cell, ",\"\r\n") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
