package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/rpattn/rosterflow/internal/domain"
)

// ErrExport marks a failed export. No partial output is ever returned
// alongside it.
var ErrExport = errors.New("export failed")

// Format is the requested output shape.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatExcel Format = "excel" // tab-separated text Excel opens natively
	FormatXLSX  Format = "xlsx"
	FormatPrint Format = "print" // HTML table wrapped for print-to-PDF
)

// Column describes one exported column. Formatter is optional; DefaultFormat
// applies when it is nil.
type Column struct {
	Key       string
	Header    string
	Formatter func(value any) string
}

func (c Column) format(value any) string {
	if c.Formatter != nil {
		return c.Formatter(value)
	}
	return DefaultFormat(value)
}

func (c Column) header() string {
	if c.Header != "" {
		return c.Header
	}
	return c.Key
}

// File is a fully rendered export ready for the download sink.
type File struct {
	Content   []byte
	MIMEType  string
	Extension string
}

// Export renders records through the column spec into the requested format.
func Export(records []domain.Record, columns []Column, format Format, title string) (File, error) {
	if len(records) == 0 {
		return File{}, fmt.Errorf("%w: no data to export", ErrExport)
	}
	if len(columns) == 0 {
		return File{}, fmt.Errorf("%w: no columns configured", ErrExport)
	}

	switch format {
	case FormatCSV:
		return exportCSV(records, columns)
	case FormatJSON:
		return exportJSON(records, columns)
	case FormatExcel:
		return exportTSV(records, columns)
	case FormatXLSX:
		return exportXLSX(records, columns, title)
	case FormatPrint:
		return exportPrintHTML(records, columns, title)
	default:
		return File{}, fmt.Errorf("%w: unsupported format %q", ErrExport, format)
	}
}

func exportCSV(records []domain.Record, columns []Column) (File, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := make([]string, len(columns))
	for i, column := range columns {
		headers[i] = column.header()
	}
	if err := writer.Write(headers); err != nil {
		return File{}, fmt.Errorf("%w: write header: %v", ErrExport, err)
	}

	row := make([]string, len(columns))
	for _, record := range records {
		for i, column := range columns {
			row[i] = column.format(record[column.Key])
		}
		if err := writer.Write(row); err != nil {
			return File{}, fmt.Errorf("%w: write row: %v", ErrExport, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return File{}, fmt.Errorf("%w: flush: %v", ErrExport, err)
	}

	return File{Content: buf.Bytes(), MIMEType: "text/csv", Extension: "csv"}, nil
}

func exportJSON(records []domain.Record, columns []Column) (File, error) {
	projected := make([]map[string]any, len(records))
	for i, record := range records {
		row := make(map[string]any, len(columns))
		for _, column := range columns {
			row[column.Key] = record[column.Key]
		}
		projected[i] = row
	}

	encoded, err := json.MarshalIndent(projected, "", "  ")
	if err != nil {
		return File{}, fmt.Errorf("%w: encode json: %v", ErrExport, err)
	}
	return File{Content: encoded, MIMEType: "application/json", Extension: "json"}, nil
}

func exportTSV(records []domain.Record, columns []Column) (File, error) {
	var buf bytes.Buffer

	headers := make([]string, len(columns))
	for i, column := range columns {
		headers[i] = flattenCell(column.header())
	}
	buf.WriteString(strings.Join(headers, "\t"))
	buf.WriteString("\n")

	row := make([]string, len(columns))
	for _, record := range records {
		for i, column := range columns {
			row[i] = flattenCell(column.format(record[column.Key]))
		}
		buf.WriteString(strings.Join(row, "\t"))
		buf.WriteString("\n")
	}

	return File{Content: buf.Bytes(), MIMEType: "application/vnd.ms-excel", Extension: "xls"}, nil
}

func exportXLSX(records []domain.Record, columns []Column, title string) (File, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := "Sheet1"
	if strings.TrimSpace(title) != "" {
		sheet = sanitizeSheetName(title)
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return File{}, fmt.Errorf("%w: rename sheet: %v", ErrExport, err)
		}
	}

	headers := make([]any, len(columns))
	for i, column := range columns {
		headers[i] = column.header()
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return File{}, fmt.Errorf("%w: write header: %v", ErrExport, err)
	}

	for idx, record := range records {
		row := make([]any, len(columns))
		for i, column := range columns {
			row[i] = column.format(record[column.Key])
		}
		cell, err := excelize.CoordinatesToCellName(1, idx+2)
		if err != nil {
			return File{}, fmt.Errorf("%w: cell name: %v", ErrExport, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return File{}, fmt.Errorf("%w: write row %d: %v", ErrExport, idx+2, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return File{}, fmt.Errorf("%w: write workbook: %v", ErrExport, err)
	}
	return File{
		Content:   buf.Bytes(),
		MIMEType:  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Extension: "xlsx",
	}, nil
}

func exportPrintHTML(records []domain.Record, columns []Column, title string) (File, error) {
	if strings.TrimSpace(title) == "" {
		title = "Export"
	}

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	buf.WriteString(fmt.Sprintf("<title>%s</title>\n", html.EscapeString(title)))
	buf.WriteString("<style>\n")
	buf.WriteString("body { font-family: sans-serif; margin: 2em; }\n")
	buf.WriteString("table { border-collapse: collapse; width: 100%; }\n")
	buf.WriteString("th, td { border: 1px solid #999; padding: 4px 8px; text-align: left; }\n")
	buf.WriteString("th { background: #eee; }\n")
	buf.WriteString("@media print { body { margin: 0; } }\n")
	buf.WriteString("</style>\n</head>\n<body>\n")
	buf.WriteString(fmt.Sprintf("<h1>%s</h1>\n", html.EscapeString(title)))
	buf.WriteString("<table>\n<thead><tr>")
	for _, column := range columns {
		buf.WriteString(fmt.Sprintf("<th>%s</th>", html.EscapeString(column.header())))
	}
	buf.WriteString("</tr></thead>\n<tbody>\n")
	for _, record := range records {
		buf.WriteString("<tr>")
		for _, column := range columns {
			buf.WriteString(fmt.Sprintf("<td>%s</td>", html.EscapeString(column.format(record[column.Key]))))
		}
		buf.WriteString("</tr>\n")
	}
	buf.WriteString("</tbody>\n</table>\n</body>\n</html>\n")

	return File{Content: buf.Bytes(), MIMEType: "text/html", Extension: "html"}, nil
}

// DefaultFormat renders a scalar for export: booleans as Yes/No, slices
// comma-joined, dates as YYYY-MM-DD, null as empty string.
func DefaultFormat(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case time.Time:
		return v.Format("2006-01-02")
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, len(v))
		for i, element := range v {
			parts[i] = DefaultFormat(element)
		}
		return strings.Join(parts, ", ")
	default:
		return domain.ScalarString(value)
	}
}

func flattenCell(value string) string {
	value = strings.ReplaceAll(value, "\t", " ")
	value = strings.ReplaceAll(value, "\r\n", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}

func sanitizeSheetName(name string) string {
	name = strings.TrimSpace(name)
	for _, forbidden := range []string{":", "\\", "/", "?", "*", "[", "]"} {
		name = strings.ReplaceAll(name, forbidden, " ")
	}
	if len(name) > 31 {
		name = name[:31]
	}
	if name == "" {
		name = "Sheet1"
	}
	return name
}
