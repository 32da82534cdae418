package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rpattn/rosterflow/internal/domain"
	"github.com/rpattn/rosterflow/internal/spreadsheet"
)

var (
	// ErrParse marks a malformed or empty source file. Fatal; nothing is
	// validated or committed after it.
	ErrParse = errors.New("parse error")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// ParseResult is the ordered raw record set extracted from one file, before
// column normalization.
type ParseResult struct {
	Records        []domain.Record
	Columns        []string
	ReaderWarnings []string
	UsedFallback   bool
}

// ParseRows turns raw file content into an ordered sequence of string-keyed
// records, one per source row. Row order is preserved; record i corresponds
// to source row i+2 (the header occupies row 1).
func ParseRows(format domain.FileFormat, payload []byte, sheets spreadsheet.Reader, trim bool) (ParseResult, error) {
	var result ParseResult
	var err error

	switch format {
	case domain.FormatCSV:
		result, err = parseCSV(payload, trim)
	case domain.FormatJSON:
		result, err = parseJSON(payload, trim)
	case domain.FormatSpreadsheet:
		result, err = parseSpreadsheet(payload, sheets, trim)
	default:
		return ParseResult{}, fmt.Errorf("%w: unsupported format %q", ErrParse, format)
	}
	if err != nil {
		return ParseResult{}, err
	}

	if len(result.Records) == 0 {
		return ParseResult{}, fmt.Errorf("%w: file contains no data rows", ErrParse)
	}
	return result, nil
}

func parseCSV(payload []byte, trim bool) (ParseResult, error) {
	payload = bytes.TrimPrefix(payload, byteOrderMark)
	lines := splitCSV(string(payload))
	if len(lines) == 0 {
		return ParseResult{}, fmt.Errorf("%w: file is empty", ErrParse)
	}

	headers := lines[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	result := ParseResult{Columns: headers}
	for _, line := range lines[1:] {
		record := make(domain.Record, len(headers))
		for idx, header := range headers {
			if header == "" {
				continue
			}
			if idx < len(line) {
				record[header] = CoerceScalar(line[idx], trim)
			} else {
				record[header] = nil
			}
		}
		result.Records = append(result.Records, record)
	}
	return result, nil
}

// splitCSV is a quote-aware splitter: double-quote-delimited fields may
// contain commas and line breaks, doubled quotes collapse to one quote, and
// unquoted CRLF or LF ends a row.
func splitCSV(content string) [][]string {
	var (
		rows     [][]string
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	flushField := func() {
		fields = append(fields, field.String())
		field.Reset()
	}
	flushRow := func() {
		flushField()
		rows = append(rows, fields)
		fields = nil
	}

	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				field.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			flushField()
		case (ch == '\n' || ch == '\r') && !inQuotes:
			if ch == '\r' && i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			flushRow()
		default:
			field.WriteRune(ch)
		}
	}
	if field.Len() > 0 || len(fields) > 0 {
		flushRow()
	}

	// Drop rows that are entirely blank, e.g. a trailing newline.
	var kept [][]string
	for _, row := range rows {
		blank := true
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if !blank {
			kept = append(kept, row)
		}
	}
	return kept
}

func parseJSON(payload []byte, trim bool) (ParseResult, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()

	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return ParseResult{}, fmt.Errorf("%w: invalid json: %v", ErrParse, err)
	}

	var objects []map[string]any
	switch typed := raw.(type) {
	case []any:
		for idx, element := range typed {
			obj, ok := element.(map[string]any)
			if !ok {
				return ParseResult{}, fmt.Errorf("%w: json array element %d is not an object", ErrParse, idx)
			}
			objects = append(objects, obj)
		}
	case map[string]any:
		objects = append(objects, typed)
	default:
		return ParseResult{}, fmt.Errorf("%w: json must be an object or an array of objects", ErrParse)
	}

	result := ParseResult{}
	seen := make(map[string]bool)
	for _, obj := range objects {
		// Sorted keys keep the column order stable across uploads; Go map
		// iteration would shuffle it per run.
		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		record := make(domain.Record, len(obj))
		for _, key := range keys {
			record[key] = coerceJSONValue(obj[key], trim)
			if !seen[key] {
				seen[key] = true
				result.Columns = append(result.Columns, key)
			}
		}
		result.Records = append(result.Records, record)
	}
	return result, nil
}

func coerceJSONValue(value any, trim bool) any {
	switch typed := value.(type) {
	case nil:
		return nil
	case bool:
		return typed
	case string:
		return CoerceScalar(typed, trim)
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	default:
		// Nested structures flatten to their JSON text.
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}
		return string(encoded)
	}
}

func parseSpreadsheet(payload []byte, sheets spreadsheet.Reader, trim bool) (ParseResult, error) {
	if sheets == nil {
		sheets = spreadsheet.ExcelizeReader{}
	}
	table, err := sheets.Read(payload)
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	result := ParseResult{
		Columns:        table.Columns,
		ReaderWarnings: table.Warnings,
		UsedFallback:   table.UsedFallback,
	}
	for _, row := range table.Rows {
		record := make(domain.Record, len(table.Columns))
		for idx, header := range table.Columns {
			if header == "" {
				continue
			}
			if idx < len(row) {
				record[header] = CoerceScalar(row[idx], trim)
			} else {
				record[header] = nil
			}
		}
		result.Records = append(result.Records, record)
	}
	return result, nil
}

// CoerceScalar applies the shared scalar coercion rule: empty strings become
// nil, yes/true and no/false become booleans, integer-looking strings become
// int64, decimal-looking strings become float64, anything else stays a
// string (trimmed when trim is set).
func CoerceScalar(raw string, trim bool) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	switch strings.ToLower(trimmed) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}

	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		if strings.ContainsAny(trimmed, ".eE") {
			return f
		}
	}

	if trim {
		return trimmed
	}
	return raw
}
