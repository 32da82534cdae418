package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelizeReader reads the first worksheet of an xlsx payload. It extracts
// cell values only; color and formatting metadata are out of scope.
type ExcelizeReader struct{}

func (ExcelizeReader) Read(data []byte) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Table{}, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, errors.New("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}

	table := Table{}
	if len(sheets) > 1 {
		table.Warnings = append(table.Warnings,
			fmt.Sprintf("spreadsheet has %d sheets; only %s was read", len(sheets), sheets[0]))
	}

	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if table.Columns == nil {
			table.Columns = trimRow(row)
			continue
		}
		table.Rows = append(table.Rows, padRow(row, len(table.Columns)))
	}

	if table.Columns == nil {
		return Table{}, errors.New("spreadsheet has no header row")
	}
	return table, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimRow(row []string) []string {
	trimmed := make([]string, len(row))
	for i, cell := range row {
		trimmed[i] = strings.TrimSpace(cell)
	}
	return trimmed
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
