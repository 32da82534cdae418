package importer

import (
	"github.com/rpattn/rosterflow/internal/domain"
)

// BuildPreview runs the normalized record set through row and cross-row
// validation and aggregates the result. Pure: calling it twice on the same
// input yields the same preview. The preview is the single source of truth
// for which rows are eligible for commit.
func BuildPreview(parsed ParseResult, format domain.FileFormat, selection domain.TypeSelection) domain.Preview {
	records := NormalizeColumns(parsed.Records)
	columns := NormalizeColumnNames(parsed.Columns)
	dataType := ResolveDataType(selection, columns)

	preview := domain.Preview{
		TotalRows:      len(records),
		Columns:        columns,
		DetectedFormat: format,
		DataType:       dataType,
		ReaderWarnings: parsed.ReaderWarnings,
		UsedFallback:   parsed.UsedFallback,
	}

	validate := ValidatorFor(dataType)
	rows := make([]domain.PreviewRow, len(records))
	rowNumbers := make([]int, len(records))
	for idx, record := range records {
		// Row numbers are 1-based source positions plus one for the header.
		rowNumber := idx + 2
		rowNumbers[idx] = rowNumber

		row := domain.PreviewRow{RowNumber: rowNumber, Record: record}
		if !record.IsEmpty() && validate != nil {
			for _, finding := range validate(record, rowNumber) {
				if finding.Severity == domain.SeverityError {
					row.Errors = append(row.Errors, finding)
				} else {
					row.Warnings = append(row.Warnings, finding)
				}
			}
		}
		rows[idx] = row
	}

	// Cross-row findings are always warnings: they can upgrade a valid row
	// to warning but never downgrade an error row.
	crossRow := append(
		FindDuplicates(records, rowNumbers, dataType),
		FindOverlaps(records, rowNumbers, dataType)...,
	)
	byRow := make(map[int][]domain.Finding)
	for _, finding := range crossRow {
		byRow[finding.Row] = append(byRow[finding.Row], finding)
	}

	for idx := range rows {
		row := &rows[idx]
		row.Warnings = append(row.Warnings, byRow[row.RowNumber]...)
		row.Status = domain.DeriveStatus(row.Record, row.Errors, row.Warnings)

		switch row.Status {
		case domain.RowStatusSkipped:
			preview.SkippedRows++
		case domain.RowStatusError:
			preview.ErrorRows++
		case domain.RowStatusWarning:
			// Warning rows stay committable, so they count as valid too.
			preview.ValidRows++
			preview.WarningRows++
		case domain.RowStatusValid:
			preview.ValidRows++
		}
	}

	preview.Rows = rows
	return preview
}
