package domain

// RowStatus is derived from a row's findings, never set directly.
type RowStatus string

const (
	RowStatusValid   RowStatus = "valid"
	RowStatusWarning RowStatus = "warning"
	RowStatusError   RowStatus = "error"
	RowStatusSkipped RowStatus = "skipped"
)

// PreviewRow pairs one parsed record with its validation outcome.
type PreviewRow struct {
	RowNumber int       `json:"rowNumber"`
	Record    Record    `json:"record"`
	Status    RowStatus `json:"status"`
	Errors    []Finding `json:"errors,omitempty"`
	Warnings  []Finding `json:"warnings,omitempty"`
}

// DeriveStatus computes the row status from the record and its findings:
// skipped when the record is entirely empty, otherwise error beats warning
// beats valid.
func DeriveStatus(record Record, errors, warnings []Finding) RowStatus {
	switch {
	case record.IsEmpty():
		return RowStatusSkipped
	case len(errors) > 0:
		return RowStatusError
	case len(warnings) > 0:
		return RowStatusWarning
	default:
		return RowStatusValid
	}
}

// Preview is the validated, not-yet-committed representation of an uploaded
// file. Built once per upload and immutable afterwards. Warning rows count
// toward both ValidRows and WarningRows, so
// ValidRows + ErrorRows + SkippedRows == TotalRows always holds.
type Preview struct {
	TotalRows      int          `json:"totalRows"`
	ValidRows      int          `json:"validRows"`
	ErrorRows      int          `json:"errorRows"`
	WarningRows    int          `json:"warningRows"`
	SkippedRows    int          `json:"skippedRows"`
	Rows           []PreviewRow `json:"rows"`
	Columns        []string     `json:"columns"`
	DetectedFormat FileFormat   `json:"detectedFormat"`
	DataType       DataType     `json:"dataType"`
	ReaderWarnings []string     `json:"readerWarnings,omitempty"`
	UsedFallback   bool         `json:"usedFallbackReader,omitempty"`
}

// CommittableRows selects the rows eligible for commit: valid rows always,
// warning rows only when includeWarnings is set. Error and skipped rows are
// never committable.
func (p Preview) CommittableRows(includeWarnings bool) []PreviewRow {
	var rows []PreviewRow
	for _, row := range p.Rows {
		switch row.Status {
		case RowStatusValid:
			rows = append(rows, row)
		case RowStatusWarning:
			if includeWarnings {
				rows = append(rows, row)
			}
		}
	}
	return rows
}
