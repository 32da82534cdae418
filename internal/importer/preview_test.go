package importer

import (
	"reflect"
	"testing"

	"github.com/rpattn/rosterflow/internal/domain"
)

func TestBuildPreviewCounts(t *testing.T) {
	parsed := ParseResult{
		Columns: []string{"Full Name", "Person Type", "Email"},
		Records: []domain.Record{
			{"Full Name": "Alice Smith", "Person Type": "faculty", "Email": "alice@example.org"},
			{"Full Name": "B", "Person Type": "faculty"},
			{},
			{"Full Name": "Carol Jones", "Person Type": "faculty"},
		},
	}

	preview := BuildPreview(parsed, domain.FormatCSV, domain.AutoType())

	if preview.DataType != domain.DataTypePeople {
		t.Fatalf("expected people classification, got %s", preview.DataType)
	}
	if preview.TotalRows != 4 {
		t.Fatalf("expected 4 total rows, got %d", preview.TotalRows)
	}
	if preview.ValidRows != 2 || preview.ErrorRows != 1 || preview.SkippedRows != 1 {
		t.Fatalf("unexpected counts: %+v", preview)
	}
	if preview.ValidRows+preview.ErrorRows+preview.SkippedRows != preview.TotalRows {
		t.Fatalf("row counts do not sum to total: %+v", preview)
	}
	if got := preview.Rows[0].RowNumber; got != 2 {
		t.Fatalf("expected first data row numbered 2, got %d", got)
	}
	if preview.Rows[2].Status != domain.RowStatusSkipped {
		t.Fatalf("expected empty row skipped, got %s", preview.Rows[2].Status)
	}
}

func TestBuildPreviewWarningRowsCountAsValid(t *testing.T) {
	parsed := ParseResult{
		Columns: []string{FieldName, FieldType},
		Records: []domain.Record{
			{FieldName: "Jane Doe", FieldType: "faculty"},
			{FieldName: "Jane Doe", FieldType: "faculty"},
		},
	}

	preview := BuildPreview(parsed, domain.FormatCSV, domain.AutoType())

	if preview.WarningRows != 1 {
		t.Fatalf("expected duplicate row flagged as warning, got %+v", preview)
	}
	if preview.ValidRows != 2 {
		t.Fatalf("warning rows must still count as valid, got %+v", preview)
	}
	if preview.Rows[1].Status != domain.RowStatusWarning {
		t.Fatalf("expected second row status warning, got %s", preview.Rows[1].Status)
	}
}

func TestBuildPreviewCrossRowWarningNeverDowngradesError(t *testing.T) {
	parsed := ParseResult{
		Columns: []string{FieldName, FieldType},
		Records: []domain.Record{
			{FieldName: "Jane Doe", FieldType: "faculty"},
			{FieldName: "Jane Doe", FieldType: "intern"}, // bad enum plus duplicate
		},
	}

	preview := BuildPreview(parsed, domain.FormatCSV, domain.AutoType())

	if preview.Rows[1].Status != domain.RowStatusError {
		t.Fatalf("expected error status to win over duplicate warning, got %s", preview.Rows[1].Status)
	}
	if len(preview.Rows[1].Warnings) != 1 {
		t.Fatalf("expected duplicate warning still recorded, got %v", preview.Rows[1].Warnings)
	}
}

func TestBuildPreviewIsDeterministic(t *testing.T) {
	parsed := ParseResult{
		Columns: []string{FieldName, FieldType},
		Records: []domain.Record{
			{FieldName: "Alice Smith", FieldType: "faculty"},
			{FieldName: "alice smith", FieldType: "faculty"},
		},
	}

	first := BuildPreview(parsed, domain.FormatCSV, domain.AutoType())
	second := BuildPreview(parsed, domain.FormatCSV, domain.AutoType())

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("previews differ between runs:\n%+v\n%+v", first, second)
	}
}

func TestCommittableRows(t *testing.T) {
	parsed := ParseResult{
		Columns: []string{FieldName, FieldType},
		Records: []domain.Record{
			{FieldName: "Alice Smith", FieldType: "faculty"},
			{FieldName: "alice smith", FieldType: "faculty"}, // duplicate warning
			{FieldName: "B", FieldType: "faculty"},           // error
		},
	}
	preview := BuildPreview(parsed, domain.FormatCSV, domain.AutoType())

	strict := preview.CommittableRows(false)
	if len(strict) != 1 || strict[0].RowNumber != 2 {
		t.Fatalf("expected only the clean row committable, got %v", strict)
	}

	lenient := preview.CommittableRows(true)
	if len(lenient) != 2 {
		t.Fatalf("expected warning row included, got %v", lenient)
	}
}
