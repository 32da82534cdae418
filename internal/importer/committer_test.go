package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rpattn/rosterflow/internal/domain"
)

// stubWriter records batch sizes and fails the batches listed in failBatches
// (1-based) wholesale.
type stubWriter struct {
	batches     [][]domain.Record
	failBatches map[int]bool
}

func (w *stubWriter) WriteBatch(ctx context.Context, items []domain.Record, opts domain.Options) (domain.BatchResult, error) {
	w.batches = append(w.batches, items)
	if w.failBatches[len(w.batches)] {
		return domain.BatchResult{}, errors.New("database unavailable")
	}
	result := domain.BatchResult{SuccessCount: len(items)}
	for range items {
		result.ImportedIDs = append(result.ImportedIDs, fmt.Sprintf("id-%d", len(result.ImportedIDs)))
	}
	return result, nil
}

func previewOfValidRows(n int) domain.Preview {
	preview := domain.Preview{TotalRows: n, ValidRows: n}
	for i := 0; i < n; i++ {
		preview.Rows = append(preview.Rows, domain.PreviewRow{
			RowNumber: i + 2,
			Record:    domain.Record{"name": fmt.Sprintf("Person %d", i)},
			Status:    domain.RowStatusValid,
		})
	}
	return preview
}

func TestCommitBatchesSequentially(t *testing.T) {
	writer := &stubWriter{}

	result, err := Commit(context.Background(), CommitRequest{
		Preview:   previewOfValidRows(250),
		Writer:    writer,
		BatchSize: 100,
	})
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	if len(writer.batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(writer.batches))
	}
	if len(writer.batches[0]) != 100 || len(writer.batches[1]) != 100 || len(writer.batches[2]) != 50 {
		t.Fatalf("unexpected batch sizes: %d %d %d",
			len(writer.batches[0]), len(writer.batches[1]), len(writer.batches[2]))
	}
	if !result.Success || result.SuccessCount != 250 || result.ErrorCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.TotalProcessed != 250 {
		t.Fatalf("expected 250 processed, got %d", result.TotalProcessed)
	}
}

func TestCommitBatchFailureDoesNotStopRun(t *testing.T) {
	writer := &stubWriter{failBatches: map[int]bool{2: true}}

	result, err := Commit(context.Background(), CommitRequest{
		Preview:   previewOfValidRows(250),
		Writer:    writer,
		BatchSize: 100,
	})
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	if len(writer.batches) != 3 {
		t.Fatalf("expected all 3 batches attempted, got %d", len(writer.batches))
	}
	if result.Success {
		t.Fatalf("expected success=false with a failed batch")
	}
	if result.SuccessCount != 150 || result.ErrorCount != 100 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.SuccessCount+result.ErrorCount != 250 {
		t.Fatalf("success and error counts must cover every row: %+v", result)
	}
	if len(result.Errors) != 100 {
		t.Fatalf("expected 100 synthetic findings, got %d", len(result.Errors))
	}
	if result.Errors[0].Column != "batch" {
		t.Fatalf("expected batch-level error column, got %q", result.Errors[0].Column)
	}
}

// itemFailWriter fails the first item of every batch with a batch-relative
// error finding, the way a database writer reports per-item failures.
type itemFailWriter struct {
	batches int
}

func (w *itemFailWriter) WriteBatch(ctx context.Context, items []domain.Record, opts domain.Options) (domain.BatchResult, error) {
	w.batches++
	return domain.BatchResult{
		SuccessCount: len(items) - 1,
		ErrorCount:   1,
		Errors:       []domain.Finding{domain.NewError(1, "database", nil, "insert failed")},
	}, nil
}

func TestCommitRemapsItemErrorsToSourceRows(t *testing.T) {
	writer := &itemFailWriter{}

	result, err := Commit(context.Background(), CommitRequest{
		Preview:   previewOfValidRows(150),
		Writer:    writer,
		BatchSize: 100,
	})
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	if writer.batches != 2 {
		t.Fatalf("expected 2 batches, got %d", writer.batches)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected one finding per batch, got %v", result.Errors)
	}
	if result.Errors[0].Row != 2 {
		t.Fatalf("expected first batch finding on source row 2, got %d", result.Errors[0].Row)
	}
	if result.Errors[1].Row != 102 {
		t.Fatalf("expected second batch finding on source row 102, got %d", result.Errors[1].Row)
	}
}

func TestCommitCancellationAtBatchBoundary(t *testing.T) {
	writer := &stubWriter{}
	ctx, cancel := context.WithCancel(context.Background())

	var progressSeen []domain.Progress
	result, err := Commit(ctx, CommitRequest{
		Preview:   previewOfValidRows(250),
		Writer:    writer,
		BatchSize: 100,
		OnProgress: func(p domain.Progress) {
			progressSeen = append(progressSeen, p)
			if p.ProcessedRows == 100 {
				cancel()
			}
		},
	})

	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if len(writer.batches) != 1 {
		t.Fatalf("expected exactly one batch before cancellation, got %d", len(writer.batches))
	}
	if result.SuccessCount != 100 {
		t.Fatalf("expected partial result preserved, got %+v", result)
	}

	last := progressSeen[len(progressSeen)-1]
	if last.Status != domain.PhaseError || last.ProcessedRows != 100 {
		t.Fatalf("expected final progress to report cancellation at 100 rows, got %+v", last)
	}
}

func TestCommitNoCommittableRowsIsPrecondition(t *testing.T) {
	preview := domain.Preview{
		TotalRows: 1,
		Rows:      []domain.PreviewRow{{RowNumber: 2, Status: domain.RowStatusError}},
	}

	writer := &stubWriter{}
	_, err := Commit(context.Background(), CommitRequest{Preview: preview, Writer: writer})
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected precondition error, got %v", err)
	}
	if len(writer.batches) != 0 {
		t.Fatalf("expected no batches attempted, got %d", len(writer.batches))
	}
}

func TestCommitWarningRowsOnlyWhenRequested(t *testing.T) {
	preview := domain.Preview{
		TotalRows:   2,
		ValidRows:   2,
		WarningRows: 1,
		Rows: []domain.PreviewRow{
			{RowNumber: 2, Record: domain.Record{"name": "Alice"}, Status: domain.RowStatusValid},
			{RowNumber: 3, Record: domain.Record{"name": "alice"}, Status: domain.RowStatusWarning},
		},
	}

	writer := &stubWriter{}
	result, err := Commit(context.Background(), CommitRequest{Preview: preview, Writer: writer})
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}
	if result.SuccessCount != 1 || result.SkippedCount != 1 {
		t.Fatalf("expected warning row skipped by default, got %+v", result)
	}

	writer = &stubWriter{}
	result, err = Commit(context.Background(), CommitRequest{
		Preview: preview,
		Writer:  writer,
		Options: domain.Options{SkipInvalidRows: true},
	})
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}
	if result.SuccessCount != 2 || result.SkippedCount != 0 {
		t.Fatalf("expected warning row included, got %+v", result)
	}
}

func TestCommitReportsProgressPerBatch(t *testing.T) {
	writer := &stubWriter{}

	var processed []int
	_, err := Commit(context.Background(), CommitRequest{
		Preview:   previewOfValidRows(250),
		Writer:    writer,
		BatchSize: 100,
		OnProgress: func(p domain.Progress) {
			processed = append(processed, p.ProcessedRows)
		},
	})
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	// Initial emit, one per batch, final complete emit.
	want := []int{0, 100, 200, 250, 250}
	if len(processed) != len(want) {
		t.Fatalf("expected %d progress emits, got %v", len(want), processed)
	}
	for i, n := range want {
		if processed[i] != n {
			t.Fatalf("progress emit %d = %d, want %d", i, processed[i], n)
		}
	}
}
