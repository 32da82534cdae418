package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpattn/rosterflow/internal/domain"
	"github.com/rpattn/rosterflow/internal/repository"
)

// DefaultBatchSize is the fixed number of rows sent per bulk-write call.
const DefaultBatchSize = 100

var (
	// ErrPrecondition marks a commit attempted without a preview or with
	// zero committable rows. Fatal; no batches are attempted.
	ErrPrecondition = errors.New("commit precondition failed")

	// ErrCancelled marks cancellation observed at a batch boundary. Batches
	// already committed are not rolled back.
	ErrCancelled = errors.New("import cancelled")
)

// CommitRequest carries everything one commit run needs.
type CommitRequest struct {
	Preview    domain.Preview
	Options    domain.Options
	Writer     repository.BulkWriter
	BatchSize  int
	OnProgress func(domain.Progress)
}

// Commit sends the preview's committable rows to the bulk writer in fixed
// size batches, strictly sequentially. Cancellation is checked only between
// batches, so an in-flight batch always fully completes or fully fails. A
// whole-batch failure converts every row in it to a synthetic error finding
// and the run continues; the returned error is non-nil only for fatal
// precondition failures and cancellation, and in the cancellation case the
// partial Result is still meaningful.
func Commit(ctx context.Context, req CommitRequest) (domain.Result, error) {
	rows := req.Preview.CommittableRows(req.Options.SkipInvalidRows)
	if len(rows) == 0 {
		return domain.Result{}, fmt.Errorf("%w: no committable rows", ErrPrecondition)
	}

	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	progress := domain.Progress{
		Status:       domain.PhaseImporting,
		TotalRows:    len(rows),
		WarningCount: req.Preview.WarningRows,
		Message:      fmt.Sprintf("importing %d rows", len(rows)),
	}
	emit := func() {
		if req.OnProgress != nil {
			req.OnProgress(progress.Snapshot())
		}
	}
	emit()

	result := domain.Result{
		TotalProcessed: len(rows),
		SkippedCount:   req.Preview.TotalRows - len(rows),
	}

	for start := 0; start < len(rows); start += batchSize {
		if err := ctx.Err(); err != nil {
			progress.Status = domain.PhaseError
			progress.Message = "import cancelled"
			emit()
			result.Success = false
			return result, fmt.Errorf("%w after %d of %d rows", ErrCancelled, progress.ProcessedRows, len(rows))
		}

		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		items := make([]domain.Record, len(batch))
		for i, row := range batch {
			items[i] = row.Record
		}

		batchResult, err := req.Writer.WriteBatch(ctx, items, req.Options)
		if err != nil {
			// Whole-batch failure: every row becomes an error, run continues.
			for _, row := range batch {
				result.Errors = append(result.Errors,
					domain.NewError(row.RowNumber, "batch", nil, fmt.Sprintf("batch write failed: %v", err)))
			}
			result.ErrorCount += len(batch)
			progress.ErrorCount += len(batch)
		} else {
			result.SuccessCount += batchResult.SuccessCount
			result.ErrorCount += batchResult.ErrorCount
			// Writer findings index into the batch slice; translate them to
			// source row numbers before they reach results and logs.
			for _, finding := range batchResult.Errors {
				if finding.Row >= 1 && finding.Row <= len(batch) {
					finding.Row = batch[finding.Row-1].RowNumber
				}
				result.Errors = append(result.Errors, finding)
			}
			result.ImportedIDs = append(result.ImportedIDs, batchResult.ImportedIDs...)
			progress.SuccessCount += batchResult.SuccessCount
			progress.ErrorCount += batchResult.ErrorCount
		}

		progress.ProcessedRows += len(batch)
		progress.CurrentRow = batch[len(batch)-1].RowNumber
		progress.Errors = append([]domain.Finding(nil), result.Errors...)
		progress.Message = fmt.Sprintf("processed %d of %d rows", progress.ProcessedRows, len(rows))
		emit()
	}

	progress.Status = domain.PhaseComplete
	progress.Message = fmt.Sprintf("import complete: %d succeeded, %d failed", result.SuccessCount, result.ErrorCount)
	emit()

	result.Success = result.ErrorCount == 0
	return result, nil
}
