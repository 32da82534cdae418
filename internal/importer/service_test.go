package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/rosterflow/internal/domain"
	"github.com/rpattn/rosterflow/internal/repository"
)

type stubRegistry struct {
	writer repository.BulkWriter
	err    error
}

func (r *stubRegistry) WriterFor(dataType domain.DataType) (repository.BulkWriter, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.writer, nil
}

type stubLogRepo struct {
	entries []domain.ImportLogEntry
}

func (r *stubLogRepo) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *stubLogRepo) List(ctx context.Context, runID uuid.UUID, limit, offset int) ([]domain.ImportLogEntry, error) {
	return r.entries, nil
}

type stubInvalidator struct {
	views []string
}

func (s *stubInvalidator) Invalidate(views ...string) {
	s.views = append(s.views, views...)
}

func newTestService(writer repository.BulkWriter) (*Service, *stubLogRepo, *stubInvalidator) {
	logs := &stubLogRepo{}
	invalidator := &stubInvalidator{}
	service := NewService(&stubRegistry{writer: writer}, logs, invalidator, WithBatchSize(100))
	return service, logs, invalidator
}

func TestServiceParseBuildsPreview(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	run := service.NewRun()

	data := "name,type\nAlice Smith,faculty\nBob Jones,faculty\n"
	preview, err := service.Parse(context.Background(), run, UploadRequest{
		FileName:    "people.csv",
		ContentType: "text/csv",
		Data:        strings.NewReader(data),
		Selection:   domain.AutoType(),
		Options:     domain.Options{TrimWhitespace: true},
	})
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}

	if preview.TotalRows != 2 || preview.ValidRows != 2 {
		t.Fatalf("unexpected preview: %+v", preview)
	}
	if preview.DataType != domain.DataTypePeople {
		t.Fatalf("expected people, got %s", preview.DataType)
	}
	if run.Phase() != domain.PhaseIdle {
		t.Fatalf("expected run idle with preview ready, got %s", run.Phase())
	}
	if stored, ok := run.Preview(); !ok || stored.TotalRows != 2 {
		t.Fatalf("expected preview stored on run, got %v %v", stored, ok)
	}
}

func TestServiceParseEmptyFileErrors(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	run := service.NewRun()

	_, err := service.Parse(context.Background(), run, UploadRequest{
		FileName: "empty.csv",
		Data:     strings.NewReader(""),
	})
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if run.Phase() != domain.PhaseError {
		t.Fatalf("expected run in error phase, got %s", run.Phase())
	}
}

func TestServiceCommitWithoutPreview(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	run := service.NewRun()

	_, err := service.Commit(context.Background(), run, domain.Options{})
	if !errors.Is(err, ErrNoPreview) {
		t.Fatalf("expected ErrNoPreview, got %v", err)
	}
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrNoPreview to wrap the precondition error, got %v", err)
	}
}

func TestServiceCommitHappyPath(t *testing.T) {
	writer := &stubWriter{}
	service, logs, invalidator := newTestService(writer)
	run := service.NewRun()

	data := "name,type\nAlice Smith,faculty\nBob Jones,faculty\n"
	if _, err := service.Parse(context.Background(), run, UploadRequest{
		FileName: "people.csv",
		Data:     strings.NewReader(data),
		Options:  domain.Options{TrimWhitespace: true},
	}); err != nil {
		t.Fatalf("parse returned error: %v", err)
	}

	result, err := service.Commit(context.Background(), run, domain.Options{})
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}

	if !result.Success || result.SuccessCount != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if run.Phase() != domain.PhaseComplete {
		t.Fatalf("expected run complete, got %s", run.Phase())
	}
	if len(logs.entries) != 0 {
		t.Fatalf("expected no error logs on clean import, got %v", logs.entries)
	}

	wantViews := map[string]bool{"people": true, "validation": true}
	if len(invalidator.views) != 2 {
		t.Fatalf("expected 2 invalidated views, got %v", invalidator.views)
	}
	for _, view := range invalidator.views {
		if !wantViews[view] {
			t.Fatalf("unexpected invalidated view %q", view)
		}
	}
}

func TestServiceCommitRecordsErrorLogs(t *testing.T) {
	writer := &stubWriter{failBatches: map[int]bool{1: true}}
	service, logs, invalidator := newTestService(writer)
	run := service.NewRun()

	data := "name,type\nAlice Smith,faculty\n"
	if _, err := service.Parse(context.Background(), run, UploadRequest{
		FileName: "people.csv",
		Data:     strings.NewReader(data),
		Options:  domain.Options{TrimWhitespace: true},
	}); err != nil {
		t.Fatalf("parse returned error: %v", err)
	}

	result, err := service.Commit(context.Background(), run, domain.Options{})
	if err != nil {
		t.Fatalf("commit returned error: %v", err)
	}
	if result.Success || result.ErrorCount != 1 {
		t.Fatalf("expected failed row, got %+v", result)
	}

	if len(logs.entries) != 1 {
		t.Fatalf("expected one log entry, got %v", logs.entries)
	}
	entry := logs.entries[0]
	if entry.RunID != run.ID || entry.FileName != "people.csv" {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
	if entry.RowNumber == nil || *entry.RowNumber != 2 {
		t.Fatalf("expected log entry for row 2, got %+v", entry)
	}

	if len(invalidator.views) != 0 {
		t.Fatalf("expected no invalidation with zero successes, got %v", invalidator.views)
	}
}

func TestServiceCancelAtBatchBoundary(t *testing.T) {
	writer := &stubWriter{}
	service, _, invalidator := newTestService(writer)
	run := service.NewRun()

	var rows []string
	rows = append(rows, "name,type")
	for i := 0; i < 250; i++ {
		rows = append(rows, fmt.Sprintf("Person %03d,faculty", i))
	}
	data := strings.Join(rows, "\n") + "\n"

	if _, err := service.Parse(context.Background(), run, UploadRequest{
		FileName: "people.csv",
		Data:     strings.NewReader(data),
		Options:  domain.Options{TrimWhitespace: true},
	}); err != nil {
		t.Fatalf("parse returned error: %v", err)
	}

	run.Observe(func(p domain.Progress) {
		if p.Status == domain.PhaseImporting && p.ProcessedRows == 100 {
			run.Cancel()
		}
	})

	result, err := service.Commit(context.Background(), run, domain.Options{})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if result.SuccessCount != 100 {
		t.Fatalf("expected 100 rows committed before cancel, got %+v", result)
	}
	if run.Phase() != domain.PhaseError {
		t.Fatalf("expected run in error phase after cancel, got %s", run.Phase())
	}
	if len(invalidator.views) != 2 {
		t.Fatalf("expected stale views after partial commit, got %v", invalidator.views)
	}
}

func TestServiceEvictsFinishedRuns(t *testing.T) {
	service := NewService(&stubRegistry{writer: &stubWriter{}}, &stubLogRepo{}, &stubInvalidator{}, WithRunTTL(0))

	finished := service.NewRun()
	if _, err := service.Parse(context.Background(), finished, UploadRequest{
		FileName: "empty.csv",
		Data:     strings.NewReader(""),
	}); !errors.Is(err, ErrParse) {
		t.Fatalf("expected parse error for empty file, got %v", err)
	}
	if finished.Phase() != domain.PhaseError {
		t.Fatalf("expected finished run in error phase, got %s", finished.Phase())
	}

	active := service.NewRun()
	if _, err := service.Parse(context.Background(), active, UploadRequest{
		FileName: "people.csv",
		Data:     strings.NewReader("name,type\nAlice Smith,faculty\n"),
		Options:  domain.Options{TrimWhitespace: true},
	}); err != nil {
		t.Fatalf("parse returned error: %v", err)
	}

	service.NewRun()

	if _, ok := service.GetRun(finished.ID); ok {
		t.Fatalf("expected finished run to be swept")
	}
	if _, ok := service.GetRun(active.ID); !ok {
		t.Fatalf("expected run with pending preview to survive the sweep")
	}
}

func TestServiceManualTypeSelection(t *testing.T) {
	service, _, _ := newTestService(&stubWriter{})
	run := service.NewRun()

	data := "name,type\nAlice Smith,faculty\n"
	preview, err := service.Parse(context.Background(), run, UploadRequest{
		FileName:  "mystery.csv",
		Data:      strings.NewReader(data),
		Selection: domain.ManualType(domain.DataTypeAbsences),
		Options:   domain.Options{TrimWhitespace: true},
	})
	if err != nil {
		t.Fatalf("parse returned error: %v", err)
	}
	if preview.DataType != domain.DataTypeAbsences {
		t.Fatalf("expected manual type to win, got %s", preview.DataType)
	}
}
