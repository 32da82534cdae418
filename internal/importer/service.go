package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/rosterflow/internal/domain"
	"github.com/rpattn/rosterflow/internal/repository"
	"github.com/rpattn/rosterflow/internal/spreadsheet"
)

// ErrNoPreview marks a commit attempted before a preview was built.
var ErrNoPreview = fmt.Errorf("%w: no preview available", ErrPrecondition)

// Service drives import runs: parse and validate an upload into a preview,
// then commit the preview in batches. Each run owns its own state; two
// concurrent runs share nothing but the writer registry and the
// invalidation signal.
type Service struct {
	writers     repository.BulkWriterRegistry
	logs        repository.ImportLogRepository
	invalidator repository.Invalidator
	sheets      spreadsheet.Reader
	batchSize   int
	runTTL      time.Duration
	log         *logrus.Logger

	runs sync.Map // map[uuid.UUID]*Run
}

// DefaultRunTTL is how long a finished run stays queryable before it is
// swept out of the registry.
const DefaultRunTTL = time.Hour

// Option customizes the service.
type Option func(*Service)

// WithBatchSize overrides the commit batch size.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithRunTTL overrides how long finished runs stay queryable.
func WithRunTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.runTTL = ttl
		}
	}
}

// WithSpreadsheetReader installs the spreadsheet-reading collaborator,
// typically a spreadsheet.Fallback chain.
func WithSpreadsheetReader(reader spreadsheet.Reader) Option {
	return func(s *Service) {
		if reader != nil {
			s.sheets = reader
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates an import service.
func NewService(
	writers repository.BulkWriterRegistry,
	logs repository.ImportLogRepository,
	invalidator repository.Invalidator,
	opts ...Option,
) *Service {
	service := &Service{
		writers:     writers,
		logs:        logs,
		invalidator: invalidator,
		sheets:      spreadsheet.ExcelizeReader{},
		batchSize:   DefaultBatchSize,
		runTTL:      DefaultRunTTL,
		log:         logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Run is the state of one import session. Phase transitions:
// Idle -> Parsing -> Validating -> Idle (preview ready) -> Importing ->
// Complete | Error. The run's Progress is mutated only by the service
// methods driving that run; observers receive snapshots.
type Run struct {
	ID       uuid.UUID
	FileName string

	mu       sync.Mutex
	phase    domain.Phase
	preview  *domain.Preview
	progress domain.Progress
	cancel   context.CancelFunc
	observer func(domain.Progress)
	done     time.Time
}

// NewRun opens a fresh idle run and registers it for lookup. Opening a run
// also sweeps finished runs older than the retention window, so the
// registry does not grow for the life of the process.
func (s *Service) NewRun() *Run {
	s.sweepRuns()
	run := &Run{ID: uuid.New(), phase: domain.PhaseIdle}
	run.progress.Status = domain.PhaseIdle
	s.runs.Store(run.ID, run)
	return run
}

func (s *Service) sweepRuns() {
	cutoff := time.Now().Add(-s.runTTL)
	s.runs.Range(func(key, value any) bool {
		run := value.(*Run)
		run.mu.Lock()
		done := run.done
		run.mu.Unlock()
		if !done.IsZero() && !done.After(cutoff) {
			s.runs.Delete(key)
		}
		return true
	})
}

// GetRun looks up a registered run.
func (s *Service) GetRun(id uuid.UUID) (*Run, bool) {
	value, ok := s.runs.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*Run), true
}

// Phase returns the run's current phase.
func (r *Run) Phase() domain.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Preview returns the run's preview, if one has been built.
func (r *Run) Preview() (domain.Preview, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.preview == nil {
		return domain.Preview{}, false
	}
	return *r.preview, true
}

// Progress returns a snapshot of the run's progress.
func (r *Run) Progress() domain.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress.Snapshot()
}

// Cancel requests cooperative cancellation of an in-flight commit. It takes
// effect at the next batch boundary.
func (r *Run) Cancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Observe installs a progress observer for the run. The observer is called
// synchronously after every batch.
func (r *Run) Observe(fn func(domain.Progress)) {
	r.mu.Lock()
	r.observer = fn
	r.mu.Unlock()
}

func (r *Run) setPhase(phase domain.Phase, message string) {
	r.mu.Lock()
	r.phase = phase
	r.progress.Status = phase
	switch phase {
	case domain.PhaseComplete, domain.PhaseError:
		r.done = time.Now()
	default:
		r.done = time.Time{}
	}
	if message != "" {
		r.progress.Message = message
	}
	observer := r.observer
	snapshot := r.progress.Snapshot()
	r.mu.Unlock()
	if observer != nil {
		observer(snapshot)
	}
}

// UploadRequest describes one file submitted for preview.
type UploadRequest struct {
	FileName    string
	ContentType string
	Data        io.Reader
	Selection   domain.TypeSelection
	Options     domain.Options
}

// Parse reads the upload, detects its format, parses and validates it, and
// leaves the run idle with a ready preview. A malformed or empty file is
// fatal and moves the run to the error phase.
func (s *Service) Parse(ctx context.Context, run *Run, req UploadRequest) (domain.Preview, error) {
	if req.Data == nil {
		return domain.Preview{}, fmt.Errorf("%w: data reader is required", ErrParse)
	}

	run.FileName = req.FileName
	run.setPhase(domain.PhaseParsing, fmt.Sprintf("parsing %s", req.FileName))

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		run.setPhase(domain.PhaseError, err.Error())
		return domain.Preview{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		run.setPhase(domain.PhaseError, "file is empty")
		return domain.Preview{}, fmt.Errorf("%w: file is empty", ErrParse)
	}

	format := DetectFormat(req.FileName, req.ContentType, payload)
	parsed, err := ParseRows(format, payload, s.sheets, req.Options.TrimWhitespace)
	if err != nil {
		run.setPhase(domain.PhaseError, err.Error())
		return domain.Preview{}, err
	}

	run.setPhase(domain.PhaseValidating, fmt.Sprintf("validating %d rows", len(parsed.Records)))
	preview := BuildPreview(parsed, format, req.Selection)

	run.mu.Lock()
	run.preview = &preview
	run.progress.TotalRows = preview.TotalRows
	run.mu.Unlock()
	run.setPhase(domain.PhaseIdle, fmt.Sprintf(
		"preview ready: %d valid, %d errors, %d warnings, %d skipped",
		preview.ValidRows, preview.ErrorRows, preview.WarningRows, preview.SkippedRows))

	s.log.Infof("[import] run %s previewed %s: type=%s rows=%d errors=%d",
		run.ID, req.FileName, preview.DataType, preview.TotalRows, preview.ErrorRows)
	return preview, nil
}

// Commit sends the run's committable rows to the entity's bulk writer. The
// run must hold a preview; zero committable rows is a fatal precondition
// error. Already-committed batches are never rolled back: on cancellation
// or partial failure the returned Result reports what actually succeeded.
func (s *Service) Commit(ctx context.Context, run *Run, opts domain.Options) (domain.Result, error) {
	run.mu.Lock()
	if run.preview == nil {
		run.mu.Unlock()
		return domain.Result{}, ErrNoPreview
	}
	preview := *run.preview

	commitCtx, cancel := context.WithCancel(ctx)
	run.cancel = cancel
	run.mu.Unlock()
	defer func() {
		cancel()
		run.mu.Lock()
		run.cancel = nil
		run.mu.Unlock()
	}()

	writer, err := s.writers.WriterFor(preview.DataType)
	if err != nil {
		run.setPhase(domain.PhaseError, err.Error())
		return domain.Result{}, fmt.Errorf("resolve bulk writer: %w", err)
	}

	run.setPhase(domain.PhaseImporting, "starting import")

	result, err := Commit(commitCtx, CommitRequest{
		Preview:   preview,
		Options:   opts,
		Writer:    writer,
		BatchSize: s.batchSize,
		OnProgress: func(progress domain.Progress) {
			run.mu.Lock()
			run.progress = progress
			observer := run.observer
			run.mu.Unlock()
			if observer != nil {
				observer(progress)
			}
		},
	})

	s.recordErrors(ctx, run, preview.DataType, result.Errors)

	switch {
	case errors.Is(err, ErrCancelled):
		run.setPhase(domain.PhaseError, "import cancelled")
		s.log.Warnf("[import] run %s cancelled after %d rows", run.ID, run.Progress().ProcessedRows)
	case err != nil:
		run.setPhase(domain.PhaseError, err.Error())
		s.log.Errorf("[import] run %s failed: %v", run.ID, err)
	default:
		run.setPhase(domain.PhaseComplete, "import complete")
		s.log.Infof("[import] run %s committed: success=%d errors=%d",
			run.ID, result.SuccessCount, result.ErrorCount)
	}

	// A cancelled run may still have committed earlier batches; any rows
	// written means downstream views are stale.
	if result.SuccessCount > 0 && s.invalidator != nil {
		s.invalidator.Invalidate(staleViews(preview.DataType)...)
	}

	return result, err
}

func (s *Service) recordErrors(ctx context.Context, run *Run, dataType domain.DataType, findings []domain.Finding) {
	if s.logs == nil {
		return
	}
	for _, finding := range findings {
		row := finding.Row
		entry := domain.ImportLogEntry{
			RunID:        run.ID,
			DataType:     dataType,
			FileName:     run.FileName,
			RowNumber:    &row,
			Column:       finding.Column,
			ErrorMessage: finding.Message,
		}
		if recordErr := s.logs.Record(ctx, entry); recordErr != nil {
			s.log.Warnf("[import] run %s: failed to record import log: %v", run.ID, recordErr)
			return
		}
	}
}

// staleViews names the cached views a successful commit invalidates.
func staleViews(dataType domain.DataType) []string {
	switch dataType {
	case domain.DataTypePeople:
		return []string{"people", "validation"}
	case domain.DataTypeAssignments:
		return []string{"assignments", "schedule", "validation"}
	case domain.DataTypeAbsences:
		return []string{"absences", "schedule", "validation"}
	case domain.DataTypeSchedules:
		return []string{"schedule", "assignments", "validation"}
	default:
		return []string{"validation"}
	}
}
