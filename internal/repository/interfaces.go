package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/rpattn/rosterflow/internal/domain"
)

// BulkWriter persists one batch of committable records for a single entity
// type. Implementations report per-item success and failure; a returned
// error means the whole batch failed (e.g. transport failure) and the caller
// accounts every row in it as an error.
type BulkWriter interface {
	WriteBatch(ctx context.Context, items []domain.Record, opts domain.Options) (domain.BatchResult, error)
}

// BulkWriterRegistry resolves the bulk-write collaborator per entity type.
type BulkWriterRegistry interface {
	WriterFor(dataType domain.DataType) (BulkWriter, error)
}

// ImportLogRepository records row level import issues. Best effort: callers
// never fail a run because a log write failed.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, runID uuid.UUID, limit, offset int) ([]domain.ImportLogEntry, error)
}

// Invalidator tells downstream consumers their cached views are stale after
// a commit. Fire-and-forget and idempotent.
type Invalidator interface {
	Invalidate(views ...string)
}
