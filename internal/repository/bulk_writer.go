package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/rosterflow/internal/domain"
)

// PgBulkWriters exposes one Postgres-backed bulk writer per entity type.
type PgBulkWriters struct {
	pool *pgxpool.Pool
}

// NewPgBulkWriters wires the registry onto a pgx pool.
func NewPgBulkWriters(pool *pgxpool.Pool) *PgBulkWriters {
	return &PgBulkWriters{pool: pool}
}

func (w *PgBulkWriters) WriterFor(dataType domain.DataType) (BulkWriter, error) {
	switch dataType {
	case domain.DataTypePeople:
		return &pgWriter{pool: w.pool, insert: insertPerson}, nil
	case domain.DataTypeAssignments:
		return &pgWriter{pool: w.pool, insert: insertAssignment}, nil
	case domain.DataTypeAbsences:
		return &pgWriter{pool: w.pool, insert: insertAbsence}, nil
	case domain.DataTypeSchedules:
		return &pgWriter{pool: w.pool, insert: insertScheduleSlot}, nil
	default:
		return nil, fmt.Errorf("no bulk writer for data type %q", dataType)
	}
}

// insertFunc builds the INSERT for one record. conflict is the ON CONFLICT
// clause derived from the import options.
type insertFunc func(id uuid.UUID, record domain.Record, conflict string) (sql string, args []any)

type pgWriter struct {
	pool   *pgxpool.Pool
	insert insertFunc
}

// WriteBatch inserts rows one statement at a time so a bad row fails alone.
// A nil pool or an unreachable database fails the whole batch, which the
// committer accounts as a batch-level error.
func (w *pgWriter) WriteBatch(ctx context.Context, items []domain.Record, opts domain.Options) (domain.BatchResult, error) {
	if w.pool == nil {
		return domain.BatchResult{}, fmt.Errorf("bulk writer not initialized")
	}
	if err := ctx.Err(); err != nil {
		return domain.BatchResult{}, err
	}

	conflict := conflictClause(opts)
	result := domain.BatchResult{}
	for idx, record := range items {
		id := uuid.New()
		sql, args := w.insert(id, record, conflict)
		tag, err := w.pool.Exec(ctx, sql, args...)
		if err != nil {
			result.ErrorCount++
			result.Errors = append(result.Errors,
				domain.NewError(idx+1, "database", nil, fmt.Sprintf("insert failed: %v", err)))
			continue
		}
		if tag.RowsAffected() == 0 {
			// Conflict skipped by DO NOTHING; counts as success, nothing new created.
			result.SuccessCount++
			continue
		}
		result.SuccessCount++
		result.ImportedIDs = append(result.ImportedIDs, id.String())
	}
	return result, nil
}

func conflictClause(opts domain.Options) string {
	switch {
	case opts.UpdateExisting:
		return "update"
	case opts.SkipDuplicates:
		return "skip"
	default:
		return ""
	}
}

func personKeyOf(record domain.Record) string {
	if record.Has("personName") {
		return strings.ToLower(strings.TrimSpace(record.String("personName")))
	}
	return strings.ToLower(strings.TrimSpace(record.String("personId")))
}

func nullable(record domain.Record, key string) any {
	if !record.Has(key) {
		return nil
	}
	return record.String(key)
}

func insertPerson(id uuid.UUID, record domain.Record, conflict string) (string, []any) {
	sql := `INSERT INTO people (id, name, person_type, email, pgy_level, notes)
		 VALUES ($1, $2, $3, $4, $5, $6)`
	switch conflict {
	case "skip":
		sql += " ON CONFLICT (name_key) DO NOTHING"
	case "update":
		sql += ` ON CONFLICT (name_key) DO UPDATE SET
			 person_type = EXCLUDED.person_type,
			 email = EXCLUDED.email,
			 pgy_level = EXCLUDED.pgy_level,
			 notes = EXCLUDED.notes,
			 updated_at = now()`
	}
	return sql, []any{
		id,
		record.String("name"),
		strings.ToLower(record.String("type")),
		nullable(record, "email"),
		nullable(record, "pgyLevel"),
		nullable(record, "notes"),
	}
}

func insertAssignment(id uuid.UUID, record domain.Record, conflict string) (string, []any) {
	sql := `INSERT INTO assignments (id, person_key, person_name, person_id, shift_date, time_of_day, role, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	switch conflict {
	case "skip":
		sql += " ON CONFLICT (person_key, shift_date, time_of_day) DO NOTHING"
	case "update":
		sql += ` ON CONFLICT (person_key, shift_date, time_of_day) DO UPDATE SET
			 role = EXCLUDED.role,
			 notes = EXCLUDED.notes,
			 updated_at = now()`
	}
	return sql, []any{
		id,
		personKeyOf(record),
		nullable(record, "personName"),
		nullable(record, "personId"),
		record.String("date"),
		strings.ToUpper(record.String("timeOfDay")),
		strings.ToLower(record.String("role")),
		nullable(record, "notes"),
	}
}

func insertAbsence(id uuid.UUID, record domain.Record, conflict string) (string, []any) {
	sql := `INSERT INTO absences (id, person_key, person_name, person_id, start_date, end_date, absence_type, tdy_location, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	switch conflict {
	case "skip":
		sql += " ON CONFLICT (person_key, start_date, end_date) DO NOTHING"
	case "update":
		sql += ` ON CONFLICT (person_key, start_date, end_date) DO UPDATE SET
			 absence_type = EXCLUDED.absence_type,
			 tdy_location = EXCLUDED.tdy_location,
			 notes = EXCLUDED.notes,
			 updated_at = now()`
	}
	return sql, []any{
		id,
		personKeyOf(record),
		nullable(record, "personName"),
		nullable(record, "personId"),
		record.String("startDate"),
		record.String("endDate"),
		strings.ToLower(record.String("absenceType")),
		nullable(record, "tdyLocation"),
		nullable(record, "notes"),
	}
}

func insertScheduleSlot(id uuid.UUID, record domain.Record, conflict string) (string, []any) {
	sql := `INSERT INTO schedule_slots (id, person_key, person_name, person_id, slot_date, time_of_day, role, rotation_name, rotation_template_id, activity_override)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	switch conflict {
	case "skip":
		sql += " ON CONFLICT (person_key, slot_date, time_of_day) DO NOTHING"
	case "update":
		sql += ` ON CONFLICT (person_key, slot_date, time_of_day) DO UPDATE SET
			 role = EXCLUDED.role,
			 rotation_name = EXCLUDED.rotation_name,
			 rotation_template_id = EXCLUDED.rotation_template_id,
			 activity_override = EXCLUDED.activity_override,
			 updated_at = now()`
	}
	return sql, []any{
		id,
		personKeyOf(record),
		nullable(record, "personName"),
		nullable(record, "personId"),
		record.String("date"),
		strings.ToUpper(record.String("timeOfDay")),
		strings.ToLower(record.String("role")),
		nullable(record, "rotationName"),
		nullable(record, "rotationTemplateId"),
		nullable(record, "activityOverride"),
	}
}
