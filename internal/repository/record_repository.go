package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bclabs/school-portal-api/internal/models"
)

// RecordRepository stores open documents for the generic entity collections
// in a single JSONB-backed table.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository creates a new instance of RecordRepository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// List returns every record of the named collection, oldest first. An empty
// collection yields an empty slice so the response serialises as [].
func (r *RecordRepository) List(ctx context.Context, entity string) ([]models.Record, error) {
	const query = `SELECT id, entity, doc, created_at FROM records WHERE entity = $1 ORDER BY created_at ASC`
	records := []models.Record{}
	if err := r.db.SelectContext(ctx, &records, query, entity); err != nil {
		return nil, fmt.Errorf("list %s records: %w", entity, err)
	}
	return records, nil
}

// FindByID returns a single record of the named collection.
func (r *RecordRepository) FindByID(ctx context.Context, entity, id string) (*models.Record, error) {
	const query = `SELECT id, entity, doc, created_at FROM records WHERE entity = $1 AND id = $2 LIMIT 1`
	var record models.Record
	if err := r.db.GetContext(ctx, &record, query, entity, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find %s record: %w", entity, err)
	}
	return &record, nil
}

// Create inserts a new document into the named collection.
func (r *RecordRepository) Create(ctx context.Context, entity string, doc models.Document) (*models.Record, error) {
	record := &models.Record{
		ID:        uuid.NewString(),
		Entity:    entity,
		Doc:       doc,
		CreatedAt: time.Now().UTC(),
	}

	const query = `INSERT INTO records (id, entity, doc, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, record.ID, record.Entity, record.Doc, record.CreatedAt); err != nil {
		return nil, fmt.Errorf("create %s record: %w", entity, err)
	}
	return record, nil
}

// Update merges the supplied fields into the stored document and returns the
// updated record. Only supplied fields change.
func (r *RecordRepository) Update(ctx context.Context, entity, id string, patch models.Document) (*models.Record, error) {
	const query = `UPDATE records SET doc = doc || $3 WHERE entity = $1 AND id = $2 RETURNING id, entity, doc, created_at`
	var record models.Record
	if err := r.db.GetContext(ctx, &record, query, entity, id, patch); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("update %s record: %w", entity, err)
	}
	return &record, nil
}

// Delete removes a record from the named collection.
func (r *RecordRepository) Delete(ctx context.Context, entity, id string) error {
	const query = `DELETE FROM records WHERE entity = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, query, entity, id)
	if err != nil {
		return fmt.Errorf("delete %s record: %w", entity, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsAttendanceMark reports whether a record containing the given
// natural-key fields (date, class, admission number, session, term) already
// exists. The caller must supply the complete key; a partial key would match
// unrelated marks through containment.
func (r *RecordRepository) ExistsAttendanceMark(ctx context.Context, entity string, key models.Document) (bool, error) {
	const query = `SELECT COUNT(*) FROM records WHERE entity = $1 AND doc @> $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, entity, key); err != nil {
		return false, fmt.Errorf("check attendance mark: %w", err)
	}
	return count > 0, nil
}
