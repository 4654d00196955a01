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

const staffColumns = `id, staff_id, surname, firstname, role, department, contact_email, contact_phone, assigned_subjects, assigned_classes, password_hash, type, is_activated, activated_at, created_at`

// StaffRepository provides database access for staff accounts.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository creates a new instance of StaffRepository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// FindByStaffID returns a staff member by staff identifier.
func (r *StaffRepository) FindByStaffID(ctx context.Context, staffID string) (*models.Staff, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff WHERE staff_id = $1 LIMIT 1`, staffColumns)
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, staffID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff by staff id: %w", err)
	}
	return &staff, nil
}

// FindByID returns a staff member by identifier.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff WHERE id = $1 LIMIT 1`, staffColumns)
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find staff by id: %w", err)
	}
	return &staff, nil
}

// List returns all staff ordered by staff identifier. An empty table yields
// an empty slice so the response serialises as [].
func (r *StaffRepository) List(ctx context.Context) ([]models.Staff, error) {
	query := fmt.Sprintf(`SELECT %s FROM staff ORDER BY staff_id ASC`, staffColumns)
	staff := []models.Staff{}
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

// Create inserts a new staff member. Duplicate staff identifiers surface as
// ErrDuplicate.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	if staff.Type == "" {
		staff.Type = models.TypeStaff
	}
	if staff.CreatedAt.IsZero() {
		staff.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO staff (id, staff_id, surname, firstname, role, department, contact_email, contact_phone, assigned_subjects, assigned_classes, password_hash, type, is_activated, activated_at, created_at)
VALUES (:id, :staff_id, :surname, :firstname, :role, :department, :contact_email, :contact_phone, :assigned_subjects, :assigned_classes, :password_hash, :type, :is_activated, :activated_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, staff); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

// Update overwrites the mutable profile fields of a staff member.
func (r *StaffRepository) Update(ctx context.Context, staff *models.Staff) error {
	const query = `UPDATE staff SET surname = :surname, firstname = :firstname, role = :role, department = :department, contact_email = :contact_email, contact_phone = :contact_phone, assigned_subjects = :assigned_subjects, assigned_classes = :assigned_classes WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, staff)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPassword stores a new password hash, marking the account activated when
// activatedAt is provided.
func (r *StaffRepository) SetPassword(ctx context.Context, id, passwordHash string, activatedAt *time.Time) error {
	if activatedAt != nil {
		const query = `UPDATE staff SET password_hash = $2, is_activated = TRUE, activated_at = $3 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, passwordHash, *activatedAt); err != nil {
			return fmt.Errorf("activate staff: %w", err)
		}
		return nil
	}

	const query = `UPDATE staff SET password_hash = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("update staff password: %w", err)
	}
	return nil
}

// Delete removes a staff row.
func (r *StaffRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM staff WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
