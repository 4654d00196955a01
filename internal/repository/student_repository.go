package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bclabs/school-portal-api/internal/models"
)

const studentColumns = `id, admission_no, first_name, last_name, student_class, gender, parent_name, parent_phone, address, password_hash, type, is_activated, activated_at, created_at`

// ErrDuplicate is returned when an insert violates a natural-key unique
// constraint.
var ErrDuplicate = errors.New("duplicate key")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// StudentRepository provides database access for student accounts.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByAdmissionNo returns a student by admission number.
func (r *StudentRepository) FindByAdmissionNo(ctx context.Context, admissionNo string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE admission_no = $1 LIMIT 1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, admissionNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by admission no: %w", err)
	}
	return &student, nil
}

// FindByID returns a student by identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1 LIMIT 1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student by id: %w", err)
	}
	return &student, nil
}

// List returns all students ordered by admission number. An empty table
// yields an empty slice so the response serialises as [].
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students ORDER BY admission_no ASC`, studentColumns)
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Create inserts a new student. Duplicate admission numbers surface as
// ErrDuplicate.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.Type == "" {
		student.Type = models.TypeStudent
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO students (id, admission_no, first_name, last_name, student_class, gender, parent_name, parent_phone, address, password_hash, type, is_activated, activated_at, created_at)
VALUES (:id, :admission_no, :first_name, :last_name, :student_class, :gender, :parent_name, :parent_phone, :address, :password_hash, :type, :is_activated, :activated_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update overwrites the mutable profile fields of a student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, student_class = :student_class, gender = :gender, parent_name = :parent_name, parent_phone = :parent_phone, address = :address WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetPassword stores a new password hash, marking the account activated when
// activatedAt is provided.
func (r *StudentRepository) SetPassword(ctx context.Context, id, passwordHash string, activatedAt *time.Time) error {
	if activatedAt != nil {
		const query = `UPDATE students SET password_hash = $2, is_activated = TRUE, activated_at = $3 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, passwordHash, *activatedAt); err != nil {
			return fmt.Errorf("activate student: %w", err)
		}
		return nil
	}

	const query = `UPDATE students SET password_hash = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("update student password: %w", err)
	}
	return nil
}

// Delete removes a student row.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM students WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
