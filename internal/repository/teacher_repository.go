package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusetu/school-onboard-api/internal/models"
)

// TeacherRepository manages persistence for teachers, scoped by the owning
// (principal, school) pair.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherColumns = `id, teacher_code, name, email, phone, subject, password_hash, principal_id, school_id, created_at, updated_at`

// ListByScope returns all teachers under a (principal, school) pair.
func (r *TeacherRepository) ListByScope(ctx context.Context, principalID, schoolID string) ([]models.Teacher, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers WHERE principal_id = $1 AND school_id = $2 ORDER BY created_at ASC`, teacherColumns)
	teachers := []models.Teacher{}
	if err := r.db.SelectContext(ctx, &teachers, query, principalID, schoolID); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindByID fetches a teacher by row id.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers WHERE id = $1`, teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByCode fetches a teacher by human-facing code within a scope. Used by
// teacher login.
func (r *TeacherRepository) FindByCode(ctx context.Context, code, principalID, schoolID string) (*models.Teacher, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers WHERE teacher_code = $1 AND principal_id = $2 AND school_id = $3`, teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, code, principalID, schoolID); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ExistsByCode checks whether a teacher code is already taken.
func (r *TeacherRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT 1 FROM teachers WHERE teacher_code = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check teacher code: %w", err)
	}
	return true, nil
}

// Create inserts a new teacher record.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now
	const query = `INSERT INTO teachers (id, teacher_code, name, email, phone, subject, password_hash, principal_id, school_id, created_at, updated_at)
        VALUES (:id, :teacher_code, :name, :email, :phone, :subject, :password_hash, :principal_id, :school_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// Update modifies an existing teacher. The code and scope are immutable.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET name = :name, email = :email, phone = :phone, subject = :subject, password_hash = :password_hash, updated_at = :updated_at
        WHERE id = :id AND principal_id = :principal_id AND school_id = :school_id`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return nil
}

// Delete removes a teacher row within the scope.
func (r *TeacherRepository) Delete(ctx context.Context, id, principalID, schoolID string) error {
	const query = `DELETE FROM teachers WHERE id = $1 AND principal_id = $2 AND school_id = $3`
	if _, err := r.db.ExecContext(ctx, query, id, principalID, schoolID); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}
