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

// StudentRepository manages persistence for roster entries. Every query is
// bounded by the owning (principal, school, teacher) scope triple.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `id, student_code, name, roll_no, class, section, parent_email, parent_phone, status, principal_id, school_id, teacher_id, is_final_submitted, created_at, updated_at`

// ListByScope returns every roster entry owned by the scope triple.
func (r *StudentRepository) ListByScope(ctx context.Context, scope models.RosterScope) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE principal_id = $1 AND school_id = $2 AND teacher_id = $3 ORDER BY created_at ASC`, studentColumns)
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, scope.PrincipalID, scope.SchoolID, scope.TeacherID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches a roster entry by row id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// AnyFinalized reports whether any entry in scope carries the lock flag.
// This is the roster-wide lock state.
func (r *StudentRepository) AnyFinalized(ctx context.Context, scope models.RosterScope) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM students WHERE principal_id = $1 AND school_id = $2 AND teacher_id = $3 AND is_final_submitted = true)`
	var locked bool
	if err := r.db.GetContext(ctx, &locked, query, scope.PrincipalID, scope.SchoolID, scope.TeacherID); err != nil {
		return false, fmt.Errorf("check roster lock: %w", err)
	}
	return locked, nil
}

// ExistsByCode checks whether a student code is already taken.
func (r *StudentRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE student_code = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student code: %w", err)
	}
	return true, nil
}

// Create inserts a single roster entry.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	prepareStudent(student)
	const query = `INSERT INTO students (id, student_code, name, roll_no, class, section, parent_email, parent_phone, status, principal_id, school_id, teacher_id, is_final_submitted, created_at, updated_at)
        VALUES (:id, :student_code, :name, :roll_no, :class, :section, :parent_email, :parent_phone, :status, :principal_id, :school_id, :teacher_id, :is_final_submitted, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// CreateBatch inserts a bulk-import batch in one transaction. A failing row
// rolls back the whole batch: no partial commit.
func (r *StudentRepository) CreateBatch(ctx context.Context, students []models.Student) error {
	if len(students) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import batch: %w", err)
	}
	const query = `INSERT INTO students (id, student_code, name, roll_no, class, section, parent_email, parent_phone, status, principal_id, school_id, teacher_id, is_final_submitted, created_at, updated_at)
        VALUES (:id, :student_code, :name, :roll_no, :class, :section, :parent_email, :parent_phone, :status, :principal_id, :school_id, :teacher_id, :is_final_submitted, :created_at, :updated_at)`
	for i := range students {
		prepareStudent(&students[i])
		if _, err := tx.NamedExecContext(ctx, query, &students[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("import student row %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import batch: %w", err)
	}
	return nil
}

// Update rewrites a roster entry. The lock flag is deliberately not part of
// the statement: edits can never flip it.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET name = :name, roll_no = :roll_no, class = :class, section = :section, parent_email = :parent_email, parent_phone = :parent_phone, status = :status, updated_at = :updated_at
        WHERE id = :id AND principal_id = :principal_id AND school_id = :school_id AND teacher_id = :teacher_id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a roster entry by row id within the scope.
func (r *StudentRepository) Delete(ctx context.Context, scope models.RosterScope, id string) error {
	const query = `DELETE FROM students WHERE id = $1 AND principal_id = $2 AND school_id = $3 AND teacher_id = $4`
	if _, err := r.db.ExecContext(ctx, query, id, scope.PrincipalID, scope.SchoolID, scope.TeacherID); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

// FinalizeScope flips the lock flag on every not-yet-locked entry in scope in
// one batch. Returns the number of rows locked; zero on an idempotent retry.
func (r *StudentRepository) FinalizeScope(ctx context.Context, scope models.RosterScope) (int64, error) {
	const query = `UPDATE students SET is_final_submitted = true, updated_at = $4 WHERE principal_id = $1 AND school_id = $2 AND teacher_id = $3 AND is_final_submitted = false`
	result, err := r.db.ExecContext(ctx, query, scope.PrincipalID, scope.SchoolID, scope.TeacherID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("finalize roster: %w", err)
	}
	locked, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("finalize roster rows: %w", err)
	}
	return locked, nil
}

// CountByScope returns the number of entries in scope.
func (r *StudentRepository) CountByScope(ctx context.Context, scope models.RosterScope) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE principal_id = $1 AND school_id = $2 AND teacher_id = $3`
	var total int
	if err := r.db.GetContext(ctx, &total, query, scope.PrincipalID, scope.SchoolID, scope.TeacherID); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// CountByTeacher returns the number of roster entries assigned to a teacher.
func (r *StudentRepository) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	const query = `SELECT COUNT(*) FROM students WHERE teacher_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, teacherID); err != nil {
		return 0, fmt.Errorf("count students by teacher: %w", err)
	}
	return total, nil
}

func prepareStudent(student *models.Student) {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
}
