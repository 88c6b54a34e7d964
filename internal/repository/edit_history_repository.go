package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusetu/school-onboard-api/internal/models"
)

// EditHistoryRepository stores before/after snapshots of roster edits.
type EditHistoryRepository struct {
	db *sqlx.DB
}

// NewEditHistoryRepository constructs an EditHistoryRepository.
func NewEditHistoryRepository(db *sqlx.DB) *EditHistoryRepository {
	return &EditHistoryRepository{db: db}
}

// Create appends an edit history record.
func (r *EditHistoryRepository) Create(ctx context.Context, entry *models.StudentEditHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO student_edit_history (id, student_id, edited_by, changes, created_at)
        VALUES (:id, :student_id, :edited_by, :changes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create edit history: %w", err)
	}
	return nil
}

// ListByStudent returns the edit trail for one roster entry, newest first.
func (r *EditHistoryRepository) ListByStudent(ctx context.Context, studentID string) ([]models.StudentEditHistory, error) {
	const query = `SELECT id, student_id, edited_by, changes, created_at FROM student_edit_history WHERE student_id = $1 ORDER BY created_at DESC`
	entries := []models.StudentEditHistory{}
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list edit history: %w", err)
	}
	return entries, nil
}
