package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edusetu/school-onboard-api/internal/models"
)

// SchoolRepository reads school records.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs a SchoolRepository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

const schoolColumns = `id, principal_id, name, school_type, board, registration_number, created_at, updated_at`

// FindByID fetches a school by row id.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	query := fmt.Sprintf(`SELECT %s FROM schools WHERE id = $1`, schoolColumns)
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, err
	}
	return &school, nil
}

// FindByPrincipal fetches the school owned by a principal.
func (r *SchoolRepository) FindByPrincipal(ctx context.Context, principalID string) (*models.School, error) {
	query := fmt.Sprintf(`SELECT %s FROM schools WHERE principal_id = $1`, schoolColumns)
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, principalID); err != nil {
		return nil, err
	}
	return &school, nil
}
