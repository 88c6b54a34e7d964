package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edusetu/school-onboard-api/internal/models"
)

// PrincipalRepository reads and verifies principal records. Creation happens
// through the registration transaction, not here.
type PrincipalRepository struct {
	db *sqlx.DB
}

// NewPrincipalRepository constructs a PrincipalRepository.
func NewPrincipalRepository(db *sqlx.DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

const principalColumns = `id, user_id, name, email, phone, verified, created_at, updated_at`

// FindByID fetches a principal by row id.
func (r *PrincipalRepository) FindByID(ctx context.Context, id string) (*models.Principal, error) {
	query := fmt.Sprintf(`SELECT %s FROM principals WHERE id = $1`, principalColumns)
	var principal models.Principal
	if err := r.db.GetContext(ctx, &principal, query, id); err != nil {
		return nil, err
	}
	return &principal, nil
}

// FindByUserID fetches the principal row tied to an auth user.
func (r *PrincipalRepository) FindByUserID(ctx context.Context, userID string) (*models.Principal, error) {
	query := fmt.Sprintf(`SELECT %s FROM principals WHERE user_id = $1`, principalColumns)
	var principal models.Principal
	if err := r.db.GetContext(ctx, &principal, query, userID); err != nil {
		return nil, err
	}
	return &principal, nil
}

// SetVerified flips the verification flag on a principal.
func (r *PrincipalRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	const query = `UPDATE principals SET verified = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, verified, time.Now().UTC()); err != nil {
		return fmt.Errorf("set principal verified: %w", err)
	}
	return nil
}
