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

// RegistrationRepository owns the signup transaction: one auth user, one
// principal and one school are written together or not at all.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// EmailExists reports whether an auth account already uses the email.
func (r *RegistrationRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT 1 FROM users WHERE email = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check registration email: %w", err)
	}
	return true, nil
}

// CreatePrincipalWithSchool inserts the user, principal and school rows in a
// single transaction. IDs and timestamps are filled in on the passed structs.
func (r *RegistrationRepository) CreatePrincipalWithSchool(ctx context.Context, user *models.User, principal *models.Principal, school *models.School) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	principal.ID = uuid.NewString()
	principal.UserID = user.ID
	principal.CreatedAt = now
	principal.UpdatedAt = now

	school.ID = uuid.NewString()
	school.PrincipalID = principal.ID
	school.CreatedAt = now
	school.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration: %w", err)
	}

	const userQuery = `INSERT INTO users (id, email, password_hash, full_name, role, active, created_at, updated_at)
        VALUES (:id, :email, :password_hash, :full_name, :role, :active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, userQuery, user); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert registration user: %w", err)
	}

	const principalQuery = `INSERT INTO principals (id, user_id, name, email, phone, verified, created_at, updated_at)
        VALUES (:id, :user_id, :name, :email, :phone, :verified, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, principalQuery, principal); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert principal: %w", err)
	}

	const schoolQuery = `INSERT INTO schools (id, principal_id, name, school_type, board, registration_number, created_at, updated_at)
        VALUES (:id, :principal_id, :name, :school_type, :board, :registration_number, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, schoolQuery, school); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert school: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration: %w", err)
	}
	return nil
}
