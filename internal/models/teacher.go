package models

import "time"

// Teacher is an instructor registered under a (principal, school) pair. The
// teacher code is the human-facing login identifier, distinct from the row id.
type Teacher struct {
	ID           string    `db:"id" json:"id"`
	TeacherCode  string    `db:"teacher_code" json:"teacher_code"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	Subject      string    `db:"subject" json:"subject"`
	PasswordHash string    `db:"password_hash" json:"-"`
	PrincipalID  string    `db:"principal_id" json:"principal_id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
