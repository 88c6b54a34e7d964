package models

import "time"

// School belongs to exactly one principal and is created in the same
// transaction as the principal row during registration.
type School struct {
	ID                 string    `db:"id" json:"id"`
	PrincipalID        string    `db:"principal_id" json:"principal_id"`
	Name               string    `db:"name" json:"name"`
	SchoolType         string    `db:"school_type" json:"school_type"`
	Board              string    `db:"board" json:"board"`
	RegistrationNumber string    `db:"registration_number" json:"registration_number"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
