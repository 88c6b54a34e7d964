package models

import "time"

// StudentStatusActive is the default status stamped on new roster entries.
const StudentStatusActive = "active"

// RosterScope is the (principal, school, teacher) triple that bounds every
// roster read and write. All three identifiers are mandatory.
type RosterScope struct {
	PrincipalID string `json:"principal_id"`
	SchoolID    string `json:"school_id"`
	TeacherID   string `json:"teacher_id"`
}

// Complete reports whether every identifier of the scope is present.
func (s RosterScope) Complete() bool {
	return s.PrincipalID != "" && s.SchoolID != "" && s.TeacherID != ""
}

// Student is a roster entry owned by exactly one scope triple.
type Student struct {
	ID             string    `db:"id" json:"id"`
	StudentCode    string    `db:"student_code" json:"student_code"`
	Name           string    `db:"name" json:"name"`
	RollNo         string    `db:"roll_no" json:"roll_no"`
	Class          string    `db:"class" json:"class"`
	Section        string    `db:"section" json:"section"`
	ParentEmail    string    `db:"parent_email" json:"parent_email"`
	ParentPhone    string    `db:"parent_phone" json:"parent_phone"`
	Status         string    `db:"status" json:"status"`
	PrincipalID    string    `db:"principal_id" json:"principal_id"`
	SchoolID       string    `db:"school_id" json:"school_id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	FinalSubmitted bool      `db:"is_final_submitted" json:"is_final_submitted"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Scope returns the owning scope triple of the entry.
func (s Student) Scope() RosterScope {
	return RosterScope{PrincipalID: s.PrincipalID, SchoolID: s.SchoolID, TeacherID: s.TeacherID}
}
