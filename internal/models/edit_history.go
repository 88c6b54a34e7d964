package models

import "time"

// EditChanges is the before/after snapshot pair stored for a roster edit.
type EditChanges struct {
	Before Student `json:"before"`
	After  Student `json:"after"`
}

// StudentEditHistory is one append-only edit record. Created exactly once per
// successful edit of an existing roster entry, never for create or delete,
// and never mutated afterwards.
type StudentEditHistory struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	EditedBy  string    `db:"edited_by" json:"edited_by"`
	Changes   []byte    `db:"changes" json:"changes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
