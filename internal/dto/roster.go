package dto

import "github.com/edusetu/school-onboard-api/internal/models"

// RosterEntryRequest is the payload for adding or editing a roster entry.
// Scope fields and the lock flag are never taken from the payload: the
// service forces them from the request scope.
type RosterEntryRequest struct {
	Name        string `json:"name" validate:"required"`
	RollNo      string `json:"roll_no"`
	Class       string `json:"class" validate:"required"`
	Section     string `json:"section"`
	ParentEmail string `json:"parent_email" validate:"required,email"`
	ParentPhone string `json:"parent_phone"`
}

// Spreadsheet column names expected in bulk-import files. Additional columns
// are ignored, missing ones yield empty field values.
const (
	ImportColumnName        = "Name"
	ImportColumnRollNo      = "Roll No"
	ImportColumnClass       = "Class"
	ImportColumnSection     = "Section"
	ImportColumnParentEmail = "Parent Email"
	ImportColumnParentPhone = "Parent Phone"
)

// RosterView is the load payload: every entry in scope plus the lock state
// the client uses to disable editing.
type RosterView struct {
	Entries []models.Student `json:"entries"`
	Locked  bool             `json:"locked"`
}

// ImportResult summarises a bulk import batch.
type ImportResult struct {
	Imported int `json:"imported"`
}

// FinalSubmitResult reports how many entries the final submission locked.
// Locked stays zero on an idempotent retry.
type FinalSubmitResult struct {
	Locked int64 `json:"locked"`
}
