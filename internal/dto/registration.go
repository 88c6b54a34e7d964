package dto

// RegisterPrincipalRequest carries the combined principal + school
// registration form. Both rows are written in one transaction.
type RegisterPrincipalRequest struct {
	Name               string `json:"name" validate:"required,min=2"`
	Email              string `json:"email" validate:"required,email"`
	Phone              string `json:"phone" validate:"required,len=10,numeric"`
	Password           string `json:"password" validate:"required,min=8"`
	SchoolName         string `json:"school_name" validate:"required"`
	SchoolType         string `json:"school_type" validate:"omitempty,oneof=public private charter"`
	Board              string `json:"board" validate:"omitempty,oneof=cbse icse state"`
	RegistrationNumber string `json:"registration_number" validate:"required"`
}

// RegisterPrincipalResponse returns the identifiers minted during
// registration.
type RegisterPrincipalResponse struct {
	PrincipalID string `json:"principal_id"`
	SchoolID    string `json:"school_id"`
	Verified    bool   `json:"verified"`
}
