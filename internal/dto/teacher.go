package dto

// TeacherRequest is the payload for creating or updating a teacher under a
// (principal, school) scope. Password is required on create only.
type TeacherRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone"`
	Subject  string `json:"subject"`
	Password string `json:"password" validate:"omitempty,min=8"`
}
