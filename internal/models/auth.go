package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a principal.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// TeacherLoginRequest authenticates a teacher by human-facing code within a
// (principal, school) scope.
type TeacherLoginRequest struct {
	TeacherCode string `json:"teacher_code" validate:"required"`
	Password    string `json:"password" validate:"required"`
	PrincipalID string `json:"principal_id" validate:"required"`
	SchoolID    string `json:"school_id" validate:"required"`
	IP          string `json:"-"`
	UserAgent   string `json:"-"`
}

// LoginResponse returns the issued tokens plus the scope identifiers the
// caller needs for subsequent roster requests.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses. PrincipalID and
// SchoolID are set for principal and teacher sessions, TeacherID for teacher
// sessions only.
type UserInfo struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name"`
	Role        UserRole `json:"role"`
	PrincipalID string   `json:"principal_id,omitempty"`
	SchoolID    string   `json:"school_id,omitempty"`
	TeacherID   string   `json:"teacher_id,omitempty"`
}

// RefreshToken is a stored refresh token row.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"-"`
	UserAgent string     `db:"user_agent" json:"-"`
}

// JWTClaims represents the JWT payload for access tokens. Session scope is
// carried explicitly in the claims instead of ambient cookie state.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Role        UserRole `json:"role"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name"`
	PrincipalID string   `json:"principal_id,omitempty"`
	SchoolID    string   `json:"school_id,omitempty"`
	TeacherID   string   `json:"teacher_id,omitempty"`
	jwt.RegisteredClaims
}
