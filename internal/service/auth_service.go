package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusetu/school-onboard-api/internal/models"
	appErrors "github.com/edusetu/school-onboard-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type authPrincipalRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Principal, error)
}

type authSchoolRepository interface {
	FindByPrincipal(ctx context.Context, principalID string) (*models.School, error)
}

type authTeacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	FindByCode(ctx context.Context, code, principalID, schoolID string) (*models.Teacher, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	SingleSession      bool
}

// AuthService provides authentication use cases for principals and teachers.
// Session scope (principal, school, teacher identifiers) is resolved at login
// and embedded in the access token claims, so every later request carries its
// own scope instead of relying on server-side session state.
type AuthService struct {
	users      authUserRepository
	principals authPrincipalRepository
	schools    authSchoolRepository
	teachers   authTeacherRepository
	validator  *validator.Validate
	logger     *zap.Logger
	config     AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, principals authPrincipalRepository, schools authSchoolRepository, teachers authTeacherRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		users:      users,
		principals: principals,
		schools:    schools,
		teachers:   teachers,
		validator:  validate,
		logger:     logger,
		config:     config,
	}
}

// Login authenticates a principal or admin by email and password. Principals
// whose account has not been verified by an admin are rejected even with
// correct credentials.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	info := models.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
	}

	if user.Role == models.RolePrincipal {
		principal, err := s.principals.FindByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "no principal record for account")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load principal")
		}
		if !principal.Verified {
			return nil, appErrors.Clone(appErrors.ErrNotVerified, "account is awaiting verification")
		}
		school, err := s.schools.FindByPrincipal(ctx, principal.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "principal has no school")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
		}
		info.PrincipalID = principal.ID
		info.SchoolID = school.ID
	}

	if s.config.SingleSession {
		if err := s.users.RevokeUserRefreshTokens(ctx, user.ID); err != nil {
			s.logger.Warn("failed to revoke previous refresh tokens", zap.Error(err))
		}
	}

	response, err := s.issueTokens(ctx, info, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &user.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &user.ID,
		NewValues:  []byte(`{"status":"success"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record login audit log", zap.Error(err))
	}

	return response, nil
}

// TeacherLogin authenticates a teacher by code and password within the
// (principal, school) scope the teacher was created under. A matching code in
// another scope never authenticates.
func (s *AuthService) TeacherLogin(ctx context.Context, req models.TeacherLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher login payload")
	}

	teacher, err := s.teachers.FindByCode(ctx, req.TeacherCode, req.PrincipalID, req.SchoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid teacher code or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid teacher code or password")
	}

	info := models.UserInfo{
		ID:          teacher.ID,
		Email:       teacher.Email,
		FullName:    teacher.Name,
		Role:        models.RoleTeacher,
		PrincipalID: teacher.PrincipalID,
		SchoolID:    teacher.SchoolID,
		TeacherID:   teacher.ID,
	}

	response, err := s.issueTokens(ctx, info, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &teacher.ID,
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: &teacher.ID,
		NewValues:  []byte(`{"status":"success","kind":"teacher"}`),
		IPAddress:  req.IP,
		UserAgent:  req.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record teacher login audit log", zap.Error(err))
	}

	return response, nil
}

// RefreshToken exchanges a refresh token for a new access token pair. The
// session scope is re-resolved from storage so a revoked teacher or an
// unverified principal cannot keep refreshing.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	storedToken, err := s.users.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch refresh token")
	}

	if storedToken.Revoked || time.Now().UTC().After(storedToken.ExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	info, err := s.resolveSession(ctx, storedToken.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.users.RevokeRefreshToken(ctx, storedToken.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to revoke used refresh token", zap.Error(err))
	}

	response, err := s.issueTokens(ctx, info, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	return &models.RefreshTokenResponse{
		AccessToken:  response.AccessToken,
		RefreshToken: response.RefreshToken,
		ExpiresIn:    response.ExpiresIn,
		IssuedAt:     response.IssuedAt,
	}, nil
}

// Logout revokes the provided refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, userID string, meta models.LoginRequest) error {
	storedToken, err := s.users.FindRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load refresh token")
	}

	if storedToken.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}

	if err := s.users.RevokeRefreshToken(ctx, storedToken.ID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revoke refresh token")
	}

	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionLogout,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  []byte(`{"status":"logout"}`),
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record logout audit log", zap.Error(err))
	}

	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// resolveSession rebuilds session info for a refresh token owner. The owner is
// either an auth user (admin or principal) or a teacher.
func (s *AuthService) resolveSession(ctx context.Context, ownerID string) (models.UserInfo, error) {
	user, err := s.users.FindByID(ctx, ownerID)
	if err == nil {
		if !user.Active {
			return models.UserInfo{}, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
		}
		info := models.UserInfo{ID: user.ID, Email: user.Email, FullName: user.FullName, Role: user.Role}
		if user.Role == models.RolePrincipal {
			principal, err := s.principals.FindByUserID(ctx, user.ID)
			if err != nil {
				return models.UserInfo{}, appErrors.Clone(appErrors.ErrUnauthorized, "principal record missing")
			}
			if !principal.Verified {
				return models.UserInfo{}, appErrors.Clone(appErrors.ErrNotVerified, "account is awaiting verification")
			}
			school, err := s.schools.FindByPrincipal(ctx, principal.ID)
			if err != nil {
				return models.UserInfo{}, appErrors.Clone(appErrors.ErrUnauthorized, "school record missing")
			}
			info.PrincipalID = principal.ID
			info.SchoolID = school.ID
		}
		return info, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.UserInfo{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	teacher, err := s.teachers.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.UserInfo{}, appErrors.Clone(appErrors.ErrUnauthorized, "associated account no longer exists")
		}
		return models.UserInfo{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return models.UserInfo{
		ID:          teacher.ID,
		Email:       teacher.Email,
		FullName:    teacher.Name,
		Role:        models.RoleTeacher,
		PrincipalID: teacher.PrincipalID,
		SchoolID:    teacher.SchoolID,
		TeacherID:   teacher.ID,
	}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, info models.UserInfo, ip, userAgent string) (*models.LoginResponse, error) {
	accessToken, err := s.generateAccessToken(info)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	refreshTokenValue, err := s.generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	refreshToken := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    info.ID,
		Token:     refreshTokenValue,
		ExpiresAt: time.Now().UTC().Add(s.config.RefreshTokenExpiry),
		CreatedAt: time.Now().UTC(),
		IPAddress: ip,
		UserAgent: userAgent,
	}

	if err := s.users.CreateRefreshToken(ctx, refreshToken); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     time.Now().UTC(),
		User:         info,
	}, nil
}

func (s *AuthService) generateAccessToken(info models.UserInfo) (string, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:      info.ID,
		Role:        info.Role,
		Email:       info.Email,
		FullName:    info.FullName,
		PrincipalID: info.PrincipalID,
		SchoolID:    info.SchoolID,
		TeacherID:   info.TeacherID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   info.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}

func (s *AuthService) generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
