package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusetu/school-onboard-api/internal/models"
	appErrors "github.com/edusetu/school-onboard-api/pkg/errors"
)

type mockAuthUsers struct {
	userByEmail      *models.User
	userByID         *models.User
	refreshTokens    map[string]*models.RefreshToken
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
}

func (m *mockAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.userByEmail == nil {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByID != nil && m.userByID.ID == id {
		return m.userByID, nil
	}
	if m.userByEmail != nil && m.userByEmail.ID == id {
		return m.userByEmail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthUsers) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthUsers) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthUsers) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthUsers) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthUsers) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockAuthPrincipals struct {
	principal *models.Principal
}

func (m *mockAuthPrincipals) FindByUserID(ctx context.Context, userID string) (*models.Principal, error) {
	if m.principal == nil || m.principal.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return m.principal, nil
}

type mockAuthSchools struct {
	school *models.School
}

func (m *mockAuthSchools) FindByPrincipal(ctx context.Context, principalID string) (*models.School, error) {
	if m.school == nil || m.school.PrincipalID != principalID {
		return nil, sql.ErrNoRows
	}
	return m.school, nil
}

type mockAuthTeachers struct {
	teacher *models.Teacher
}

func (m *mockAuthTeachers) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if m.teacher == nil || m.teacher.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.teacher, nil
}

func (m *mockAuthTeachers) FindByCode(ctx context.Context, code, principalID, schoolID string) (*models.Teacher, error) {
	if m.teacher == nil || m.teacher.TeacherCode != code || m.teacher.PrincipalID != principalID || m.teacher.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return m.teacher, nil
}

func authTestConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: time.Hour * 24,
		Issuer:             "school-onboard-api",
	}
}

func newAuthFixture(users *mockAuthUsers, principals *mockAuthPrincipals, schools *mockAuthSchools, teachers *mockAuthTeachers) *AuthService {
	if principals == nil {
		principals = &mockAuthPrincipals{}
	}
	if schools == nil {
		schools = &mockAuthSchools{}
	}
	if teachers == nil {
		teachers = &mockAuthTeachers{}
	}
	return NewAuthService(users, principals, schools, teachers, validator.New(), zap.NewNop(), authTestConfig())
}

func TestAuthServicePrincipalLoginCarriesScope(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	users := &mockAuthUsers{userByEmail: &models.User{ID: "u1", Email: "head@example.com", PasswordHash: string(password), Active: true, Role: models.RolePrincipal}}
	principals := &mockAuthPrincipals{principal: &models.Principal{ID: "p1", UserID: "u1", Verified: true}}
	schools := &mockAuthSchools{school: &models.School{ID: "s1", PrincipalID: "p1"}}
	svc := newAuthFixture(users, principals, schools, nil)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "head@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "p1", res.User.PrincipalID)
	assert.Equal(t, "s1", res.User.SchoolID)
	assert.True(t, users.lastLoginUpdated)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "p1", claims.PrincipalID)
	assert.Equal(t, "s1", claims.SchoolID)
	assert.Empty(t, claims.TeacherID)
}

func TestAuthServiceLoginUnverifiedPrincipal(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	users := &mockAuthUsers{userByEmail: &models.User{ID: "u1", Email: "head@example.com", PasswordHash: string(password), Active: true, Role: models.RolePrincipal}}
	principals := &mockAuthPrincipals{principal: &models.Principal{ID: "p1", UserID: "u1", Verified: false}}
	svc := newAuthFixture(users, principals, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "head@example.com", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotVerified.Code, appErr.Code)
}

func TestAuthServiceLoginInactive(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	users := &mockAuthUsers{userByEmail: &models.User{ID: "u1", Email: "head@example.com", PasswordHash: string(password), Active: false}}
	svc := newAuthFixture(users, nil, nil, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "head@example.com", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}

func TestAuthServiceTeacherLogin(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	users := &mockAuthUsers{}
	teachers := &mockAuthTeachers{teacher: &models.Teacher{ID: "t1", TeacherCode: "TEA1A2B3C", Name: "Meera", PasswordHash: string(password), PrincipalID: "p1", SchoolID: "s1"}}
	svc := newAuthFixture(users, nil, nil, teachers)

	res, err := svc.TeacherLogin(context.Background(), models.TeacherLoginRequest{TeacherCode: "TEA1A2B3C", Password: "password", PrincipalID: "p1", SchoolID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, res.User.Role)
	assert.Equal(t, "t1", res.User.TeacherID)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "p1", claims.PrincipalID)
	assert.Equal(t, "s1", claims.SchoolID)
	assert.Equal(t, "t1", claims.TeacherID)
}

func TestAuthServiceTeacherLoginWrongScope(t *testing.T) {
	password, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	users := &mockAuthUsers{}
	teachers := &mockAuthTeachers{teacher: &models.Teacher{ID: "t1", TeacherCode: "TEA1A2B3C", PasswordHash: string(password), PrincipalID: "p1", SchoolID: "s1"}}
	svc := newAuthFixture(users, nil, nil, teachers)

	_, err := svc.TeacherLogin(context.Background(), models.TeacherLoginRequest{TeacherCode: "TEA1A2B3C", Password: "password", PrincipalID: "p2", SchoolID: "s2"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthServiceRefreshTokenRotation(t *testing.T) {
	user := &models.User{ID: "u1", Email: "head@example.com", Active: true, Role: models.RolePrincipal}
	users := &mockAuthUsers{userByID: user, refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	principals := &mockAuthPrincipals{principal: &models.Principal{ID: "p1", UserID: "u1", Verified: true}}
	schools := &mockAuthSchools{school: &models.School{ID: "s1", PrincipalID: "p1"}}
	svc := newAuthFixture(users, principals, schools, nil)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, users.refreshTokens["token"].Revoked)
}

func TestAuthServiceRefreshExpiredToken(t *testing.T) {
	users := &mockAuthUsers{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	svc := newAuthFixture(users, nil, nil, nil)

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceLogout(t *testing.T) {
	users := &mockAuthUsers{refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := newAuthFixture(users, nil, nil, nil)

	err := svc.Logout(context.Background(), "token", "u1", models.LoginRequest{})
	require.NoError(t, err)
	assert.True(t, users.refreshTokens["token"].Revoked)
}
