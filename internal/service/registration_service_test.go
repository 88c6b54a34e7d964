package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusetu/school-onboard-api/internal/dto"
	"github.com/edusetu/school-onboard-api/internal/models"
	appErrors "github.com/edusetu/school-onboard-api/pkg/errors"
)

type mockRegistrationRepo struct {
	existingEmail string
	user          *models.User
	principal     *models.Principal
	school        *models.School
	createErr     error
}

func (m *mockRegistrationRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return email == m.existingEmail, nil
}

func (m *mockRegistrationRepo) CreatePrincipalWithSchool(ctx context.Context, user *models.User, principal *models.Principal, school *models.School) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.ID = "u1"
	principal.ID = "p1"
	principal.UserID = user.ID
	school.ID = "s1"
	school.PrincipalID = principal.ID
	m.user = user
	m.principal = principal
	m.school = school
	return nil
}

type mockPrincipalStore struct {
	principal *models.Principal
	verified  []string
}

func (m *mockPrincipalStore) FindByID(ctx context.Context, id string) (*models.Principal, error) {
	if m.principal == nil || m.principal.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *m.principal
	return &copied, nil
}

func (m *mockPrincipalStore) SetVerified(ctx context.Context, id string, verified bool) error {
	m.verified = append(m.verified, id)
	if m.principal != nil && m.principal.ID == id {
		m.principal.Verified = verified
	}
	return nil
}

type mockMailer struct {
	sent []string
	err  error
}

func (m *mockMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func registerRequest() dto.RegisterPrincipalRequest {
	return dto.RegisterPrincipalRequest{
		Name:               "Nirmala Rao",
		Email:              "head@example.com",
		Phone:              "9000000000",
		Password:           "password123",
		SchoolName:         "Sunrise Public School",
		SchoolType:         "private",
		Board:              "cbse",
		RegistrationNumber: "REG-42",
	}
}

func TestRegisterPrincipal(t *testing.T) {
	repo := &mockRegistrationRepo{}
	mailer := &mockMailer{}
	audit := &mockAudit{}
	svc := NewRegistrationService(repo, &mockPrincipalStore{}, audit, mailer, validator.New(), zap.NewNop(), true)

	res, err := svc.RegisterPrincipal(context.Background(), registerRequest())
	require.NoError(t, err)
	assert.Equal(t, "p1", res.PrincipalID)
	assert.Equal(t, "s1", res.SchoolID)
	assert.False(t, res.Verified)

	require.NotNil(t, repo.user)
	assert.Equal(t, models.RolePrincipal, repo.user.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.user.PasswordHash), []byte("password123")))
	assert.False(t, repo.principal.Verified)
	assert.Equal(t, []string{"head@example.com"}, mailer.sent)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRegister, audit.logs[0].Action)
}

func TestRegisterPrincipalDuplicateEmail(t *testing.T) {
	repo := &mockRegistrationRepo{existingEmail: "head@example.com"}
	svc := NewRegistrationService(repo, &mockPrincipalStore{}, &mockAudit{}, nil, validator.New(), zap.NewNop(), false)

	_, err := svc.RegisterPrincipal(context.Background(), registerRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterPrincipalInvalidBoard(t *testing.T) {
	svc := NewRegistrationService(&mockRegistrationRepo{}, &mockPrincipalStore{}, &mockAudit{}, nil, validator.New(), zap.NewNop(), false)

	req := registerRequest()
	req.Board = "other"
	_, err := svc.RegisterPrincipal(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegisterPrincipalMailFailureDoesNotFail(t *testing.T) {
	repo := &mockRegistrationRepo{}
	mailer := &mockMailer{err: assert.AnError}
	svc := NewRegistrationService(repo, &mockPrincipalStore{}, &mockAudit{}, mailer, validator.New(), zap.NewNop(), true)

	_, err := svc.RegisterPrincipal(context.Background(), registerRequest())
	require.NoError(t, err)
}

func TestVerifyPrincipal(t *testing.T) {
	principals := &mockPrincipalStore{principal: &models.Principal{ID: "p1", Verified: false}}
	audit := &mockAudit{}
	svc := NewRegistrationService(&mockRegistrationRepo{}, principals, audit, nil, validator.New(), zap.NewNop(), false)

	principal, err := svc.VerifyPrincipal(context.Background(), "p1", "admin-1")
	require.NoError(t, err)
	assert.True(t, principal.Verified)
	assert.Equal(t, []string{"p1"}, principals.verified)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionPrincipalVerify, audit.logs[0].Action)
}

func TestVerifyPrincipalIdempotent(t *testing.T) {
	principals := &mockPrincipalStore{principal: &models.Principal{ID: "p1", Verified: true}}
	svc := NewRegistrationService(&mockRegistrationRepo{}, principals, &mockAudit{}, nil, validator.New(), zap.NewNop(), false)

	principal, err := svc.VerifyPrincipal(context.Background(), "p1", "admin-1")
	require.NoError(t, err)
	assert.True(t, principal.Verified)
	assert.Empty(t, principals.verified)
}

func TestVerifyPrincipalNotFound(t *testing.T) {
	svc := NewRegistrationService(&mockRegistrationRepo{}, &mockPrincipalStore{}, &mockAudit{}, nil, validator.New(), zap.NewNop(), false)

	_, err := svc.VerifyPrincipal(context.Background(), "missing", "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
