package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusetu/school-onboard-api/internal/dto"
	"github.com/edusetu/school-onboard-api/internal/models"
	appErrors "github.com/edusetu/school-onboard-api/pkg/errors"
)

type registrationRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CreatePrincipalWithSchool(ctx context.Context, user *models.User, principal *models.Principal, school *models.School) error
}

type registrationPrincipalRepository interface {
	FindByID(ctx context.Context, id string) (*models.Principal, error)
	SetVerified(ctx context.Context, id string, verified bool) error
}

type registrationAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type registrationMailer interface {
	Send(to, subject, body string) error
}

// RegistrationService handles principal signup and admin verification. Signup
// writes the auth user, the principal and the school in one transaction so a
// failure at any step leaves no orphan rows behind.
type RegistrationService struct {
	repo          registrationRepository
	principals    registrationPrincipalRepository
	audit         registrationAuditRepository
	mailer        registrationMailer
	validator     *validator.Validate
	logger        *zap.Logger
	notifyEnabled bool
}

// NewRegistrationService constructs a RegistrationService. The mailer may be
// nil when notifications are disabled.
func NewRegistrationService(repo registrationRepository, principals registrationPrincipalRepository, audit registrationAuditRepository, mailer registrationMailer, validate *validator.Validate, logger *zap.Logger, notifyEnabled bool) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RegistrationService{
		repo:          repo,
		principals:    principals,
		audit:         audit,
		mailer:        mailer,
		validator:     validate,
		logger:        logger,
		notifyEnabled: notifyEnabled,
	}
}

// RegisterPrincipal creates a new principal account together with its school.
// The account starts unverified and cannot log in until an admin verifies it.
func (s *RegistrationService) RegisterPrincipal(ctx context.Context, req dto.RegisterPrincipalRequest) (*dto.RegisterPrincipalResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	taken, err := s.repo.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.Name,
		Role:         models.RolePrincipal,
		Active:       true,
	}
	principal := &models.Principal{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Verified: false,
	}
	school := &models.School{
		Name:               req.SchoolName,
		SchoolType:         req.SchoolType,
		Board:              req.Board,
		RegistrationNumber: req.RegistrationNumber,
	}

	if err := s.repo.CreatePrincipalWithSchool(ctx, user, principal, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register principal")
	}

	s.logger.Info("principal registered",
		zap.String("principal_id", principal.ID),
		zap.String("school_id", school.ID))

	if payload, err := json.Marshal(map[string]string{"principal_id": principal.ID, "school_id": school.ID}); err == nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &user.ID,
			Action:     models.AuditActionRegister,
			Resource:   "registration",
			ResourceID: &principal.ID,
			NewValues:  payload,
		}); err != nil {
			s.logger.Warn("failed to record registration audit log", zap.Error(err))
		}
	}

	s.notifyRegistered(principal, school)

	return &dto.RegisterPrincipalResponse{
		PrincipalID: principal.ID,
		SchoolID:    school.ID,
		Verified:    principal.Verified,
	}, nil
}

// VerifyPrincipal flips the verification flag on a principal. Admin only,
// enforced at the routing layer.
func (s *RegistrationService) VerifyPrincipal(ctx context.Context, principalID, adminUserID string) (*models.Principal, error) {
	principal, err := s.principals.FindByID(ctx, principalID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "principal not found")
	}

	if !principal.Verified {
		if err := s.principals.SetVerified(ctx, principal.ID, true); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify principal")
		}
		principal.Verified = true

		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &adminUserID,
			Action:     models.AuditActionPrincipalVerify,
			Resource:   "principal",
			ResourceID: &principal.ID,
			NewValues:  []byte(`{"verified":true}`),
		}); err != nil {
			s.logger.Warn("failed to record verification audit log", zap.Error(err))
		}
	}

	return principal, nil
}

// notifyRegistered sends the welcome mail. Best effort: a mail failure never
// fails the registration that already committed.
func (s *RegistrationService) notifyRegistered(principal *models.Principal, school *models.School) {
	if !s.notifyEnabled || s.mailer == nil {
		return
	}
	subject := "Registration received"
	body := fmt.Sprintf("<p>Hello %s,</p><p>Your registration for <strong>%s</strong> has been received and is awaiting verification. You will be able to sign in once an administrator approves the account.</p>", principal.Name, school.Name)
	if err := s.mailer.Send(principal.Email, subject, body); err != nil {
		s.logger.Warn("failed to send registration mail",
			zap.String("principal_id", principal.ID),
			zap.Error(err))
	}
}
