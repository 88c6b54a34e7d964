package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusetu/school-onboard-api/internal/dto"
	"github.com/edusetu/school-onboard-api/internal/models"
	appErrors "github.com/edusetu/school-onboard-api/pkg/errors"
)

type teacherRepository interface {
	ListByScope(ctx context.Context, principalID, schoolID string) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id, principalID, schoolID string) error
}

type teacherStudentCounter interface {
	CountByTeacher(ctx context.Context, teacherID string) (int, error)
}

// TeacherService manages teachers under a principal's school.
type TeacherService struct {
	repo         teacherRepository
	students     teacherStudentCounter
	validator    *validator.Validate
	logger       *zap.Logger
	mintAttempts int
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, students teacherStudentCounter, validate *validator.Validate, logger *zap.Logger, mintAttempts int) *TeacherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TeacherService{
		repo:         repo,
		students:     students,
		validator:    validate,
		logger:       logger,
		mintAttempts: mintAttempts,
	}
}

// List returns the teachers under a (principal, school) pair.
func (s *TeacherService) List(ctx context.Context, principalID, schoolID string) ([]models.Teacher, error) {
	teachers, err := s.repo.ListByScope(ctx, principalID, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, nil
}

// Create adds a teacher with a freshly minted code. A password is required so
// the teacher can log in with the code.
func (s *TeacherService) Create(ctx context.Context, principalID, schoolID string, req dto.TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if req.Password == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "password is required")
	}

	code, err := mintCode(ctx, "TEA", s.mintAttempts, s.repo.ExistsByCode)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	teacher := &models.Teacher{
		TeacherCode:  code,
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Subject:      req.Subject,
		PasswordHash: string(hash),
		PrincipalID:  principalID,
		SchoolID:     schoolID,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}

	s.logger.Info("teacher created",
		zap.String("teacher_id", teacher.ID),
		zap.String("teacher_code", teacher.TeacherCode))

	return teacher, nil
}

// Update modifies an existing teacher. The code and scope are immutable; a
// non-empty password replaces the stored hash.
func (s *TeacherService) Update(ctx context.Context, principalID, schoolID, id string, req dto.TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.findInScope(ctx, principalID, schoolID, id)
	if err != nil {
		return nil, err
	}

	teacher.Name = req.Name
	teacher.Email = req.Email
	teacher.Phone = req.Phone
	teacher.Subject = req.Subject
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		teacher.PasswordHash = string(hash)
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Delete removes a teacher. Deletion is blocked while the teacher still has
// roster entries assigned, so no roster is ever orphaned.
func (s *TeacherService) Delete(ctx context.Context, principalID, schoolID, id string) error {
	teacher, err := s.findInScope(ctx, principalID, schoolID, id)
	if err != nil {
		return err
	}

	assigned, err := s.students.CountByTeacher(ctx, teacher.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster entries")
	}
	if assigned > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "teacher still has roster entries assigned")
	}

	if err := s.repo.Delete(ctx, teacher.ID, principalID, schoolID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}

	s.logger.Info("teacher deleted", zap.String("teacher_id", teacher.ID))
	return nil
}

func (s *TeacherService) findInScope(ctx context.Context, principalID, schoolID, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if teacher.PrincipalID != principalID || teacher.SchoolID != schoolID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return teacher, nil
}
