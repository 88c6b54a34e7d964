package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edusetu/school-onboard-api/internal/dto"
	"github.com/edusetu/school-onboard-api/internal/models"
	appErrors "github.com/edusetu/school-onboard-api/pkg/errors"
	"github.com/edusetu/school-onboard-api/pkg/export"
	"github.com/edusetu/school-onboard-api/pkg/spreadsheet"
)

type rosterStudentRepository interface {
	ListByScope(ctx context.Context, scope models.RosterScope) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	AnyFinalized(ctx context.Context, scope models.RosterScope) (bool, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	CreateBatch(ctx context.Context, students []models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, scope models.RosterScope, id string) error
	FinalizeScope(ctx context.Context, scope models.RosterScope) (int64, error)
	CountByScope(ctx context.Context, scope models.RosterScope) (int, error)
}

type rosterEditHistoryRepository interface {
	Create(ctx context.Context, entry *models.StudentEditHistory) error
	ListByStudent(ctx context.Context, studentID string) ([]models.StudentEditHistory, error)
}

type rosterAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type rosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RosterConfig bundles roster service tunables.
type RosterConfig struct {
	CacheTTL         time.Duration
	MaxImportRows    int
	CodeMintAttempts int
}

// RosterService is the reconciliation engine for class rosters. Every
// operation is bounded by a complete (principal, school, teacher) scope
// triple, and every write is refused once the roster has been finally
// submitted. The lock state lives in the database, not in the caller.
type RosterService struct {
	repo      rosterStudentRepository
	history   rosterEditHistoryRepository
	audit     rosterAuditRepository
	cache     rosterCache
	validator *validator.Validate
	logger    *zap.Logger
	config    RosterConfig

	csvExporter *export.CSVExporter
	pdfExporter *export.PDFExporter
}

// NewRosterService constructs a RosterService. The cache may be nil.
func NewRosterService(repo rosterStudentRepository, history rosterEditHistoryRepository, audit rosterAuditRepository, cache rosterCache, validate *validator.Validate, logger *zap.Logger, config RosterConfig) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RosterService{
		repo:        repo,
		history:     history,
		audit:       audit,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		config:      config,
		csvExporter: export.NewCSVExporter(),
		pdfExporter: export.NewPDFExporter(),
	}
}

// Load returns every entry in scope together with the lock state. The second
// return value reports whether the view was served from cache.
func (s *RosterService) Load(ctx context.Context, scope models.RosterScope) (*dto.RosterView, bool, error) {
	if err := scopeComplete(scope); err != nil {
		return nil, false, err
	}

	cacheKey := rosterCacheKey(scope)
	if s.cache != nil {
		var cached dto.RosterView
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, true, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("roster cache read failed", zap.Error(err))
		}
	}

	entries, err := s.repo.ListByScope(ctx, scope)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	locked, err := s.repo.AnyFinalized(ctx, scope)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read roster lock")
	}

	view := &dto.RosterView{Entries: entries, Locked: locked}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, view, s.config.CacheTTL); err != nil {
			s.logger.Warn("roster cache write failed", zap.Error(err))
		}
	}
	return view, false, nil
}

// Create adds one roster entry. The scope comes from the session, never from
// the payload, and a locked roster refuses the write. An invalid payload is
// rejected before any store access.
func (s *RosterService) Create(ctx context.Context, scope models.RosterScope, req dto.RosterEntryRequest) (*models.Student, error) {
	if err := scopeComplete(scope); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster entry")
	}
	if err := s.guardUnlocked(ctx, scope); err != nil {
		return nil, err
	}

	code, err := mintCode(ctx, "STU", s.config.CodeMintAttempts, s.repo.ExistsByCode)
	if err != nil {
		return nil, err
	}

	student := &models.Student{
		StudentCode: code,
		Name:        req.Name,
		RollNo:      req.RollNo,
		Class:       req.Class,
		Section:     req.Section,
		ParentEmail: req.ParentEmail,
		ParentPhone: req.ParentPhone,
		PrincipalID: scope.PrincipalID,
		SchoolID:    scope.SchoolID,
		TeacherID:   scope.TeacherID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create roster entry")
	}

	s.invalidate(ctx, scope)
	return student, nil
}

// Update edits an existing entry and appends a before/after record to the
// edit history. The history write is best effort: the edit stands even when
// the trail write fails.
func (s *RosterService) Update(ctx context.Context, scope models.RosterScope, editorID, id string, req dto.RosterEntryRequest) (*models.Student, error) {
	if err := scopeComplete(scope); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid roster entry")
	}
	if err := s.guardUnlocked(ctx, scope); err != nil {
		return nil, err
	}

	before, err := s.findInScope(ctx, scope, id)
	if err != nil {
		return nil, err
	}

	after := *before
	after.Name = req.Name
	after.RollNo = req.RollNo
	after.Class = req.Class
	after.Section = req.Section
	after.ParentEmail = req.ParentEmail
	after.ParentPhone = req.ParentPhone

	if err := s.repo.Update(ctx, &after); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update roster entry")
	}

	s.recordEdit(ctx, before, &after, editorID)
	s.invalidate(ctx, scope)
	return &after, nil
}

// Delete removes one entry from an unlocked roster. No history record is
// written for deletions.
func (s *RosterService) Delete(ctx context.Context, scope models.RosterScope, id string) error {
	if err := s.guardWritable(ctx, scope); err != nil {
		return err
	}
	if _, err := s.findInScope(ctx, scope, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, scope, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete roster entry")
	}
	s.invalidate(ctx, scope)
	return nil
}

// Import parses a spreadsheet and inserts its rows as one all-or-nothing
// batch. Every row is validated before any store access, so a bad row rejects
// the whole file with its row number and no query is issued.
func (s *RosterService) Import(ctx context.Context, scope models.RosterScope, sheet *spreadsheet.Sheet) (*dto.ImportResult, error) {
	if err := scopeComplete(scope); err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "spreadsheet contains no data rows")
	}
	if s.config.MaxImportRows > 0 && len(sheet.Rows) > s.config.MaxImportRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("spreadsheet exceeds the %d row import limit", s.config.MaxImportRows))
	}

	requests := make([]dto.RosterEntryRequest, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		req := dto.RosterEntryRequest{
			Name:        strings.TrimSpace(row[dto.ImportColumnName]),
			RollNo:      strings.TrimSpace(row[dto.ImportColumnRollNo]),
			Class:       strings.TrimSpace(row[dto.ImportColumnClass]),
			Section:     strings.TrimSpace(row[dto.ImportColumnSection]),
			ParentEmail: strings.TrimSpace(row[dto.ImportColumnParentEmail]),
			ParentPhone: strings.TrimSpace(row[dto.ImportColumnParentPhone]),
		}
		if err := s.validator.Struct(req); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid data in row %d", i+2))
		}
		requests = append(requests, req)
	}

	if err := s.guardUnlocked(ctx, scope); err != nil {
		return nil, err
	}

	// Codes minted earlier in this batch are not in the store yet, so the
	// uniqueness probe has to cover both.
	minted := make(map[string]struct{}, len(requests))
	taken := batchCodeCheck(minted, s.repo.ExistsByCode)

	students := make([]models.Student, 0, len(requests))
	for _, req := range requests {
		code, err := mintCode(ctx, "STU", s.config.CodeMintAttempts, taken)
		if err != nil {
			return nil, err
		}
		minted[code] = struct{}{}
		students = append(students, models.Student{
			StudentCode: code,
			Name:        req.Name,
			RollNo:      req.RollNo,
			Class:       req.Class,
			Section:     req.Section,
			ParentEmail: req.ParentEmail,
			ParentPhone: req.ParentPhone,
			PrincipalID: scope.PrincipalID,
			SchoolID:    scope.SchoolID,
			TeacherID:   scope.TeacherID,
		})
	}

	if err := s.repo.CreateBatch(ctx, students); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import roster")
	}

	s.logger.Info("roster imported",
		zap.Int("rows", len(students)),
		zap.String("teacher_id", scope.TeacherID))
	s.invalidate(ctx, scope)
	return &dto.ImportResult{Imported: len(students)}, nil
}

// Finalize locks every entry in scope in one batch. An empty roster cannot be
// submitted; resubmitting a locked roster is a no-op that reports zero newly
// locked entries.
func (s *RosterService) Finalize(ctx context.Context, scope models.RosterScope, userID string) (*dto.FinalSubmitResult, error) {
	if err := scopeComplete(scope); err != nil {
		return nil, err
	}

	total, err := s.repo.CountByScope(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count roster entries")
	}
	if total == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot submit an empty roster")
	}

	locked, err := s.repo.FinalizeScope(ctx, scope)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit roster")
	}

	if locked > 0 {
		s.logger.Info("roster finally submitted",
			zap.Int64("locked", locked),
			zap.String("teacher_id", scope.TeacherID))
		if payload, err := json.Marshal(scope); err == nil {
			if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
				UserID:     &userID,
				Action:     models.AuditActionFinalSubmit,
				Resource:   "roster",
				ResourceID: &scope.TeacherID,
				NewValues:  payload,
			}); err != nil {
				s.logger.Warn("failed to record final submit audit log", zap.Error(err))
			}
		}
	}

	s.invalidate(ctx, scope)
	return &dto.FinalSubmitResult{Locked: locked}, nil
}

// History returns the edit trail of one roster entry, newest first.
func (s *RosterService) History(ctx context.Context, scope models.RosterScope, id string) ([]models.StudentEditHistory, error) {
	if err := scopeComplete(scope); err != nil {
		return nil, err
	}
	if _, err := s.findInScope(ctx, scope, id); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edit history")
	}
	return entries, nil
}

// Export renders the roster as a downloadable document. Supported formats are
// csv and pdf.
func (s *RosterService) Export(ctx context.Context, scope models.RosterScope, format string) ([]byte, string, error) {
	view, _, err := s.Load(ctx, scope)
	if err != nil {
		return nil, "", err
	}

	headers := []string{"Student Code", dto.ImportColumnName, dto.ImportColumnRollNo, dto.ImportColumnClass, dto.ImportColumnSection, dto.ImportColumnParentEmail, dto.ImportColumnParentPhone}
	rows := make([]map[string]string, 0, len(view.Entries))
	for _, entry := range view.Entries {
		rows = append(rows, map[string]string{
			"Student Code":              entry.StudentCode,
			dto.ImportColumnName:        entry.Name,
			dto.ImportColumnRollNo:      entry.RollNo,
			dto.ImportColumnClass:       entry.Class,
			dto.ImportColumnSection:     entry.Section,
			dto.ImportColumnParentEmail: entry.ParentEmail,
			dto.ImportColumnParentPhone: entry.ParentPhone,
		})
	}
	dataset := export.Dataset{Headers: headers, Rows: rows}

	switch strings.ToLower(format) {
	case "", "csv":
		payload, err := s.csvExporter.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdfExporter.Render(dataset, "Class Roster")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// guardWritable rejects writes against an incomplete scope or a locked
// roster. Callers that validate a payload run scopeComplete and the
// validation first, then guardUnlocked, so invalid input never reaches the
// store.
func (s *RosterService) guardWritable(ctx context.Context, scope models.RosterScope) error {
	if err := scopeComplete(scope); err != nil {
		return err
	}
	return s.guardUnlocked(ctx, scope)
}

func scopeComplete(scope models.RosterScope) error {
	if !scope.Complete() {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "roster scope is incomplete")
	}
	return nil
}

// guardUnlocked queries the lock state and refuses writes on a locked scope.
func (s *RosterService) guardUnlocked(ctx context.Context, scope models.RosterScope) error {
	locked, err := s.repo.AnyFinalized(ctx, scope)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read roster lock")
	}
	if locked {
		return appErrors.Clone(appErrors.ErrFinalized, "roster has been finally submitted")
	}
	return nil
}

// batchCodeCheck combines an in-flight code set with the store probe so a
// code minted earlier in the same batch counts as taken.
func batchCodeCheck(minted map[string]struct{}, store func(context.Context, string) (bool, error)) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, code string) (bool, error) {
		if _, dup := minted[code]; dup {
			return true, nil
		}
		return store(ctx, code)
	}
}

func (s *RosterService) findInScope(ctx context.Context, scope models.RosterScope, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "roster entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster entry")
	}
	if student.Scope() != scope {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "roster entry not found")
	}
	return student, nil
}

func (s *RosterService) recordEdit(ctx context.Context, before, after *models.Student, editorID string) {
	changes, err := json.Marshal(models.EditChanges{Before: *before, After: *after})
	if err != nil {
		s.logger.Warn("failed to encode edit history", zap.Error(err))
		return
	}
	if err := s.history.Create(ctx, &models.StudentEditHistory{
		StudentID: after.ID,
		EditedBy:  editorID,
		Changes:   changes,
	}); err != nil {
		s.logger.Warn("failed to record edit history",
			zap.String("student_id", after.ID),
			zap.Error(err))
	}
}

func (s *RosterService) invalidate(ctx context.Context, scope models.RosterScope) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, rosterCacheKey(scope)); err != nil {
		s.logger.Warn("roster cache invalidation failed", zap.Error(err))
	}
}

func rosterCacheKey(scope models.RosterScope) string {
	return fmt.Sprintf("roster:%s:%s:%s", scope.PrincipalID, scope.SchoolID, scope.TeacherID)
}
