package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edusetu/school-onboard-api/internal/dto"
	"github.com/edusetu/school-onboard-api/internal/middleware"
	"github.com/edusetu/school-onboard-api/internal/models"
	"github.com/edusetu/school-onboard-api/internal/service"
	appErrors "github.com/edusetu/school-onboard-api/pkg/errors"
	"github.com/edusetu/school-onboard-api/pkg/response"
	"github.com/edusetu/school-onboard-api/pkg/spreadsheet"
	"github.com/edusetu/school-onboard-api/pkg/storage"
)

// RosterHandler wires HTTP endpoints to the roster service.
type RosterHandler struct {
	service *service.RosterService
	metrics *service.MetricsService
	uploads *storage.LocalStorage
}

// NewRosterHandler creates a new handler. Metrics and uploads may be nil.
func NewRosterHandler(svc *service.RosterService, metrics *service.MetricsService, uploads *storage.LocalStorage) *RosterHandler {
	return &RosterHandler{service: svc, metrics: metrics, uploads: uploads}
}

// scopeFromRequest builds the scope triple for the session. Principal and
// school always come from the token claims; the teacher identifier comes from
// the claims for teacher sessions and from the teacher_id query parameter for
// principal sessions.
func scopeFromRequest(c *gin.Context) (models.RosterScope, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.RosterScope{}, appErrors.ErrUnauthorized
	}
	scope := models.RosterScope{
		PrincipalID: claims.PrincipalID,
		SchoolID:    claims.SchoolID,
		TeacherID:   claims.TeacherID,
	}
	if scope.TeacherID == "" {
		scope.TeacherID = c.Query("teacher_id")
	}
	if !scope.Complete() {
		return models.RosterScope{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "roster scope is incomplete")
	}
	return scope, nil
}

// List godoc
// @Summary Load roster
// @Description Returns all roster entries in scope plus the lock state
// @Tags Roster
// @Produce json
// @Param teacher_id query string false "Teacher ID (principal sessions)"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /rosters [get]
func (h *RosterHandler) List(c *gin.Context) {
	scope, err := scopeFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	view, cacheHit, err := h.service.Load(c.Request.Context(), scope)
	h.metrics.ObserveRosterOperation("load", err)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordCacheOperation(cacheHit)

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

// Create godoc
// @Summary Add roster entry
// @Description Adds one entry to an unlocked roster
// @Tags Roster
// @Accept json
// @Produce json
// @Param payload body dto.RosterEntryRequest true "Roster entry"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /rosters [post]
func (h *RosterHandler) Create(c *gin.Context) {
	scope, err := scopeFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RosterEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid roster entry payload"))
		return
	}

	student, err := h.service.Create(c.Request.Context(), scope, req)
	h.metrics.ObserveRosterOperation("create", err)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, student, nil)
}

// Update godoc
// @Summary Edit roster entry
// @Description Edits one entry and records the change in the edit history
// @Tags Roster
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.RosterEntryRequest true "Roster entry"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rosters/{id} [put]
func (h *RosterHandler) Update(c *gin.Context) {
	scope, err := scopeFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	claims := claimsFromContext(c)

	var req dto.RosterEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid roster entry payload"))
		return
	}

	student, err := h.service.Update(c.Request.Context(), scope, claims.UserID, c.Param("id"), req)
	h.metrics.ObserveRosterOperation("update", err)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Remove roster entry
// @Description Removes one entry from an unlocked roster
// @Tags Roster
// @Produce json
// @Param id path string true "Entry ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rosters/{id} [delete]
func (h *RosterHandler) Delete(c *gin.Context) {
	scope, err := scopeFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	err = h.service.Delete(c.Request.Context(), scope, c.Param("id"))
	h.metrics.ObserveRosterOperation("delete", err)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// History godoc
// @Summary Roster entry edit history
// @Description Returns the before/after edit trail of one entry, newest first
// @Tags Roster
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rosters/{id}/history [get]
func (h *RosterHandler) History(c *gin.Context) {
	scope, err := scopeFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, err := h.service.History(c.Request.Context(), scope, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// Import godoc
// @Summary Bulk import roster
// @Description Imports roster entries from an uploaded xlsx file as one batch
// @Tags Roster
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rosters/import [post]
func (h *RosterHandler) Import(c *gin.Context) {
	scope, err := scopeFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "spreadsheet file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not open uploaded file"))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read uploaded file"))
		return
	}
	h.archiveUpload(scope, raw)

	sheet, err := spreadsheet.ReadFirstSheet(bytes.NewReader(raw))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not parse spreadsheet"))
		return
	}

	result, err := h.service.Import(c.Request.Context(), scope, sheet)
	h.metrics.ObserveRosterOperation("import", err)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// archiveUpload keeps the original spreadsheet on disk so a disputed bulk
// import can be re-examined. Delivery is best-effort.
func (h *RosterHandler) archiveUpload(scope models.RosterScope, raw []byte) {
	if h.uploads == nil {
		return
	}
	name := fmt.Sprintf("imports/%s/%s/%s.xlsx",
		scope.SchoolID, scope.TeacherID, time.Now().UTC().Format("20060102T150405Z"))
	_, _ = h.uploads.Save(name, raw)
}

// FinalSubmit godoc
// @Summary Finally submit roster
// @Description Irreversibly locks every entry in scope
// @Tags Roster
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /rosters/final-submit [post]
func (h *RosterHandler) FinalSubmit(c *gin.Context) {
	scope, err := scopeFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	claims := claimsFromContext(c)

	result, err := h.service.Finalize(c.Request.Context(), scope, claims.UserID)
	h.metrics.ObserveRosterOperation("final_submit", err)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export roster
// @Description Downloads the roster as csv or pdf
// @Tags Roster
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /rosters/export [get]
func (h *RosterHandler) Export(c *gin.Context) {
	scope, err := scopeFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.Export(c.Request.Context(), scope, format)
	h.metrics.ObserveRosterOperation("export", err)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("roster-%s.%s", scope.TeacherID, format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
