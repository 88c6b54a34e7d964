package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edusetu/school-onboard-api/internal/dto"
	"github.com/edusetu/school-onboard-api/internal/service"
	appErrors "github.com/edusetu/school-onboard-api/pkg/errors"
	"github.com/edusetu/school-onboard-api/pkg/response"
)

// TeacherHandler wires teacher management to HTTP routes. All endpoints are
// principal only; the (principal, school) scope comes from the token claims.
type TeacherHandler struct {
	service *service.TeacherService
}

// NewTeacherHandler constructs a new TeacherHandler.
func NewTeacherHandler(svc *service.TeacherService) *TeacherHandler {
	return &TeacherHandler{service: svc}
}

func teacherScope(c *gin.Context) (principalID, schoolID string, err error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return "", "", appErrors.ErrUnauthorized
	}
	if claims.PrincipalID == "" || claims.SchoolID == "" {
		return "", "", appErrors.Clone(appErrors.ErrPreconditionFailed, "session has no school scope")
	}
	return claims.PrincipalID, claims.SchoolID, nil
}

// List godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	principalID, schoolID, err := teacherScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	teachers, err := h.service.List(c.Request.Context(), principalID, schoolID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, teachers, nil)
}

// Create godoc
// @Summary Add teacher
// @Description Creates a teacher with a freshly minted teacher code
// @Tags Teachers
// @Accept json
// @Produce json
// @Param payload body dto.TeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers [post]
func (h *TeacherHandler) Create(c *gin.Context) {
	principalID, schoolID, err := teacherScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.TeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}

	teacher, err := h.service.Create(c.Request.Context(), principalID, schoolID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, teacher, nil)
}

// Update godoc
// @Summary Edit teacher
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body dto.TeacherRequest true "Teacher payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	principalID, schoolID, err := teacherScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.TeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}

	teacher, err := h.service.Update(c.Request.Context(), principalID, schoolID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, teacher, nil)
}

// Delete godoc
// @Summary Remove teacher
// @Description Deletion is refused while the teacher still has roster entries
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teachers/{id} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	principalID, schoolID, err := teacherScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), principalID, schoolID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
