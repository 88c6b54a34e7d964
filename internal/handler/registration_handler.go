package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edusetu/school-onboard-api/internal/dto"
	"github.com/edusetu/school-onboard-api/internal/service"
	appErrors "github.com/edusetu/school-onboard-api/pkg/errors"
	"github.com/edusetu/school-onboard-api/pkg/response"
)

// RegistrationHandler exposes principal signup and admin verification.
type RegistrationHandler struct {
	service *service.RegistrationService
}

// NewRegistrationHandler creates a new handler.
func NewRegistrationHandler(svc *service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: svc}
}

// RegisterPrincipal godoc
// @Summary Register a principal
// @Description Creates the principal account and its school in one step
// @Tags Registration
// @Accept json
// @Produce json
// @Param payload body dto.RegisterPrincipalRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registration/principals [post]
func (h *RegistrationHandler) RegisterPrincipal(c *gin.Context) {
	var req dto.RegisterPrincipalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	res, err := h.service.RegisterPrincipal(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusCreated, res, nil)
}

// VerifyPrincipal godoc
// @Summary Verify a principal
// @Description Marks a registered principal as verified. Admin only.
// @Tags Registration
// @Produce json
// @Param id path string true "Principal ID"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /principals/{id}/verify [patch]
func (h *RegistrationHandler) VerifyPrincipal(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	principal, err := h.service.VerifyPrincipal(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, principal, nil)
}
