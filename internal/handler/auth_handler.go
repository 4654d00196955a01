package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bclabs/school-portal-api/internal/models"
	"github.com/bclabs/school-portal-api/internal/service"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
	"github.com/bclabs/school-portal-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

func auditMeta(c *gin.Context) service.AuditMeta {
	return service.AuditMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// Login godoc
// @Summary Authenticate a principal
// @Description Authenticate by admission number, staff id or username
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.LoginResponse
// @Failure 401 {object} response.ErrorBody
// @Router /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	result, err := h.service.Login(c.Request.Context(), req, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.NeedsActivation {
		response.JSON(c, http.StatusOK, models.NeedsActivationResponse{
			NeedsActivation: true,
			Username:        result.Principal.Identifier(),
			UserType:        result.Principal.Type(),
		})
		return
	}

	response.JSON(c, http.StatusOK, models.LoginResponse{Token: result.Token, User: result.Principal.Public()})
}

// Activate godoc
// @Summary Activate a provisioned account
// @Description Set the first user-chosen password and log in
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ActivateRequest true "Activation payload"
// @Success 200 {object} models.LoginResponse
// @Failure 404 {object} response.ErrorBody
// @Router /api/activate-account [post]
func (h *AuthHandler) Activate(c *gin.Context) {
	var req models.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activation payload"))
		return
	}

	result, err := h.service.Activate(c.Request.Context(), req, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, models.LoginResponse{Token: result.Token, User: result.Principal.Public()})
}

// ChangePassword godoc
// @Summary Change password
// @Description Verify the old password before storing a new one
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ChangePasswordRequest true "Change password payload"
// @Success 200 {object} map[string]string
// @Failure 401 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /api/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), req, auditMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"message": "Password changed successfully"})
}
