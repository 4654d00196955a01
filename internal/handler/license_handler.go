package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bclabs/school-portal-api/internal/middleware"
	"github.com/bclabs/school-portal-api/internal/models"
	"github.com/bclabs/school-portal-api/internal/service"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
	"github.com/bclabs/school-portal-api/pkg/response"
)

// LicenseHandler exposes license activation and status.
type LicenseHandler struct {
	service *service.LicenseService
}

// NewLicenseHandler creates a new handler.
func NewLicenseHandler(svc *service.LicenseService) *LicenseHandler {
	return &LicenseHandler{service: svc}
}

// Activate godoc
// @Summary Activate or renew the license
// @Tags License
// @Accept json
// @Produce json
// @Param payload body models.ActivateLicenseRequest true "Activation payload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /api/license/activate [post]
func (h *LicenseHandler) Activate(c *gin.Context) {
	var req models.ActivateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing fields"))
		return
	}

	cfg, err := h.service.Activate(c.Request.Context(), middleware.Claims(c), req, auditMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"message":       "License activated successfully",
		"licenseExpiry": cfg.LicenseExpiry,
	})
}

// Status godoc
// @Summary Current license status
// @Tags License
// @Produce json
// @Success 200 {object} models.LicenseStatusResponse
// @Failure 403 {object} response.ErrorBody
// @Router /api/license/status [get]
func (h *LicenseHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), middleware.Claims(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, status)
}
