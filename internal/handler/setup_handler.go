package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bclabs/school-portal-api/internal/models"
	"github.com/bclabs/school-portal-api/internal/service"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
	"github.com/bclabs/school-portal-api/pkg/response"
)

// SetupHandler exposes the first-run installation wizard.
type SetupHandler struct {
	service *service.SetupService
}

// NewSetupHandler creates a new handler.
func NewSetupHandler(svc *service.SetupService) *SetupHandler {
	return &SetupHandler{service: svc}
}

// Status godoc
// @Summary Installation status
// @Tags Setup
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/setup/status [get]
func (h *SetupHandler) Status(c *gin.Context) {
	installed, err := h.service.Status(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"installed": installed})
}

// Install godoc
// @Summary Run first-time setup
// @Description Create the first admin account and mark the system installed
// @Tags Setup
// @Accept json
// @Produce json
// @Param payload body models.SetupRequest true "Setup payload"
// @Success 200 {object} map[string]string
// @Failure 400 {object} response.ErrorBody
// @Failure 403 {object} response.ErrorBody
// @Router /api/setup [post]
func (h *SetupHandler) Install(c *gin.Context) {
	var req models.SetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "all fields required"))
		return
	}

	if err := h.service.Install(c.Request.Context(), req, auditMeta(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"message": "System setup completed"})
}
