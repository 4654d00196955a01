package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bclabs/school-portal-api/internal/models"
	"github.com/bclabs/school-portal-api/internal/service"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
	"github.com/bclabs/school-portal-api/pkg/response"
)

// EntityHandler exposes the generic collection CRUD surface.
type EntityHandler struct {
	entities *service.EntityService
	exports  *service.ExportService
}

// NewEntityHandler creates a new handler.
func NewEntityHandler(entities *service.EntityService, exports *service.ExportService) *EntityHandler {
	return &EntityHandler{entities: entities, exports: exports}
}

// List godoc
// @Summary List a collection
// @Tags Entities
// @Produce json
// @Param entity path string true "Entity name"
// @Success 200 {array} object
// @Failure 404 {object} response.ErrorBody
// @Router /api/{entity} [get]
func (h *EntityHandler) List(c *gin.Context) {
	payload, err := h.entities.List(c.Request.Context(), c.Param("entity"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, payload)
}

// Create godoc
// @Summary Create a record
// @Tags Entities
// @Accept json
// @Produce json
// @Param entity path string true "Entity name"
// @Success 201 {object} object
// @Failure 404 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /api/{entity} [post]
func (h *EntityHandler) Create(c *gin.Context) {
	var doc models.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	created, err := h.entities.Create(c.Request.Context(), c.Param("entity"), doc)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, created)
}

// Update godoc
// @Summary Update a record
// @Description Merges the supplied fields into the stored document
// @Tags Entities
// @Accept json
// @Produce json
// @Param entity path string true "Entity name"
// @Param id path string true "Record id"
// @Success 200 {object} object
// @Failure 404 {object} response.ErrorBody
// @Router /api/{entity}/{id} [put]
func (h *EntityHandler) Update(c *gin.Context) {
	var doc models.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	updated, err := h.entities.Update(c.Request.Context(), c.Param("entity"), c.Param("id"), doc)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, updated)
}

// Delete godoc
// @Summary Delete a record
// @Tags Entities
// @Param entity path string true "Entity name"
// @Param id path string true "Record id"
// @Success 204
// @Failure 404 {object} response.ErrorBody
// @Router /api/{entity}/{id} [delete]
func (h *EntityHandler) Delete(c *gin.Context) {
	if err := h.entities.Delete(c.Request.Context(), c.Param("entity"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Export godoc
// @Summary Export a collection
// @Description Render the collection as CSV or PDF
// @Tags Entities
// @Produce text/csv,application/pdf
// @Param entity path string true "Entity name"
// @Param format query string true "csv or pdf"
// @Success 200
// @Failure 400 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /api/{entity}/export [get]
func (h *EntityHandler) Export(c *gin.Context) {
	result, err := h.exports.Export(c.Request.Context(), c.Param("entity"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
