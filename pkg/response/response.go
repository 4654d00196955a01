package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
)

// ErrorBody is the JSON shape returned for every failed request. Code is
// only populated for machine-readable failures such as license denials.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// JSON sends a success payload as-is.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	body := ErrorBody{Message: appErr.Message}
	switch appErr.Code {
	case appErrors.ErrLicenseLocked.Code, appErrors.ErrLicenseExpired.Code:
		body.Code = appErr.Code
	}
	c.JSON(appErr.Status, body)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
