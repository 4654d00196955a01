package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/bclabs/school-portal-api/internal/service"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
	"github.com/bclabs/school-portal-api/pkg/response"
)

// License gates write requests on the persisted license state. Reads always
// pass so a school can keep viewing its data under a lapsed license.
func License(licenseService *service.LicenseService, metrics *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := licenseService.Evaluate(c.Request.Context(), c.Request.Method); err != nil {
			if metrics != nil {
				metrics.LicenseDenied(appErrors.FromError(err).Code)
			}
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
