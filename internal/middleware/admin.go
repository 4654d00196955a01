package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/bclabs/school-portal-api/internal/models"
	appErrors "github.com/bclabs/school-portal-api/pkg/errors"
	"github.com/bclabs/school-portal-api/pkg/response"
)

// Claims extracts the validated JWT claims stored by the JWT middleware.
func Claims(c *gin.Context) *models.JWTClaims {
	if v, ok := c.Get(ContextUserKey); ok {
		if claims, ok := v.(*models.JWTClaims); ok {
			return claims
		}
	}
	return nil
}

// AdminOnly restricts a route to principals of type admin.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrMissingToken)
			c.Abort()
			return
		}
		if claims.Type != models.TypeAdmin {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "unauthorized"))
			c.Abort()
			return
		}
		c.Next()
	}
}
