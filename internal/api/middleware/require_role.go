package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/recruitlink/internal/models"
	"github.com/yoockh/recruitlink/internal/utils"
)

func RequireRole(allowed ...models.UserRole) gin.HandlerFunc {
	allow := map[models.UserRole]struct{}{}
	for _, a := range allowed {
		allow[a] = struct{}{}
	}

	return func(c *gin.Context) {
		v, _ := c.Get(CtxRole)
		role, _ := v.(string)

		if _, ok := allow[models.UserRole(role)]; !ok || role == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, apiError{
				Code:    utils.CodeForbidden,
				Message: "forbidden",
			})
			return
		}
		c.Next()
	}
}

func RequireRecruiter() gin.HandlerFunc { return RequireRole(models.RoleRecruiter) }
func RequireCompany() gin.HandlerFunc   { return RequireRole(models.RoleCompany) }
