package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
	"github.com/noah-isme/scrud-api/pkg/response"
)

// SelfSuffix marks an RBAC entry that only admits the role when the ":id"
// path parameter is the caller's own id, e.g. "STUDENT:SELF".
const SelfSuffix = ":SELF"

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{})
	selfRoles := make(map[models.UserRole]struct{})
	for _, a := range allowed {
		if role, ok := strings.CutSuffix(a, SelfSuffix); ok {
			selfRoles[models.UserRole(role)] = struct{}{}
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if _, ok := selfRoles[claims.Role]; ok {
			if target := c.Param("id"); target != "" && target == strconv.FormatInt(claims.UserID, 10) {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// Self admits role only for its own ":id" resource.
func Self(role models.UserRole) string {
	return string(role) + SelfSuffix
}
