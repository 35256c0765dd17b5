package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scrud-api/internal/middleware"
	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// pathID parses a positive int64 path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrInvalidArgument, "invalid "+name)
	}
	return id, nil
}

// queryID parses an optional positive int64 query parameter; absent is 0.
func queryID(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrInvalidArgument, "invalid "+name)
	}
	return id, nil
}

func invalidPayload(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

func isTeacher(claims *models.JWTClaims) bool {
	return claims != nil && claims.Role == models.RoleTeacher
}

func isStudent(claims *models.JWTClaims, studentID int64) bool {
	return claims != nil && claims.Role == models.RoleStudent && claims.UserID == studentID
}
