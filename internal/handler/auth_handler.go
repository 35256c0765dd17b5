package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
	"github.com/noah-isme/scrud-api/pkg/response"
)

type authService interface {
	RegisterStudent(ctx context.Context, req models.RegisterStudentRequest) (*models.RegisterResponse, error)
	RegisterTeacher(ctx context.Context, req models.RegisterTeacherRequest) (*models.RegisterResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Profile(ctx context.Context, role models.UserRole, id int64) (*models.UserInfo, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// RegisterStudent godoc
// @Summary Register a student account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterStudentRequest true "Student registration"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/students/register [post]
func (h *AuthHandler) RegisterStudent(c *gin.Context) {
	var req models.RegisterStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid registration payload"))
		return
	}
	res, err := h.service.RegisterStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// RegisterTeacher godoc
// @Summary Register a teacher account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterTeacherRequest true "Teacher registration"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/teachers/register [post]
func (h *AuthHandler) RegisterTeacher(c *gin.Context) {
	var req models.RegisterTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid registration payload"))
		return
	}
	res, err := h.service.RegisterTeacher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate a student or teacher by email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid login payload"))
		return
	}
	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Me godoc
// @Summary Current user profile
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	info, err := h.service.Profile(c.Request.Context(), claims.Role, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, info)
}
