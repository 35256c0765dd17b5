package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
	"github.com/noah-isme/scrud-api/pkg/response"
)

type courseService interface {
	Create(ctx context.Context, teacherID int64, req models.CreateCourseRequest) (*models.Course, error)
	Get(ctx context.Context, id int64) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
	ListByLevel(ctx context.Context, level models.Level) ([]models.Course, error)
	ListUnassigned(ctx context.Context) ([]models.Course, error)
	Delete(ctx context.Context, id int64) error
}

type assignmentService interface {
	Assign(ctx context.Context, courseID, teacherID int64) (*models.Course, error)
	Release(ctx context.Context, courseID, teacherID int64) (*models.Course, error)
}

type courseEnrollments interface {
	ListByCourse(ctx context.Context, courseID int64) ([]models.Enrollment, error)
}

// CourseHandler exposes course catalogue and assignment endpoints.
type CourseHandler struct {
	courses     courseService
	assignments assignmentService
	enrollments courseEnrollments
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseService, assignments assignmentService, enrollments courseEnrollments) *CourseHandler {
	return &CourseHandler{courses: courses, assignments: assignments, enrollments: enrollments}
}

// Create godoc
// @Summary Declare a course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid course payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param level query string false "Only courses at this level"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var (
		courses []models.Course
		err     error
	)
	if level := c.Query("level"); level != "" {
		courses, err = h.courses.ListByLevel(c.Request.Context(), models.Level(level))
	} else {
		courses, err = h.courses.List(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// Unassigned godoc
// @Summary Courses without a teacher
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /courses/unassigned [get]
func (h *CourseHandler) Unassigned(c *gin.Context) {
	courses, err := h.courses.ListUnassigned(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// Get godoc
// @Summary Get course detail
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Delete godoc
// @Summary Delete course
// @Description Removes the course and every enrollment in it. Assigned courses may only be deleted by their teacher.
// @Tags Courses
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	if course.Assigned() && (claims == nil || *course.TeacherID != claims.UserID) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "course is taught by another teacher"))
		return
	}
	if err := h.courses.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Assign godoc
// @Summary Take over an unassigned course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/assign [post]
func (h *CourseHandler) Assign(c *gin.Context) {
	h.changeAssignment(c, h.assignments.Assign)
}

// Release godoc
// @Summary Give up a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /courses/{id}/release [post]
func (h *CourseHandler) Release(c *gin.Context) {
	h.changeAssignment(c, h.assignments.Release)
}

func (h *CourseHandler) changeAssignment(c *gin.Context, op func(ctx context.Context, courseID, teacherID int64) (*models.Course, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := op(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Enrollments godoc
// @Summary Enrollments in a course
// @Tags Courses
// @Produce json
// @Security BearerAuth
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/enrollments [get]
func (h *CourseHandler) Enrollments(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollments, err := h.enrollments.ListByCourse(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollments)
}
