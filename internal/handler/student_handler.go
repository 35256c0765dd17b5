package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
	"github.com/noah-isme/scrud-api/pkg/response"
)

type studentService interface {
	Get(ctx context.Context, id int64) (*models.Student, error)
	List(ctx context.Context) ([]models.Student, error)
	Delete(ctx context.Context, id int64) error
	AvailableCourses(ctx context.Context, id int64) ([]models.Course, error)
}

type studentEnrollments interface {
	ListByStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error)
}

type gradeService interface {
	WeightedAverage(ctx context.Context, studentID int64, level models.Level) (*models.WeightedAverage, error)
	Summary(ctx context.Context, studentID int64) (*models.GradeSummary, error)
}

// StudentHandler exposes student endpoints.
type StudentHandler struct {
	students    studentService
	enrollments studentEnrollments
	grades      gradeService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, enrollments studentEnrollments, grades gradeService) *StudentHandler {
	return &StudentHandler{students: students, enrollments: enrollments, grades: grades}
}

// List godoc
// @Summary List students
// @Description Students ordered by last name then first name
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	students, err := h.students.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, students)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// Delete godoc
// @Summary Delete student
// @Description Removes the student together with all of their enrollments
// @Tags Students
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 204
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.students.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AvailableCourses godoc
// @Summary Courses offered at the student's level
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/available-courses [get]
func (h *StudentHandler) AvailableCourses(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	courses, err := h.students.AvailableCourses(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// Enrollments godoc
// @Summary List a student's enrollments
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *StudentHandler) Enrollments(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	enrollments, err := h.enrollments.ListByStudent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollments)
}

// Grades godoc
// @Summary Weighted average for one level
// @Description ECTS-weighted average of graded enrollments at the level, with the contributing courses. The average is null when nothing is graded.
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Param level query string true "Level code, e.g. B1"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{id}/grades [get]
func (h *StudentHandler) Grades(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	level := c.Query("level")
	if level == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidArgument, "level is required"))
		return
	}
	result, err := h.grades.WeightedAverage(c.Request.Context(), id, models.Level(level))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// GradeSummary godoc
// @Summary Grade summary across all levels
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/grades/summary [get]
func (h *StudentHandler) GradeSummary(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.grades.Summary(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}
