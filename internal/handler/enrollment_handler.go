package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
	"github.com/noah-isme/scrud-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req models.EnrollRequest) (*models.Enrollment, error)
	RecordGrade(ctx context.Context, studentID, courseID int64, raw float64) (*models.Enrollment, error)
	Unenroll(ctx context.Context, studentID, courseID int64) error
	ListDetails(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
}

type courseOwnership interface {
	EnsureTeaches(ctx context.Context, teacherID, courseID int64) error
}

// EnrollmentHandler exposes enrollment and grading endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
	courses     courseOwnership
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService, courses courseOwnership) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, courses: courses}
}

// Enroll godoc
// @Summary Enroll a student in a course
// @Description Students enroll themselves; teachers enroll students in courses they teach. Re-enrolling clears an existing grade.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req models.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid enrollment payload"))
		return
	}
	if err := h.authorize(c, req.StudentID, req.CourseID); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Unenroll godoc
// @Summary Remove an enrollment
// @Tags Enrollments
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Param courseId path int true "Course ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /enrollments/{studentId}/{courseId} [delete]
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	studentID, courseID, err := enrollmentKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.authorize(c, studentID, courseID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.enrollments.Unenroll(c.Request.Context(), studentID, courseID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// RecordGrade godoc
// @Summary Record or clear a grade
// @Description Score in [0, 20]; -1 clears the grade. Only the course's teacher may grade.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param studentId path int true "Student ID"
// @Param courseId path int true "Course ID"
// @Param payload body models.RecordGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /enrollments/{studentId}/{courseId}/grade [put]
func (h *EnrollmentHandler) RecordGrade(c *gin.Context) {
	studentID, courseID, err := enrollmentKey(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.RecordGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid grade payload"))
		return
	}
	if req.Score == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "score is required"))
		return
	}
	claims := claimsFromContext(c)
	if !isTeacher(claims) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	if err := h.courses.EnsureTeaches(c.Request.Context(), claims.UserID, courseID); err != nil {
		response.Error(c, err)
		return
	}
	enrollment, err := h.enrollments.RecordGrade(c.Request.Context(), studentID, courseID, *req.Score)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollment)
}

// List godoc
// @Summary Enrollments with student and course names
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param studentId query int false "Filter by student"
// @Param courseId query int false "Filter by course"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	var filter models.EnrollmentFilter
	var err error
	if filter.StudentID, err = queryID(c, "studentId"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.CourseID, err = queryID(c, "courseId"); err != nil {
		response.Error(c, err)
		return
	}
	details, err := h.enrollments.ListDetails(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, details)
}

// authorize admits the student themself or the teacher of the course.
func (h *EnrollmentHandler) authorize(c *gin.Context, studentID, courseID int64) error {
	claims := claimsFromContext(c)
	switch {
	case claims == nil:
		return appErrors.ErrUnauthorized
	case isStudent(claims, studentID):
		return nil
	case isTeacher(claims):
		return h.courses.EnsureTeaches(c.Request.Context(), claims.UserID, courseID)
	}
	return appErrors.Clone(appErrors.ErrForbidden, "students may only manage their own enrollments")
}

func enrollmentKey(c *gin.Context) (int64, int64, error) {
	studentID, err := pathID(c, "studentId")
	if err != nil {
		return 0, 0, err
	}
	courseID, err := pathID(c, "courseId")
	if err != nil {
		return 0, 0, err
	}
	return studentID, courseID, nil
}
