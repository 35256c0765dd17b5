package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/pkg/response"
)

type teacherService interface {
	Get(ctx context.Context, id int64) (*models.Teacher, error)
	List(ctx context.Context) ([]models.Teacher, error)
	Update(ctx context.Context, id int64, req models.UpdateTeacherRequest) (*models.Teacher, error)
	Delete(ctx context.Context, id int64) error
}

type teacherCourses interface {
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.Course, error)
}

type rosterService interface {
	Roster(ctx context.Context, teacherID, courseID int64) ([]models.EnrollmentDetail, error)
}

// TeacherHandler exposes teacher endpoints.
type TeacherHandler struct {
	teachers teacherService
	courses  teacherCourses
	roster   rosterService
}

// NewTeacherHandler constructs TeacherHandler.
func NewTeacherHandler(teachers teacherService, courses teacherCourses, roster rosterService) *TeacherHandler {
	return &TeacherHandler{teachers: teachers, courses: courses, roster: roster}
}

// List godoc
// @Summary List teachers
// @Tags Teachers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	teachers, err := h.teachers.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, teachers)
}

// Get godoc
// @Summary Get teacher detail
// @Tags Teachers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	teacher, err := h.teachers.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, teacher)
}

// Update godoc
// @Summary Update teacher profile
// @Tags Teachers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Teacher ID"
// @Param payload body models.UpdateTeacherRequest true "Teacher payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.UpdateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payload"))
		return
	}
	teacher, err := h.teachers.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, teacher)
}

// Delete godoc
// @Summary Delete teacher
// @Description Removes the teacher; their courses become unassigned
// @Tags Teachers
// @Security BearerAuth
// @Param id path int true "Teacher ID"
// @Success 204
// @Router /teachers/{id} [delete]
func (h *TeacherHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.teachers.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Courses godoc
// @Summary Courses taught by the teacher
// @Tags Teachers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/courses [get]
func (h *TeacherHandler) Courses(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	courses, err := h.courses.ListByTeacher(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, courses)
}

// Roster godoc
// @Summary Students enrolled in the teacher's courses
// @Tags Teachers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Teacher ID"
// @Param courseId query int false "Narrow to one course"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /teachers/{id}/roster [get]
func (h *TeacherHandler) Roster(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	courseID, err := queryID(c, "courseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	roster, err := h.roster.Roster(c.Request.Context(), id, courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, roster)
}
