package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/internal/repository"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
)

// CourseAssignmentService hands unassigned courses to teachers. A course has
// at most one teacher; the first successful assignment wins.
type CourseAssignmentService struct {
	repo    courseAssigner
	metrics *MetricsService
	logger  *zap.Logger
}

// NewCourseAssignmentService constructs a CourseAssignmentService.
func NewCourseAssignmentService(repo courseAssigner, metrics *MetricsService, logger *zap.Logger) *CourseAssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseAssignmentService{repo: repo, metrics: metrics, logger: logger}
}

// Assign gives an unassigned course to teacherID.
func (s *CourseAssignmentService) Assign(ctx context.Context, courseID, teacherID int64) (*models.Course, error) {
	if err := s.repo.AssignTeacher(ctx, courseID, teacherID); err != nil {
		s.metrics.RecordAssignment("rejected")
		return nil, assignmentError(err)
	}
	s.metrics.RecordAssignment("assigned")
	s.logger.Info("course assigned", zap.Int64("course_id", courseID), zap.Int64("teacher_id", teacherID))
	return s.reload(ctx, courseID)
}

// Release returns a course owned by teacherID to the unassigned pool.
func (s *CourseAssignmentService) Release(ctx context.Context, courseID, teacherID int64) (*models.Course, error) {
	if err := s.repo.ReleaseTeacher(ctx, courseID, teacherID); err != nil {
		return nil, assignmentError(err)
	}
	s.metrics.RecordAssignment("released")
	s.logger.Info("course released", zap.Int64("course_id", courseID), zap.Int64("teacher_id", teacherID))
	return s.reload(ctx, courseID)
}

func (s *CourseAssignmentService) reload(ctx context.Context, courseID int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, courseID)
	if err != nil {
		return nil, storeError(err, "course not found", "load course")
	}
	return course, nil
}

// assignmentError reports missing courses and teachers as NotFound.
func assignmentError(err error) error {
	switch {
	case errors.Is(err, repository.ErrCourseMissing):
		return appErrors.Clone(appErrors.ErrNotFound, "course not found")
	case errors.Is(err, repository.ErrTeacherMissing):
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return storeError(err, "course not found", "assign course")
}
