package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/pkg/live"
)

type levelCatalogue interface {
	ListByLevel(ctx context.Context, level models.Level) ([]models.Course, error)
}

// StudentService exposes student records and their course catalogue.
type StudentService struct {
	repo    studentStore
	courses levelCatalogue
	hub     *live.Hub
	logger  *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentStore, courses levelCatalogue, hub *live.Hub, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, courses: courses, hub: hub, logger: logger}
}

// Get returns a student by ID.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "student not found", "load student")
	}
	return student, nil
}

// List returns students sorted by last then first name.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError(err, "student not found", "list students")
	}
	return students, nil
}

// Delete removes the student together with all of their enrollments.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "student not found", "delete student")
	}
	s.logger.Info("student deleted", zap.Int64("student_id", id))
	return nil
}

// AvailableCourses lists the courses offered at the student's level.
func (s *StudentService) AvailableCourses(ctx context.Context, id int64) ([]models.Course, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	courses, err := s.courses.ListByLevel(ctx, student.Level)
	if err != nil {
		return nil, storeError(err, "course not found", "list available courses")
	}
	return courses, nil
}

// Watch delivers the sorted student list now and after every committed change.
func (s *StudentService) Watch(ctx context.Context, deliver live.Deliver[[]models.Student]) *live.View[[]models.Student] {
	return live.Watch(ctx, s.hub, s.List, deliver, nil, live.TableStudents)
}
