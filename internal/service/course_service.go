package service

import (
	"context"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
	"github.com/noah-isme/scrud-api/pkg/live"
)

// CourseService manages the course catalogue.
type CourseService struct {
	repo      courseStore
	hub       *live.Hub
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseStore, hub *live.Hub, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, hub: hub, validator: validate, logger: logger}
}

// Create declares a new course under a freshly assigned ID. The creating
// teacher becomes its owner when AssignToSelf is set; otherwise the course
// starts unassigned.
func (s *CourseService) Create(ctx context.Context, teacherID int64, req models.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid course payload")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidArgument("course name must not be blank")
	}
	if math.IsNaN(req.ECTS) || math.IsInf(req.ECTS, 0) || req.ECTS <= 0 {
		return nil, invalidArgument("ects must be a positive number")
	}
	level, err := parseLevel(req.Level)
	if err != nil {
		return nil, err
	}

	course := &models.Course{Name: name, ECTS: req.ECTS, Level: level}
	if req.AssignToSelf {
		owner := teacherID
		course.TeacherID = &owner
	}
	if err := s.repo.Put(ctx, course); err != nil {
		return nil, storeError(err, "course not found", "create course")
	}
	s.logger.Info("course created", zap.Int64("course_id", course.ID), zap.String("level", string(level)))
	return course, nil
}

// Get returns a course by ID.
func (s *CourseService) Get(ctx context.Context, id int64) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "course not found", "load course")
	}
	return course, nil
}

// List returns every course.
func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError(err, "course not found", "list courses")
	}
	return courses, nil
}

// ListByLevel returns courses offered at level.
func (s *CourseService) ListByLevel(ctx context.Context, level models.Level) ([]models.Course, error) {
	level, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	courses, err := s.repo.ListByLevel(ctx, level)
	if err != nil {
		return nil, storeError(err, "course not found", "list courses")
	}
	return courses, nil
}

// ListUnassigned returns courses no teacher has taken yet.
func (s *CourseService) ListUnassigned(ctx context.Context) ([]models.Course, error) {
	courses, err := s.repo.ListUnassigned(ctx)
	if err != nil {
		return nil, storeError(err, "course not found", "list unassigned courses")
	}
	return courses, nil
}

// ListByTeacher returns the teacher's courses sorted by name.
func (s *CourseService) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Course, error) {
	courses, err := s.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, storeError(err, "teacher not found", "list teacher courses")
	}
	return courses, nil
}

// Delete removes the course and every enrollment in it.
func (s *CourseService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "course not found", "delete course")
	}
	s.logger.Info("course deleted", zap.Int64("course_id", id))
	return nil
}

// EnsureTeaches fails with Forbidden unless teacherID owns the course.
func (s *CourseService) EnsureTeaches(ctx context.Context, teacherID, courseID int64) error {
	course, err := s.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if course.TeacherID == nil || *course.TeacherID != teacherID {
		return appErrors.Clone(appErrors.ErrForbidden, "course is not assigned to this teacher")
	}
	return nil
}

// Watch delivers the catalogue now and after every committed course change.
func (s *CourseService) Watch(ctx context.Context, deliver live.Deliver[[]models.Course]) *live.View[[]models.Course] {
	return live.Watch(ctx, s.hub, s.List, deliver, nil, live.TableCourses)
}
