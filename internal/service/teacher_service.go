package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/pkg/live"
)

// TeacherService manages teacher profiles.
type TeacherService struct {
	repo      teacherStore
	hub       *live.Hub
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherStore, hub *live.Hub, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, hub: hub, validator: validate, logger: logger}
}

// Get returns a teacher by ID.
func (s *TeacherService) Get(ctx context.Context, id int64) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "teacher not found", "load teacher")
	}
	return teacher, nil
}

// List returns teachers sorted by last then first name.
func (s *TeacherService) List(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeError(err, "teacher not found", "list teachers")
	}
	return teachers, nil
}

// Update changes the teacher's names and department.
func (s *TeacherService) Update(ctx context.Context, id int64, req models.UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher payload")
	}
	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher.FirstName = strings.TrimSpace(req.FirstName)
	teacher.LastName = strings.TrimSpace(req.LastName)
	teacher.Department = strings.TrimSpace(req.Department)
	if teacher.FirstName == "" || teacher.LastName == "" {
		return nil, invalidArgument("names must not be blank")
	}
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, storeError(err, "teacher not found", "update teacher")
	}
	return teacher, nil
}

// Delete removes the teacher. Their courses stay in the catalogue unassigned.
func (s *TeacherService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "teacher not found", "delete teacher")
	}
	s.logger.Info("teacher deleted", zap.Int64("teacher_id", id))
	return nil
}

// Watch delivers the teacher list now and after every committed change.
func (s *TeacherService) Watch(ctx context.Context, deliver live.Deliver[[]models.Teacher]) *live.View[[]models.Teacher] {
	return live.Watch(ctx, s.hub, s.List, deliver, nil, live.TableTeachers)
}
