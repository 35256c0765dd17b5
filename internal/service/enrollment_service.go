package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
	"github.com/noah-isme/scrud-api/pkg/live"
)

// EnrollmentService manages course subscriptions and their grades.
type EnrollmentService struct {
	repo      enrollmentStore
	courses   courseReader
	hub       *live.Hub
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentStore, courses courseReader, hub *live.Hub, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, hub: hub, metrics: metrics, validator: validate, logger: logger}
}

// Enroll subscribes a student to a course with no grade. Enrolling again
// replaces the pair and clears any recorded grade.
func (s *EnrollmentService) Enroll(ctx context.Context, req models.EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid enrollment payload")
	}
	enrollment := models.Enrollment{StudentID: req.StudentID, CourseID: req.CourseID, Score: models.Ungraded()}
	if err := s.repo.Put(ctx, enrollment); err != nil {
		return nil, storeError(err, "enrollment not found", "enroll student")
	}
	s.metrics.RecordEnrollment("enroll")
	s.logger.Info("student enrolled", zap.Int64("student_id", req.StudentID), zap.Int64("course_id", req.CourseID))
	return &enrollment, nil
}

// RecordGrade stores a score for the pair, creating the enrollment if needed.
// A score of -1 clears the grade.
func (s *EnrollmentService) RecordGrade(ctx context.Context, studentID, courseID int64, raw float64) (*models.Enrollment, error) {
	score, err := models.ParseScore(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidArgument.Code, appErrors.ErrInvalidArgument.Status, err.Error())
	}
	enrollment := models.Enrollment{StudentID: studentID, CourseID: courseID, Score: score}
	if err := s.repo.Put(ctx, enrollment); err != nil {
		return nil, storeError(err, "enrollment not found", "record grade")
	}
	s.metrics.RecordGrade(score.IsGraded())
	s.logger.Info("grade recorded",
		zap.Int64("student_id", studentID), zap.Int64("course_id", courseID), zap.Stringer("score", score))
	return &enrollment, nil
}

// Unenroll removes the pair. Removing a missing pair is not an error.
func (s *EnrollmentService) Unenroll(ctx context.Context, studentID, courseID int64) error {
	if err := s.repo.Delete(ctx, studentID, courseID); err != nil {
		return storeError(err, "enrollment not found", "unenroll student")
	}
	s.metrics.RecordEnrollment("unenroll")
	return nil
}

// Get returns one enrollment.
func (s *EnrollmentService) Get(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	enrollment, err := s.repo.Find(ctx, studentID, courseID)
	if err != nil {
		return nil, storeError(err, "enrollment not found", "load enrollment")
	}
	return enrollment, nil
}

// ListByStudent returns the student's enrollments ordered by course.
func (s *EnrollmentService) ListByStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error) {
	list, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storeError(err, "student not found", "list enrollments")
	}
	return list, nil
}

// ListByCourse returns the course's enrollments.
func (s *EnrollmentService) ListByCourse(ctx context.Context, courseID int64) ([]models.Enrollment, error) {
	list, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, storeError(err, "course not found", "list enrollments")
	}
	return list, nil
}

// ListDetails returns enrollments joined with student and course names.
func (s *EnrollmentService) ListDetails(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	list, err := s.repo.ListDetails(ctx, filter)
	if err != nil {
		return nil, storeError(err, "enrollment not found", "list enrollment details")
	}
	return list, nil
}

// Roster lists the students of a teacher's courses, optionally narrowed to
// one course the teacher owns.
func (s *EnrollmentService) Roster(ctx context.Context, teacherID, courseID int64) ([]models.EnrollmentDetail, error) {
	if courseID > 0 {
		course, err := s.courses.FindByID(ctx, courseID)
		if err != nil {
			return nil, storeError(err, "course not found", "load course")
		}
		if course.TeacherID == nil || *course.TeacherID != teacherID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "course is not assigned to this teacher")
		}
	}
	return s.ListDetails(ctx, models.EnrollmentFilter{TeacherID: teacherID, CourseID: courseID})
}

// WatchByStudent delivers the student's enrollments now and after every
// committed change touching them.
func (s *EnrollmentService) WatchByStudent(ctx context.Context, studentID int64, deliver live.Deliver[[]models.Enrollment]) *live.View[[]models.Enrollment] {
	return live.Watch(ctx, s.hub, func(ctx context.Context) ([]models.Enrollment, error) {
		return s.ListByStudent(ctx, studentID)
	}, deliver, func(c live.Change) bool {
		return c.StudentID == 0 || c.StudentID == studentID
	}, live.TableSubscribes)
}

// WatchByCourse delivers the course's enrollments now and after every
// committed change touching them.
func (s *EnrollmentService) WatchByCourse(ctx context.Context, courseID int64, deliver live.Deliver[[]models.Enrollment]) *live.View[[]models.Enrollment] {
	return live.Watch(ctx, s.hub, func(ctx context.Context) ([]models.Enrollment, error) {
		return s.ListByCourse(ctx, courseID)
	}, deliver, func(c live.Change) bool {
		return c.CourseID == 0 || c.CourseID == courseID
	}, live.TableSubscribes)
}
