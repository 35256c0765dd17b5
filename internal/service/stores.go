package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/internal/repository"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
)

type studentStore interface {
	Put(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	List(ctx context.Context) ([]models.Student, error)
}

type teacherStore interface {
	Put(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*models.Teacher, error)
	FindByEmail(ctx context.Context, email string) (*models.Teacher, error)
	List(ctx context.Context) ([]models.Teacher, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

type courseStore interface {
	courseReader
	Put(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]models.Course, error)
	ListByLevel(ctx context.Context, level models.Level) ([]models.Course, error)
	ListUnassigned(ctx context.Context) ([]models.Course, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.Course, error)
}

type courseAssigner interface {
	courseReader
	AssignTeacher(ctx context.Context, courseID, teacherID int64) error
	ReleaseTeacher(ctx context.Context, courseID, teacherID int64) error
}

type enrollmentStore interface {
	Put(ctx context.Context, enrollment models.Enrollment) error
	Delete(ctx context.Context, studentID, courseID int64) error
	Find(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Enrollment, error)
	ListDetails(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error)
}

type gradeSource interface {
	GradeCourses(ctx context.Context, studentID int64) ([]models.GradeCourse, error)
}

// storeError translates repository failures into API errors. notFound is the
// message used when the requested record does not exist.
func storeError(err error, notFound, action string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, repository.ErrStudentMissing):
		return appErrors.Wrap(err, appErrors.ErrConstraintViolation.Code, appErrors.ErrConstraintViolation.Status, "student does not exist")
	case errors.Is(err, repository.ErrCourseMissing):
		return appErrors.Wrap(err, appErrors.ErrConstraintViolation.Code, appErrors.ErrConstraintViolation.Status, "course does not exist")
	case errors.Is(err, repository.ErrTeacherMissing):
		return appErrors.Wrap(err, appErrors.ErrConstraintViolation.Code, appErrors.ErrConstraintViolation.Status, "teacher does not exist")
	case errors.Is(err, repository.ErrCourseAssigned):
		return appErrors.Wrap(err, appErrors.ErrAlreadyAssigned.Code, appErrors.ErrAlreadyAssigned.Status, "course already assigned to a teacher")
	case errors.Is(err, repository.ErrNotCourseOwner):
		return appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "course is not assigned to this teacher")
	case errors.Is(err, repository.ErrDuplicateEmail):
		return appErrors.Wrap(err, appErrors.ErrDuplicateEmail.Code, appErrors.ErrDuplicateEmail.Status, appErrors.ErrDuplicateEmail.Message)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+action)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func invalidArgument(message string) error {
	return appErrors.Clone(appErrors.ErrInvalidArgument, message)
}

func parseLevel(raw models.Level) (models.Level, error) {
	level, ok := models.ParseLevel(string(raw))
	if !ok {
		return "", invalidArgument("unknown level " + string(raw))
	}
	return level, nil
}
