package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/pkg/live"
)

// EnrollmentRepository persists (student, course) subscriptions.
type EnrollmentRepository struct {
	db  *sqlx.DB
	hub *live.Hub
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB, hub *live.Hub) *EnrollmentRepository {
	return &EnrollmentRepository{db: db, hub: hub}
}

// Put upserts the enrollment keyed by (student, course), replacing its score.
// Both parents are share-locked first, so a concurrent delete of either one
// either waits for this write or makes it fail with ErrStudentMissing / ErrCourseMissing.
func (r *EnrollmentRepository) Put(ctx context.Context, enrollment models.Enrollment) error {
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "students", enrollment.StudentID, ErrStudentMissing); err != nil {
			return err
		}
		if err := lockRow(ctx, tx, "courses", enrollment.CourseID, ErrCourseMissing); err != nil {
			return err
		}
		const query = `INSERT INTO subscribes (student_id, course_id, score) VALUES ($1, $2, $3)
        ON CONFLICT (student_id, course_id) DO UPDATE SET score = EXCLUDED.score`
		if _, err := tx.ExecContext(ctx, query, enrollment.StudentID, enrollment.CourseID, enrollment.Score); err != nil {
			if mapped := translateWriteError(err); mapped != err {
				return mapped
			}
			return fmt.Errorf("put enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.hub.Publish(live.Change{Table: live.TableSubscribes, Op: live.OpPut, StudentID: enrollment.StudentID, CourseID: enrollment.CourseID})
	return nil
}

// Delete removes the enrollment for the pair. Missing pairs are a no-op.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, courseID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscribes WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n > 0 {
		r.hub.Publish(live.Change{Table: live.TableSubscribes, Op: live.OpDelete, StudentID: studentID, CourseID: courseID})
	}
	return nil
}

// Find returns the enrollment for the pair or sql.ErrNoRows.
func (r *EnrollmentRepository) Find(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	const query = `SELECT student_id, course_id, score FROM subscribes WHERE student_id = $1 AND course_id = $2`
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// List returns every enrollment in key order.
func (r *EnrollmentRepository) List(ctx context.Context) ([]models.Enrollment, error) {
	return r.selectEnrollments(ctx, `SELECT student_id, course_id, score FROM subscribes ORDER BY student_id, course_id`)
}

// ListByStudent returns the student's enrollments ordered by course.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.Enrollment, error) {
	return r.selectEnrollments(ctx, `SELECT student_id, course_id, score FROM subscribes WHERE student_id = $1 ORDER BY course_id`, studentID)
}

// ListByCourse returns the course's enrollments ordered by student.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Enrollment, error) {
	return r.selectEnrollments(ctx, `SELECT student_id, course_id, score FROM subscribes WHERE course_id = $1 ORDER BY student_id`, courseID)
}

func (r *EnrollmentRepository) selectEnrollments(ctx context.Context, query string, args ...interface{}) ([]models.Enrollment, error) {
	enrollments := []models.Enrollment{}
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// ListDetails returns enrollments joined with student and course names.
func (r *EnrollmentRepository) ListDetails(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	query := `SELECT sb.student_id, sb.course_id, sb.score,
        s.first_name AS student_first_name, s.last_name AS student_last_name,
        c.name AS course_name, c.level AS course_level, c.ects AS course_ects
        FROM subscribes sb
        JOIN students s ON s.id = sb.student_id
        JOIN courses c ON c.id = sb.course_id`
	var (
		conditions []string
		args       []interface{}
	)
	if filter.StudentID != 0 {
		args = append(args, filter.StudentID)
		conditions = append(conditions, fmt.Sprintf("sb.student_id = $%d", len(args)))
	}
	if filter.CourseID != 0 {
		args = append(args, filter.CourseID)
		conditions = append(conditions, fmt.Sprintf("sb.course_id = $%d", len(args)))
	}
	if filter.TeacherID != 0 {
		args = append(args, filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY c.name, s.last_name, s.first_name, sb.student_id"

	details := []models.EnrollmentDetail{}
	if err := r.db.SelectContext(ctx, &details, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollment details: %w", err)
	}
	return details, nil
}

// GradeCourses returns the student's enrollments joined with course weight and
// level, in course key order, from a single consistent read.
func (r *EnrollmentRepository) GradeCourses(ctx context.Context, studentID int64) ([]models.GradeCourse, error) {
	const query = `SELECT sb.course_id, c.name AS course_name, c.ects, c.level, sb.score
        FROM subscribes sb
        JOIN courses c ON c.id = sb.course_id
        WHERE sb.student_id = $1
        ORDER BY sb.course_id`
	rows := []models.GradeCourse{}
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("load grade courses: %w", err)
	}
	return rows, nil
}
