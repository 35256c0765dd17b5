package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/pkg/live"
)

const courseColumns = "id, name, ects, level, teacher_id"

// CourseRepository handles course persistence and teacher assignment.
type CourseRepository struct {
	db  *sqlx.DB
	hub *live.Hub
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB, hub *live.Hub) *CourseRepository {
	return &CourseRepository{db: db, hub: hub}
}

// Put inserts a course, assigning an ID when none is set, or replaces an
// existing row. Replacing never changes the assigned teacher; only
// AssignTeacher and ReleaseTeacher do.
func (r *CourseRepository) Put(ctx context.Context, course *models.Course) error {
	var err error
	if course.ID == 0 {
		const insert = `INSERT INTO courses (name, ects, level, teacher_id) VALUES ($1, $2, $3, $4) RETURNING id`
		err = r.db.QueryRowxContext(ctx, insert, course.Name, course.ECTS, course.Level, course.TeacherID).Scan(&course.ID)
	} else {
		const upsert = `INSERT INTO courses (id, name, ects, level, teacher_id) VALUES (:id, :name, :ects, :level, :teacher_id)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, ects = EXCLUDED.ects, level = EXCLUDED.level`
		_, err = r.db.NamedExecContext(ctx, upsert, course)
	}
	if err != nil {
		if mapped := translateWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("put course: %w", err)
	}
	r.hub.Publish(r.courseChange(live.OpPut, course.ID, course.TeacherID))
	return nil
}

// Delete removes a course and its enrollments atomically. Missing ids are a no-op.
func (r *CourseRepository) Delete(ctx context.Context, id int64) error {
	var removedEnrollments, removedCourse int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM subscribes WHERE course_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete course enrollments: %w", err)
		}
		if removedEnrollments, err = affected(res); err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete course: %w", err)
		}
		removedCourse, err = affected(res)
		return err
	})
	if err != nil {
		return err
	}

	var changes []live.Change
	if removedEnrollments > 0 {
		changes = append(changes, live.Change{Table: live.TableSubscribes, Op: live.OpDelete, CourseID: id})
	}
	if removedCourse > 0 {
		changes = append(changes, live.Change{Table: live.TableCourses, Op: live.OpDelete, CourseID: id})
	}
	r.hub.Publish(changes...)
	return nil
}

// AssignTeacher sets the teacher of an unassigned course. The teacher row is
// share-locked so it cannot be deleted underneath the assignment, and the
// conditional update guarantees at most one teacher wins a race.
func (r *CourseRepository) AssignTeacher(ctx context.Context, courseID, teacherID int64) error {
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockRow(ctx, tx, "teachers", teacherID, ErrTeacherMissing); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE courses SET teacher_id = $2 WHERE id = $1 AND teacher_id IS NULL`, courseID, teacherID)
		if err != nil {
			return fmt.Errorf("assign course: %w", err)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}
		if _, err := currentTeacher(ctx, tx, courseID); err != nil {
			return err
		}
		return ErrCourseAssigned
	})
	if err != nil {
		return err
	}
	r.hub.Publish(r.courseChange(live.OpPut, courseID, &teacherID))
	return nil
}

// ReleaseTeacher clears the teacher of a course owned by teacherID.
func (r *CourseRepository) ReleaseTeacher(ctx context.Context, courseID, teacherID int64) error {
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE courses SET teacher_id = NULL WHERE id = $1 AND teacher_id = $2`, courseID, teacherID)
		if err != nil {
			return fmt.Errorf("release course: %w", err)
		}
		n, err := affected(res)
		if err != nil {
			return err
		}
		if n == 1 {
			return nil
		}
		if _, err := currentTeacher(ctx, tx, courseID); err != nil {
			return err
		}
		return ErrNotCourseOwner
	})
	if err != nil {
		return err
	}
	r.hub.Publish(r.courseChange(live.OpPut, courseID, &teacherID))
	return nil
}

func currentTeacher(ctx context.Context, tx *sqlx.Tx, courseID int64) (*int64, error) {
	var teacherID *int64
	if err := tx.GetContext(ctx, &teacherID, `SELECT teacher_id FROM courses WHERE id = $1`, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourseMissing
		}
		return nil, fmt.Errorf("load course %d: %w", courseID, err)
	}
	return teacherID, nil
}

func (r *CourseRepository) courseChange(op live.Op, courseID int64, teacherID *int64) live.Change {
	change := live.Change{Table: live.TableCourses, Op: op, CourseID: courseID}
	if teacherID != nil {
		change.TeacherID = *teacherID
	}
	return change
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (*models.Course, error) {
	var course models.Course
	if err := r.db.GetContext(ctx, &course, "SELECT "+courseColumns+" FROM courses WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns every course ordered by ID.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	return r.selectCourses(ctx, "SELECT "+courseColumns+" FROM courses ORDER BY id")
}

// ListByLevel returns courses offered at level.
func (r *CourseRepository) ListByLevel(ctx context.Context, level models.Level) ([]models.Course, error) {
	return r.selectCourses(ctx, "SELECT "+courseColumns+" FROM courses WHERE level = $1 ORDER BY name, id", level)
}

// ListUnassigned returns courses without a teacher.
func (r *CourseRepository) ListUnassigned(ctx context.Context) ([]models.Course, error) {
	return r.selectCourses(ctx, "SELECT "+courseColumns+" FROM courses WHERE teacher_id IS NULL ORDER BY name, id")
}

// ListByTeacher returns courses owned by teacherID.
func (r *CourseRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.Course, error) {
	return r.selectCourses(ctx, "SELECT "+courseColumns+" FROM courses WHERE teacher_id = $1 ORDER BY name, id", teacherID)
}

func (r *CourseRepository) selectCourses(ctx context.Context, query string, args ...interface{}) ([]models.Course, error) {
	courses := []models.Course{}
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}
