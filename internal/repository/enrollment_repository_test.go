package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/pkg/live"
)

const (
	lockStudentSQL = "SELECT id FROM students WHERE id = $1 FOR SHARE"
	lockCourseSQL  = "SELECT id FROM courses WHERE id = $1 FOR SHARE"
	upsertSQL      = "INSERT INTO subscribes (student_id, course_id, score) VALUES ($1, $2, $3)"
)

func TestEnrollmentRepositoryPutLocksParents(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	hub := live.NewHub(nil)
	changes := recordChanges(hub)
	repo := NewEnrollmentRepository(db, hub)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockStudentSQL)).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseSQL)).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(upsertSQL)).WithArgs(int64(1), int64(2), 15.5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Put(context.Background(), models.Enrollment{StudentID: 1, CourseID: 2, Score: models.Graded(15.5)})
	require.NoError(t, err)
	require.Len(t, *changes, 1)
	assert.Equal(t, live.Change{Table: live.TableSubscribes, Op: live.OpPut, StudentID: 1, CourseID: 2}, withoutTime((*changes)[0]))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryPutStoresUngradedAsNull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockStudentSQL)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(lockCourseSQL)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(regexp.QuoteMeta(upsertSQL)).WithArgs(int64(1), int64(2), nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Put(context.Background(), models.Enrollment{StudentID: 1, CourseID: 2}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryPutMissingParent(t *testing.T) {
	t.Run("student", func(t *testing.T) {
		db, mock, cleanup := newRepoMock(t)
		defer cleanup()
		hub := live.NewHub(nil)
		changes := recordChanges(hub)
		repo := NewEnrollmentRepository(db, hub)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockStudentSQL)).WithArgs(int64(1)).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.Put(context.Background(), models.Enrollment{StudentID: 1, CourseID: 2})
		assert.ErrorIs(t, err, ErrStudentMissing)
		assert.Empty(t, *changes)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("course", func(t *testing.T) {
		db, mock, cleanup := newRepoMock(t)
		defer cleanup()
		repo := NewEnrollmentRepository(db, nil)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockStudentSQL)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta(lockCourseSQL)).WithArgs(int64(2)).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.Put(context.Background(), models.Enrollment{StudentID: 1, CourseID: 2})
		assert.ErrorIs(t, err, ErrCourseMissing)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign key raised by postgres", func(t *testing.T) {
		db, mock, cleanup := newRepoMock(t)
		defer cleanup()
		repo := NewEnrollmentRepository(db, nil)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockStudentSQL)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta(lockCourseSQL)).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectExec(regexp.QuoteMeta(upsertSQL)).
			WillReturnError(&pq.Error{Code: "23503", Constraint: "subscribes_student_id_fkey"})
		mock.ExpectRollback()

		err := repo.Put(context.Background(), models.Enrollment{StudentID: 1, CourseID: 2})
		assert.ErrorIs(t, err, ErrStudentMissing)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEnrollmentRepositoryDeleteMissingIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	hub := live.NewHub(nil)
	changes := recordChanges(hub)
	repo := NewEnrollmentRepository(db, hub)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subscribes WHERE student_id = $1 AND course_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 1, 2))
	assert.Empty(t, *changes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByStudentScansScores(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("FROM subscribes WHERE student_id = $1 ORDER BY course_id")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "course_id", "score"}).
			AddRow(1, 2, nil).
			AddRow(1, 3, 12.0))

	enrollments, err := repo.ListByStudent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	assert.False(t, enrollments[0].Score.IsGraded())
	assert.Equal(t, models.Graded(12), enrollments[1].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryGradeCourses(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("JOIN courses c ON c.id = sb.course_id")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "course_name", "ects", "level", "score"}).
			AddRow(1, "Algebra", 3.0, "B1", 12.0).
			AddRow(2, "Physics", 5.0, "B1", nil))

	rows, err := repo.GradeCourses(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Algebra", rows[0].CourseName)
	assert.Equal(t, models.LevelB1, rows[0].Level)
	assert.False(t, rows[1].Score.IsGraded())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListDetailsFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db, nil)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sb.course_id = $1 AND c.teacher_id = $2 ORDER BY c.name")).
		WithArgs(int64(2), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "course_id", "score", "student_first_name", "student_last_name", "course_name", "course_level", "course_ects"}).
			AddRow(1, 2, 14.0, "Jane", "Doe", "Physics", "B1", 5.0))

	details, err := repo.ListDetails(context.Background(), models.EnrollmentFilter{CourseID: 2, TeacherID: 9})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Jane", details[0].StudentFirstName)
	assert.Equal(t, int64(2), details[0].CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
