package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
)

func TestComputeWeightedAverage(t *testing.T) {
	rows := []models.GradeCourse{
		{CourseID: 1, CourseName: "Algebra", ECTS: 3, Level: models.LevelB1, Score: models.Graded(12)},
		{CourseID: 2, CourseName: "Physics", ECTS: 5, Level: models.LevelB1, Score: models.Graded(16)},
		{CourseID: 3, CourseName: "Ethics", ECTS: 2, Level: models.LevelB1, Score: models.Ungraded()},
		{CourseID: 4, CourseName: "Thesis", ECTS: 30, Level: models.LevelMS, Score: models.Graded(4)},
	}

	average, total, details := ComputeWeightedAverage(rows, models.LevelB1)
	require.NotNil(t, average)
	assert.InDelta(t, 14.75, *average, 1e-9)
	assert.Equal(t, 8.0, total)
	require.Len(t, details, 2)
	assert.Equal(t, "Algebra", details[0].CourseName)
	assert.Equal(t, 36.0, details[0].WeightedScore)
	assert.Equal(t, "Physics", details[1].CourseName)
	assert.Equal(t, 80.0, details[1].WeightedScore)
}

func TestComputeWeightedAverageAbsent(t *testing.T) {
	average, total, details := ComputeWeightedAverage(nil, models.LevelB1)
	assert.Nil(t, average)
	assert.Zero(t, total)
	assert.Empty(t, details)

	ungraded := []models.GradeCourse{{CourseID: 1, ECTS: 3, Level: models.LevelB1}}
	average, _, details = ComputeWeightedAverage(ungraded, models.LevelB1)
	assert.Nil(t, average)
	assert.Empty(t, details)

	zero := []models.GradeCourse{{CourseID: 1, ECTS: 3, Level: models.LevelB1, Score: models.Graded(0)}}
	average, _, _ = ComputeWeightedAverage(zero, models.LevelB1)
	require.NotNil(t, average)
	assert.Zero(t, *average)
}

func TestGradeServiceWeightedAverage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addStudent(1, "Ada", models.LevelB1)
	f.addCourse(10, "Algebra", 3, models.LevelB1)
	f.addCourse(11, "Physics", 5, models.LevelB1)

	_, err := f.enrollments.RecordGrade(ctx, 1, 10, 12)
	require.NoError(t, err)
	_, err = f.enrollments.RecordGrade(ctx, 1, 11, 16)
	require.NoError(t, err)

	result, err := f.grades.WeightedAverage(ctx, 1, "b1")
	require.NoError(t, err)
	require.NotNil(t, result.Average)
	assert.InDelta(t, 14.75, *result.Average, 1e-9)
	assert.Equal(t, models.LevelB1, result.Level)
	assert.Equal(t, "Bachelor 1", result.LevelName)

	_, err = f.grades.WeightedAverage(ctx, 1, "Z9")
	assert.ErrorIs(t, err, appErrors.ErrInvalidArgument)
}

func TestGradeServiceClearedGradeIsExcluded(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addStudent(1, "Ada", models.LevelB1)
	f.addCourse(10, "Algebra", 3, models.LevelB1)

	_, err := f.enrollments.RecordGrade(ctx, 1, 10, 12)
	require.NoError(t, err)
	_, err = f.enrollments.RecordGrade(ctx, 1, 10, -1)
	require.NoError(t, err)

	result, err := f.grades.WeightedAverage(ctx, 1, models.LevelB1)
	require.NoError(t, err)
	assert.Nil(t, result.Average)
	assert.Empty(t, result.Details)
}

func TestGradeServiceCacheInvalidatedOnCommittedChanges(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addStudent(1, "Ada", models.LevelB1)
	f.addStudent(2, "Bob", models.LevelB1)
	f.addCourse(10, "Algebra", 3, models.LevelB1)
	_, err := f.enrollments.RecordGrade(ctx, 1, 10, 12)
	require.NoError(t, err)
	_, err = f.enrollments.RecordGrade(ctx, 2, 10, 8)
	require.NoError(t, err)

	_, err = f.grades.WeightedAverage(ctx, 1, models.LevelB1)
	require.NoError(t, err)
	_, err = f.grades.WeightedAverage(ctx, 2, models.LevelB1)
	require.NoError(t, err)
	assert.Equal(t, []string{"grades:student:1:B1", "grades:student:2:B1"}, f.cache.keys())

	_, err = f.enrollments.RecordGrade(ctx, 1, 10, 18)
	require.NoError(t, err)
	assert.Equal(t, []string{"grades:student:2:B1"}, f.cache.keys())

	result, err := f.grades.WeightedAverage(ctx, 1, models.LevelB1)
	require.NoError(t, err)
	assert.InDelta(t, 18, *result.Average, 1e-9)

	require.NoError(t, f.courses.Delete(ctx, 10))
	assert.Empty(t, f.cache.keys())

	result, err = f.grades.WeightedAverage(ctx, 2, models.LevelB1)
	require.NoError(t, err)
	assert.Nil(t, result.Average)
}

// commitAfterRead runs commit once, after the rows of the first read are taken.
type commitAfterRead struct {
	gradeSource
	once   sync.Once
	commit func()
}

func (s *commitAfterRead) GradeCourses(ctx context.Context, studentID int64) ([]models.GradeCourse, error) {
	rows, err := s.gradeSource.GradeCourses(ctx, studentID)
	s.once.Do(s.commit)
	return rows, err
}

func TestGradeServiceSkipsFillInvalidatedDuringRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addStudent(1, "Ada", models.LevelB1)
	f.addCourse(10, "Algebra", 3, models.LevelB1)
	_, err := f.enrollments.RecordGrade(ctx, 1, 10, 12)
	require.NoError(t, err)

	source := &commitAfterRead{gradeSource: f.db.Enrollments()}
	source.commit = func() {
		_, err := f.enrollments.RecordGrade(ctx, 1, 10, 18)
		require.NoError(t, err)
	}
	grades := NewGradeService(source, NewCacheService(f.cache, nil, time.Minute, nil, true), time.Minute, f.hub, nil)
	defer grades.Close()

	first, err := grades.WeightedAverage(ctx, 1, models.LevelB1)
	require.NoError(t, err)
	assert.InDelta(t, 12, *first.Average, 1e-9)
	assert.Empty(t, f.cache.keys())

	second, err := grades.WeightedAverage(ctx, 1, models.LevelB1)
	require.NoError(t, err)
	assert.InDelta(t, 18, *second.Average, 1e-9)
	assert.Equal(t, []string{"grades:student:1:B1"}, f.cache.keys())
}

func TestGradeServiceCourseChangeDuringReadSkipsFill(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addStudent(1, "Ada", models.LevelB1)
	f.addCourse(10, "Algebra", 3, models.LevelB1)
	_, err := f.enrollments.RecordGrade(ctx, 1, 10, 12)
	require.NoError(t, err)

	source := &commitAfterRead{gradeSource: f.db.Enrollments()}
	source.commit = func() {
		require.NoError(t, f.courses.Delete(ctx, 10))
	}
	grades := NewGradeService(source, NewCacheService(f.cache, nil, time.Minute, nil, true), time.Minute, f.hub, nil)
	defer grades.Close()

	_, err = grades.WeightedAverage(ctx, 1, models.LevelB1)
	require.NoError(t, err)
	assert.Empty(t, f.cache.keys())

	result, err := grades.WeightedAverage(ctx, 1, models.LevelB1)
	require.NoError(t, err)
	assert.Nil(t, result.Average)
}

func TestGradeServiceServesCachedResult(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addStudent(1, "Ada", models.LevelB1)
	f.addCourse(10, "Algebra", 3, models.LevelB1)
	_, err := f.enrollments.RecordGrade(ctx, 1, 10, 12)
	require.NoError(t, err)

	_, err = f.grades.WeightedAverage(ctx, 1, models.LevelB1)
	require.NoError(t, err)

	f.db.mu.Lock()
	f.db.enrollments[pairKey{1, 10}] = models.Graded(2)
	f.db.mu.Unlock()

	result, err := f.grades.WeightedAverage(ctx, 1, models.LevelB1)
	require.NoError(t, err)
	assert.InDelta(t, 12, *result.Average, 1e-9)
	assert.Equal(t, 1, f.cache.sets)

	f.grades.Close()
	_, err = f.enrollments.RecordGrade(ctx, 1, 10, 20)
	require.NoError(t, err)
	assert.Len(t, f.cache.keys(), 1)
}

func TestGradeServiceSummary(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addStudent(1, "Ada", models.LevelB1)
	f.addCourse(10, "Algebra", 3, models.LevelB1)
	f.addCourse(11, "Physics", 5, models.LevelB2)
	f.addCourse(12, "Ethics", 2, models.LevelB1)

	_, err := f.enrollments.RecordGrade(ctx, 1, 10, 8)
	require.NoError(t, err)
	_, err = f.enrollments.RecordGrade(ctx, 1, 11, 14)
	require.NoError(t, err)
	_, err = f.enrollments.Enroll(ctx, models.EnrollRequest{StudentID: 1, CourseID: 12})
	require.NoError(t, err)

	summary, err := f.grades.Summary(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.EnrolledCount)
	assert.Equal(t, 2, summary.GradedCount)
	assert.Equal(t, 1, summary.PassedCount)
	require.NotNil(t, summary.Mean)
	assert.InDelta(t, 11, *summary.Mean, 1e-9)

	empty, err := f.grades.Summary(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, empty.Mean)
}
