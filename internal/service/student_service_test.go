package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
)

func TestStudentServiceAvailableCourses(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addStudent(1, "Ada", models.LevelB1)
	f.addCourse(10, "Algebra", 3, models.LevelB1)
	f.addCourse(11, "Thesis", 30, models.LevelMS)

	courses, err := f.students.AvailableCourses(ctx, 1)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Algebra", courses[0].Name)

	_, err = f.students.AvailableCourses(ctx, 2)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestStudentServiceWatchIsSorted(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan []models.Student, 4)
	view := f.students.Watch(ctx, func(list []models.Student, err error) {
		assert.NoError(t, err)
		results <- list
	})
	defer view.Close()
	assert.Empty(t, nextResult(t, results))

	store := f.db.Students()
	require.NoError(t, store.Put(ctx, &models.Student{ID: 2, FirstName: "Zoe", LastName: "Adams", Level: models.LevelB1, Email: "zoe@school.test"}))
	first := nextResult(t, results)
	require.Len(t, first, 1)

	require.NoError(t, store.Put(ctx, &models.Student{ID: 1, FirstName: "Ada", LastName: "Byron", Level: models.LevelB1, Email: "ada@school.test"}))
	second := nextResult(t, results)
	require.Len(t, second, 2)
	assert.Equal(t, "Adams", second[0].LastName)
	assert.Equal(t, "Byron", second[1].LastName)

	cancel()
	<-view.Done()
}

func TestTeacherServiceUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.addTeacher(5, "Grace")

	teacher, err := f.teachers.Update(ctx, 5, models.UpdateTeacherRequest{FirstName: "Grace", LastName: "Hopper", Department: " Computing "})
	require.NoError(t, err)
	assert.Equal(t, "Computing", teacher.Department)

	_, err = f.teachers.Update(ctx, 6, models.UpdateTeacherRequest{FirstName: "A", LastName: "B"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.teachers.Update(ctx, 5, models.UpdateTeacherRequest{FirstName: "Grace"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
