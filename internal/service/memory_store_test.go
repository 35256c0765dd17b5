package service

import (
	"context"
	"database/sql"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/internal/repository"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
	"github.com/noah-isme/scrud-api/pkg/live"
)

type pairKey struct{ studentID, courseID int64 }

// memoryDB mirrors the repository semantics (integrity checks, cascades and
// change publication) without PostgreSQL.
type memoryDB struct {
	mu          sync.Mutex
	hub         *live.Hub
	students    map[int64]models.Student
	teachers    map[int64]models.Teacher
	courses     map[int64]models.Course
	enrollments map[pairKey]models.Score
	nextTeacher int64
	nextCourse  int64
}

func newMemoryDB(hub *live.Hub) *memoryDB {
	return &memoryDB{
		hub:         hub,
		students:    map[int64]models.Student{},
		teachers:    map[int64]models.Teacher{},
		courses:     map[int64]models.Course{},
		enrollments: map[pairKey]models.Score{},
	}
}

func (db *memoryDB) Students() *memStudents       { return &memStudents{db} }
func (db *memoryDB) Teachers() *memTeachers       { return &memTeachers{db} }
func (db *memoryDB) Courses() *memCourses         { return &memCourses{db} }
func (db *memoryDB) Enrollments() *memEnrollments { return &memEnrollments{db} }

func (db *memoryDB) publish(changes ...live.Change) {
	db.hub.Publish(changes...)
}

func (db *memoryDB) dropEnrollments(match func(pairKey) bool) bool {
	removed := false
	for key := range db.enrollments {
		if match(key) {
			delete(db.enrollments, key)
			removed = true
		}
	}
	return removed
}

type memStudents struct{ *memoryDB }

func (r *memStudents) Put(_ context.Context, student *models.Student) error {
	r.mu.Lock()
	for id, existing := range r.students {
		if id != student.ID && strings.EqualFold(existing.Email, student.Email) {
			r.mu.Unlock()
			return repository.ErrDuplicateEmail
		}
	}
	stored := *student
	if existing, ok := r.students[student.ID]; ok {
		stored.Level = existing.Level
	}
	r.students[student.ID] = stored
	r.mu.Unlock()
	r.publish(live.Change{Table: live.TableStudents, Op: live.OpPut, StudentID: student.ID})
	return nil
}

func (r *memStudents) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	removedEnrollments := r.dropEnrollments(func(k pairKey) bool { return k.studentID == id })
	_, existed := r.students[id]
	delete(r.students, id)
	r.mu.Unlock()
	if removedEnrollments {
		r.publish(live.Change{Table: live.TableSubscribes, Op: live.OpDelete, StudentID: id})
	}
	if existed {
		r.publish(live.Change{Table: live.TableStudents, Op: live.OpDelete, StudentID: id})
	}
	return nil
}

func (r *memStudents) FindByID(_ context.Context, id int64) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (r *memStudents) FindByEmail(_ context.Context, email string) (*models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.students {
		if strings.EqualFold(s.Email, email) {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memStudents) List(_ context.Context) ([]models.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]models.Student, 0, len(r.students))
	for _, s := range r.students {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].LastName != list[j].LastName {
			return list[i].LastName < list[j].LastName
		}
		if list[i].FirstName != list[j].FirstName {
			return list[i].FirstName < list[j].FirstName
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

type memTeachers struct{ *memoryDB }

func (r *memTeachers) Put(_ context.Context, teacher *models.Teacher) error {
	r.mu.Lock()
	for id, existing := range r.teachers {
		if id != teacher.ID && strings.EqualFold(existing.Email, teacher.Email) {
			r.mu.Unlock()
			return repository.ErrDuplicateEmail
		}
	}
	if teacher.ID == 0 {
		r.nextTeacher++
		teacher.ID = r.nextTeacher
	}
	r.teachers[teacher.ID] = *teacher
	r.mu.Unlock()
	r.publish(live.Change{Table: live.TableTeachers, Op: live.OpPut, TeacherID: teacher.ID})
	return nil
}

func (r *memTeachers) Update(_ context.Context, teacher *models.Teacher) error {
	r.mu.Lock()
	existing, ok := r.teachers[teacher.ID]
	if !ok {
		r.mu.Unlock()
		return sql.ErrNoRows
	}
	existing.FirstName, existing.LastName, existing.Department = teacher.FirstName, teacher.LastName, teacher.Department
	r.teachers[teacher.ID] = existing
	r.mu.Unlock()
	r.publish(live.Change{Table: live.TableTeachers, Op: live.OpPut, TeacherID: teacher.ID})
	return nil
}

func (r *memTeachers) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	detached := false
	for cid, c := range r.courses {
		if c.TeacherID != nil && *c.TeacherID == id {
			c.TeacherID = nil
			r.courses[cid] = c
			detached = true
		}
	}
	_, existed := r.teachers[id]
	delete(r.teachers, id)
	r.mu.Unlock()
	if detached {
		r.publish(live.Change{Table: live.TableCourses, Op: live.OpPut, TeacherID: id})
	}
	if existed {
		r.publish(live.Change{Table: live.TableTeachers, Op: live.OpDelete, TeacherID: id})
	}
	return nil
}

func (r *memTeachers) FindByID(_ context.Context, id int64) (*models.Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teachers[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (r *memTeachers) FindByEmail(_ context.Context, email string) (*models.Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.teachers {
		if strings.EqualFold(t.Email, email) {
			found := t
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memTeachers) List(_ context.Context) ([]models.Teacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]models.Teacher, 0, len(r.teachers))
	for _, t := range r.teachers {
		list = append(list, t)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].LastName != list[j].LastName {
			return list[i].LastName < list[j].LastName
		}
		if list[i].FirstName != list[j].FirstName {
			return list[i].FirstName < list[j].FirstName
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

type memCourses struct{ *memoryDB }

func (r *memCourses) Put(_ context.Context, course *models.Course) error {
	r.mu.Lock()
	if course.TeacherID != nil {
		if _, ok := r.teachers[*course.TeacherID]; !ok {
			r.mu.Unlock()
			return repository.ErrTeacherMissing
		}
	}
	if course.ID == 0 {
		r.nextCourse++
		course.ID = r.nextCourse
	}
	stored := *course
	if existing, ok := r.courses[course.ID]; ok {
		stored.TeacherID = existing.TeacherID
	}
	r.courses[course.ID] = stored
	r.mu.Unlock()
	r.publish(live.Change{Table: live.TableCourses, Op: live.OpPut, CourseID: course.ID})
	return nil
}

func (r *memCourses) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	removedEnrollments := r.dropEnrollments(func(k pairKey) bool { return k.courseID == id })
	_, existed := r.courses[id]
	delete(r.courses, id)
	r.mu.Unlock()
	if removedEnrollments {
		r.publish(live.Change{Table: live.TableSubscribes, Op: live.OpDelete, CourseID: id})
	}
	if existed {
		r.publish(live.Change{Table: live.TableCourses, Op: live.OpDelete, CourseID: id})
	}
	return nil
}

func (r *memCourses) AssignTeacher(_ context.Context, courseID, teacherID int64) error {
	r.mu.Lock()
	if _, ok := r.teachers[teacherID]; !ok {
		r.mu.Unlock()
		return repository.ErrTeacherMissing
	}
	course, ok := r.courses[courseID]
	switch {
	case !ok:
		r.mu.Unlock()
		return repository.ErrCourseMissing
	case course.TeacherID != nil:
		r.mu.Unlock()
		return repository.ErrCourseAssigned
	}
	owner := teacherID
	course.TeacherID = &owner
	r.courses[courseID] = course
	r.mu.Unlock()
	r.publish(live.Change{Table: live.TableCourses, Op: live.OpPut, CourseID: courseID, TeacherID: teacherID})
	return nil
}

func (r *memCourses) ReleaseTeacher(_ context.Context, courseID, teacherID int64) error {
	r.mu.Lock()
	course, ok := r.courses[courseID]
	switch {
	case !ok:
		r.mu.Unlock()
		return repository.ErrCourseMissing
	case course.TeacherID == nil || *course.TeacherID != teacherID:
		r.mu.Unlock()
		return repository.ErrNotCourseOwner
	}
	course.TeacherID = nil
	r.courses[courseID] = course
	r.mu.Unlock()
	r.publish(live.Change{Table: live.TableCourses, Op: live.OpPut, CourseID: courseID, TeacherID: teacherID})
	return nil
}

func (r *memCourses) FindByID(_ context.Context, id int64) (*models.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r *memCourses) selectCourses(match func(models.Course) bool) []models.Course {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]models.Course, 0, len(r.courses))
	for _, c := range r.courses {
		if match(c) {
			list = append(list, c)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (r *memCourses) List(_ context.Context) ([]models.Course, error) {
	return r.selectCourses(func(models.Course) bool { return true }), nil
}

func (r *memCourses) ListByLevel(_ context.Context, level models.Level) ([]models.Course, error) {
	return r.selectCourses(func(c models.Course) bool { return c.Level == level }), nil
}

func (r *memCourses) ListUnassigned(_ context.Context) ([]models.Course, error) {
	return r.selectCourses(func(c models.Course) bool { return c.TeacherID == nil }), nil
}

func (r *memCourses) ListByTeacher(_ context.Context, teacherID int64) ([]models.Course, error) {
	return r.selectCourses(func(c models.Course) bool { return c.TeacherID != nil && *c.TeacherID == teacherID }), nil
}

type memEnrollments struct{ *memoryDB }

func (r *memEnrollments) Put(_ context.Context, e models.Enrollment) error {
	r.mu.Lock()
	if _, ok := r.students[e.StudentID]; !ok {
		r.mu.Unlock()
		return repository.ErrStudentMissing
	}
	if _, ok := r.courses[e.CourseID]; !ok {
		r.mu.Unlock()
		return repository.ErrCourseMissing
	}
	r.enrollments[pairKey{e.StudentID, e.CourseID}] = e.Score
	r.mu.Unlock()
	r.publish(live.Change{Table: live.TableSubscribes, Op: live.OpPut, StudentID: e.StudentID, CourseID: e.CourseID})
	return nil
}

func (r *memEnrollments) Delete(_ context.Context, studentID, courseID int64) error {
	r.mu.Lock()
	key := pairKey{studentID, courseID}
	_, existed := r.enrollments[key]
	delete(r.enrollments, key)
	r.mu.Unlock()
	if existed {
		r.publish(live.Change{Table: live.TableSubscribes, Op: live.OpDelete, StudentID: studentID, CourseID: courseID})
	}
	return nil
}

func (r *memEnrollments) Find(_ context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	score, ok := r.enrollments[pairKey{studentID, courseID}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Enrollment{StudentID: studentID, CourseID: courseID, Score: score}, nil
}

func (r *memEnrollments) selectEnrollments(match func(pairKey) bool) []models.Enrollment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []models.Enrollment
	for key, score := range r.enrollments {
		if match(key) {
			list = append(list, models.Enrollment{StudentID: key.studentID, CourseID: key.courseID, Score: score})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].StudentID != list[j].StudentID {
			return list[i].StudentID < list[j].StudentID
		}
		return list[i].CourseID < list[j].CourseID
	})
	return list
}

func (r *memEnrollments) ListByStudent(_ context.Context, studentID int64) ([]models.Enrollment, error) {
	return r.selectEnrollments(func(k pairKey) bool { return k.studentID == studentID }), nil
}

func (r *memEnrollments) ListByCourse(_ context.Context, courseID int64) ([]models.Enrollment, error) {
	return r.selectEnrollments(func(k pairKey) bool { return k.courseID == courseID }), nil
}

func (r *memEnrollments) ListDetails(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, error) {
	list := r.selectEnrollments(func(k pairKey) bool {
		return (filter.StudentID == 0 || k.studentID == filter.StudentID) &&
			(filter.CourseID == 0 || k.courseID == filter.CourseID)
	})
	r.mu.Lock()
	defer r.mu.Unlock()
	details := make([]models.EnrollmentDetail, 0, len(list))
	for _, e := range list {
		course := r.courses[e.CourseID]
		if filter.TeacherID != 0 && (course.TeacherID == nil || *course.TeacherID != filter.TeacherID) {
			continue
		}
		student := r.students[e.StudentID]
		details = append(details, models.EnrollmentDetail{
			Enrollment:       e,
			StudentFirstName: student.FirstName,
			StudentLastName:  student.LastName,
			CourseName:       course.Name,
			CourseLevel:      course.Level,
			CourseECTS:       course.ECTS,
		})
	}
	return details, nil
}

func (r *memEnrollments) GradeCourses(_ context.Context, studentID int64) ([]models.GradeCourse, error) {
	list := r.selectEnrollments(func(k pairKey) bool { return k.studentID == studentID })
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]models.GradeCourse, 0, len(list))
	for _, e := range list {
		course := r.courses[e.CourseID]
		rows = append(rows, models.GradeCourse{
			CourseID:   course.ID,
			CourseName: course.Name,
			ECTS:       course.ECTS,
			Level:      course.Level,
			Score:      e.Score,
		})
	}
	return rows, nil
}

// memoryCache is a CacheRepository backed by a map.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]interface{}
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]interface{}{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	cached, ok := value.(*models.WeightedAverage)
	target, okDest := dest.(*models.WeightedAverage)
	if !ok || !okDest {
		return appErrors.ErrCacheMiss
	}
	*target = *cached
	return nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	c.sets++
	return nil
}

func (c *memoryCache) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key := range c.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.entries, key)
			removed++
		}
	}
	return removed, nil
}

func (c *memoryCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// fixture wires every service over one memoryDB.
type fixture struct {
	db          *memoryDB
	hub         *live.Hub
	cache       *memoryCache
	students    *StudentService
	teachers    *TeacherService
	courses     *CourseService
	assignments *CourseAssignmentService
	enrollments *EnrollmentService
	grades      *GradeService
}

func newFixture() *fixture {
	hub := live.NewHub(nil)
	db := newMemoryDB(hub)
	cache := newMemoryCache()
	cacheSvc := NewCacheService(cache, nil, time.Minute, nil, true)
	return &fixture{
		db:          db,
		hub:         hub,
		cache:       cache,
		students:    NewStudentService(db.Students(), db.Courses(), hub, nil),
		teachers:    NewTeacherService(db.Teachers(), hub, nil, nil),
		courses:     NewCourseService(db.Courses(), hub, nil, nil),
		assignments: NewCourseAssignmentService(db.Courses(), nil, nil),
		enrollments: NewEnrollmentService(db.Enrollments(), db.Courses(), hub, nil, nil, nil),
		grades:      NewGradeService(db.Enrollments(), cacheSvc, time.Minute, hub, nil),
	}
}

func (f *fixture) addStudent(id int64, first string, level models.Level) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.students[id] = models.Student{ID: id, FirstName: first, LastName: "Doe", Level: level, Email: first + "@school.test"}
}

func (f *fixture) addCourse(id int64, name string, ects float64, level models.Level) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.courses[id] = models.Course{ID: id, Name: name, ECTS: ects, Level: level}
	if id > f.db.nextCourse {
		f.db.nextCourse = id
	}
}

func (f *fixture) addTeacher(id int64, first string) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.teachers[id] = models.Teacher{ID: id, FirstName: first, LastName: "Smith", Email: first + "@school.test"}
	if id > f.db.nextTeacher {
		f.db.nextTeacher = id
	}
}
