package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/scrud-api/internal/middleware"
	"github.com/noah-isme/scrud-api/internal/models"
)

// Routes groups the API handlers mounted under the API prefix.
type Routes struct {
	Auth        *AuthHandler
	Students    *StudentHandler
	Teachers    *TeacherHandler
	Courses     *CourseHandler
	Enrollments *EnrollmentHandler
	Transcripts *TranscriptHandler
	Tokens      middleware.TokenValidator
}

// Register mounts every route on api. Both roles may read catalogue lists;
// per-student and per-teacher resources are limited to their owner.
func (rt Routes) Register(api *gin.RouterGroup) {
	teacher := middleware.RequireRoles(models.RoleTeacher)
	anyone := middleware.RequireRoles(models.RoleTeacher, models.RoleStudent)
	studentOwner := middleware.RBAC(string(models.RoleTeacher), middleware.Self(models.RoleStudent))
	studentSelf := middleware.RBAC(middleware.Self(models.RoleStudent))
	teacherSelf := middleware.RBAC(middleware.Self(models.RoleTeacher))

	auth := api.Group("/auth")
	auth.POST("/students/register", rt.Auth.RegisterStudent)
	auth.POST("/teachers/register", rt.Auth.RegisterTeacher)
	auth.POST("/login", rt.Auth.Login)

	api.GET("/transcripts/download", rt.Transcripts.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(rt.Tokens))
	secured.GET("/me", rt.Auth.Me)

	students := secured.Group("/students")
	students.GET("", anyone, rt.Students.List)
	students.GET("/:id", anyone, rt.Students.Get)
	students.DELETE("/:id", studentSelf, rt.Students.Delete)
	students.GET("/:id/available-courses", studentOwner, rt.Students.AvailableCourses)
	students.GET("/:id/enrollments", studentOwner, rt.Students.Enrollments)
	students.GET("/:id/grades", studentOwner, rt.Students.Grades)
	students.GET("/:id/grades/summary", studentOwner, rt.Students.GradeSummary)
	students.POST("/:id/transcripts", studentOwner, rt.Transcripts.Request)

	secured.GET("/transcripts/:jobId", anyone, rt.Transcripts.Get)

	teachers := secured.Group("/teachers")
	teachers.GET("", anyone, rt.Teachers.List)
	teachers.GET("/:id", anyone, rt.Teachers.Get)
	teachers.PUT("/:id", teacherSelf, rt.Teachers.Update)
	teachers.DELETE("/:id", teacherSelf, rt.Teachers.Delete)
	teachers.GET("/:id/courses", anyone, rt.Teachers.Courses)
	teachers.GET("/:id/roster", teacherSelf, rt.Teachers.Roster)

	courses := secured.Group("/courses")
	courses.POST("", teacher, rt.Courses.Create)
	courses.GET("", anyone, rt.Courses.List)
	courses.GET("/unassigned", anyone, rt.Courses.Unassigned)
	courses.GET("/:id", anyone, rt.Courses.Get)
	courses.DELETE("/:id", teacher, rt.Courses.Delete)
	courses.POST("/:id/assign", teacher, rt.Courses.Assign)
	courses.POST("/:id/release", teacher, rt.Courses.Release)
	courses.GET("/:id/enrollments", teacher, rt.Courses.Enrollments)

	enrollments := secured.Group("/enrollments")
	enrollments.POST("", anyone, rt.Enrollments.Enroll)
	enrollments.GET("", teacher, rt.Enrollments.List)
	enrollments.DELETE("/:studentId/:courseId", anyone, rt.Enrollments.Unenroll)
	enrollments.PUT("/:studentId/:courseId/grade", teacher, rt.Enrollments.RecordGrade)
}
