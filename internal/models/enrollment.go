package models

// Enrollment is the (student, course) association carrying an optional score.
type Enrollment struct {
	StudentID int64 `db:"student_id" json:"student_id"`
	CourseID  int64 `db:"course_id" json:"course_id"`
	Score     Score `db:"score" json:"score"`
}

// EnrollmentDetail enriches Enrollment with student and course names.
type EnrollmentDetail struct {
	Enrollment
	StudentFirstName string  `db:"student_first_name" json:"student_first_name"`
	StudentLastName  string  `db:"student_last_name" json:"student_last_name"`
	CourseName       string  `db:"course_name" json:"course_name"`
	CourseLevel      Level   `db:"course_level" json:"course_level"`
	CourseECTS       float64 `db:"course_ects" json:"course_ects"`
}

// EnrollmentFilter narrows detail listings.
type EnrollmentFilter struct {
	StudentID int64
	CourseID  int64
	TeacherID int64
}

// EnrollRequest is the payload for subscribing a student to a course.
type EnrollRequest struct {
	StudentID int64 `json:"student_id" validate:"required,gt=0"`
	CourseID  int64 `json:"course_id" validate:"required,gt=0"`
}

// RecordGradeRequest carries a grade; -1 clears a recorded grade.
type RecordGradeRequest struct {
	Score *float64 `json:"score" validate:"required"`
}
