package models

// Course is a unit of teaching weighted by its ECTS credits.
// A nil TeacherID means the course is unassigned.
type Course struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	ECTS      float64 `db:"ects" json:"ects"`
	Level     Level   `db:"level" json:"level"`
	TeacherID *int64  `db:"teacher_id" json:"teacher_id"`
}

// Assigned reports whether a teacher owns the course.
func (c Course) Assigned() bool {
	return c.TeacherID != nil
}

// CreateCourseRequest is the payload for declaring a course.
type CreateCourseRequest struct {
	Name string  `json:"name" validate:"required"`
	ECTS float64 `json:"ects" validate:"gt=0"`
	// Level is validated by the service against the level scale.
	Level Level `json:"level" validate:"required"`
	// AssignToSelf assigns the course to the creating teacher.
	AssignToSelf bool `json:"assign_to_self"`
}
