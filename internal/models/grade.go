package models

// GradeDetail is one graded course contributing to a weighted average.
type GradeDetail struct {
	CourseID      int64   `json:"course_id"`
	CourseName    string  `json:"course_name"`
	ECTS          float64 `json:"ects"`
	Score         float64 `json:"score"`
	WeightedScore float64 `json:"weighted_score"`
}

// GradeCourse joins an enrollment score with the course fields the average needs.
type GradeCourse struct {
	CourseID   int64   `db:"course_id"`
	CourseName string  `db:"course_name"`
	ECTS       float64 `db:"ects"`
	Level      Level   `db:"level"`
	Score      Score   `db:"score"`
}

// WeightedAverage is the ECTS-weighted average for one level.
// Average is nil when nothing at the level is graded.
type WeightedAverage struct {
	StudentID int64         `json:"student_id"`
	Level     Level         `json:"level"`
	LevelName string        `json:"level_name"`
	Average   *float64      `json:"average"`
	TotalECTS float64       `json:"total_ects"`
	Details   []GradeDetail `json:"details"`
}

// GradeSummary aggregates a student's grades across every level.
type GradeSummary struct {
	StudentID     int64    `json:"student_id"`
	EnrolledCount int      `json:"enrolled_count"`
	GradedCount   int      `json:"graded_count"`
	PassedCount   int      `json:"passed_count"`
	Mean          *float64 `json:"mean"`
}
