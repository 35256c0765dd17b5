package models

import "time"

// Student represents a learner registered in the institution.
// ID and Level are fixed once the record exists.
type Student struct {
	ID           int64     `db:"id" json:"id"`
	LastName     string    `db:"last_name" json:"last_name"`
	FirstName    string    `db:"first_name" json:"first_name"`
	DateOfBirth  time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender       Gender    `db:"gender" json:"gender"`
	Level        Level     `db:"level" json:"level"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}
