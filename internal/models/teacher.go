package models

// Teacher represents an instructor record. ID is assigned by the store.
type Teacher struct {
	ID           int64  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password" json:"-"`
	FirstName    string `db:"first_name" json:"first_name"`
	LastName     string `db:"last_name" json:"last_name"`
	Department   string `db:"department" json:"department"`
}

// FullName joins first and last name.
func (t Teacher) FullName() string {
	return t.FirstName + " " + t.LastName
}

// UpdateTeacherRequest carries the mutable teacher fields.
type UpdateTeacherRequest struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Department string `json:"department"`
}
