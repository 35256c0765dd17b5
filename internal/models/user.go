package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// Valid reports whether r is a role that can authenticate.
func (r UserRole) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}
