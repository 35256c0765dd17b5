package database

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes the repositories react to.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
)

// ForeignKeyViolation reports whether err is a foreign key failure and returns
// the violated constraint name.
func ForeignKeyViolation(err error) (string, bool) {
	return violation(err, codeForeignKeyViolation)
}

// UniqueViolation reports whether err is a unique index failure.
func UniqueViolation(err error) (string, bool) {
	return violation(err, codeUniqueViolation)
}

// CheckViolation reports whether err is a CHECK constraint failure.
func CheckViolation(err error) (string, bool) {
	return violation(err, codeCheckViolation)
}

func violation(err error, code string) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", false
	}
	if string(pqErr.Code) != code {
		return "", false
	}
	return pqErr.Constraint, true
}
