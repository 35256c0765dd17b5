package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scrud-api/pkg/database"
)

// Integrity failures reported by writes. Services translate them to API errors.
var (
	ErrStudentMissing = errors.New("student does not exist")
	ErrCourseMissing  = errors.New("course does not exist")
	ErrTeacherMissing = errors.New("teacher does not exist")
	ErrCourseAssigned = errors.New("course already has a teacher")
	ErrNotCourseOwner = errors.New("course is not assigned to this teacher")
	ErrDuplicateEmail = errors.New("email already registered")
)

// withTx runs fn inside one transaction. The transaction is rolled back when fn
// fails, so callers never observe a partial write.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// lockRow takes a share lock on the row identified by id, returning missing
// when it does not exist. Concurrent deletes of the row wait for the caller's
// transaction to finish.
func lockRow(ctx context.Context, tx *sqlx.Tx, table string, id int64, missing error) error {
	var found int64
	query := fmt.Sprintf("SELECT id FROM %s WHERE id = $1 FOR SHARE", table)
	if err := tx.GetContext(ctx, &found, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return missing
		}
		return fmt.Errorf("lock %s %d: %w", table, id, err)
	}
	return nil
}

// translateWriteError maps PostgreSQL constraint failures onto repository errors.
func translateWriteError(err error) error {
	if constraint, ok := database.ForeignKeyViolation(err); ok {
		switch {
		case strings.Contains(constraint, "student"):
			return ErrStudentMissing
		case strings.Contains(constraint, "teacher"):
			return ErrTeacherMissing
		default:
			return ErrCourseMissing
		}
	}
	if constraint, ok := database.UniqueViolation(err); ok && strings.Contains(constraint, "email") {
		return ErrDuplicateEmail
	}
	return err
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
