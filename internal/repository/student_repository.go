package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/pkg/live"
)

const studentColumns = "id, last_name, first_name, date_of_birth, gender, level, email, password"

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db  *sqlx.DB
	hub *live.Hub
}

// NewStudentRepository constructs a StudentRepository publishing to hub.
func NewStudentRepository(db *sqlx.DB, hub *live.Hub) *StudentRepository {
	return &StudentRepository{db: db, hub: hub}
}

// Put inserts a student or replaces the mutable fields of an existing one.
// Level is kept from the original row.
func (r *StudentRepository) Put(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students (id, last_name, first_name, date_of_birth, gender, level, email, password)
        VALUES (:id, :last_name, :first_name, :date_of_birth, :gender, :level, :email, :password)
        ON CONFLICT (id) DO UPDATE SET last_name = EXCLUDED.last_name, first_name = EXCLUDED.first_name,
        date_of_birth = EXCLUDED.date_of_birth, gender = EXCLUDED.gender, email = EXCLUDED.email, password = EXCLUDED.password`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		if mapped := translateWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("put student: %w", err)
	}
	r.hub.Publish(live.Change{Table: live.TableStudents, Op: live.OpPut, StudentID: student.ID})
	return nil
}

// Delete removes a student and its enrollments atomically. Missing ids are a no-op.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	var removedEnrollments, removedStudent int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM subscribes WHERE student_id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete student enrollments: %w", err)
		}
		if removedEnrollments, err = affected(res); err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
		removedStudent, err = affected(res)
		return err
	})
	if err != nil {
		return err
	}

	var changes []live.Change
	if removedEnrollments > 0 {
		changes = append(changes, live.Change{Table: live.TableSubscribes, Op: live.OpDelete, StudentID: id})
	}
	if removedStudent > 0 {
		changes = append(changes, live.Change{Table: live.TableStudents, Op: live.OpDelete, StudentID: id})
	}
	r.hub.Publish(changes...)
	return nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT "+studentColumns+" FROM students WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByEmail fetches a student by email, ignoring case.
func (r *StudentRepository) FindByEmail(ctx context.Context, email string) (*models.Student, error) {
	var student models.Student
	if err := r.db.GetContext(ctx, &student, "SELECT "+studentColumns+" FROM students WHERE LOWER(email) = LOWER($1)", email); err != nil {
		return nil, err
	}
	return &student, nil
}

// List returns every student sorted by name.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, "SELECT "+studentColumns+" FROM students ORDER BY last_name, first_name, id"); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}
