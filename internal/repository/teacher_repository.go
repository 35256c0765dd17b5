package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/scrud-api/internal/models"
	"github.com/noah-isme/scrud-api/pkg/live"
)

const teacherColumns = "id, email, password, first_name, last_name, department"

// TeacherRepository handles teacher persistence.
type TeacherRepository struct {
	db  *sqlx.DB
	hub *live.Hub
}

// NewTeacherRepository creates a new TeacherRepository.
func NewTeacherRepository(db *sqlx.DB, hub *live.Hub) *TeacherRepository {
	return &TeacherRepository{db: db, hub: hub}
}

// Put inserts a teacher, assigning an ID when none is set, or replaces an existing row.
func (r *TeacherRepository) Put(ctx context.Context, teacher *models.Teacher) error {
	var err error
	if teacher.ID == 0 {
		const insert = `INSERT INTO teachers (email, password, first_name, last_name, department)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
		err = r.db.QueryRowxContext(ctx, insert, teacher.Email, teacher.PasswordHash, teacher.FirstName, teacher.LastName, teacher.Department).Scan(&teacher.ID)
	} else {
		const upsert = `INSERT INTO teachers (id, email, password, first_name, last_name, department)
        VALUES (:id, :email, :password, :first_name, :last_name, :department)
        ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, password = EXCLUDED.password,
        first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, department = EXCLUDED.department`
		_, err = r.db.NamedExecContext(ctx, upsert, teacher)
	}
	if err != nil {
		if mapped := translateWriteError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("put teacher: %w", err)
	}
	r.hub.Publish(live.Change{Table: live.TableTeachers, Op: live.OpPut, TeacherID: teacher.ID})
	return nil
}

// Update changes names and department. Returns sql.ErrNoRows for unknown teachers.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	const query = `UPDATE teachers SET first_name = :first_name, last_name = :last_name, department = :department WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	n, err := affected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	r.hub.Publish(live.Change{Table: live.TableTeachers, Op: live.OpPut, TeacherID: teacher.ID})
	return nil
}

// Delete detaches the teacher's courses and removes the teacher in one transaction.
func (r *TeacherRepository) Delete(ctx context.Context, id int64) error {
	var detached, removed int64
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE courses SET teacher_id = NULL WHERE teacher_id = $1`, id)
		if err != nil {
			return fmt.Errorf("detach teacher courses: %w", err)
		}
		if detached, err = affected(res); err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete teacher: %w", err)
		}
		removed, err = affected(res)
		return err
	})
	if err != nil {
		return err
	}

	var changes []live.Change
	if detached > 0 {
		changes = append(changes, live.Change{Table: live.TableCourses, Op: live.OpPut, TeacherID: id})
	}
	if removed > 0 {
		changes = append(changes, live.Change{Table: live.TableTeachers, Op: live.OpDelete, TeacherID: id})
	}
	r.hub.Publish(changes...)
	return nil
}

// FindByID fetches a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id int64) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, "SELECT "+teacherColumns+" FROM teachers WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindByEmail fetches a teacher by email, ignoring case.
func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, "SELECT "+teacherColumns+" FROM teachers WHERE LOWER(email) = LOWER($1)", email); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// List returns teachers sorted by name.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	teachers := []models.Teacher{}
	if err := r.db.SelectContext(ctx, &teachers, "SELECT "+teacherColumns+" FROM teachers ORDER BY last_name, first_name, id"); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}
