// internal/data/students.go
package data

import (
	"context"
	"database/sql"
	"errors"
)

// Student is a registered borrower. Email is unique and required; phone is
// optional but unique when present. Grade must stay positive, which the
// database enforces with a check constraint.
type Student struct {
	ID      int64   `json:"student_id"`
	Name    string  `json:"name"`
	Surname string  `json:"surname"`
	Grade   int     `json:"grade"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
}

// StudentModel provides database operations for the students table.
type StudentModel struct {
	DB *sql.DB
}

// Insert adds a new student record. Duplicate email or phone comes back as a
// unique ConstraintError; a non-positive grade as a check ConstraintError.
func (m StudentModel) Insert(ctx context.Context, student *Student) error {
	query := `
		INSERT INTO students (name, surname, grade, email, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING student_id`

	err := m.DB.QueryRowContext(
		ctx,
		query,
		student.Name,
		student.Surname,
		student.Grade,
		student.Email,
		student.Phone,
	).Scan(&student.ID)
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// Get retrieves a single student by id.
func (m StudentModel) Get(ctx context.Context, id int64) (*Student, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT student_id, name, surname, grade, email, phone
		FROM students
		WHERE student_id = $1`

	var student Student
	err := m.DB.QueryRowContext(ctx, query, id).Scan(
		&student.ID,
		&student.Name,
		&student.Surname,
		&student.Grade,
		&student.Email,
		&student.Phone,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &student, nil
}

// GetAll retrieves a paginated, sorted list of students.
func (m StudentModel) GetAll(ctx context.Context, filters Filters) ([]*Student, Metadata, error) {
	query := `
		SELECT count(*) OVER(), student_id, name, surname, grade, email, phone
		FROM students
		ORDER BY ` + filters.sortColumn() + ` ` + filters.sortDirection() + `, student_id ASC
		LIMIT $1 OFFSET $2`

	rows, err := m.DB.QueryContext(ctx, query, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	students := []*Student{}
	for rows.Next() {
		var student Student
		err := rows.Scan(
			&totalRecords,
			&student.ID,
			&student.Name,
			&student.Surname,
			&student.Grade,
			&student.Email,
			&student.Phone,
		)
		if err != nil {
			return nil, Metadata{}, err
		}
		students = append(students, &student)
	}
	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return students, metadata, nil
}

// Update applies the selected field changes to one student inside a single
// serializable transaction, under the conflict-retry protocol.
func (m StudentModel) Update(ctx context.Context, id int64, changes ChangeSet, confirm ConfirmFunc) error {
	return runSerializable(ctx, confirm, func(ctx context.Context) error {
		return execChanges(ctx, m.DB, "students", "student_id", id, changes, sql.LevelSerializable)
	})
}

// PromoteAll increments every student's grade by one in a single serializable
// transaction and reports how many rows were touched. The new grade is
// derived from the stored one, so read committed would permit lost updates
// under concurrent promotions; the retry protocol covers the aborts instead.
func (m StudentModel) PromoteAll(ctx context.Context, confirm ConfirmFunc) (int64, error) {
	var promoted int64
	err := runSerializable(ctx, confirm, func(ctx context.Context) error {
		promoted = 0
		return runTx(ctx, m.DB, sql.LevelSerializable, func(tx *sql.Tx) error {
			result, err := tx.ExecContext(ctx, `UPDATE students SET grade = grade + 1`)
			if err != nil {
				return err
			}
			promoted, err = result.RowsAffected()
			return err
		})
	})
	return promoted, err
}

// Delete removes the student with the given id. A student with recorded
// loans comes back as a foreign-key ConstraintError.
func (m StudentModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	result, err := m.DB.ExecContext(ctx, `DELETE FROM students WHERE student_id = $1`, id)
	if err != nil {
		return classifyError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
