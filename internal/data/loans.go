// internal/data/loans.go
package data

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Loan records one borrowing of a book by a student. A nil ReturnedAt means
// the loan is still open and the book is out. BookTitle and StudentName are
// joined in on reads for display.
type Loan struct {
	ID          int64      `json:"loan_id"`
	LoanedAt    time.Time  `json:"loaned_at"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
	Comment     *string    `json:"comment,omitempty"`
	BookID      int64      `json:"book_id"`
	BookTitle   string     `json:"book_title,omitempty"`
	StudentID   int64      `json:"student_id"`
	StudentName string     `json:"student_name,omitempty"`
}

// LoanModel provides database operations for the loans table and the
// availability predicate derived from it.
type LoanModel struct {
	DB *sql.DB
}

// Insert opens a new loan, stamping the loan time server-side. A missing
// book or student comes back as a foreign-key ConstraintError attributed to
// the reference column. The loaned_at value is read back into the struct.
func (m LoanModel) Insert(ctx context.Context, loan *Loan) error {
	query := `
		INSERT INTO loans (loaned_at, comment, book_id, student_id)
		VALUES (now(), $1, $2, $3)
		RETURNING loan_id, loaned_at`

	err := m.DB.QueryRowContext(ctx, query, loan.Comment, loan.BookID, loan.StudentID).
		Scan(&loan.ID, &loan.LoanedAt)
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// Get retrieves a single loan by id, joined with the book title and the
// student name.
func (m LoanModel) Get(ctx context.Context, id int64) (*Loan, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT l.loan_id, l.loaned_at, l.returned_at, l.comment,
		       l.book_id, b.title, l.student_id, s.name
		FROM loans l
		JOIN books b ON b.book_id = l.book_id
		JOIN students s ON s.student_id = l.student_id
		WHERE l.loan_id = $1`

	var loan Loan
	err := m.DB.QueryRowContext(ctx, query, id).Scan(
		&loan.ID,
		&loan.LoanedAt,
		&loan.ReturnedAt,
		&loan.Comment,
		&loan.BookID,
		&loan.BookTitle,
		&loan.StudentID,
		&loan.StudentName,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &loan, nil
}

// ForBook retrieves the loan history of one book, most recent first.
func (m LoanModel) ForBook(ctx context.Context, bookID int64) ([]*Loan, error) {
	query := `
		SELECT l.loan_id, l.loaned_at, l.returned_at, l.comment,
		       l.book_id, b.title, l.student_id, s.name
		FROM loans l
		JOIN books b ON b.book_id = l.book_id
		JOIN students s ON s.student_id = l.student_id
		WHERE l.book_id = $1
		ORDER BY l.loaned_at DESC`

	return m.collect(ctx, query, bookID)
}

// ForStudent retrieves the loan history of one student, most recent first.
func (m LoanModel) ForStudent(ctx context.Context, studentID int64) ([]*Loan, error) {
	query := `
		SELECT l.loan_id, l.loaned_at, l.returned_at, l.comment,
		       l.book_id, b.title, l.student_id, s.name
		FROM loans l
		JOIN books b ON b.book_id = l.book_id
		JOIN students s ON s.student_id = l.student_id
		WHERE l.student_id = $1
		ORDER BY l.loaned_at DESC`

	return m.collect(ctx, query, studentID)
}

// collect runs one of the history queries and scans the result set.
func (m LoanModel) collect(ctx context.Context, query string, arg any) ([]*Loan, error) {
	rows, err := m.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []*Loan{}
	for rows.Next() {
		var loan Loan
		err := rows.Scan(
			&loan.ID,
			&loan.LoanedAt,
			&loan.ReturnedAt,
			&loan.Comment,
			&loan.BookID,
			&loan.BookTitle,
			&loan.StudentID,
			&loan.StudentName,
		)
		if err != nil {
			return nil, err
		}
		loans = append(loans, &loan)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return loans, nil
}

// Finalize closes an open loan by stamping its return time. Returns
// ErrRecordNotFound when the loan does not exist or was already returned;
// nothing is changed in that case.
func (m LoanModel) Finalize(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	query := `
		UPDATE loans
		SET returned_at = now()
		WHERE loan_id = $1 AND returned_at IS NULL`

	result, err := m.DB.ExecContext(ctx, query, id)
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

// Delete removes a loan record entirely. Returns ErrRecordNotFound if no
// matching record exists.
func (m LoanModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	result, err := m.DB.ExecContext(ctx, `DELETE FROM loans WHERE loan_id = $1`, id)
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

// BookAvailable reports whether a book can be loaned right now: true iff it
// has no loan with a NULL return time. The answer is computed fresh on every
// call; loan state changes independently of book records, so a stored flag
// would go stale.
func (m LoanModel) BookAvailable(ctx context.Context, bookID int64) (bool, error) {
	query := `
		SELECT NOT EXISTS (
			SELECT 1 FROM loans
			WHERE book_id = $1 AND returned_at IS NULL
		)`

	var available bool
	if err := m.DB.QueryRowContext(ctx, query, bookID).Scan(&available); err != nil {
		return false, err
	}
	return available, nil
}
