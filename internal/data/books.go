// Package data provides the data models and database interaction logic
// for the library catalog service.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Book represents a single book record stored in the database.
// Optional columns are pointers; nil means the column is NULL.
// CategoryName, CurrentPrice and Available are derived on every read and
// never stored: the price comes from the latest ledger entry, availability
// from the absence of an open loan.
type Book struct {
	ID              int64    `json:"book_id"`
	Title           string   `json:"title"`
	Author          *string  `json:"author,omitempty"`
	PublicationYear *int     `json:"publication_year,omitempty"`
	ISBN            *string  `json:"isbn,omitempty"`
	Synopsis        *string  `json:"synopsis,omitempty"`
	CategoryID      *int64   `json:"category_id,omitempty"`
	CategoryName    *string  `json:"category,omitempty"`
	CurrentPrice    *float64 `json:"current_price,omitempty"`
	Available       bool     `json:"available"`
}

// bookColumns is the shared SELECT list for book reads, including the two
// derived values. It expects the books table aliased as b and categories as c.
const bookColumns = `
	b.book_id, b.title, b.author, b.publication_year, b.isbn, b.synopsis, b.category_id, c.name,
	(SELECT p.price
	 FROM book_prices p
	 WHERE p.book_id = b.book_id
	 ORDER BY p.recorded_at DESC
	 LIMIT 1) AS current_price,
	NOT EXISTS (SELECT 1
	 FROM loans l
	 WHERE l.book_id = b.book_id
	 AND l.returned_at IS NULL) AS available`

// BookModel wraps a *sql.DB connection and provides methods for
// creating, reading, updating, and deleting book records.
type BookModel struct {
	DB *sql.DB // Shared database connection pool
}

// Insert adds a new book record to the database. The database-assigned
// book_id is written back into the book struct. Constraint violations
// (duplicate ISBN, missing category, over-long fields) come back classified.
func (m BookModel) Insert(ctx context.Context, book *Book) error {
	query := `
		INSERT INTO books (title, author, publication_year, isbn, synopsis, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING book_id`

	err := m.DB.QueryRowContext(
		ctx,
		query,
		book.Title,
		book.Author,
		book.PublicationYear,
		book.ISBN,
		book.Synopsis,
		book.CategoryID,
	).Scan(&book.ID)
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// Get retrieves a single book by its primary key, with its category name,
// current price and availability. Returns ErrRecordNotFound if no book with
// the given id exists.
func (m BookModel) Get(ctx context.Context, id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT` + bookColumns + `
		FROM books b
		LEFT JOIN categories c ON c.category_id = b.category_id
		WHERE b.book_id = $1`

	var book Book
	err := m.DB.QueryRowContext(ctx, query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.PublicationYear,
		&book.ISBN,
		&book.Synopsis,
		&book.CategoryID,
		&book.CategoryName,
		&book.CurrentPrice,
		&book.Available,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, classifyError(err)
		}
	}
	return &book, nil
}

// Search retrieves a paginated, sorted list of books matching the given
// criteria. Empty strings and zero values mean "no filter". Title, author
// and ISBN match partially and case-insensitively, the way the catalog
// search screen expects. Availability and current price are recomputed on
// every call rather than read from a stored flag.
func (m BookModel) Search(ctx context.Context, title, author, isbn string, year int, categoryID int64, filters Filters) ([]*Book, Metadata, error) {
	query := fmt.Sprintf(`
		SELECT count(*) OVER(),`+bookColumns+`
		FROM books b
		LEFT JOIN categories c ON c.category_id = b.category_id
		WHERE ($1 = '' OR b.title ILIKE '%%' || $1 || '%%')
		AND ($2 = '' OR b.author ILIKE '%%' || $2 || '%%')
		AND ($3 = '' OR b.isbn ILIKE '%%' || $3 || '%%')
		AND ($4 = 0 OR b.publication_year = $4)
		AND ($5 = 0 OR b.category_id = $5)
		ORDER BY %s %s, b.book_id ASC
		LIMIT $6 OFFSET $7`, filters.sortColumn(), filters.sortDirection())

	rows, err := m.DB.QueryContext(ctx, query, title, author, isbn, year, categoryID, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, classifyError(err)
	}
	defer rows.Close()

	totalRecords := 0
	books := []*Book{}

	for rows.Next() {
		var book Book
		err := rows.Scan(
			&totalRecords, // COUNT(*) OVER() – same value on every row
			&book.ID,
			&book.Title,
			&book.Author,
			&book.PublicationYear,
			&book.ISBN,
			&book.Synopsis,
			&book.CategoryID,
			&book.CategoryName,
			&book.CurrentPrice,
			&book.Available,
		)
		if err != nil {
			return nil, Metadata{}, err
		}
		books = append(books, &book)
	}
	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return books, metadata, nil
}

// Update applies the selected field changes to one book inside a single
// serializable transaction: one UPDATE per selected column, plus a ledger
// append when a new price was selected. Prices are never mutated in place;
// history is preserved by inserting a fresh entry.
//
// The interaction runs under the conflict-retry protocol: if a concurrent
// serializable transaction forces an abort, confirm is asked whether to run
// the whole interaction again. Callers should confirm the book exists with a
// prior Get in the same interaction.
func (m BookModel) Update(ctx context.Context, id int64, changes ChangeSet, newPrice *float64, confirm ConfirmFunc) error {
	return runSerializable(ctx, confirm, func(ctx context.Context) error {
		return runTx(ctx, m.DB, sql.LevelSerializable, func(tx *sql.Tx) error {
			if err := applyChanges(ctx, tx, "books", "book_id", id, changes); err != nil {
				return err
			}
			if newPrice != nil {
				_, err := tx.ExecContext(ctx, `INSERT INTO book_prices (book_id, price) VALUES ($1, $2)`, id, *newPrice)
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
}

// Delete removes the book with the given id. Returns ErrRecordNotFound if no
// matching record exists; a book still referenced by price entries or loans
// comes back as a foreign-key ConstraintError, it is never cascaded.
func (m BookModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	result, err := m.DB.ExecContext(ctx, `DELETE FROM books WHERE book_id = $1`, id)
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
