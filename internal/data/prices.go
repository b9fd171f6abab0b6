// internal/data/prices.go
// The price ledger is append-only: changing a book's price inserts a new
// entry; old entries are never mutated or deleted. The current price is
// whichever entry has the latest timestamp.
package data

import (
	"context"
	"database/sql"
	"errors"
	"iter"
	"time"
)

// PriceEntry is one row of a book's price history.
type PriceEntry struct {
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// PriceModel provides database operations for the book_prices ledger.
type PriceModel struct {
	DB *sql.DB
}

// Record appends an absolute price for a book, stamped server-side. A
// non-positive price comes back as a check ConstraintError, an unknown book
// as a foreign-key ConstraintError. This is a single-statement write with no
// prior read, so read committed is enough.
func (m PriceModel) Record(ctx context.Context, bookID int64, price float64) error {
	return runTx(ctx, m.DB, sql.LevelReadCommitted, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO book_prices (book_id, price) VALUES ($1, $2)`,
			bookID, price)
		return err
	})
}

// RecordPercent appends a price derived from the latest existing entry:
// current * (1 + percent/100). Because the new value is computed from a
// read, the transaction runs serializable and under the conflict-retry
// protocol; two concurrent adjustments cannot both derive from the same
// stale entry.
//
// A book with no prior entry inserts nothing and returns ErrNoPriceOnFile,
// which is a reported condition, not a storage error.
func (m PriceModel) RecordPercent(ctx context.Context, bookID int64, percent float64, confirm ConfirmFunc) error {
	query := `
		INSERT INTO book_prices (book_id, price)
		SELECT book_id, price * (1 + $2 / 100.0)
		FROM book_prices
		WHERE book_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`

	return runSerializable(ctx, confirm, func(ctx context.Context) error {
		return runTx(ctx, m.DB, sql.LevelSerializable, func(tx *sql.Tx) error {
			result, err := tx.ExecContext(ctx, query, bookID, percent)
			if err != nil {
				return err
			}
			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if rowsAffected == 0 {
				return ErrNoPriceOnFile
			}
			return nil
		})
	})
}

// Current returns the most recently recorded price for a book, or
// ErrNoPriceOnFile if the ledger has no entry for it.
func (m PriceModel) Current(ctx context.Context, bookID int64) (*PriceEntry, error) {
	query := `
		SELECT price, recorded_at
		FROM book_prices
		WHERE book_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`

	var entry PriceEntry
	err := m.DB.QueryRowContext(ctx, query, bookID).Scan(&entry.Price, &entry.RecordedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNoPriceOnFile
		default:
			return nil, err
		}
	}
	return &entry, nil
}

// History returns the price history of a book ordered by timestamp
// descending, as a lazy single-pass sequence over the underlying cursor.
// The cursor is closed when the sequence ends or the caller stops early;
// calling History again issues a fresh query. A query or scan error is
// yielded as the final element.
func (m PriceModel) History(ctx context.Context, bookID int64) iter.Seq2[PriceEntry, error] {
	query := `
		SELECT price, recorded_at
		FROM book_prices
		WHERE book_id = $1
		ORDER BY recorded_at DESC`

	return func(yield func(PriceEntry, error) bool) {
		rows, err := m.DB.QueryContext(ctx, query, bookID)
		if err != nil {
			yield(PriceEntry{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var entry PriceEntry
			if err := rows.Scan(&entry.Price, &entry.RecordedAt); err != nil {
				yield(PriceEntry{}, err)
				return
			}
			if !yield(entry, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(PriceEntry{}, err)
		}
	}
}
