// internal/data/errors.go
// This file defines the classified failure types returned by the data layer
// and the mapping from raw PostgreSQL errors onto them. Handlers never see a
// bare driver error for a condition we know how to attribute to a field.
package data

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrRecordNotFound is returned when a query finds no matching row, including
// deletes and targeted updates that affect zero rows. Nothing was changed, so
// callers report it without needing a rollback.
var ErrRecordNotFound = errors.New("record not found")

// ErrNoPriceOnFile is returned when a book has no entry in the price ledger.
// A percentage-based price change on such a book inserts nothing; this is a
// reported condition, not a constraint violation.
var ErrNoPriceOnFile = errors.New("no price on file")

// ErrSerialization is returned when the database aborts a serializable
// transaction because it conflicts with a concurrently committed one.
// It is the only failure the retry controller will re-attempt.
var ErrSerialization = errors.New("serialization failure")

// ConstraintKind identifies which class of database constraint rejected a write.
type ConstraintKind int

const (
	ConstraintUnique ConstraintKind = iota
	ConstraintNotNull
	ConstraintForeignKey
	ConstraintCheck
	ConstraintStringTooLong
	ConstraintNumericOverflow
)

// String returns a short name for the constraint kind, used in log output.
func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintNotNull:
		return "not_null"
	case ConstraintForeignKey:
		return "foreign_key"
	case ConstraintCheck:
		return "check"
	case ConstraintStringTooLong:
		return "string_too_long"
	case ConstraintNumericOverflow:
		return "numeric_overflow"
	}
	return "unknown"
}

// ConstraintError is a rejected write, attributed to the column that caused it.
// The transaction it occurred in has been fully rolled back.
type ConstraintError struct {
	Kind       ConstraintKind
	Column     string // offending column, best-effort (see columnFor)
	Constraint string // constraint name as reported by the server, may be empty
}

func (e *ConstraintError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s constraint violated on column %q", e.Kind, e.Column)
	}
	return fmt.Sprintf("%s constraint violated", e.Kind)
}

// classifyError converts a raw driver error into one of the closed set of
// failure values above. Errors that are not PostgreSQL errors, or carry a
// SQLSTATE we do not branch on, pass through unchanged with their original
// code and message intact.
func classifyError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	// pq exposes the SQLSTATE both as a code and as a condition name;
	// the names read the same as the ones in the PostgreSQL manual.
	switch pqErr.Code.Name() {
	case "serialization_failure":
		return ErrSerialization
	case "unique_violation":
		return &ConstraintError{Kind: ConstraintUnique, Column: columnFor(pqErr), Constraint: pqErr.Constraint}
	case "not_null_violation":
		return &ConstraintError{Kind: ConstraintNotNull, Column: columnFor(pqErr), Constraint: pqErr.Constraint}
	case "foreign_key_violation":
		return &ConstraintError{Kind: ConstraintForeignKey, Column: columnFor(pqErr), Constraint: pqErr.Constraint}
	case "check_violation":
		return &ConstraintError{Kind: ConstraintCheck, Column: columnFor(pqErr), Constraint: pqErr.Constraint}
	case "string_data_right_truncation":
		return &ConstraintError{Kind: ConstraintStringTooLong, Column: columnFor(pqErr), Constraint: pqErr.Constraint}
	case "numeric_value_out_of_range":
		return &ConstraintError{Kind: ConstraintNumericOverflow, Column: columnFor(pqErr), Constraint: pqErr.Constraint}
	}
	return err
}

// columnFor extracts the offending column from a PostgreSQL error.
// The server only fills the column diagnostic for some violation classes
// (not-null, for example); for unique and foreign-key violations it reports
// the constraint name instead. Our schema names constraints
// "<table>_<column>_{key,fkey,check}", so the column can be recovered by
// stripping the table prefix and the kind suffix.
func columnFor(e *pq.Error) string {
	if e.Column != "" {
		return e.Column
	}
	c := e.Constraint
	for _, suffix := range []string{"_fkey", "_key", "_check"} {
		c = strings.TrimSuffix(c, suffix)
	}
	if e.Table != "" {
		c = strings.TrimPrefix(c, e.Table+"_")
	}
	return c
}
