// internal/data/exec.go
// This file contains the transactional machinery shared by every model:
// runTx wraps one function in one transaction at a chosen isolation level,
// applyChanges turns a ChangeSet into per-field UPDATE statements, and
// runSerializable adds the bounded, caller-confirmed retry protocol for
// serializable transactions.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// maxAttempts caps how many times a serializable interaction may run,
// no matter how often the caller assents to another retry.
const maxAttempts = 3

// ConfirmFunc is asked before each retry of a serialization-aborted
// interaction. attempt is the number of the attempt that just failed,
// starting at 1. Returning false abandons the interaction.
type ConfirmFunc func(attempt int) bool

// runTx executes fn inside a single transaction at the given isolation level.
// Either fn succeeds and the transaction commits, or the transaction is
// rolled back and the classified failure is returned; no partial application
// is ever visible to other transactions. Commit errors are classified too,
// because a serializable transaction can be aborted at commit time.
func runTx(ctx context.Context, db *sql.DB, level sql.IsolationLevel, fn func(*sql.Tx) error) error {
	start := time.Now()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: level})
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		observeTx("rollback", start)
		return classifyError(err)
	}

	if err := tx.Commit(); err != nil {
		observeTx("rollback", start)
		return classifyError(err)
	}

	observeTx("commit", start)
	return nil
}

// applyChanges issues one UPDATE statement per field change on the open
// transaction. Column and table names come from the model constants, never
// from request input, so building the statement with Sprintf is safe here.
// An empty change set issues nothing.
//
// Callers are expected to have confirmed the target row exists (typically by
// a prior read in the same interaction); an UPDATE that matches zero rows is
// not treated as an error at this level.
func applyChanges(ctx context.Context, tx *sql.Tx, table, idColumn string, id int64, changes ChangeSet) error {
	for _, fc := range changes {
		query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`, table, fc.Column, idColumn)
		if _, err := tx.ExecContext(ctx, query, fc.Value, id); err != nil {
			return err
		}
	}
	return nil
}

// execChanges is the common shape of a partial entity update: one transaction,
// one statement per selected field, commit. Failures come back classified.
func execChanges(ctx context.Context, db *sql.DB, table, idColumn string, id int64, changes ChangeSet, level sql.IsolationLevel) error {
	return runTx(ctx, db, level, func(tx *sql.Tx) error {
		return applyChanges(ctx, tx, table, idColumn, id, changes)
	})
}

// runSerializable runs fn, which must contain the entire interaction
// (re-reading current state included, so a retry derives from fresh values).
// When fn fails with ErrSerialization the caller is asked to confirm a
// retry; any other failure, a declined confirmation, a nil confirm, or the
// attempt cap ends the interaction with the failure as-is. The loop is
// explicit and bounded; there is no automatic or recursive retry.
func runSerializable(ctx context.Context, confirm ConfirmFunc, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if !errors.Is(err, ErrSerialization) {
			return err
		}
		if attempt >= maxAttempts {
			return err
		}
		if confirm == nil || !confirm(attempt) {
			return err
		}
		txRetries.Inc()
	}
}
