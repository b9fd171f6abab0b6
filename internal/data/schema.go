// internal/data/schema.go
package data

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// ApplySchema creates the tables if they do not exist yet. It is run once at
// startup. Every statement is plain DDL with no embedded semicolons, so the
// file can be split naively.
//
// Constraints are named "<table>_<column>_{key,fkey,check}" on purpose: the
// error classifier relies on that shape to attribute violations to a column
// when the server omits the column diagnostic.
func ApplySchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
