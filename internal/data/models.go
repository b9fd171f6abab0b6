// internal/data/models.go
package data

import (
	"database/sql"
	"math"
	"strings"
)

// Models is a top-level container that groups all database model types
// together. It is passed around the application via applicationDependencies
// so every handler has access to the database without importing sql directly.
type Models struct {
	Books      BookModel     // books table, plus derived price/availability reads
	Categories CategoryModel // categories table
	Students   StudentModel  // students table
	Loans      LoanModel     // loans table and the availability predicate
	Prices     PriceModel    // append-only book_prices ledger
}

// NewModels constructs a Models value wired up to the given database
// connection pool. Call this once during application startup.
func NewModels(db *sql.DB) Models {
	return Models{
		Books:      BookModel{DB: db},
		Categories: CategoryModel{DB: db},
		Students:   StudentModel{DB: db},
		Loans:      LoanModel{DB: db},
		Prices:     PriceModel{DB: db},
	}
}

// Filters holds pagination and sorting parameters extracted from URL query strings.
type Filters struct {
	Page         int      // Current page number (1-indexed)
	PageSize     int      // Number of records per page
	Sort         string   // Column name to sort by (prefix with "-" for DESC)
	SortSafeList []string // Allowed sort columns to prevent SQL injection
}

// sortColumn returns the validated column name for ORDER BY, falling back to
// the first entry of the safe list when the requested sort is not allowed.
func (f Filters) sortColumn() string {
	for _, safe := range f.SortSafeList {
		if f.Sort == safe {
			return strings.TrimPrefix(f.Sort, "-")
		}
	}
	return strings.TrimPrefix(f.SortSafeList[0], "-")
}

// sortDirection returns "ASC" or "DESC" based on the Sort prefix.
func (f Filters) sortDirection() string {
	if strings.HasPrefix(f.Sort, "-") {
		return "DESC"
	}
	return "ASC"
}

// limit returns the SQL LIMIT value derived from PageSize.
func (f Filters) limit() int { return f.PageSize }

// offset returns the SQL OFFSET value derived from Page and PageSize.
func (f Filters) offset() int { return (f.Page - 1) * f.PageSize }

// Metadata contains pagination information returned alongside list responses.
type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records,omitempty"`
}

// calculateMetadata computes page metadata from total record count and filter values.
func calculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(totalRecords) / float64(pageSize))),
		TotalRecords: totalRecords,
	}
}
