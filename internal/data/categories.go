// internal/data/categories.go
package data

import (
	"context"
	"database/sql"
	"errors"
)

// Category groups books; its name is unique across the catalog.
type Category struct {
	ID          int64  `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CategoryModel provides database operations for the categories table.
type CategoryModel struct {
	DB *sql.DB
}

// Insert adds a new category. A duplicate name comes back as a unique
// ConstraintError attributed to the name column.
func (m CategoryModel) Insert(ctx context.Context, category *Category) error {
	query := `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING category_id`

	err := m.DB.QueryRowContext(ctx, query, category.Name, category.Description).Scan(&category.ID)
	if err != nil {
		return classifyError(err)
	}
	return nil
}

// Get retrieves a single category by id.
func (m CategoryModel) Get(ctx context.Context, id int64) (*Category, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT category_id, name, description
		FROM categories
		WHERE category_id = $1`

	var category Category
	err := m.DB.QueryRowContext(ctx, query, id).Scan(&category.ID, &category.Name, &category.Description)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &category, nil
}

// GetAll retrieves every category ordered by name. The table is small, so
// there is no pagination here.
func (m CategoryModel) GetAll(ctx context.Context) ([]*Category, error) {
	query := `
		SELECT category_id, name, description
		FROM categories
		ORDER BY name ASC`

	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*Category{}
	for rows.Next() {
		var category Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description); err != nil {
			return nil, err
		}
		categories = append(categories, &category)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

// Update applies the selected field changes to one category inside a single
// serializable transaction, under the conflict-retry protocol.
func (m CategoryModel) Update(ctx context.Context, id int64, changes ChangeSet, confirm ConfirmFunc) error {
	return runSerializable(ctx, confirm, func(ctx context.Context) error {
		return execChanges(ctx, m.DB, "categories", "category_id", id, changes, sql.LevelSerializable)
	})
}

// Delete removes the category with the given id. A category still referenced
// by books comes back as a foreign-key ConstraintError.
func (m CategoryModel) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrRecordNotFound
	}

	result, err := m.DB.ExecContext(ctx, `DELETE FROM categories WHERE category_id = $1`, id)
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
