// cmd/api/books.go
// HTTP handlers for the books resource. Each handler is a method on
// *applicationDependencies so it has access to the logger and database models.
package main

import (
	"net/http"

	"github.com/nmvarela/biblioteca-api/internal/data"
	"github.com/nmvarela/biblioteca-api/internal/validator"
)

// nilIfEmpty maps the empty string to a nil pointer, the convention for
// optional columns: entering nothing means NULL.
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nilIfZero does the same for optional integer columns.
func nilIfZero(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

// nilIfZero64 does the same for optional reference columns.
func nilIfZero64(i int64) *int64 {
	if i == 0 {
		return nil
	}
	return &i
}

// createBookHandler handles POST /v1/books.
// It reads a JSON body with the new book's details, inserts a record, and
// responds with the created book and a 201 Created status. Uniqueness of the
// ISBN and existence of the category are enforced by the database and come
// back as field-attributed 422 responses.
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Title           string `json:"title"`
		Author          string `json:"author"`
		PublicationYear int    `json:"publication_year"`
		ISBN            string `json:"isbn"`
		Synopsis        string `json:"synopsis"`
		CategoryID      int64  `json:"category_id"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.Title != "", "title", "must be provided")
	v.Check(input.CategoryID >= 0, "category_id", "must be a positive id")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	book := &data.Book{
		Title:           input.Title,
		Author:          nilIfEmpty(input.Author),
		PublicationYear: nilIfZero(input.PublicationYear),
		ISBN:            nilIfEmpty(input.ISBN),
		Synopsis:        nilIfEmpty(input.Synopsis),
		CategoryID:      nilIfZero64(input.CategoryID),
	}

	err = app.models.Books.Insert(r.Context(), book)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /v1/books/:id.
// The returned book carries its category name, current price and
// availability, all derived at read time.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listBooksHandler handles GET /v1/books.
// Title, author and ISBN filters match partially and case-insensitively;
// year and category_id must match exactly when given.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	title := app.readString(qs, "title", "")
	author := app.readString(qs, "author", "")
	isbn := app.readString(qs, "isbn", "")
	year := app.readInt(qs, "year", 0)
	categoryID := int64(app.readInt(qs, "category_id", 0))

	filters := data.Filters{
		Page:     app.readInt(qs, "page", 1),
		PageSize: app.readInt(qs, "page_size", 20),
		Sort:     app.readString(qs, "sort", "book_id"),
		SortSafeList: []string{
			"book_id", "title", "author", "publication_year",
			"-book_id", "-title", "-author", "-publication_year",
		},
	}

	v := validator.New()
	v.Check(filters.Page > 0, "page", "must be greater than zero")
	v.Check(filters.PageSize > 0 && filters.PageSize <= 100, "page_size", "must be between 1 and 100")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, metadata, err := app.models.Books.Search(r.Context(), title, author, isbn, year, categoryID, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"books": books, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PATCH /v1/books/:id.
// The body carries only the fields the operator chose to change; absent
// fields are left alone, and an explicit empty string (or zero id) clears an
// optional column. All selected changes are applied inside one serializable
// transaction; a new price becomes a ledger entry rather than an in-place
// mutation. With ?retry=true a serialization abort is retried once before
// being reported as a conflict.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Title           *string  `json:"title"`
		Author          *string  `json:"author"`
		PublicationYear *int     `json:"publication_year"`
		ISBN            *string  `json:"isbn"`
		Synopsis        *string  `json:"synopsis"`
		CategoryID      *int64   `json:"category_id"`
		Price           *float64 `json:"price"`
	}
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	// Confirm the book exists before issuing any updates; a missing id is a
	// plain 404, not a storage error.
	_, err = app.models.Books.Get(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	var changes data.ChangeSet
	if input.Title != nil {
		changes = changes.SetString("title", *input.Title)
	}
	if input.Author != nil {
		changes = changes.SetString("author", *input.Author)
	}
	if input.PublicationYear != nil {
		changes = changes.SetInt("publication_year", int64(*input.PublicationYear))
	}
	if input.ISBN != nil {
		changes = changes.SetString("isbn", *input.ISBN)
	}
	if input.Synopsis != nil {
		changes = changes.SetString("synopsis", *input.Synopsis)
	}
	if input.CategoryID != nil {
		changes = changes.SetInt("category_id", *input.CategoryID)
	}

	err = app.models.Books.Update(r.Context(), id, changes, input.Price, app.retryConfirm(r))
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	// Re-read so the response reflects the committed state, including the
	// refreshed current price.
	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /v1/books/:id.
// A book referenced by loans or price entries is not deleted; the
// foreign-key violation is reported instead of cascading.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.models.Books.Delete(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "book successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
