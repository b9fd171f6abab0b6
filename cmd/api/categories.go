// cmd/api/categories.go
// HTTP handlers for the categories resource.
package main

import (
	"net/http"

	"github.com/nmvarela/biblioteca-api/internal/data"
	"github.com/nmvarela/biblioteca-api/internal/validator"
)

// createCategoryHandler handles POST /v1/categories.
func (app *applicationDependencies) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.Name != "", "name", "must be provided")
	v.Check(input.Description != "", "description", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	category := &data.Category{
		Name:        input.Name,
		Description: input.Description,
	}

	err = app.models.Categories.Insert(r.Context(), category)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"category": category}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showCategoryHandler handles GET /v1/categories/:id.
func (app *applicationDependencies) showCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	category, err := app.models.Categories.Get(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"category": category}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listCategoriesHandler handles GET /v1/categories.
func (app *applicationDependencies) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := app.models.Categories.GetAll(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"categories": categories}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateCategoryHandler handles PATCH /v1/categories/:id.
// Selected fields are applied inside one serializable transaction; clearing
// either field surfaces the database's not-null violation for it.
func (app *applicationDependencies) updateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if _, err := app.models.Categories.Get(r.Context(), id); err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	var changes data.ChangeSet
	if input.Name != nil {
		changes = changes.SetString("name", *input.Name)
	}
	if input.Description != nil {
		changes = changes.SetString("description", *input.Description)
	}

	err = app.models.Categories.Update(r.Context(), id, changes, app.retryConfirm(r))
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	category, err := app.models.Categories.Get(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"category": category}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteCategoryHandler handles DELETE /v1/categories/:id.
// A category still assigned to books reports the foreign-key violation.
func (app *applicationDependencies) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.models.Categories.Delete(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "category successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
