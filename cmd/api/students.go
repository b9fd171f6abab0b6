// cmd/api/students.go
// HTTP handlers for the students resource.
package main

import (
	"net/http"

	"github.com/nmvarela/biblioteca-api/internal/data"
	"github.com/nmvarela/biblioteca-api/internal/validator"
)

// createStudentHandler handles POST /v1/students.
// Email and phone formats are checked up front; uniqueness of both and the
// positive-grade rule are enforced by the database and reported per field.
func (app *applicationDependencies) createStudentHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name    string `json:"name"`
		Surname string `json:"surname"`
		Grade   int    `json:"grade"`
		Email   string `json:"email"`
		Phone   string `json:"phone"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.Name != "", "name", "must be provided")
	v.Check(input.Surname != "", "surname", "must be provided")
	v.Check(input.Email != "", "email", "must be provided")
	v.Check(validator.Matches(input.Email, validator.EmailRX), "email", "must be a valid email address")
	if input.Phone != "" {
		v.Check(validator.Matches(input.Phone, validator.PhoneRX), "phone", "must be a valid phone number")
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	student := &data.Student{
		Name:    input.Name,
		Surname: input.Surname,
		Grade:   input.Grade,
		Email:   input.Email,
		Phone:   nilIfEmpty(input.Phone),
	}

	err = app.models.Students.Insert(r.Context(), student)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"student": student}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showStudentHandler handles GET /v1/students/:id.
func (app *applicationDependencies) showStudentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	student, err := app.models.Students.Get(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"student": student}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listStudentsHandler handles GET /v1/students.
func (app *applicationDependencies) listStudentsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	filters := data.Filters{
		Page:     app.readInt(qs, "page", 1),
		PageSize: app.readInt(qs, "page_size", 20),
		Sort:     app.readString(qs, "sort", "student_id"),
		SortSafeList: []string{
			"student_id", "surname", "grade",
			"-student_id", "-surname", "-grade",
		},
	}

	v := validator.New()
	v.Check(filters.Page > 0, "page", "must be greater than zero")
	v.Check(filters.PageSize > 0 && filters.PageSize <= 100, "page_size", "must be between 1 and 100")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	students, metadata, err := app.models.Students.GetAll(r.Context(), filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"students": students, "metadata": metadata}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateStudentHandler handles PATCH /v1/students/:id.
// Like the other partial updates: only the selected fields are touched, one
// serializable transaction for all of them.
func (app *applicationDependencies) updateStudentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Name    *string `json:"name"`
		Surname *string `json:"surname"`
		Grade   *int    `json:"grade"`
		Email   *string `json:"email"`
		Phone   *string `json:"phone"`
	}
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if _, err := app.models.Students.Get(r.Context(), id); err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	var changes data.ChangeSet
	if input.Name != nil {
		changes = changes.SetString("name", *input.Name)
	}
	if input.Surname != nil {
		changes = changes.SetString("surname", *input.Surname)
	}
	if input.Grade != nil {
		// Grade is mandatory and must stay positive; pass the value through
		// so the database's check constraint rules on it.
		changes = changes.Set("grade", *input.Grade)
	}
	if input.Email != nil {
		changes = changes.SetString("email", *input.Email)
	}
	if input.Phone != nil {
		changes = changes.SetString("phone", *input.Phone)
	}

	err = app.models.Students.Update(r.Context(), id, changes, app.retryConfirm(r))
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	student, err := app.models.Students.Get(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"student": student}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// promoteStudentsHandler handles POST /v1/students/promote.
// It bumps every student's grade by one in a single serializable
// transaction and reports how many records were promoted.
func (app *applicationDependencies) promoteStudentsHandler(w http.ResponseWriter, r *http.Request) {
	promoted, err := app.models.Students.PromoteAll(r.Context(), app.retryConfirm(r))
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"promoted": promoted}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteStudentHandler handles DELETE /v1/students/:id.
// A student with recorded loans reports the foreign-key violation.
func (app *applicationDependencies) deleteStudentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.models.Students.Delete(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "student successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
