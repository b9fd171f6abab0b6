// cmd/api/loans.go
// HTTP handlers for the loans resource.
package main

import (
	"net/http"

	"github.com/nmvarela/biblioteca-api/internal/data"
	"github.com/nmvarela/biblioteca-api/internal/validator"
)

// createLoanHandler handles POST /v1/loans.
// Opening a loan makes the book unavailable until it is returned. A missing
// book or student id is reported as a field-attributed reference error by
// the database rather than checked up front.
func (app *applicationDependencies) createLoanHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Comment   string `json:"comment"`
		BookID    int64  `json:"book_id"`
		StudentID int64  `json:"student_id"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	v.Check(input.BookID > 0, "book_id", "must be provided")
	v.Check(input.StudentID > 0, "student_id", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	loan := &data.Loan{
		Comment:   nilIfEmpty(input.Comment),
		BookID:    input.BookID,
		StudentID: input.StudentID,
	}

	err = app.models.Loans.Insert(r.Context(), loan)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"loan": loan}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showLoanHandler handles GET /v1/loans/:id.
func (app *applicationDependencies) showLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	loan, err := app.models.Loans.Get(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// returnLoanHandler handles PATCH /v1/loans/:id/return.
// It stamps the return time on an open loan, which makes the book available
// again. A loan that does not exist or was already returned is a 404.
func (app *applicationDependencies) returnLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.models.Loans.Finalize(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	loan, err := app.models.Loans.Get(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"loan": loan}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteLoanHandler handles DELETE /v1/loans/:id.
func (app *applicationDependencies) deleteLoanHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.models.Loans.Delete(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"message": "loan successfully deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listBookLoansHandler handles GET /v1/books/:id/loans.
func (app *applicationDependencies) listBookLoansHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if _, err := app.models.Books.Get(r.Context(), id); err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	loans, err := app.models.Loans.ForBook(r.Context(), id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"loans": loans}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listStudentLoansHandler handles GET /v1/students/:id/loans.
func (app *applicationDependencies) listStudentLoansHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if _, err := app.models.Students.Get(r.Context(), id); err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	loans, err := app.models.Loans.ForStudent(r.Context(), id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"loans": loans}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
