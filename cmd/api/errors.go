// cmd/api/errors.go
// This file contains all error-response helpers for the application,
// including the rendering of classified data-layer failures into
// field-attributed messages.
package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nmvarela/biblioteca-api/internal/data"
)

// logError logs an internal error at ERROR level with the request method and URL for context.
func (app *applicationDependencies) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(),
		slog.String("request_method", r.Method),
		slog.String("request_url", r.URL.String()),
	)
}

// errorResponse sends a JSON error envelope with the given status code and message.
// It is the low-level building block used by all the specific error helpers below.
func (app *applicationDependencies) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	data := envelope{"error": message}
	err := app.writeJSON(w, status, data, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs a 500-level error and sends a generic message to the client.
// We never expose internal error details to the client for security reasons.
func (app *applicationDependencies) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
}

// notFoundResponse sends a 404 Not Found error.
func (app *applicationDependencies) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

// methodNotAllowedResponse sends a 405 Method Not Allowed error.
func (app *applicationDependencies) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "the " + r.Method + " method is not supported for this resource"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

// badRequestResponse sends a 400 Bad Request error with the error message from the caller.
func (app *applicationDependencies) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// failedValidationResponse sends a 422 Unprocessable Entity response containing
// the field-level validation errors collected by a Validator.
func (app *applicationDependencies) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, errors)
}

// rateLimitExceededResponse sends a 429 Too Many Requests error.
func (app *applicationDependencies) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// editConflictResponse sends a 409 Conflict error. It is used when a
// serializable transaction was aborted by a concurrent update and the client
// either declined the retry or exhausted the attempt cap.
func (app *applicationDependencies) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusConflict, "unable to complete the update due to a concurrent change, please try again")
}

// failedConstraintResponse renders a classified constraint violation as a 422
// with a single field-attributed message, in the same {field: message} shape
// the validator uses.
func (app *applicationDependencies) failedConstraintResponse(w http.ResponseWriter, r *http.Request, cerr *data.ConstraintError) {
	field := cerr.Column
	if field == "" {
		field = "record"
	}

	var message string
	switch cerr.Kind {
	case data.ConstraintUnique:
		message = "this value already exists"
	case data.ConstraintNotNull:
		message = "must be provided"
	case data.ConstraintForeignKey:
		message = "refers to a record that does not exist or is still referenced"
	case data.ConstraintCheck:
		message = "is outside the allowed range"
	case data.ConstraintStringTooLong:
		message = "is too long"
	case data.ConstraintNumericOverflow:
		message = "is too large"
	default:
		message = "was rejected by the database"
	}

	app.failedValidationResponse(w, r, map[string]string{field: message})
}

// storageErrorResponse is the single place where data-layer failures are
// turned into HTTP responses. Every classified failure maps to one specific
// status and message; anything unclassified is a 500 with its raw code and
// message in the server log only.
func (app *applicationDependencies) storageErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *data.ConstraintError
	switch {
	case errors.Is(err, data.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, data.ErrNoPriceOnFile):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, "the book has no recorded price")
	case errors.Is(err, data.ErrSerialization):
		app.editConflictResponse(w, r)
	case errors.As(err, &cerr):
		app.failedConstraintResponse(w, r, cerr)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
