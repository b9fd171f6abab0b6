// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes registers all HTTP endpoints and returns the configured router wrapped
// in the application middleware.
//
// Middleware chain (outermost → innermost):
//
//	recoverPanic → rateLimit → logRequest → router
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	// Override the default httprouter error handlers to return JSON responses.
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	// Book catalog
	router.HandlerFunc(http.MethodPost, "/v1/books", app.createBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id", app.showBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books", app.listBooksHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/books/:id", app.updateBookHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/books/:id", app.deleteBookHandler)

	// Price ledger
	router.HandlerFunc(http.MethodPut, "/v1/books/:id/price", app.updatePriceHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id/prices", app.listPricesHandler)

	// Categories
	router.HandlerFunc(http.MethodPost, "/v1/categories", app.createCategoryHandler)
	router.HandlerFunc(http.MethodGet, "/v1/categories/:id", app.showCategoryHandler)
	router.HandlerFunc(http.MethodGet, "/v1/categories", app.listCategoriesHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/categories/:id", app.updateCategoryHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/categories/:id", app.deleteCategoryHandler)

	// Students
	router.HandlerFunc(http.MethodPost, "/v1/students", app.createStudentHandler)
	router.HandlerFunc(http.MethodGet, "/v1/students/:id", app.showStudentHandler)
	router.HandlerFunc(http.MethodGet, "/v1/students", app.listStudentsHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/students/:id", app.updateStudentHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/students/:id", app.deleteStudentHandler)
	router.HandlerFunc(http.MethodPost, "/v1/students/promote", app.promoteStudentsHandler)

	// Loans
	router.HandlerFunc(http.MethodPost, "/v1/loans", app.createLoanHandler)
	router.HandlerFunc(http.MethodGet, "/v1/loans/:id", app.showLoanHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/loans/:id/return", app.returnLoanHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/loans/:id", app.deleteLoanHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id/loans", app.listBookLoansHandler)
	router.HandlerFunc(http.MethodGet, "/v1/students/:id/loans", app.listStudentLoansHandler)

	// Prometheus metrics
	router.Handler(http.MethodGet, "/debug/metrics", promhttp.Handler())

	// Wrap with middleware: recoverPanic is outermost so it catches panics
	// from the other middleware and the router alike.
	return app.recoverPanic(app.rateLimit(app.logRequest(router)))
}
