// cmd/api/prices.go
// HTTP handlers for the price ledger.
package main

import (
	"errors"
	"net/http"

	"github.com/nmvarela/biblioteca-api/internal/data"
)

// updatePriceHandler handles PUT /v1/books/:id/price.
// The body carries either an absolute price or a percentage adjustment,
// never both. An absolute price is a plain append at read committed; a
// percentage derives the new value from the latest entry inside a
// serializable transaction, retried once when the client opted in with
// ?retry=true. A percentage change on a book with no price on file inserts
// nothing and is reported distinctly from any constraint violation.
func (app *applicationDependencies) updatePriceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Price   *float64 `json:"price"`
		Percent *float64 `json:"percent"`
	}
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if (input.Price == nil) == (input.Percent == nil) {
		app.badRequestResponse(w, r, errors.New("provide exactly one of price or percent"))
		return
	}

	switch {
	case input.Price != nil:
		err = app.models.Prices.Record(r.Context(), id, *input.Price)
	default:
		err = app.models.Prices.RecordPercent(r.Context(), id, *input.Percent, app.retryConfirm(r))
	}
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	current, err := app.models.Prices.Current(r.Context(), id)
	if err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book_id": id, "current_price": current}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listPricesHandler handles GET /v1/books/:id/prices.
// It returns the full price history of one book, newest first. The history
// sequence is consumed in a single pass here; rendering needs the whole
// slice anyway.
func (app *applicationDependencies) listPricesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	// A missing book and a book without prices render differently, so check
	// existence first.
	if _, err := app.models.Books.Get(r.Context(), id); err != nil {
		app.storageErrorResponse(w, r, err)
		return
	}

	prices := []data.PriceEntry{}
	for entry, err := range app.models.Prices.History(r.Context(), id) {
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		prices = append(prices, entry)
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"book_id": id, "prices": prices}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
