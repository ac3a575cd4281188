package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"catalog/internal/assets"
	"catalog/internal/domain/hydralite"
	"catalog/internal/domain/products"
)

func (app *application) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("internal error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusInternalServerError, "the server encountered a problem")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("bad request", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadRequest, err.Error())
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("not found error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusNotFound, err.Error())
}

func (app *application) conflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("conflict response", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusConflict, err.Error())
}

func (app *application) unauthorizedErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) unauthorizedBasicErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Warnw("unauthorized basic error", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	w.Header().Set("WWW-Authenticate", `Basic realm="restricted", charset="UTF-8"`)

	writeJSONError(w, http.StatusUnauthorized, "unauthorized")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	app.logger.Warnw("rate limit exceeded", "method", r.Method, "path", r.URL.Path)

	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter.Seconds()))

	writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, retry after: "+retryAfter.Round(time.Second).String())
}

func (app *application) gatewayTimeoutResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("gateway timeout", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusGatewayTimeout, "the operation timed out, no changes were saved")
}

func (app *application) badGatewayResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logger.Errorw("bad gateway", "method", r.Method, "path", r.URL.Path, "error", err.Error())

	writeJSONError(w, http.StatusBadGateway, err.Error())
}

// reconcileErrorResponse maps a failed gallery edit to a response. Nothing
// was persisted for any of these.
func (app *application) reconcileErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var commitErr *assets.CommitError
	switch {
	case assets.IsValidation(err):
		app.badRequestResponse(w, r, err)
	case assets.IsTimeout(err):
		app.gatewayTimeoutResponse(w, r, err)
	case assets.IsUpload(err):
		app.badGatewayResponse(w, r, err)
	case errors.As(err, &commitErr):
		app.internalServerError(w, r, commitErr.Err)
	default:
		app.internalServerError(w, r, err)
	}
}

// storeErrorResponse maps repository errors of both catalogs.
func (app *application) storeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var missing *hydralite.MissingProductError
	switch {
	case errors.Is(err, products.ErrProductNotFound),
		errors.Is(err, products.ErrCategoryNotFound),
		errors.Is(err, products.ErrSubcategoryNotFound),
		errors.Is(err, hydralite.ErrProductNotFound),
		errors.Is(err, hydralite.ErrCategoryNotFound):
		app.notFoundResponse(w, r, err)
	case errors.As(err, &missing):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, products.ErrDuplicateCategory),
		errors.Is(err, products.ErrDuplicateSubcategory),
		errors.Is(err, hydralite.ErrDuplicateCategory),
		errors.Is(err, hydralite.ErrDuplicateProduct):
		app.conflictResponse(w, r, err)
	case errors.Is(err, products.ErrCategoryHasProducts),
		errors.Is(err, products.ErrCategoryHasSubcategories),
		errors.Is(err, products.ErrSubcategoriesHaveProducts),
		errors.Is(err, products.ErrSubcategoryHasProducts),
		errors.Is(err, hydralite.ErrCategoryInUse):
		app.conflictResponse(w, r, err)
	case errors.Is(err, errInvalidPlacement),
		errors.Is(err, hydralite.ErrTooManyHero):
		app.badRequestResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}
