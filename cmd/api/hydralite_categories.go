package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"catalog/internal/cache"
	"catalog/internal/domain/hydralite"

	"github.com/go-chi/chi/v5"
)

type HydraliteCategoryPayload struct {
	Name string `json:"name" validate:"required,max=100"`
}

func readCategoryPayload(w http.ResponseWriter, r *http.Request) (HydraliteCategoryPayload, error) {
	var payload HydraliteCategoryPayload
	if err := readJSON(w, r, &payload); err != nil {
		return payload, err
	}
	payload.Name = strings.TrimSpace(payload.Name)
	return payload, Validate.Struct(payload)
}

// listHydraliteCategoriesHandler godoc
//
//	@Summary		List Hydralite categories
//	@Tags			hydralite
//	@Produce		json
//	@Success		200	{array}		hydralite.Category
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/hydralite/categories [get]
func (app *application) listHydraliteCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := cache.GetOrLoad(ctx, app.cache, hydraliteCachePrefix+"categories", app.store.Hydralite.ListCategories)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getHydraliteCategoryHandler godoc
//
//	@Summary		Get a Hydralite category
//	@Tags			hydralite
//	@Produce		json
//	@Param			id	path		string	true	"ObjectID hex or category id"
//	@Success		200	{object}	hydralite.Category
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/hydralite/categories/{id} [get]
func (app *application) getHydraliteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := app.store.Hydralite.GetCategory(ctx, chi.URLParam(r, "id"))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, c); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createHydraliteCategoryHandler godoc
//
//	@Summary		Create a Hydralite category
//	@Tags			hydralite
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		HydraliteCategoryPayload	true	"Category"
//	@Success		201		{object}	hydralite.Category
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		409		{object}	error	"Name already taken"
//	@Security		ApiKeyAuth
//	@Router			/hydralite/categories [post]
func (app *application) createHydraliteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	payload, err := readCategoryPayload(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	c := &hydralite.Category{ID: app.ids.HydraliteCategoryID(), Name: payload.Name}
	if err := app.store.Hydralite.CreateCategory(ctx, c); err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	app.cache.InvalidatePrefix(hydraliteCachePrefix)

	if err := app.jsonResponse(w, http.StatusCreated, c); err != nil {
		app.internalServerError(w, r, err)
	}
}

// renameHydraliteCategoryHandler godoc
//
//	@Summary		Rename a Hydralite category
//	@Tags			hydralite
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"ObjectID hex or category id"
//	@Param			payload	body		HydraliteCategoryPayload	true	"New name"
//	@Success		200		{object}	hydralite.Category
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error	"Name already taken"
//	@Security		ApiKeyAuth
//	@Router			/hydralite/categories/{id} [put]
func (app *application) renameHydraliteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	payload, err := readCategoryPayload(w, r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	c, err := app.store.Hydralite.RenameCategory(ctx, chi.URLParam(r, "id"), payload.Name)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	app.cache.InvalidatePrefix(hydraliteCachePrefix)

	if err := app.jsonResponse(w, http.StatusOK, c); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteHydraliteCategoryHandler godoc
//
//	@Summary		Delete a Hydralite category
//	@Description	Refused while any product uses the category.
//	@Tags			hydralite
//	@Param			id	path	string	true	"ObjectID hex or category id"
//	@Success		204	"No Content"
//	@Failure		404	{object}	error
//	@Failure		409	{object}	error	"Category in use"
//	@Security		ApiKeyAuth
//	@Router			/hydralite/categories/{id} [delete]
func (app *application) deleteHydraliteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := app.store.Hydralite.DeleteCategory(ctx, chi.URLParam(r, "id")); err != nil {
		var inUse *hydralite.CategoryInUseError
		if errors.As(err, &inUse) {
			app.conflictResponse(w, r, inUse)
			return
		}
		app.storeErrorResponse(w, r, err)
		return
	}

	app.cache.InvalidatePrefix(hydraliteCachePrefix)

	w.WriteHeader(http.StatusNoContent)
}
