package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"catalog/internal/cache"
	"catalog/internal/domain/products"
	"catalog/internal/idgen"

	"github.com/go-chi/chi/v5"
)

type CreateSubcategoryPayload struct {
	Name        string `json:"subcategory_name" validate:"required,max=100"`
	CategoryID  string `json:"category_id" validate:"required"`
	Description string `json:"description" validate:"max=1000"`
}

// listSubcategoriesHandler godoc
//
//	@Summary		List all ProSmart subcategories
//	@Tags			subcategories
//	@Produce		json
//	@Success		200	{array}		products.Subcategory
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/subcategories [get]
func (app *application) listSubcategoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := cache.GetOrLoad(ctx, app.cache, prosmartCachePrefix+"subcategories:all", func(ctx context.Context) ([]products.Subcategory, error) {
		return app.store.Products.ListSubcategories(ctx, "")
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createSubcategoryHandler godoc
//
//	@Summary		Create a ProSmart subcategory
//	@Description	The category must exist; names are unique within a category.
//	@Tags			subcategories
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateSubcategoryPayload	true	"Subcategory"
//	@Success		201		{object}	products.Subcategory
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error	"Category not found"
//	@Failure		409		{object}	error	"Name already taken"
//	@Security		ApiKeyAuth
//	@Router			/subcategories [post]
func (app *application) createSubcategoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var payload CreateSubcategoryPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	id, err := app.ids.Unique(ctx, payload.Name, idgen.SubcategoryShape, app.store.Products.SubcategoryIDExists)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	s := &products.Subcategory{
		SubcategoryID: id,
		Name:          payload.Name,
		CategoryID:    payload.CategoryID,
		Description:   strings.TrimSpace(payload.Description),
	}
	if err := app.store.Products.CreateSubcategory(ctx, s); err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	app.cache.InvalidatePrefix(prosmartCachePrefix)

	if err := app.jsonResponse(w, http.StatusCreated, s); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteSubcategoryHandler godoc
//
//	@Summary		Delete a ProSmart subcategory
//	@Description	Refused while products exist.
//	@Tags			subcategories
//	@Param			subcategoryID	path	string	true	"Subcategory ID"
//	@Success		204				"No Content"
//	@Failure		404				{object}	error
//	@Failure		409				{object}	error
//	@Security		ApiKeyAuth
//	@Router			/subcategories/{subcategoryID} [delete]
func (app *application) deleteSubcategoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := app.store.Products.DeleteSubcategory(ctx, chi.URLParam(r, "subcategoryID")); err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	app.cache.InvalidatePrefix(prosmartCachePrefix)

	w.WriteHeader(http.StatusNoContent)
}
