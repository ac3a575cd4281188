package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"catalog/internal/cache"
	"catalog/internal/domain/products"
	"catalog/internal/idgen"

	"github.com/go-chi/chi/v5"
)

const (
	prosmartCachePrefix  = "prosmart:"
	hydraliteCachePrefix = "hydralite:"
)

type CreateCategoryPayload struct {
	Name        string `json:"category_name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type DeleteCategoryResponse struct {
	Message              string `json:"message"`
	DeletedSubcategories int    `json:"deletedSubcategories"`
}

// listCategoriesHandler godoc
//
//	@Summary		List ProSmart categories
//	@Description	Categories with live product and subcategory counts
//	@Tags			categories
//	@Produce		json
//	@Success		200	{array}		products.Category
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/categories [get]
func (app *application) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := cache.GetOrLoad(ctx, app.cache, prosmartCachePrefix+"categories", app.store.Products.ListCategories)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createCategoryHandler godoc
//
//	@Summary		Create a ProSmart category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateCategoryPayload	true	"Category"
//	@Success		201		{object}	products.Category
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		409		{object}	error	"Name already taken"
//	@Security		ApiKeyAuth
//	@Router			/categories [post]
func (app *application) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var payload CreateCategoryPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	payload.Name = strings.TrimSpace(payload.Name)
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	id, err := app.ids.Unique(ctx, payload.Name, idgen.CategoryShape, app.store.Products.CategoryIDExists)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	c := &products.Category{
		CategoryID:  id,
		Name:        payload.Name,
		Description: strings.TrimSpace(payload.Description),
	}
	if err := app.store.Products.CreateCategory(ctx, c); err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	app.cache.InvalidatePrefix(prosmartCachePrefix)

	if err := app.jsonResponse(w, http.StatusCreated, c); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteCategoryHandler godoc
//
//	@Summary		Delete a ProSmart category
//	@Description	Refused while products exist. Subcategories block the delete unless cascade=true and all of them are empty.
//	@Tags			categories
//	@Produce		json
//	@Param			categoryID	path		string	true	"Category ID"
//	@Param			cascade		query		bool	false	"Also delete empty subcategories"
//	@Success		200			{object}	DeleteCategoryResponse
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/categories/{categoryID} [delete]
func (app *application) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cascade, _ := strconv.ParseBool(r.URL.Query().Get("cascade"))

	c, err := app.store.Products.GetCategory(ctx, chi.URLParam(r, "categoryID"))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	removed, err := app.store.Products.DeleteCategory(ctx, c.ID, cascade)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	app.cache.InvalidatePrefix(prosmartCachePrefix)

	if err := app.jsonResponse(w, http.StatusOK, DeleteCategoryResponse{
		Message:              "Category deleted successfully",
		DeletedSubcategories: removed,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listCategorySubcategoriesHandler godoc
//
//	@Summary		List the subcategories of a category
//	@Tags			categories
//	@Produce		json
//	@Param			categoryID	path		string	true	"Category ID"
//	@Success		200			{array}		products.Subcategory
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/categories/{categoryID}/subcategories [get]
func (app *application) listCategorySubcategoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := app.store.Products.GetCategory(ctx, chi.URLParam(r, "categoryID"))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	list, err := cache.GetOrLoad(ctx, app.cache, prosmartCachePrefix+"subcategories:"+c.ID, func(ctx context.Context) ([]products.Subcategory, error) {
		return app.store.Products.ListSubcategories(ctx, c.ID)
	})
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}
