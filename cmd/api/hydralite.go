package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"catalog/internal/assets"
	"catalog/internal/domain/hydralite"
	"catalog/internal/idgen"
	"catalog/internal/params"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type HydralitePagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type HydraliteListResponse struct {
	Products   []hydralite.Product  `json:"products"`
	Pagination *HydralitePagination `json:"pagination,omitempty"`
}

type HydraliteEditResponse struct {
	Product  *hydralite.Product `json:"product"`
	Uploaded int                `json:"uploaded"`
	Deleted  int                `json:"deleted"`
}

// hydraliteFields holds the text fields of a product form. A nil pointer
// means the field was not sent.
type hydraliteFields struct {
	ID          string
	Name        *string
	Description *string
	Category    *string
	Subcategory *string
	KeyFeatures []hydralite.KeyFeature
	hasFeatures bool
}

func formField(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	v, ok := r.MultipartForm.Value[key]
	if !ok || len(v) == 0 {
		return nil
	}
	s := strings.TrimSpace(v[0])
	return &s
}

func readHydraliteFields(r *http.Request) (hydraliteFields, error) {
	f := hydraliteFields{
		Name:        formField(r, "name"),
		Description: formField(r, "description"),
		Category:    formField(r, "category"),
		Subcategory: formField(r, "subcategory"),
	}
	if id := formField(r, "id"); id != nil {
		f.ID = *id
	}

	if raw := formField(r, "key_features"); raw != nil {
		f.hasFeatures = true
		if *raw != "" {
			if err := json.Unmarshal([]byte(*raw), &f.KeyFeatures); err != nil {
				return f, fmt.Errorf("invalid key_features: %w", err)
			}
		}
		for i, kf := range f.KeyFeatures {
			if err := Validate.Struct(kf); err != nil {
				return f, fmt.Errorf("key_features[%d]: %w", i, err)
			}
		}
	}
	return f, nil
}

func (f hydraliteFields) apply(p *hydralite.Product) {
	if f.Name != nil && *f.Name != "" {
		p.Name = *f.Name
	}
	if f.Description != nil {
		p.Description = *f.Description
	}
	if f.Category != nil {
		p.Category = *f.Category
	}
	if f.Subcategory != nil {
		p.Subcategory = *f.Subcategory
	}
	if f.hasFeatures {
		p.KeyFeatures = f.KeyFeatures
	}
}

func (app *application) hydraliteNamer(p *hydralite.Product) assets.Namer {
	return assets.UniqueNamer(p.ObjectID.Hex(), p.Name, time.Now, app.ids.Token)
}

// listHydraliteProductsHandler godoc
//
//	@Summary		List Hydralite products
//	@Description	Newest first. all=true returns every match without pagination.
//	@Tags			hydralite
//	@Produce		json
//	@Param			search		query		string	false	"Match on name, description or category"
//	@Param			category	query		string	false	"Category name"
//	@Param			all			query		bool	false	"Disable pagination"
//	@Param			page		query		int		false	"Page number (default 1)"
//	@Param			limit		query		int		false	"Page size (default 20)"
//	@Success		200			{object}	HydraliteListResponse
//	@Failure		500			{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/hydralite/products [get]
func (app *application) listHydraliteProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := hydralite.ProductFilter{
		Search:   strings.TrimSpace(q.Get("search")),
		Category: q.Get("category"),
	}

	all, _ := strconv.ParseBool(q.Get("all"))
	var page *params.Pagination
	if !all {
		p := params.Parse(q, params.HydraliteLimits)
		page = &p
	}

	list, total, err := app.store.Hydralite.ListProducts(ctx, filter, page)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := HydraliteListResponse{Products: list}
	if page != nil {
		page.ComputeMeta(total)
		resp.Pagination = &HydralitePagination{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.TotalPages,
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getHydraliteProductHandler godoc
//
//	@Summary		Get a Hydralite product
//	@Tags			hydralite
//	@Produce		json
//	@Param			id	path		string	true	"ObjectID hex or product id"
//	@Success		200	{object}	hydralite.Product
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/hydralite/products/{id} [get]
func (app *application) getHydraliteProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := app.store.Hydralite.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, p); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createHydraliteProductHandler godoc
//
//	@Summary		Create a Hydralite product
//	@Description	Images and videos are sent as assets[0], assets[1], ... in gallery order.
//	@Tags			hydralite
//	@Accept			mpfd
//	@Produce		json
//	@Param			name			formData	string	true	"Product name"
//	@Param			id				formData	string	false	"Product id, defaults to a slug of the name"
//	@Param			description		formData	string	false	"Description"
//	@Param			category		formData	string	false	"Category name"
//	@Param			subcategory		formData	string	false	"Subcategory name"
//	@Param			key_features	formData	string	false	"JSON array of {title, description}"
//	@Success		201				{object}	HydraliteEditResponse
//	@Failure		400				{object}	ErrorBadRequestResponse
//	@Failure		409				{object}	error	"Product id already taken"
//	@Failure		502				{object}	error	"Upload to the asset store failed"
//	@Failure		504				{object}	error	"Uploads timed out"
//	@Security		ApiKeyAuth
//	@Router			/hydralite/products [post]
func (app *application) createHydraliteProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), app.config.Assets.Timeout+15*time.Second)
	defer cancel()

	if err := app.parseMultipart(w, r); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	defer removeForm(r)

	fields, err := readHydraliteFields(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if fields.Name == nil || *fields.Name == "" {
		app.badRequestResponse(w, r, errors.New("name is required"))
		return
	}

	p := &hydralite.Product{ObjectID: bson.NewObjectID(), ID: fields.ID}
	fields.apply(p)
	if p.ID == "" {
		p.ID = idgen.Slug(p.Name)
	}
	if p.ID == "" {
		app.badRequestResponse(w, r, errors.New("cannot derive a product id from the name"))
		return
	}

	taken, err := app.store.Hydralite.ProductIDExists(ctx, p.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if taken {
		app.conflictResponse(w, r, hydralite.ErrDuplicateProduct)
		return
	}

	refs, err := gallerySubmission{
		form:     r.MultipartForm,
		filesKey: "assets",
		metaKey:  "assetMetadata",
	}.build()
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	res, err := app.assets.Reconcile(ctx, assets.Edit{
		Submission: refs,
		Namer:      app.hydraliteNamer(p),
		Commit: func(ctx context.Context, records []assets.Record) error {
			p.Assets = records
			return app.store.Hydralite.CreateProduct(ctx, p)
		},
	})
	if err != nil {
		app.reconcileErrorResponse(w, r, err)
		return
	}

	app.logger.Infow("hydralite product created", "id", p.ID, "assets", len(res.Uploaded))

	if err := app.jsonResponse(w, http.StatusCreated, HydraliteEditResponse{Product: p, Uploaded: len(res.Uploaded)}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateHydraliteProductHandler godoc
//
//	@Summary		Update a Hydralite product
//	@Description	assetMetadata is {"assetMetadata":[{"index":0,"isNew":false,"originalUrl":"..."}]}; new slots carry files as assets[index]. Without assetMetadata the gallery is kept and any files are appended.
//	@Tags			hydralite
//	@Accept			mpfd
//	@Produce		json
//	@Param			id				path		string	true	"ObjectID hex or product id"
//	@Param			name			formData	string	false	"Product name"
//	@Param			description		formData	string	false	"Description"
//	@Param			category		formData	string	false	"Category name"
//	@Param			subcategory		formData	string	false	"Subcategory name"
//	@Param			key_features	formData	string	false	"JSON array of {title, description}"
//	@Param			assetMetadata	formData	string	false	"Gallery layout"
//	@Success		200				{object}	HydraliteEditResponse
//	@Failure		400				{object}	ErrorBadRequestResponse
//	@Failure		404				{object}	error
//	@Failure		502				{object}	error	"Upload to the asset store failed"
//	@Failure		504				{object}	error	"Uploads timed out"
//	@Security		ApiKeyAuth
//	@Router			/hydralite/products/{id} [put]
func (app *application) updateHydraliteProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), app.config.Assets.Timeout+15*time.Second)
	defer cancel()

	if err := app.parseMultipart(w, r); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	defer removeForm(r)

	prev, err := app.store.Hydralite.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	fields, err := readHydraliteFields(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	next := *prev
	fields.apply(&next)

	refs, err := gallerySubmission{
		form:     r.MultipartForm,
		filesKey: "assets",
		metaKey:  "assetMetadata",
		prior:    prev.Assets,
	}.build()
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	res, err := app.assets.Reconcile(ctx, assets.Edit{
		Prior:      prev.Assets,
		Submission: refs,
		Namer:      app.hydraliteNamer(&next),
		Commit: func(ctx context.Context, records []assets.Record) error {
			next.Assets = records
			return app.store.Hydralite.UpdateProduct(ctx, &next)
		},
	})
	if err != nil {
		app.reconcileErrorResponse(w, r, err)
		return
	}
	if res.DeleteFailures > 0 {
		app.logger.Warnw("abandoned assets left behind", "id", next.ID, "count", res.DeleteFailures)
	}

	if err := app.jsonResponse(w, http.StatusOK, HydraliteEditResponse{
		Product:  &next,
		Uploaded: len(res.Uploaded),
		Deleted:  len(res.Deleted),
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteHydraliteProductHandler godoc
//
//	@Summary		Delete a Hydralite product
//	@Description	Deletes the product, then every asset it referenced.
//	@Tags			hydralite
//	@Param			id	path	string	true	"ObjectID hex or product id"
//	@Success		204	"No Content"
//	@Failure		404	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/hydralite/products/{id} [delete]
func (app *application) deleteHydraliteProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	p, err := app.store.Hydralite.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	if err := app.store.Hydralite.DeleteProduct(ctx, p); err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	if err := app.assets.Purge(ctx, p.Assets); err != nil {
		app.logger.Errorw("failed to delete product assets", "id", p.ID, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
