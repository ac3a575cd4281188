package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"catalog/internal/assets"
	"catalog/internal/domain/products"
	"catalog/internal/idgen"
	"catalog/internal/params"

	"github.com/go-chi/chi/v5"
)

type ProductListResponse struct {
	Products   []products.Product `json:"products"`
	Pagination *params.Pagination `json:"pagination,omitempty"`
}

type GalleryEditResponse struct {
	Product  *products.Product `json:"product"`
	Uploaded int               `json:"uploaded"`
	Deleted  int               `json:"deleted"`
}

type MoveProductPayload struct {
	SubcategoryID string `json:"subcategory_id" validate:"required"`
}

// listProductsHandler godoc
//
//	@Summary		List ProSmart products
//	@Description	Lists products newest first. Paginated only when both page and limit are given.
//	@Tags			products
//	@Produce		json
//	@Param			search			query		string	false	"Case-insensitive match on name, title or description"
//	@Param			category_id		query		string	false	"Category filter, 'all' ignored"
//	@Param			subcategory_id	query		string	false	"Subcategory filter, 'all' ignored"
//	@Param			page			query		int		false	"Page number"
//	@Param			limit			query		int		false	"Page size (max 100)"
//	@Success		200				{object}	ProductListResponse
//	@Failure		500				{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/products [get]
func (app *application) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := products.ProductFilter{
		Search:        strings.TrimSpace(q.Get("search")),
		CategoryID:    q.Get("category_id"),
		SubcategoryID: q.Get("subcategory_id"),
	}

	var page *params.Pagination
	if params.Requested(q) {
		p := params.Parse(q, params.ProsmartLimits)
		page = &p
	}

	list, total, err := app.store.Products.ListProducts(ctx, filter, page)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if page != nil {
		page.ComputeMeta(total)
	}

	if err := app.jsonResponse(w, http.StatusOK, ProductListResponse{Products: list, Pagination: page}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getProductHandler godoc
//
//	@Summary		Get a ProSmart product
//	@Tags			products
//	@Produce		json
//	@Param			productID	path		string	true	"Product ID"
//	@Success		200			{object}	products.Product
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/{productID} [get]
func (app *application) getProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := app.store.Products.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, p); err != nil {
		app.internalServerError(w, r, err)
	}
}

// placement resolves the category and subcategory a product is filed under.
func (app *application) placement(ctx context.Context, categoryID, subcategoryID string) (*products.Category, *products.Subcategory, error) {
	sub, err := app.store.Products.GetSubcategory(ctx, subcategoryID)
	if err != nil {
		return nil, nil, err
	}
	if categoryID == "" {
		categoryID = sub.CategoryID
	}
	cat, err := app.store.Products.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, nil, err
	}
	if sub.CategoryID != cat.ID {
		return nil, nil, fmt.Errorf("%w: subcategory %s does not belong to category %s", errInvalidPlacement, sub.ID, cat.ID)
	}
	return cat, sub, nil
}

var errInvalidPlacement = errors.New("invalid placement")

// createProductHandler godoc
//
//	@Summary		Create a ProSmart product
//	@Description	Creates a product and uploads its images. Files are sent as images[0], images[1], ... in gallery order.
//	@Tags			products
//	@Accept			mpfd
//	@Produce		json
//	@Param			product_name		formData	string	true	"Product name"
//	@Param			product_title		formData	string	false	"Product title"
//	@Param			product_description	formData	string	false	"Product description"
//	@Param			category_id			formData	string	true	"Category ID"
//	@Param			subcategory_id		formData	string	true	"Subcategory ID"
//	@Param			images[0]			formData	file	true	"First image"
//	@Success		201					{object}	GalleryEditResponse
//	@Failure		400					{object}	ErrorBadRequestResponse
//	@Failure		502					{object}	error	"Upload to the asset store failed"
//	@Failure		504					{object}	error	"Uploads timed out"
//	@Security		ApiKeyAuth
//	@Router			/products [post]
func (app *application) createProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), app.config.Assets.Timeout+15*time.Second)
	defer cancel()

	if err := app.parseMultipart(w, r); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	defer removeForm(r)

	name := strings.TrimSpace(r.FormValue("product_name"))
	categoryID := strings.TrimSpace(r.FormValue("category_id"))
	subcategoryID := strings.TrimSpace(r.FormValue("subcategory_id"))
	if name == "" || categoryID == "" || subcategoryID == "" {
		app.badRequestResponse(w, r, errors.New("product_name, category_id and subcategory_id are required"))
		return
	}

	cat, sub, err := app.placement(ctx, categoryID, subcategoryID)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	refs, err := gallerySubmission{
		form:       r.MultipartForm,
		filesKey:   "images",
		metaKey:    "imageMetadata",
		allowed:    []assets.Kind{assets.KindImage},
		requireOne: true,
	}.build()
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	productID, err := app.ids.Unique(ctx, name, idgen.ProductShape, app.store.Products.ProductIDExists)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	p := &products.Product{
		ProductID:     productID,
		Name:          name,
		Title:         strings.TrimSpace(r.FormValue("product_title")),
		Description:   strings.TrimSpace(r.FormValue("product_description")),
		CategoryID:    cat.ID,
		SubcategoryID: sub.ID,
		Status:        products.StatusActive,
	}

	res, err := app.assets.Reconcile(ctx, assets.Edit{
		Submission: refs,
		Namer:      assets.SlotNamer(cat.Name, sub.Name, productID),
		Commit: func(ctx context.Context, records []assets.Record) error {
			p.ImageURLs = assets.Paths(records)
			return app.store.Products.CreateProduct(ctx, p)
		},
	})
	if err != nil {
		app.reconcileErrorResponse(w, r, err)
		return
	}

	app.cache.InvalidatePrefix(prosmartCachePrefix)
	app.logger.Infow("product created", "product_id", p.ProductID, "images", len(res.Uploaded))

	if err := app.jsonResponse(w, http.StatusCreated, GalleryEditResponse{Product: p, Uploaded: len(res.Uploaded)}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateProductHandler godoc
//
//	@Summary		Update a ProSmart product
//	@Description	Updates fields and reconciles the gallery. imageMetadata is {"imageMetadata":[{"index":0,"isNew":false,"originalUrl":"..."}]}; new slots carry files as images[index].
//	@Tags			products
//	@Accept			mpfd
//	@Produce		json
//	@Param			productID			path		string	true	"Product ID"
//	@Param			product_name		formData	string	false	"Product name"
//	@Param			product_title		formData	string	false	"Product title"
//	@Param			product_description	formData	string	false	"Product description"
//	@Param			category_id			formData	string	false	"Category ID"
//	@Param			subcategory_id		formData	string	false	"Subcategory ID"
//	@Param			status				formData	string	false	"active or inactive"
//	@Param			imageMetadata		formData	string	false	"Gallery layout"
//	@Success		200					{object}	GalleryEditResponse
//	@Failure		400					{object}	ErrorBadRequestResponse
//	@Failure		404					{object}	error
//	@Failure		502					{object}	error	"Upload to the asset store failed"
//	@Failure		504					{object}	error	"Uploads timed out"
//	@Security		ApiKeyAuth
//	@Router			/products/{productID} [put]
func (app *application) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), app.config.Assets.Timeout+15*time.Second)
	defer cancel()

	if err := app.parseMultipart(w, r); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	defer removeForm(r)

	prev, err := app.store.Products.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	update := products.ProductUpdate{
		Name:          strings.TrimSpace(r.FormValue("product_name")),
		Title:         strings.TrimSpace(r.FormValue("product_title")),
		Description:   strings.TrimSpace(r.FormValue("product_description")),
		CategoryID:    strings.TrimSpace(r.FormValue("category_id")),
		SubcategoryID: strings.TrimSpace(r.FormValue("subcategory_id")),
		Status:        strings.TrimSpace(r.FormValue("status")),
	}
	if err := Validate.Var(update.Status, "productstatus"); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("invalid status %q", update.Status))
		return
	}

	categoryID, subcategoryID := prev.CategoryID, prev.SubcategoryID
	if update.SubcategoryID != "" {
		subcategoryID = update.SubcategoryID
		categoryID = update.CategoryID
	} else if update.CategoryID != "" {
		categoryID = update.CategoryID
	}
	cat, sub, err := app.placement(ctx, categoryID, subcategoryID)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}
	update.CategoryID, update.SubcategoryID = cat.ID, sub.ID

	prior := assets.FromPaths(prev.ImageURLs)
	refs, err := gallerySubmission{
		form:       r.MultipartForm,
		filesKey:   "images",
		metaKey:    "imageMetadata",
		allowed:    []assets.Kind{assets.KindImage},
		prior:      prior,
		requireOne: true,
	}.build()
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var updated *products.Product
	res, err := app.assets.Reconcile(ctx, assets.Edit{
		Prior:      prior,
		Submission: refs,
		Namer:      assets.SlotNamer(cat.Name, sub.Name, prev.ProductID),
		Commit: func(ctx context.Context, records []assets.Record) error {
			update.ImageURLs = assets.Paths(records)
			var uErr error
			updated, uErr = app.store.Products.UpdateProduct(ctx, prev, update)
			return uErr
		},
	})
	if err != nil {
		app.reconcileErrorResponse(w, r, err)
		return
	}
	if res.DeleteFailures > 0 {
		app.logger.Warnw("abandoned images left behind", "product_id", prev.ProductID, "count", res.DeleteFailures)
	}

	app.cache.InvalidatePrefix(prosmartCachePrefix)

	if err := app.jsonResponse(w, http.StatusOK, GalleryEditResponse{
		Product:  updated,
		Uploaded: len(res.Uploaded),
		Deleted:  len(res.Deleted),
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// moveProductHandler godoc
//
//	@Summary		Move a product to another subcategory
//	@Description	The product's category follows the new subcategory.
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			productID	path		string				true	"Product ID"
//	@Param			payload		body		MoveProductPayload	true	"Target subcategory"
//	@Success		200			{object}	products.Product
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/{productID} [patch]
func (app *application) moveProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var payload MoveProductPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	p, err := app.store.Products.MoveProduct(ctx, chi.URLParam(r, "productID"), payload.SubcategoryID)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	app.cache.InvalidatePrefix(prosmartCachePrefix)

	if err := app.jsonResponse(w, http.StatusOK, p); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteProductHandler godoc
//
//	@Summary		Delete a ProSmart product
//	@Description	Deletes the product, then every image it referenced.
//	@Tags			products
//	@Param			productID	path	string	true	"Product ID"
//	@Success		204			"No Content"
//	@Failure		404			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/products/{productID} [delete]
func (app *application) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	p, err := app.store.Products.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	if err := app.store.Products.DeleteProduct(ctx, p); err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	if err := app.assets.Purge(ctx, assets.FromPaths(p.ImageURLs)); err != nil {
		app.logger.Errorw("failed to delete product images", "product_id", p.ProductID, "error", err)
	}

	app.cache.InvalidatePrefix(prosmartCachePrefix)

	w.WriteHeader(http.StatusNoContent)
}
