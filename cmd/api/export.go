package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"catalog/internal/export"
)

// exportProductsHandler godoc
//
//	@Summary		Export products
//	@Description	Downloads every product of a brand as {brand}_export_{YYYY-MM-DD}.{xlsx|json}
//	@Tags			export
//	@Produce		octet-stream
//	@Param			brand	query		string	true	"prosmart or hydralite"
//	@Param			format	query		string	false	"xlsx (default) or json"
//	@Success		200		{file}		file
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Security		ApiKeyAuth
//	@Router			/export/products [get]
func (app *application) exportProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	q := r.URL.Query()
	brand, err := export.ParseBrand(q.Get("brand"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	sheet, err := export.Load(ctx, app.store.Products, app.store.Hydralite, brand)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, sheet); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(brand, format, time.Now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		app.logger.Warnw("export download interrupted", "brand", brand, "error", err)
	}
}
