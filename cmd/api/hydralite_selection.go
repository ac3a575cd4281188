package main

import (
	"context"
	"net/http"
	"time"

	"catalog/internal/domain/hydralite"
)

type PriorityPayload struct {
	Products []string `json:"products" validate:"required,dive,max=200"`
}

type HeroPayload struct {
	Products []string `json:"products" validate:"required,max=2,dive,max=200"`
}

// getPriorityHandler godoc
//
//	@Summary		Get the Hydralite priority list
//	@Tags			hydralite
//	@Produce		json
//	@Success		200	{object}	hydralite.Selection
//	@Security		ApiKeyAuth
//	@Router			/hydralite/priority [get]
func (app *application) getPriorityHandler(w http.ResponseWriter, r *http.Request) {
	app.getSelection(w, r, app.store.Hydralite.GetPriority)
}

// setPriorityHandler godoc
//
//	@Summary		Replace the Hydralite priority list
//	@Description	Every listed product must exist.
//	@Tags			hydralite
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		PriorityPayload	true	"Ordered product ids"
//	@Success		200		{object}	hydralite.Selection
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error	"Unknown product"
//	@Security		ApiKeyAuth
//	@Router			/hydralite/priority [put]
func (app *application) setPriorityHandler(w http.ResponseWriter, r *http.Request) {
	var payload PriorityPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	app.setSelection(w, r, payload.Products, app.store.Hydralite.SetPriority)
}

// getHeroHandler godoc
//
//	@Summary		Get the Hydralite hero section
//	@Tags			hydralite
//	@Produce		json
//	@Success		200	{object}	hydralite.Selection
//	@Security		ApiKeyAuth
//	@Router			/hydralite/hero [get]
func (app *application) getHeroHandler(w http.ResponseWriter, r *http.Request) {
	app.getSelection(w, r, app.store.Hydralite.GetHero)
}

// setHeroHandler godoc
//
//	@Summary		Replace the Hydralite hero section
//	@Description	At most two products, each of which must exist.
//	@Tags			hydralite
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		HeroPayload	true	"Hero product ids"
//	@Success		200		{object}	hydralite.Selection
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error	"Unknown product"
//	@Security		ApiKeyAuth
//	@Router			/hydralite/hero [put]
func (app *application) setHeroHandler(w http.ResponseWriter, r *http.Request) {
	var payload HeroPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	app.setSelection(w, r, payload.Products, app.store.Hydralite.SetHero)
}

func (app *application) getSelection(w http.ResponseWriter, r *http.Request, get func(context.Context) (*hydralite.Selection, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := get(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, s); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) setSelection(w http.ResponseWriter, r *http.Request, ids []string, set func(context.Context, []string) (*hydralite.Selection, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	s, err := set(ctx, ids)
	if err != nil {
		app.storeErrorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, s); err != nil {
		app.internalServerError(w, r, err)
	}
}
