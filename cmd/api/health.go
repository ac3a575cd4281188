package main

import (
	"context"
	"net/http"
	"time"
)

// healthCheckHandler godoc
//
//	@Summary		Healthcheck
//	@Description	Reports service status and pings the database
//	@Tags			ops
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		503	{object}	error
//	@Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	data := map[string]string{
		"status":  "ok",
		"env":     app.config.App.Env,
		"version": version,
	}

	status := http.StatusOK
	if err := app.db.Ping(ctx); err != nil {
		app.logger.Errorw("database ping failed", "error", err)
		data["status"] = "unavailable"
		data["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if err := app.jsonResponse(w, status, data); err != nil {
		app.internalServerError(w, r, err)
	}
}

// storageHealthHandler godoc
//
//	@Summary		Asset store healthcheck
//	@Description	Pings the configured remote asset store
//	@Tags			ops
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		503	{object}	error
//	@Router			/health/storage [get]
func (app *application) storageHealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	data := map[string]string{
		"status":  "ok",
		"backend": app.objects.Name(),
	}

	status := http.StatusOK
	if err := app.objects.Ping(ctx); err != nil {
		app.logger.Errorw("asset store ping failed", "backend", app.objects.Name(), "error", err)
		data["status"] = "unavailable"
		data["error"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	if err := app.jsonResponse(w, status, data); err != nil {
		app.internalServerError(w, r, err)
	}
}
