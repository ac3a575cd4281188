package main

import (
	"errors"
	"net/http"
	"time"

	"catalog/internal/domain/admins"
)

// ErrorBadRequestResponse represents the standard error format for bad request API responses.
//
//	@name			ErrorBadRequestResponse
//	@description	Standard error response format returned by all bad request API endpoints
type ErrorBadRequestResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"It show error from err.Error()"`
	Status  int    `json:"status" example:"400"`
}

// ErrorInternalServerResponse represents the standard error format for internal server API responses.
//
//	@name			ErrorInternalServerResponse
//	@description	Standard error response format returned by all internal server error API endpoints
type ErrorInternalServerResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"the server encountered a problem"`
	Status  int    `json:"status" example:"500"`
}

type LoginPayload struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=3,max=72"`
}

type SessionResponse struct {
	Admin     *admins.Admin `json:"admin"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// loginHandler godoc
//
//	@Summary		Admin login
//	@Description	Checks admin credentials and sets the admin_session cookie. The token is also returned for Bearer use.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		LoginPayload	true	"Admin credentials"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		401		{object}	error
//	@Failure		429		{object}	error
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Router			/auth/login [post]
func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	admin, err := app.store.Admins.GetByUsername(r.Context(), payload.Username)
	if err != nil {
		switch {
		case errors.Is(err, admins.ErrNotFound):
			app.unauthorizedErrorResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := admin.Password.Compare(payload.Password); err != nil {
		app.unauthorizedErrorResponse(w, r, err)
		return
	}
	if !admin.IsActive {
		app.unauthorizedErrorResponse(w, r, errors.New("admin account is disabled"))
		return
	}

	token, exp, err := app.authenticator.GenerateToken(admin.ID.Hex(), admin.Role)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.store.Admins.TouchLastLogin(r.Context(), admin.ID); err != nil {
		app.logger.Warnw("failed to record last login", "admin", admin.Username, "error", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   app.config.App.IsProd(),
		SameSite: http.SameSiteLaxMode,
	})

	app.logger.Infow("admin logged in", "admin", admin.Username)

	if err := app.jsonResponse(w, http.StatusOK, SessionResponse{Admin: admin, Token: token, ExpiresAt: exp}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// logoutHandler godoc
//
//	@Summary		Admin logout
//	@Description	Clears the admin_session cookie
//	@Tags			authentication
//	@Success		204	{string}	string	"No Content"
//	@Router			/auth/logout [post]
func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   app.config.App.IsProd(),
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

// meHandler godoc
//
//	@Summary		Current admin
//	@Tags			authentication
//	@Produce		json
//	@Success		200	{object}	admins.Admin
//	@Failure		401	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/auth/me [get]
func (app *application) meHandler(w http.ResponseWriter, r *http.Request) {
	admin := getAdminFromContext(r)
	if err := app.jsonResponse(w, http.StatusOK, admin); err != nil {
		app.internalServerError(w, r, err)
	}
}
