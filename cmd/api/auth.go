package main

import (
	"net/http"
	"strings"

	"storedesk/internal/auth"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"
	"storedesk/internal/tenant"
)

type LoginPayload struct {
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72,bcryptlen"`
}

// loginHandler godoc
//
//	@Summary		Login
//	@Description	Checks the password and the account and subscription state, then issues a token pair.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		LoginPayload	true	"User credentials"
//	@Success		200		{object}	account.Session
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse	"INVALID_CREDENTIALS"
//	@Failure		403		{object}	ErrorResponse	"ACCOUNT_EXPIRED or SUBSCRIPTION_EXPIRED"
//	@Router			/auth/login [post]
func (app *application) loginHandler(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if !app.decodeAndValidate(w, r, &payload) {
		return
	}

	session, err := app.accounts.Login(r.Context(), actorFrom(r), payload.Username, payload.Password)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, session); err != nil {
		app.internalServerError(w, r, err)
	}
}

type RefreshTokenPayload struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// refreshTokenHandler godoc
//
//	@Summary		Refresh tokens
//	@Description	Trades a refresh token for a new access and refresh token pair.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		RefreshTokenPayload	true	"Refresh token"
//	@Success		200		{object}	auth.TokenPair
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse	"TOKEN_EXPIRED, INVALID_TOKEN or USER_NOT_FOUND"
//	@Router			/auth/refresh [post]
func (app *application) refreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var payload RefreshTokenPayload
	if !app.decodeAndValidate(w, r, &payload) {
		return
	}

	pair, err := app.accounts.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, pair); err != nil {
		app.internalServerError(w, r, err)
	}
}

// logoutHandler godoc
//
//	@Summary		Logout
//	@Description	Revokes every token of the caller issued up to now.
//	@Tags			authentication
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Failure		401	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/auth/logout [post]
func (app *application) logoutHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r)
	if !ok {
		app.errorResponse(w, r, errNoPrincipal)
		return
	}

	if err := app.accounts.Logout(r.Context(), p, actorFrom(r)); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// meHandler godoc
//
//	@Summary		Current user
//	@Tags			authentication
//	@Produce		json
//	@Success		200	{object}	account.Profile
//	@Failure		401	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/auth/me [get]
func (app *application) meHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r)
	if !ok {
		app.errorResponse(w, r, errNoPrincipal)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, app.accounts.Me(p)); err != nil {
		app.internalServerError(w, r, err)
	}
}

type ChangePasswordPayload struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=72,bcryptlen"`
}

// changePasswordHandler godoc
//
//	@Summary		Change password
//	@Description	Requires the current password. Signs the caller out of every session.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ChangePasswordPayload	true	"Passwords"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/auth/change-password [put]
func (app *application) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r)
	if !ok {
		app.errorResponse(w, r, errNoPrincipal)
		return
	}

	var payload ChangePasswordPayload
	if !app.decodeAndValidate(w, r, &payload) {
		return
	}

	if err := app.accounts.ChangePassword(r.Context(), p, actorFrom(r), payload.CurrentPassword, payload.NewPassword); err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"message": "password changed"}); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateProfilePayload struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Locale   *string `json:"locale" validate:"omitempty,oneof=ar en tr"`
	Theme    *string `json:"theme" validate:"omitempty,oneof=light dark"`
}

// updateProfileHandler godoc
//
//	@Summary		Update own profile
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		UpdateProfilePayload	true	"Fields to change"
//	@Success		200		{object}	users.User
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"email already exists"
//	@Security		ApiKeyAuth
//	@Router			/auth/profile [put]
func (app *application) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r)
	if !ok {
		app.errorResponse(w, r, errNoPrincipal)
		return
	}

	var payload UpdateProfilePayload
	if !app.decodeAndValidate(w, r, &payload) {
		return
	}

	updated, err := app.accounts.UpdateProfile(r.Context(), p, actorFrom(r), users.ProfileChanges{
		FullName: trimmed(payload.FullName),
		Email:    trimmed(payload.Email),
		Phone:    trimmed(payload.Phone),
		Locale:   payload.Locale,
		Theme:    payload.Theme,
	})
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

type CreateStorePayload struct {
	StoreName    string  `json:"store_name" validate:"required,max=255"`
	StoreEmail   *string `json:"store_email" validate:"omitempty,email,max=255"`
	StorePhone   *string `json:"store_phone" validate:"omitempty,max=50"`
	StoreAddress *string `json:"store_address" validate:"omitempty,max=500"`
	Plan         string  `json:"subscription_plan" validate:"omitempty,oneof=free monthly 6months yearly"`

	Username string  `json:"username" validate:"required,min=3,max=50,username"`
	Password string  `json:"password" validate:"required,min=6,max=72,bcryptlen"`
	FullName string  `json:"full_name" validate:"required,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
}

func (p CreateStorePayload) toNewStore() tenant.NewStore {
	return tenant.NewStore{
		StoreName:    strings.TrimSpace(p.StoreName),
		StoreEmail:   trimmed(p.StoreEmail),
		StorePhone:   trimmed(p.StorePhone),
		StoreAddress: trimmed(p.StoreAddress),
		Plan:         stores.Plan(p.Plan),
		Username:     strings.TrimSpace(p.Username),
		Password:     p.Password,
		FullName:     strings.TrimSpace(p.FullName),
		Email:        trimmed(p.Email),
		Phone:        trimmed(p.Phone),
	}
}

// RegisterResponse is the new store with its owner, already signed in.
type RegisterResponse struct {
	Store  *stores.Store  `json:"store"`
	User   *users.User    `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// registerStoreHandler godoc
//
//	@Summary		Register a store owner
//	@Description	Creates a store together with its store_manager and returns a token pair for the new owner.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateStorePayload	true	"Store and owner"
//	@Success		201		{object}	RegisterResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/auth/register [post]
func (app *application) registerStoreHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateStorePayload
	if !app.decodeAndValidate(w, r, &payload) {
		return
	}

	created, err := app.tenants.CreateStoreAndOwner(r.Context(), actorFrom(r), payload.toNewStore())
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	pair, err := app.tokens.IssueTokenPair(created.Owner.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	resp := RegisterResponse{Store: created.Store, User: created.Owner, Tokens: pair}
	if err := app.jsonResponse(w, http.StatusCreated, resp); err != nil {
		app.internalServerError(w, r, err)
	}
}

// trimmed drops surrounding whitespace, keeping nil as nil.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
