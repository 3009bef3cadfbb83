package main

import (
	"net/http"

	"storedesk/internal/domain/stores"
	"storedesk/internal/tenant"

	"github.com/go-chi/chi/v5"
)

// listStoresHandler godoc
//
//	@Summary		List stores
//	@Tags			stores
//	@Produce		json
//	@Param			status				query		string	false	"active, suspended, expired or cancelled"
//	@Param			subscription_plan	query		string	false	"free, monthly, 6months or yearly"
//	@Success		200					{array}		stores.Store
//	@Failure		400					{object}	ErrorResponse
//	@Failure		403					{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/stores [get]
func (app *application) listStoresHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := stores.Filter{
		Status: stores.Status(q.Get("status")),
		Plan:   stores.Plan(q.Get("subscription_plan")),
	}

	list, err := app.tenants.ListStores(r.Context(), filter)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}
	if list == nil {
		list = []stores.Store{}
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createStoreHandler godoc
//
//	@Summary		Create a store
//	@Description	Creates a store and its owner in one operation. Partial failures are undone.
//	@Tags			stores
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateStorePayload	true	"Store and owner"
//	@Success		201		{object}	tenant.Created
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/stores [post]
func (app *application) createStoreHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateStorePayload
	if !app.decodeAndValidate(w, r, &payload) {
		return
	}

	created, err := app.tenants.CreateStoreAndOwner(r.Context(), actorFrom(r), payload.toNewStore())
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, created); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getStoreHandler godoc
//
//	@Summary		Fetch a store
//	@Description	System owners can read any store, everyone else only their own.
//	@Tags			stores
//	@Produce		json
//	@Param			storeID	path		string	true	"Store ID"
//	@Success		200		{object}	stores.Store
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/stores/{storeID} [get]
func (app *application) getStoreHandler(w http.ResponseWriter, r *http.Request) {
	st, err := app.tenants.GetStore(r.Context(), actorFrom(r), chi.URLParam(r, "storeID"))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, st); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateStorePayload struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email   *string `json:"email" validate:"omitempty,email,max=255"`
	Phone   *string `json:"phone" validate:"omitempty,max=50"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

// updateStoreHandler godoc
//
//	@Summary		Update store profile
//	@Tags			stores
//	@Accept			json
//	@Produce		json
//	@Param			storeID	path		string				true	"Store ID"
//	@Param			payload	body		UpdateStorePayload	true	"Fields to change"
//	@Success		200		{object}	stores.Store
//	@Failure		400		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/stores/{storeID} [put]
func (app *application) updateStoreHandler(w http.ResponseWriter, r *http.Request) {
	var payload UpdateStorePayload
	if !app.decodeAndValidate(w, r, &payload) {
		return
	}

	updated, err := app.tenants.UpdateStore(r.Context(), actorFrom(r), chi.URLParam(r, "storeID"), stores.Changes{
		Name:    trimmed(payload.Name),
		Email:   trimmed(payload.Email),
		Phone:   trimmed(payload.Phone),
		Address: trimmed(payload.Address),
	})
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateSubscriptionPayload struct {
	Plan         string `json:"subscription_plan" validate:"required,oneof=free monthly 6months yearly"`
	DurationDays *int   `json:"duration_days" validate:"omitempty,min=1,max=3650"`
}

// updateSubscriptionHandler godoc
//
//	@Summary		Renew or change a subscription
//	@Description	Sets the plan, reactivates the store and moves every user's account expiry to the new end.
//	@Tags			stores
//	@Accept			json
//	@Produce		json
//	@Param			storeID	path		string						true	"Store ID"
//	@Param			payload	body		UpdateSubscriptionPayload	true	"Plan and optional duration"
//	@Success		200		{object}	tenant.SubscriptionResult
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"store is cancelled"
//	@Security		ApiKeyAuth
//	@Router			/stores/{storeID}/subscription [put]
func (app *application) updateSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	var payload UpdateSubscriptionPayload
	if !app.decodeAndValidate(w, r, &payload) {
		return
	}

	res, err := app.tenants.UpdateSubscription(r.Context(), actorFrom(r), chi.URLParam(r, "storeID"),
		stores.Plan(payload.Plan), payload.DurationDays)
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, res); err != nil {
		app.internalServerError(w, r, err)
	}
}

type SubscriptionRequestPayload struct {
	Action       string `json:"action" validate:"required,oneof=approve reject"`
	Plan         string `json:"subscription_plan" validate:"omitempty,oneof=free monthly 6months yearly"`
	DurationDays *int   `json:"duration_days" validate:"omitempty,min=1,max=3650"`
	Notes        string `json:"notes" validate:"max=1000"`
}

// subscriptionRequestHandler godoc
//
//	@Summary		Decide a renewal request
//	@Description	approve renews the subscription, reject only records the decision.
//	@Tags			stores
//	@Accept			json
//	@Produce		json
//	@Param			storeID	path		string						true	"Store ID"
//	@Param			payload	body		SubscriptionRequestPayload	true	"Decision"
//	@Success		200		{object}	tenant.SubscriptionResult
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/stores/{storeID}/subscription-request [post]
func (app *application) subscriptionRequestHandler(w http.ResponseWriter, r *http.Request) {
	var payload SubscriptionRequestPayload
	if !app.decodeAndValidate(w, r, &payload) {
		return
	}

	res, err := app.tenants.HandleSubscriptionRequest(r.Context(), actorFrom(r), chi.URLParam(r, "storeID"),
		tenant.SubscriptionDecision{
			Approve:      payload.Action == "approve",
			Plan:         stores.Plan(payload.Plan),
			DurationDays: payload.DurationDays,
			Notes:        payload.Notes,
		})
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if res == nil {
		if err := app.jsonResponse(w, http.StatusOK, map[string]string{"message": "subscription request rejected"}); err != nil {
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, res); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateStoreStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=active suspended expired cancelled"`
}

// updateStoreStatusHandler godoc
//
//	@Summary		Change store status
//	@Tags			stores
//	@Accept			json
//	@Produce		json
//	@Param			storeID	path		string						true	"Store ID"
//	@Param			payload	body		UpdateStoreStatusPayload	true	"New status"
//	@Success		200		{object}	stores.Store
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse	"INVALID_TRANSITION"
//	@Security		ApiKeyAuth
//	@Router			/stores/{storeID}/status [put]
func (app *application) updateStoreStatusHandler(w http.ResponseWriter, r *http.Request) {
	var payload UpdateStoreStatusPayload
	if !app.decodeAndValidate(w, r, &payload) {
		return
	}

	updated, err := app.tenants.ChangeStatus(r.Context(), actorFrom(r), chi.URLParam(r, "storeID"), stores.Status(payload.Status))
	if err != nil {
		app.errorResponse(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, updated); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteStoreHandler godoc
//
//	@Summary		Delete a store
//	@Description	Removes the store with all of its users and data.
//	@Tags			stores
//	@Produce		json
//	@Param			storeID	path	string	true	"Store ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/stores/{storeID} [delete]
func (app *application) deleteStoreHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.tenants.DeleteStore(r.Context(), actorFrom(r), chi.URLParam(r, "storeID")); err != nil {
		app.errorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
