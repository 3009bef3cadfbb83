package main

import (
	"net/http"
	"strconv"

	"storedesk/internal/apperr"
	"storedesk/internal/domain/auditlog"

	"github.com/google/uuid"
)

const (
	defaultAuditLimit = 20
	maxAuditLimit     = 100
	maxAuditPage      = 10000
)

// page reads ?page and ?limit the way list endpoints expect: page starts at 1
// and is capped at 10000, limit defaults to 20 and is capped at 100.
func page(r *http.Request) (limit, offset int) {
	q := r.URL.Query()

	p, err := strconv.Atoi(q.Get("page"))
	if err != nil || p < 1 {
		p = 1
	}
	if p > maxAuditPage {
		p = maxAuditPage
	}
	limit, err = strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return limit, (p - 1) * limit
}

// listAuditLogsHandler godoc
//
//	@Summary		Audit trail of the caller's store
//	@Tags			audit
//	@Produce		json
//	@Param			page	query		int	false	"Page, starting at 1"
//	@Param			limit	query		int	false	"Entries per page (max 100)"
//	@Param			store_id	query	string	false	"Store to read, system owner only"
//	@Failure		400		{object}	ErrorResponse
//	@Success		200		{array}		auditlog.Entry
//	@Failure		403		{object}	ErrorResponse
//	@Security		ApiKeyAuth
//	@Router			/audit [get]
func (app *application) listAuditLogsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r)
	if !ok {
		app.errorResponse(w, r, errNoPrincipal)
		return
	}

	storeID := p.StoreID()
	if storeID == nil {
		storeID = optionalQuery(r, "store_id")
		if storeID != nil {
			if _, err := uuid.Parse(*storeID); err != nil {
				app.errorResponse(w, r, apperr.Validation("store_id must be a uuid"))
				return
			}
		}
	}
	if storeID == nil {
		app.errorResponse(w, r, apperr.Validation("store_id is required"))
		return
	}

	limit, offset := page(r)
	entries, err := app.auditLog.ListByStore(r.Context(), *storeID, limit, offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if entries == nil {
		entries = []auditlog.Entry{}
	}

	if err := app.jsonResponse(w, http.StatusOK, entries); err != nil {
		app.internalServerError(w, r, err)
	}
}

func optionalQuery(r *http.Request, key string) *string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	return &v
}
