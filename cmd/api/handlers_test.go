package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"storedesk/internal/account"
	"storedesk/internal/apperr"
	"storedesk/internal/auth"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"
	"storedesk/internal/tenant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoginHandler(t *testing.T) {
	t.Run("validation runs before the service", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"alice"}`)

		assert.Equal(t, http.StatusBadRequest, res.Status)
		assert.Equal(t, apperr.CodeValidation, res.Body.Error.Code)
		assert.Contains(t, res.Body.Error.Message, "password: required")
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodPost, "/api/auth/login", "",
			`{"username":"alice","password":"secret1","remember":true}`)
		assert.Equal(t, http.StatusBadRequest, res.Status)
	})

	t.Run("bad credentials", func(t *testing.T) {
		app := newTestApp(t)
		app.accounts.On("Login", "alice", "wrong").
			Return(nil, apperr.Unauthenticated(apperr.CodeInvalidCredentials, "invalid username or password"))

		res := app.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, res.Status)
		assert.Equal(t, apperr.CodeInvalidCredentials, res.Body.Error.Code)
	})

	t.Run("success", func(t *testing.T) {
		app := newTestApp(t)
		app.accounts.On("Login", "alice", "secret1").Return(&account.Session{
			User:   &users.User{ID: "u1", Username: "alice"},
			Tokens: auth.TokenPair{AccessToken: "at", RefreshToken: "rt"},
		}, nil)

		res := app.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"alice","password":"secret1"}`)
		require.Equal(t, http.StatusOK, res.Status)
		assert.True(t, res.Body.Success)

		var session struct {
			Tokens auth.TokenPair `json:"tokens"`
		}
		require.NoError(t, json.Unmarshal(res.Body.Data, &session))
		assert.Equal(t, "at", session.Tokens.AccessToken)
		assert.Equal(t, "rt", session.Tokens.RefreshToken)
	})
}

func TestRefreshHandler(t *testing.T) {
	app := newTestApp(t)
	app.accounts.On("Refresh", "stale").
		Return(auth.TokenPair{}, apperr.Unauthenticated(apperr.CodeTokenExpired, "token expired"))
	app.accounts.On("Refresh", "good").
		Return(auth.TokenPair{AccessToken: "at2", RefreshToken: "rt2"}, nil)

	res := app.do(t, http.MethodPost, "/api/auth/refresh", "", `{"refresh_token":"stale"}`)
	assert.Equal(t, http.StatusUnauthorized, res.Status)
	assert.Equal(t, apperr.CodeTokenExpired, res.Body.Error.Code)

	res = app.do(t, http.MethodPost, "/api/auth/refresh", "", `{"refresh_token":"good"}`)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Contains(t, string(res.Body.Data), `"access_token":"at2"`)
}

func TestAccountHandlers(t *testing.T) {
	t.Run("logout", func(t *testing.T) {
		app := newTestApp(t)
		app.accounts.On("Logout", "u-manager").Return(nil)

		res := app.do(t, http.MethodPost, "/api/auth/logout", "manager", "")
		assert.Equal(t, http.StatusOK, res.Status)
	})

	t.Run("change password too short", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodPut, "/api/auth/change-password", "manager",
			`{"current_password":"secret1","new_password":"abc"}`)
		assert.Equal(t, http.StatusBadRequest, res.Status)
		assert.Contains(t, res.Body.Error.Message, "new_password: min=6")
	})

	t.Run("change password counts bytes", func(t *testing.T) {
		app := newTestApp(t)
		// 40 runes pass max=72 but are 80 bytes
		long := strings.Repeat("ك", 40)
		res := app.do(t, http.MethodPut, "/api/auth/change-password", "manager",
			`{"current_password":"secret1","new_password":"`+long+`"}`)
		assert.Equal(t, http.StatusBadRequest, res.Status)
		assert.Equal(t, apperr.CodeValidation, res.Body.Error.Code)
		assert.Contains(t, res.Body.Error.Message, "new_password: bcryptlen")
	})

	t.Run("change password", func(t *testing.T) {
		app := newTestApp(t)
		app.accounts.On("ChangePassword", "u-manager", "secret1", "secret2").Return(nil)

		res := app.do(t, http.MethodPut, "/api/auth/change-password", "manager",
			`{"current_password":"secret1","new_password":"secret2"}`)
		assert.Equal(t, http.StatusOK, res.Status)
	})

	t.Run("profile rejects unknown locale", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodPut, "/api/auth/profile", "manager", `{"locale":"fr"}`)
		assert.Equal(t, http.StatusBadRequest, res.Status)
		assert.Contains(t, res.Body.Error.Message, "locale: oneof=ar en tr")
	})

	t.Run("profile trims and forwards", func(t *testing.T) {
		app := newTestApp(t)
		name, theme := "Maya K", "dark"
		app.accounts.On("UpdateProfile", "u-manager", users.ProfileChanges{FullName: &name, Theme: &theme}).
			Return(&users.User{ID: "u-manager", FullName: name, Theme: theme}, nil)

		res := app.do(t, http.MethodPut, "/api/auth/profile", "manager", `{"full_name":"  Maya K ","theme":"dark"}`)
		assert.Equal(t, http.StatusOK, res.Status)
	})

	t.Run("profile duplicate email", func(t *testing.T) {
		app := newTestApp(t)
		app.accounts.On("UpdateProfile", "u-manager", mock.Anything).Return(nil, apperr.Conflict("email already exists"))

		res := app.do(t, http.MethodPut, "/api/auth/profile", "manager", `{"email":"taken@shop.com"}`)
		assert.Equal(t, http.StatusConflict, res.Status)
		assert.Equal(t, apperr.CodeConflict, res.Body.Error.Code)
	})
}

const createStoreBody = `{
	"store_name": " Corner Shop ",
	"subscription_plan": "monthly",
	"username": "corner_owner",
	"password": "secret1",
	"full_name": "Cora Owner",
	"email": "cora@shop.com"
}`

func TestRegisterHandler(t *testing.T) {
	t.Run("username charset", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodPost, "/api/auth/register", "owner",
			`{"store_name":"x","username":"bad name!","password":"secret1","full_name":"X"}`)
		assert.Equal(t, http.StatusBadRequest, res.Status)
		assert.Contains(t, res.Body.Error.Message, "username: username")
	})

	t.Run("multibyte password over 72 bytes", func(t *testing.T) {
		app := newTestApp(t)
		body := `{"store_name":"x","username":"arabic_owner","password":"` + strings.Repeat("ك", 40) + `","full_name":"X"}`
		res := app.do(t, http.MethodPost, "/api/auth/register", "owner", body)
		assert.Equal(t, http.StatusBadRequest, res.Status)
		assert.Contains(t, res.Body.Error.Message, "password: bcryptlen")
	})

	t.Run("creates store, owner and tokens", func(t *testing.T) {
		app := newTestApp(t)
		app.tenants.On("CreateStoreAndOwner", "u-owner", mock.MatchedBy(func(in tenant.NewStore) bool {
			return in.StoreName == "Corner Shop" && in.Plan == stores.PlanMonthly &&
				in.Username == "corner_owner" && in.Email != nil && *in.Email == "cora@shop.com"
		})).Return(&tenant.Created{
			Store: &stores.Store{ID: "s-new", Name: "Corner Shop"},
			Owner: &users.User{ID: "u-new", Username: "corner_owner"},
		}, nil)

		res := app.do(t, http.MethodPost, "/api/auth/register", "owner", createStoreBody)
		require.Equal(t, http.StatusCreated, res.Status)

		var out RegisterResponse
		require.NoError(t, json.Unmarshal(res.Body.Data, &out))
		assert.Equal(t, "s-new", out.Store.ID)
		assert.Equal(t, "u-new", out.User.ID)

		claims, err := app.tokens.ParseAccessToken(out.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "u-new", claims.IdentityID)
	})

	t.Run("conflict", func(t *testing.T) {
		app := newTestApp(t)
		app.tenants.On("CreateStoreAndOwner", "u-owner", mock.Anything).
			Return(nil, apperr.Conflict("username already exists"))

		res := app.do(t, http.MethodPost, "/api/stores", "owner", createStoreBody)
		assert.Equal(t, http.StatusConflict, res.Status)
		assert.Equal(t, "username already exists", res.Body.Error.Message)
	})
}

func TestStoreHandlers(t *testing.T) {
	t.Run("get own store", func(t *testing.T) {
		app := newTestApp(t)
		app.tenants.On("GetStore", "cashier", "s1").Return(&stores.Store{ID: "s1"}, nil)

		res := app.do(t, http.MethodGet, "/api/stores/s1", "cashier", "")
		assert.Equal(t, http.StatusOK, res.Status)
	})

	t.Run("subscription with duration", func(t *testing.T) {
		app := newTestApp(t)
		days := 45
		ends := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
		app.tenants.On("UpdateSubscription", "s1", stores.PlanYearly, &days).Return(&tenant.SubscriptionResult{
			Store:        &stores.Store{ID: "s1", Plan: stores.PlanYearly, SubscriptionEndsAt: &ends},
			UsersUpdated: 3,
		}, nil)

		res := app.do(t, http.MethodPut, "/api/stores/s1/subscription", "owner",
			`{"subscription_plan":"yearly","duration_days":45}`)
		require.Equal(t, http.StatusOK, res.Status)
		assert.Contains(t, string(res.Body.Data), `"users_updated":3`)
	})

	t.Run("subscription plan is validated", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodPut, "/api/stores/s1/subscription", "owner", `{"subscription_plan":"weekly"}`)
		assert.Equal(t, http.StatusBadRequest, res.Status)
	})

	t.Run("reject subscription request", func(t *testing.T) {
		app := newTestApp(t)
		app.tenants.On("HandleSubscriptionRequest", "s1", tenant.SubscriptionDecision{Notes: "unpaid"}).
			Return(nil, nil)

		res := app.do(t, http.MethodPost, "/api/stores/s1/subscription-request", "owner",
			`{"action":"reject","notes":"unpaid"}`)
		require.Equal(t, http.StatusOK, res.Status)
		assert.Contains(t, string(res.Body.Data), "rejected")
	})

	t.Run("illegal status transition", func(t *testing.T) {
		app := newTestApp(t)
		app.tenants.On("ChangeStatus", "s1", stores.StatusActive).
			Return(nil, apperr.New(apperr.KindConflict, apperr.CodeInvalidTransition, "cancelled is terminal"))

		res := app.do(t, http.MethodPut, "/api/stores/s1/status", "owner", `{"status":"active"}`)
		assert.Equal(t, http.StatusConflict, res.Status)
		assert.Equal(t, apperr.CodeInvalidTransition, res.Body.Error.Code)
	})

	t.Run("delete", func(t *testing.T) {
		app := newTestApp(t)
		app.tenants.On("DeleteStore", "s1").Return(nil).Once()
		app.tenants.On("DeleteStore", "s1").Return(apperr.NotFound("store not found"))

		res := app.do(t, http.MethodDelete, "/api/stores/s1", "owner", "")
		assert.Equal(t, http.StatusNoContent, res.Status)

		res = app.do(t, http.MethodDelete, "/api/stores/s1", "owner", "")
		assert.Equal(t, http.StatusNotFound, res.Status)
	})
}

func TestAuditHandler(t *testing.T) {
	t.Run("store member sees own store", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodGet, "/api/audit?page=3&limit=500", "manager", "")

		require.Equal(t, http.StatusOK, res.Status)
		assert.JSONEq(t, `[]`, string(res.Body.Data))
		assert.Equal(t, "s1", app.audit.gotStore)
		assert.Equal(t, maxAuditLimit, app.audit.gotLimit)
		assert.Equal(t, 2*maxAuditLimit, app.audit.gotOff)
	})

	t.Run("cashier lacks reports", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodGet, "/api/audit", "cashier", "")
		assert.Equal(t, http.StatusForbidden, res.Status)
	})

	t.Run("system owner must pick a store", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodGet, "/api/audit", "owner", "")
		assert.Equal(t, http.StatusBadRequest, res.Status)

		storeID := "7b0e3c52-6a1d-4f3e-9c1a-2d4b5e6f7a80"
		res = app.do(t, http.MethodGet, "/api/audit?store_id="+storeID, "owner", "")
		assert.Equal(t, http.StatusOK, res.Status)
		assert.Equal(t, storeID, app.audit.gotStore)
		assert.Equal(t, defaultAuditLimit, app.audit.gotLimit)
	})

	t.Run("store id must be a uuid", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodGet, "/api/audit?store_id=s7", "owner", "")
		require.Equal(t, http.StatusBadRequest, res.Status)
		require.NotNil(t, res.Body.Error)
		assert.Equal(t, apperr.CodeValidation, res.Body.Error.Code)
		assert.Empty(t, app.audit.gotStore)
	})

	t.Run("huge page is clamped", func(t *testing.T) {
		app := newTestApp(t)
		res := app.do(t, http.MethodGet, "/api/audit?page=9223372036854775807&limit=100", "manager", "")
		require.Equal(t, http.StatusOK, res.Status)
		assert.Equal(t, (maxAuditPage-1)*maxAuditLimit, app.audit.gotOff)
		assert.GreaterOrEqual(t, app.audit.gotOff, 0)
	})
}
