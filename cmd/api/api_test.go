package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storedesk/internal/access"
	"storedesk/internal/account"
	"storedesk/internal/apperr"
	"storedesk/internal/audit"
	"storedesk/internal/auth"
	"storedesk/internal/config"
	"storedesk/internal/domain/auditlog"
	"storedesk/internal/domain/roles"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"
	"storedesk/internal/tenant"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGuard struct {
	principals map[string]*auth.Principal
	err        error
}

func (g *fakeGuard) Authenticate(_ context.Context, header string) (*auth.Principal, error) {
	if g.err != nil {
		return nil, g.err
	}
	token, ok := auth.BearerToken(header)
	if !ok {
		return nil, apperr.Unauthenticated(apperr.CodeNoToken, "no token provided")
	}
	p, ok := g.principals[token]
	if !ok {
		return nil, apperr.Unauthenticated(apperr.CodeInvalidToken, "invalid token")
	}
	return p, nil
}

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) Login(_ context.Context, _ audit.Actor, username, password string) (*account.Session, error) {
	args := m.Called(username, password)
	s, _ := args.Get(0).(*account.Session)
	return s, args.Error(1)
}

func (m *mockAccounts) Refresh(_ context.Context, token string) (auth.TokenPair, error) {
	args := m.Called(token)
	return args.Get(0).(auth.TokenPair), args.Error(1)
}

func (m *mockAccounts) Logout(_ context.Context, p *auth.Principal, _ audit.Actor) error {
	return m.Called(p.User.ID).Error(0)
}

func (m *mockAccounts) Me(p *auth.Principal) *account.Profile {
	return &account.Profile{User: p.User, Role: p.Role, Store: p.Store}
}

func (m *mockAccounts) ChangePassword(_ context.Context, p *auth.Principal, _ audit.Actor, current, next string) error {
	return m.Called(p.User.ID, current, next).Error(0)
}

func (m *mockAccounts) UpdateProfile(_ context.Context, p *auth.Principal, _ audit.Actor, c users.ProfileChanges) (*users.User, error) {
	args := m.Called(p.User.ID, c)
	u, _ := args.Get(0).(*users.User)
	return u, args.Error(1)
}

type mockTenants struct{ mock.Mock }

func (m *mockTenants) CreateStoreAndOwner(_ context.Context, actor audit.Actor, in tenant.NewStore) (*tenant.Created, error) {
	args := m.Called(actor.UserID, in)
	c, _ := args.Get(0).(*tenant.Created)
	return c, args.Error(1)
}

func (m *mockTenants) UpdateSubscription(_ context.Context, _ audit.Actor, storeID string, plan stores.Plan, durationDays *int) (*tenant.SubscriptionResult, error) {
	args := m.Called(storeID, plan, durationDays)
	res, _ := args.Get(0).(*tenant.SubscriptionResult)
	return res, args.Error(1)
}

func (m *mockTenants) HandleSubscriptionRequest(_ context.Context, _ audit.Actor, storeID string, d tenant.SubscriptionDecision) (*tenant.SubscriptionResult, error) {
	args := m.Called(storeID, d)
	res, _ := args.Get(0).(*tenant.SubscriptionResult)
	return res, args.Error(1)
}

func (m *mockTenants) ChangeStatus(_ context.Context, _ audit.Actor, storeID string, status stores.Status) (*stores.Store, error) {
	args := m.Called(storeID, status)
	s, _ := args.Get(0).(*stores.Store)
	return s, args.Error(1)
}

func (m *mockTenants) DeleteStore(_ context.Context, _ audit.Actor, storeID string) error {
	return m.Called(storeID).Error(0)
}

func (m *mockTenants) GetStore(_ context.Context, actor audit.Actor, storeID string) (*stores.Store, error) {
	args := m.Called(actor.RoleSlug, storeID)
	s, _ := args.Get(0).(*stores.Store)
	return s, args.Error(1)
}

func (m *mockTenants) ListStores(_ context.Context, f stores.Filter) ([]stores.Store, error) {
	args := m.Called(f)
	list, _ := args.Get(0).([]stores.Store)
	return list, args.Error(1)
}

func (m *mockTenants) UpdateStore(_ context.Context, _ audit.Actor, storeID string, c stores.Changes) (*stores.Store, error) {
	args := m.Called(storeID, c)
	s, _ := args.Get(0).(*stores.Store)
	return s, args.Error(1)
}

type fakeAuditLog struct {
	gotStore         string
	gotLimit, gotOff int
}

func (f *fakeAuditLog) ListByStore(_ context.Context, storeID string, limit, offset int) ([]auditlog.Entry, error) {
	f.gotStore, f.gotLimit, f.gotOff = storeID, limit, offset
	return nil, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testApp struct {
	*application
	accounts *mockAccounts
	tenants  *mockTenants
	audit    *fakeAuditLog
	handler  http.Handler
}

var (
	storeS1 = "s1"

	ownerPrincipal = &auth.Principal{
		User: &users.User{ID: "u-owner", Username: "root"},
		Role: &roles.Role{Slug: access.RoleSystemOwner, Permissions: access.Universal()},
	}
	managerPrincipal = &auth.Principal{
		User:  &users.User{ID: "u-manager", Username: "maya", StoreID: &storeS1},
		Role:  &roles.Role{Slug: access.RoleStoreManager},
		Store: &stores.Store{ID: storeS1, Name: "Corner Shop", Status: stores.StatusActive},
	}
	cashierPrincipal = &auth.Principal{
		User: &users.User{ID: "u-cashier", Username: "carl", StoreID: &storeS1},
		Role: &roles.Role{Slug: "cashier", Permissions: access.NewPermissions(map[string]access.Grant{
			"invoices": access.Actions("read", "create"),
		})},
		Store: &stores.Store{ID: storeS1, Name: "Corner Shop", Status: stores.StatusActive},
	}
)

func newTestApp(t *testing.T, opts ...func(*application)) *testApp {
	t.Helper()

	cfg := &config.Config{
		Addr:        ":0",
		Env:         "production",
		CORSOrigins: []string{"http://localhost:5173"},
		Metrics:     config.BasicAuthConfig{User: "metrics", Pass: "s3cret"},
	}

	accounts := &mockAccounts{}
	tenants := &mockTenants{}
	auditLog := &fakeAuditLog{}

	app := &application{
		config: cfg,
		logger: zap.NewNop().Sugar(),
		guard: &fakeGuard{principals: map[string]*auth.Principal{
			"owner":   ownerPrincipal,
			"manager": managerPrincipal,
			"cashier": cashierPrincipal,
		}},
		accounts: accounts,
		tenants:  tenants,
		tokens: auth.NewJWTAuthenticator(auth.TokenConfig{
			Secret:        "access-secret",
			RefreshSecret: "refresh-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    time.Hour,
			Issuer:        "storedesk",
		}, time.Now),
		auditLog: auditLog,
		health:   pingFunc(func(context.Context) error { return nil }),
	}
	for _, opt := range opts {
		opt(app)
	}

	t.Cleanup(func() {
		accounts.AssertExpectations(t)
		tenants.AssertExpectations(t)
	})

	return &testApp{
		application: app,
		accounts:    accounts,
		tenants:     tenants,
		audit:       auditLog,
		handler:     app.mount(),
	}
}

type response struct {
	Status int
	Header http.Header
	Body   struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *ErrorBody      `json:"error"`
	}
}

// do sends a request through the full router. token "" sends no Authorization header.
func (a *testApp) do(t *testing.T, method, path, token, body string) response {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	res := response{Status: rec.Code, Header: rec.Header()}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res.Body), rec.Body.String())
	}
	return res
}
