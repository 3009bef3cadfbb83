package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"storedesk/internal/access"
	"storedesk/internal/apperr"
	"storedesk/internal/audit"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"
	"storedesk/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	db       *memDB
	provider *fakeProvider
	sink     *memSink
	revoker  *memRevoker
	now      time.Time
	svc      *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		db:       newMemDB(),
		provider: &fakeProvider{},
		sink:     &memSink{},
		revoker:  &memRevoker{},
		now:      time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	h.svc = NewService(Deps{
		Stores:   h.db,
		Users:    memUsers{db: h.db},
		Roles:    h.db,
		Tx:       h.db,
		Identity: h.provider,
		Audit:    h.sink,
		Catalog:  DefaultCatalog(),
		Contact:  Contact{Email: "support@storedesk.app", Phone: "+90", WhatsApp: "+90"},
		Logger:   zap.NewNop().Sugar(),
		Revoker:  h.revoker,
		Now:      func() time.Time { return h.now },
	})
	return h
}

var ownerActor = audit.Actor{UserID: "sys", RoleSlug: access.RoleSystemOwner, IP: "127.0.0.1"}

func newStoreInput(username string) NewStore {
	return NewStore{
		StoreName: "Corner Shop",
		Plan:      stores.PlanFree,
		Username:  username,
		Password:  "secret1",
		FullName:  "Shop Owner",
	}
}

func TestCreateFreeStoreThenSubscribeMonthly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("corner"))
	require.NoError(t, err)

	trialEnd := h.now.Add(30 * 24 * time.Hour)
	require.NotNil(t, created.Store.TrialEndsAt)
	assert.True(t, created.Store.TrialEndsAt.Equal(trialEnd))
	assert.Nil(t, created.Store.SubscriptionEndsAt)
	assert.Equal(t, stores.StatusActive, created.Store.Status)
	assert.Equal(t, "role-manager", created.Owner.RoleID)
	assert.Equal(t, created.Owner.ID, *created.Store.OwnerID)
	require.NotNil(t, created.Owner.AccountExpiresAt)
	assert.True(t, created.Owner.AccountExpiresAt.Equal(trialEnd))
	assert.Contains(t, h.sink.actions(), "create_store")

	storeID := created.Store.ID
	h.db.addUser("cashier-1", storeID, "role-cashier", "cashier1")

	h.now = h.now.Add(10 * 24 * time.Hour)
	res, err := h.svc.UpdateSubscription(ctx, ownerActor, storeID, stores.PlanMonthly, nil)
	require.NoError(t, err)

	subEnd := h.now.Add(30 * 24 * time.Hour)
	require.NotNil(t, res.Store.SubscriptionEndsAt)
	assert.True(t, res.Store.SubscriptionEndsAt.Equal(subEnd))
	assert.Equal(t, stores.StatusActive, res.Store.Status)
	assert.Equal(t, stores.PlanMonthly, res.Store.Plan)
	assert.EqualValues(t, 2, res.UsersUpdated)

	for _, id := range []string{created.Owner.ID, "cashier-1"} {
		u, err := memUsers{db: h.db}.GetActiveByID(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, u.AccountExpiresAt)
		assert.True(t, u.AccountExpiresAt.Equal(subEnd), "user %s", id)
	}
	assert.Contains(t, h.sink.actions(), "update_subscription")
}

func TestCreatePaidStoreSetsSubscriptionEnd(t *testing.T) {
	h := newHarness(t)
	in := newStoreInput("yearly")
	in.Plan = stores.PlanYearly

	created, err := h.svc.CreateStoreAndOwner(context.Background(), ownerActor, in)
	require.NoError(t, err)

	end := h.now.Add(365 * 24 * time.Hour)
	require.NotNil(t, created.Store.SubscriptionEndsAt)
	assert.True(t, created.Store.SubscriptionEndsAt.Equal(end))
	assert.True(t, created.Store.TrialEndsAt.Equal(end))
}

func TestCreateStoreRejectsUnknownPlan(t *testing.T) {
	h := newHarness(t)
	in := newStoreInput("corner")
	in.Plan = "weekly"

	_, err := h.svc.CreateStoreAndOwner(context.Background(), ownerActor, in)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Zero(t, h.provider.callCount())
}

func TestDuplicateUsernameFailsBeforeProviderCall(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("corner"))
	require.NoError(t, err)
	callsAfterFirst := h.provider.callCount()

	_, err = h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("corner"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
	assert.Equal(t, callsAfterFirst, h.provider.callCount())
}

func TestDuplicateEmailIsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	email := "owner@shop.com"

	in := newStoreInput("first")
	in.Email = &email
	_, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, in)
	require.NoError(t, err)

	in = newStoreInput("second")
	upper := "OWNER@shop.com"
	in.Email = &upper
	_, err = h.svc.CreateStoreAndOwner(ctx, ownerActor, in)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestCreateStoreCompensatesOnUserInsertFailure(t *testing.T) {
	h := newHarness(t)
	h.db.failUserCreate = errBoom

	_, err := h.svc.CreateStoreAndOwner(context.Background(), ownerActor, newStoreInput("corner"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrInternal))

	assert.Empty(t, h.db.stores, "store row must be rolled back")
	assert.Equal(t, h.provider.created, h.provider.deleted, "identity must be rolled back")
	assert.NotContains(t, h.sink.actions(), "create_store")
}

func TestCreateStoreCompensatesOnStoreInsertFailure(t *testing.T) {
	h := newHarness(t)
	h.db.failStoreCreate = errBoom

	_, err := h.svc.CreateStoreAndOwner(context.Background(), ownerActor, newStoreInput("corner"))
	assert.True(t, errors.Is(err, apperr.ErrInternal))
	assert.Len(t, h.provider.deleted, 1)
}

func TestCreateStoreSurfacesFailedCompensation(t *testing.T) {
	h := newHarness(t)
	h.db.failUserCreate = users.ErrDuplicateUsername
	h.provider.failDel = errors.New("idp unavailable")

	_, err := h.svc.CreateStoreAndOwner(context.Background(), ownerActor, newStoreInput("corner"))
	require.Error(t, err)

	// an orphaned identity is an internal failure even though the cause was a conflict
	assert.True(t, errors.Is(err, apperr.ErrInternal))
	assert.ErrorContains(t, err, "undo delete_identity")
	assert.Empty(t, h.db.stores)
}

func TestCreateStoreSurvivesSeedFailure(t *testing.T) {
	h := newHarness(t)
	h.db.failSeed = errBoom

	created, err := h.svc.CreateStoreAndOwner(context.Background(), ownerActor, newStoreInput("corner"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.Store.ID)
	assert.Len(t, h.db.stores, 1)
}

func TestUpdateSubscriptionDurationOverride(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("corner"))
	require.NoError(t, err)

	n := 45
	res, err := h.svc.UpdateSubscription(ctx, ownerActor, created.Store.ID, stores.PlanMonthly, &n)
	require.NoError(t, err)
	assert.True(t, res.Store.SubscriptionEndsAt.Equal(h.now.Add(45*24*time.Hour)))

	zero := 0
	_, err = h.svc.UpdateSubscription(ctx, ownerActor, created.Store.ID, stores.PlanMonthly, &zero)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = h.svc.UpdateSubscription(ctx, ownerActor, "missing", stores.PlanMonthly, nil)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUpdateSubscriptionReactivatesSuspendedStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("corner"))
	require.NoError(t, err)

	_, err = h.svc.ChangeStatus(ctx, ownerActor, created.Store.ID, stores.StatusSuspended)
	require.NoError(t, err)

	res, err := h.svc.UpdateSubscription(ctx, ownerActor, created.Store.ID, stores.PlanSixMonth, nil)
	require.NoError(t, err)
	assert.Equal(t, stores.StatusActive, res.Store.Status)
}

func TestSuspendedStoreLocksOutItsUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("corner"))
	require.NoError(t, err)

	u, err := memUsers{db: h.db}.GetActiveByID(ctx, created.Owner.ID)
	require.NoError(t, err)
	require.NoError(t, CheckAccess(u, h.now, h.svc.contact))

	_, err = h.svc.ChangeStatus(ctx, ownerActor, created.Store.ID, stores.StatusSuspended)
	require.NoError(t, err)

	u, err = memUsers{db: h.db}.GetActiveByID(ctx, created.Owner.ID)
	require.NoError(t, err)
	err = CheckAccess(u, h.now, h.svc.contact)
	assert.True(t, errors.Is(err, apperr.Forbidden(apperr.CodeSubscriptionExpired, "")))
}

func TestChangeStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("corner"))
	require.NoError(t, err)
	id := created.Store.ID

	t.Run("same state is a no-op", func(t *testing.T) {
		before := len(h.sink.actions())
		st, err := h.svc.ChangeStatus(ctx, ownerActor, id, stores.StatusActive)
		require.NoError(t, err)
		assert.Equal(t, stores.StatusActive, st.Status)
		assert.Len(t, h.sink.actions(), before)
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := h.svc.ChangeStatus(ctx, ownerActor, id, "paused")
		assert.True(t, errors.Is(err, apperr.ErrValidation))
	})

	t.Run("cancel is terminal and revokes sessions", func(t *testing.T) {
		st, err := h.svc.ChangeStatus(ctx, ownerActor, id, stores.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, stores.StatusCancelled, st.Status)
		assert.Equal(t, []string{id}, h.revoker.stores)

		_, err = h.svc.ChangeStatus(ctx, ownerActor, id, stores.StatusActive)
		assert.True(t, errors.Is(err, apperr.New(apperr.KindConflict, apperr.CodeInvalidTransition, "")))

		_, err = h.svc.UpdateSubscription(ctx, ownerActor, id, stores.PlanMonthly, nil)
		assert.True(t, errors.Is(err, apperr.ErrConflict))
	})
}

func TestDeleteStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("corner"))
	require.NoError(t, err)

	require.NoError(t, h.svc.DeleteStore(ctx, ownerActor, created.Store.ID))
	assert.Empty(t, h.db.users, "users cascade with their store")
	assert.Contains(t, h.provider.deleted, created.Owner.ID)
	assert.Contains(t, h.sink.actions(), "delete_store")
	assert.Equal(t, []string{created.Store.ID}, h.revoker.stores)

	err = h.svc.DeleteStore(ctx, ownerActor, created.Store.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestGetAndUpdateStoreOwnership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("alpha"))
	require.NoError(t, err)
	h.now = h.now.Add(time.Millisecond)
	b, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("beta"))
	require.NoError(t, err)

	manager := audit.Actor{UserID: a.Owner.ID, StoreID: &a.Store.ID, RoleSlug: access.RoleStoreManager}

	_, err = h.svc.GetStore(ctx, manager, a.Store.ID)
	assert.NoError(t, err)

	_, err = h.svc.GetStore(ctx, manager, b.Store.ID)
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = h.svc.GetStore(ctx, ownerActor, b.Store.ID)
	assert.NoError(t, err)

	name := "Alpha Market"
	st, err := h.svc.UpdateStore(ctx, manager, a.Store.ID, stores.Changes{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Market", st.Name)

	_, err = h.svc.UpdateStore(ctx, manager, b.Store.ID, stores.Changes{Name: &name})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))

	_, err = h.svc.UpdateStore(ctx, manager, a.Store.ID, stores.Changes{})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestListStoresValidatesFilter(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("alpha"))
	require.NoError(t, err)

	list, err := h.svc.ListStores(ctx, stores.Filter{Status: stores.StatusActive})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = h.svc.ListStores(ctx, stores.Filter{Status: "paused"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = h.svc.ListStores(ctx, stores.Filter{Plan: "weekly"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestHandleSubscriptionRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	created, err := h.svc.CreateStoreAndOwner(ctx, ownerActor, newStoreInput("alpha"))
	require.NoError(t, err)

	res, err := h.svc.HandleSubscriptionRequest(ctx, ownerActor, created.Store.ID,
		SubscriptionDecision{Approve: false, Plan: stores.PlanYearly, Notes: "payment not received"})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Contains(t, h.sink.actions(), "reject_subscription_request")

	st, err := h.db.GetByID(ctx, created.Store.ID)
	require.NoError(t, err)
	assert.Equal(t, stores.PlanFree, st.Plan)

	res, err = h.svc.HandleSubscriptionRequest(ctx, ownerActor, created.Store.ID,
		SubscriptionDecision{Approve: true, Plan: stores.PlanYearly})
	require.NoError(t, err)
	assert.Equal(t, stores.PlanYearly, res.Store.Plan)
}

func TestCreateSystemOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	owner, err := h.svc.CreateSystemOwner(ctx, NewOwner{Username: "systemadmin", Password: "Admin123!", FullName: "System Administrator"})
	require.NoError(t, err)
	assert.Nil(t, owner.StoreID)
	assert.Nil(t, owner.AccountExpiresAt)
	assert.Equal(t, access.RoleSystemOwner, owner.Role.Slug)

	_, err = h.svc.CreateSystemOwner(ctx, NewOwner{Username: "another", Password: "Admin123!"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestCreateStoreRejectsOverlongPassword(t *testing.T) {
	h := newHarness(t)
	h.provider.failCreate = identity.ErrPasswordTooLong

	_, err := h.svc.CreateStoreAndOwner(context.Background(), ownerActor, newStoreInput("corner"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Empty(t, h.db.stores)
	assert.Empty(t, h.db.users)
}
