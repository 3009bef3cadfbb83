// Package tenant owns the store lifecycle: creation of a store with its owner,
// subscriptions, status changes and deletion.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storedesk/internal/access"
	"storedesk/internal/apperr"
	"storedesk/internal/audit"
	"storedesk/internal/domain/roles"
	"storedesk/internal/domain/storage"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"
	"storedesk/internal/identity"
	"storedesk/internal/mailer"

	"go.uber.org/zap"
)

type RoleFinder interface {
	GetBySlug(ctx context.Context, slug string) (*roles.Role, error)
}

type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *storage.Tx) error) error
}

// SessionRevoker invalidates every session of a store minted before at.
type SessionRevoker interface {
	RevokeStore(ctx context.Context, storeID string, at time.Time) error
}

type Deps struct {
	Stores   stores.Repo
	Users    users.Store
	Roles    RoleFinder
	Tx       Transactor
	Identity identity.Provider
	Audit    audit.Sink
	Catalog  *Catalog
	Contact  Contact
	Logger   *zap.SugaredLogger

	// optional
	Mailer  mailer.Client
	Revoker SessionRevoker
	Now     func() time.Time
}

type Service struct {
	stores   stores.Repo
	users    users.Store
	roles    RoleFinder
	tx       Transactor
	identity identity.Provider
	audit    audit.Sink
	catalog  *Catalog
	contact  Contact
	logger   *zap.SugaredLogger
	mailer   mailer.Client
	revoker  SessionRevoker
	now      func() time.Time
}

func NewService(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Catalog == nil {
		d.Catalog = DefaultCatalog()
	}
	return &Service{
		stores:   d.Stores,
		users:    d.Users,
		roles:    d.Roles,
		tx:       d.Tx,
		identity: d.Identity,
		audit:    d.Audit,
		catalog:  d.Catalog,
		contact:  d.Contact,
		logger:   d.Logger,
		mailer:   d.Mailer,
		revoker:  d.Revoker,
		now:      d.Now,
	}
}

func (s *Service) Catalog() *Catalog { return s.catalog }

type NewStore struct {
	StoreName    string
	StoreEmail   *string
	StorePhone   *string
	StoreAddress *string
	Plan         stores.Plan

	Username string
	Password string
	FullName string
	Email    *string
	Phone    *string
}

type Created struct {
	Store *stores.Store `json:"store"`
	Owner *users.User   `json:"user"`
}

// checkIdentityConflicts runs before anything is written anywhere.
func (s *Service) checkIdentityConflicts(ctx context.Context, username string, email *string) error {
	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return apperr.Internal(err)
	}
	if taken {
		return apperr.Conflict("username already exists")
	}

	if email != nil && *email != "" {
		taken, err = s.users.EmailExists(ctx, *email)
		if err != nil {
			return apperr.Internal(err)
		}
		if taken {
			return apperr.Conflict("email already exists")
		}
	}
	return nil
}

func (s *Service) createProviderUser(ctx context.Context, username, password, fullName string, email *string) (string, error) {
	id, err := s.identity.CreateUser(ctx, identity.NewUser{
		Login:    identity.LoginFor(username, email),
		Password: password,
		Metadata: map[string]string{"username": username, "full_name": fullName},
	})
	if err != nil {
		if errors.Is(err, identity.ErrLoginTaken) {
			return "", apperr.Wrap(apperr.KindConflict, apperr.CodeConflict, "login already registered", err)
		}
		if errors.Is(err, identity.ErrPasswordTooLong) {
			return "", apperr.Validation("password must be at most 72 bytes")
		}
		return "", apperr.Internal(fmt.Errorf("create identity: %w", err))
	}
	return id, nil
}

// abort compensates the committed steps and turns cause into the caller-facing error.
func (s *Service) abort(ctx context.Context, sg *saga, cause error) error {
	if rbErr := sg.rollback(ctx, cause); rbErr != nil {
		return apperr.Internal(errors.Join(cause, rbErr))
	}

	switch {
	case errors.Is(cause, users.ErrDuplicateUsername):
		return apperr.Wrap(apperr.KindConflict, apperr.CodeConflict, "username already exists", cause)
	case errors.Is(cause, users.ErrDuplicateEmail):
		return apperr.Wrap(apperr.KindConflict, apperr.CodeConflict, "email already exists", cause)
	case errors.Is(cause, stores.ErrDuplicateSlug):
		return apperr.Wrap(apperr.KindConflict, apperr.CodeConflict, "store slug already exists", cause)
	default:
		return apperr.As(cause)
	}
}

// CreateStoreAndOwner creates the owner identity, the store and the owner's
// user row as a saga. A failure undoes the committed steps in reverse order.
func (s *Service) CreateStoreAndOwner(ctx context.Context, actor audit.Actor, in NewStore) (*Created, error) {
	if in.Plan == "" {
		in.Plan = stores.PlanFree
	}
	plan, err := s.catalog.Lookup(in.Plan)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	if err := s.checkIdentityConflicts(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	now := s.now()
	accessUntil := now.Add(days(plan.DurationDays))
	sg := newSaga("create_store", s.logger)

	ownerID, err := s.createProviderUser(ctx, in.Username, in.Password, in.FullName, in.Email)
	if err != nil {
		return nil, err
	}
	sg.done("delete_identity", func(ctx context.Context) error {
		return s.identity.DeleteUser(ctx, ownerID)
	})

	store := &stores.Store{
		Name:        in.StoreName,
		Slug:        Slug(in.StoreName, now),
		OwnerID:     &ownerID,
		Status:      stores.StatusActive,
		Plan:        plan.Name,
		TrialEndsAt: &accessUntil,
		Email:       in.StoreEmail,
		Phone:       in.StorePhone,
		Address:     in.StoreAddress,
	}
	if plan.Name != stores.PlanFree {
		store.SubscriptionEndsAt = &accessUntil
	}
	if err := s.stores.Create(ctx, store); err != nil {
		return nil, s.abort(ctx, sg, err)
	}
	sg.done("delete_store", func(ctx context.Context) error {
		return s.stores.Delete(ctx, store.ID)
	})

	role, err := s.roles.GetBySlug(ctx, access.RoleStoreManager)
	if err != nil {
		return nil, s.abort(ctx, sg, fmt.Errorf("load store_manager role: %w", err))
	}

	owner := &users.User{
		ID:               ownerID,
		StoreID:          &store.ID,
		RoleID:           role.ID,
		Username:         in.Username,
		FullName:         in.FullName,
		Email:            in.Email,
		Phone:            in.Phone,
		IsActive:         true,
		AccountExpiresAt: &accessUntil,
	}
	if err := s.users.Create(ctx, owner); err != nil {
		return nil, s.abort(ctx, sg, err)
	}
	owner.Role = role
	owner.Store = store

	// the store exists from here on; what follows is best-effort
	if err := s.stores.SeedDefaults(ctx, store.ID); err != nil {
		s.logger.Warnw("seeding store defaults failed", "store_id", store.ID, "error", err)
	}

	entry := actor.Entry("create_store", "store", &store.ID)
	entry.NewData = audit.Snapshot(store)
	s.audit.Record(entry)

	s.notify(mailer.StoreWelcomeTemplate, in.Username, in.Email, map[string]any{
		"Username":        in.Username,
		"StoreName":       store.Name,
		"Plan":            string(store.Plan),
		"AccessUntil":     accessUntil.Format("2006-01-02"),
		"ContactEmail":    s.contact.Email,
		"ContactWhatsApp": s.contact.WhatsApp,
	})

	s.logger.Infow("store created", "store_id", store.ID, "owner_id", ownerID, "plan", store.Plan)
	return &Created{Store: store, Owner: owner}, nil
}

type SubscriptionResult struct {
	Store        *stores.Store `json:"store"`
	UsersUpdated int64         `json:"users_updated"`
}

// UpdateSubscription moves a store onto plan for durationDays (or the plan's
// default), reactivates it and aligns every user's account expiry with the new end.
func (s *Service) UpdateSubscription(ctx context.Context, actor audit.Actor, storeID string, planName stores.Plan, durationDays *int) (*SubscriptionResult, error) {
	plan, err := s.catalog.Lookup(planName)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	n := plan.DurationDays
	if durationDays != nil {
		if *durationDays <= 0 {
			return nil, apperr.Validation("duration must be a positive number of days")
		}
		n = *durationDays
	}

	current, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, storeErr(err)
	}
	if current.Status == stores.StatusCancelled {
		return nil, apperr.New(apperr.KindConflict, apperr.CodeInvalidTransition,
			"a cancelled store cannot be renewed")
	}

	endsAt := s.now().Add(days(n))

	var (
		updated  *stores.Store
		affected int64
	)
	err = s.tx.WithTx(ctx, func(tx *storage.Tx) error {
		var err error
		updated, err = tx.Stores.UpdateSubscription(ctx, storeID, plan.Name, endsAt)
		if err != nil {
			return err
		}
		affected, err = tx.Users.SetAccountExpiryForStore(ctx, storeID, endsAt)
		return err
	})
	if err != nil {
		return nil, storeErr(err)
	}

	entry := actor.Entry("update_subscription", "store", &storeID)
	entry.OldData = audit.Snapshot(map[string]any{
		"subscription_plan":    current.Plan,
		"subscription_ends_at": current.SubscriptionEndsAt,
		"status":               current.Status,
	})
	entry.NewData = audit.Snapshot(map[string]any{
		"subscription_plan":    updated.Plan,
		"subscription_ends_at": updated.SubscriptionEndsAt,
		"status":               updated.Status,
		"duration_days":        n,
	})
	s.audit.Record(entry)

	s.notify(mailer.SubscriptionRenewedTemplate, updated.Name, updated.Email, map[string]any{
		"Username":    updated.Name,
		"StoreName":   updated.Name,
		"Plan":        string(updated.Plan),
		"AccessUntil": endsAt.Format("2006-01-02"),
	})

	s.logger.Infow("subscription updated",
		"store_id", storeID, "plan", plan.Name, "ends_at", endsAt, "users_updated", affected)
	return &SubscriptionResult{Store: updated, UsersUpdated: affected}, nil
}

type SubscriptionDecision struct {
	Approve      bool
	Plan         stores.Plan
	DurationDays *int
	Notes        string
}

// HandleSubscriptionRequest approves (renews) or rejects a tenant's renewal request.
func (s *Service) HandleSubscriptionRequest(ctx context.Context, actor audit.Actor, storeID string, d SubscriptionDecision) (*SubscriptionResult, error) {
	if d.Approve {
		return s.UpdateSubscription(ctx, actor, storeID, d.Plan, d.DurationDays)
	}

	if _, err := s.stores.GetByID(ctx, storeID); err != nil {
		return nil, storeErr(err)
	}

	entry := actor.Entry("reject_subscription_request", "store", &storeID)
	entry.NewData = audit.Snapshot(map[string]any{"notes": d.Notes, "requested_plan": d.Plan})
	s.audit.Record(entry)
	return nil, nil
}

// ChangeStatus moves a store along the status machine. Moving to the current
// status is a no-op.
func (s *Service) ChangeStatus(ctx context.Context, actor audit.Actor, storeID string, status stores.Status) (*stores.Store, error) {
	if !status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid store status %q", status))
	}

	current, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, storeErr(err)
	}
	if err := CheckTransition(current.Status, status); err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}

	updated, err := s.stores.UpdateStatus(ctx, storeID, status)
	if err != nil {
		return nil, storeErr(err)
	}

	if status == stores.StatusCancelled {
		s.revokeStore(ctx, storeID)
	}

	entry := actor.Entry("update_store_status", "store", &storeID)
	entry.OldData = audit.Snapshot(map[string]any{"status": current.Status})
	entry.NewData = audit.Snapshot(map[string]any{"status": updated.Status})
	s.audit.Record(entry)

	s.logger.Infow("store status changed", "store_id", storeID, "from", current.Status, "to", updated.Status)
	return updated, nil
}

// DeleteStore removes the store; its users and data go with it in the database.
func (s *Service) DeleteStore(ctx context.Context, actor audit.Actor, storeID string) error {
	current, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return storeErr(err)
	}

	// collected first, the cascade removes the rows
	members, err := s.users.IDsByStore(ctx, storeID)
	if err != nil {
		s.logger.Warnw("list store users before delete", "store_id", storeID, "error", err)
	}

	if err := s.stores.Delete(ctx, storeID); err != nil {
		return storeErr(err)
	}

	s.revokeStore(ctx, storeID)

	for _, id := range members {
		if err := s.identity.DeleteUser(ctx, id); err != nil {
			s.logger.Warnw("provider account left behind", "store_id", storeID, "user_id", id, "error", err)
		}
	}

	entry := actor.Entry("delete_store", "store", &storeID)
	entry.OldData = audit.Snapshot(current)
	s.audit.Record(entry)

	s.logger.Infow("store deleted", "store_id", storeID)
	return nil
}

func canReach(actor audit.Actor, storeID string) bool {
	if actor.RoleSlug == access.RoleSystemOwner {
		return true
	}
	return actor.StoreID != nil && *actor.StoreID == storeID
}

func (s *Service) GetStore(ctx context.Context, actor audit.Actor, storeID string) (*stores.Store, error) {
	if !canReach(actor, storeID) {
		return nil, apperr.Forbidden(apperr.CodeForbidden, "you can only view your own store")
	}
	st, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, storeErr(err)
	}
	return st, nil
}

func (s *Service) ListStores(ctx context.Context, f stores.Filter) ([]stores.Store, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("invalid store status %q", f.Status))
	}
	if f.Plan != "" {
		if _, err := s.catalog.Lookup(f.Plan); err != nil {
			return nil, apperr.Validation(err.Error())
		}
	}
	list, err := s.stores.List(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

func (s *Service) UpdateStore(ctx context.Context, actor audit.Actor, storeID string, c stores.Changes) (*stores.Store, error) {
	if !canReach(actor, storeID) {
		return nil, apperr.Forbidden(apperr.CodeForbidden, "you can only update your own store")
	}
	if c.Empty() {
		return nil, apperr.Validation("no fields to update")
	}

	before, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, storeErr(err)
	}

	updated, err := s.stores.Update(ctx, storeID, c)
	if err != nil {
		return nil, storeErr(err)
	}

	entry := actor.Entry("update_store", "store", &storeID)
	entry.OldData = audit.Snapshot(before)
	entry.NewData = audit.Snapshot(updated)
	s.audit.Record(entry)
	return updated, nil
}

type NewOwner struct {
	Username string
	Email    *string
	Password string
	FullName string
}

// CreateSystemOwner bootstraps the single unscoped administrator.
func (s *Service) CreateSystemOwner(ctx context.Context, in NewOwner) (*users.User, error) {
	exists, err := s.users.SystemOwnerExists(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if exists {
		return nil, apperr.Conflict("system owner already exists")
	}

	if err := s.checkIdentityConflicts(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	sg := newSaga("create_system_owner", s.logger)

	id, err := s.createProviderUser(ctx, in.Username, in.Password, in.FullName, in.Email)
	if err != nil {
		return nil, err
	}
	sg.done("delete_identity", func(ctx context.Context) error {
		return s.identity.DeleteUser(ctx, id)
	})

	role, err := s.roles.GetBySlug(ctx, access.RoleSystemOwner)
	if err != nil {
		return nil, s.abort(ctx, sg, fmt.Errorf("load system_owner role: %w", err))
	}

	owner := &users.User{
		ID:       id,
		RoleID:   role.ID,
		Username: in.Username,
		FullName: in.FullName,
		Email:    in.Email,
		IsActive: true,
	}
	if err := s.users.Create(ctx, owner); err != nil {
		return nil, s.abort(ctx, sg, err)
	}
	owner.Role = role

	s.audit.Record(audit.Actor{UserID: id}.Entry("create_system_owner", "user", &id))
	s.logger.Infow("system owner created", "user_id", id, "username", in.Username)
	return owner, nil
}

func (s *Service) revokeStore(ctx context.Context, storeID string) {
	if s.revoker == nil {
		return
	}
	if err := s.revoker.RevokeStore(ctx, storeID, s.now()); err != nil {
		s.logger.Warnw("revoking store sessions failed", "store_id", storeID, "error", err)
	}
}

func (s *Service) notify(template, name string, email *string, data any) {
	if s.mailer == nil || email == nil || *email == "" {
		return
	}
	to := *email
	go func() {
		if err := s.mailer.Send(template, name, to, data); err != nil {
			s.logger.Warnw("sending mail failed", "template", template, "error", err)
		}
	}()
}

func storeErr(err error) error {
	if errors.Is(err, stores.ErrNotFound) {
		return apperr.NotFound("store not found")
	}
	return apperr.As(err)
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
