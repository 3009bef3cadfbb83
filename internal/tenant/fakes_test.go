package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"storedesk/internal/access"
	"storedesk/internal/domain/auditlog"
	"storedesk/internal/domain/roles"
	"storedesk/internal/domain/storage"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"
	"storedesk/internal/identity"
)

// memDB is an in-memory stand-in for the stores, users and roles tables.
type memDB struct {
	mu     sync.Mutex
	stores map[string]*stores.Store
	users  map[string]*users.User
	roles  map[string]*roles.Role
	seq    int

	failStoreCreate error
	failUserCreate  error
	failStoreDelete error
	failSeed        error
}

func newMemDB() *memDB {
	return &memDB{
		stores: map[string]*stores.Store{},
		users:  map[string]*users.User{},
		roles: map[string]*roles.Role{
			access.RoleSystemOwner:  {ID: "role-owner", Slug: access.RoleSystemOwner, Permissions: access.Universal()},
			access.RoleStoreManager: {ID: "role-manager", Slug: access.RoleStoreManager, Permissions: access.Universal()},
			"cashier": {ID: "role-cashier", Slug: "cashier", Permissions: access.NewPermissions(map[string]access.Grant{
				"invoices": access.Actions("read", "create"),
			})},
		},
	}
}

func (m *memDB) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

// stores.Repo

func (m *memDB) Create(_ context.Context, s *stores.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStoreCreate != nil {
		return m.failStoreCreate
	}
	for _, existing := range m.stores {
		if existing.Slug == s.Slug {
			return stores.ErrDuplicateSlug
		}
	}
	s.ID = m.nextID("store")
	cp := *s
	m.stores[s.ID] = &cp
	return nil
}

func (m *memDB) GetByID(_ context.Context, id string) (*stores.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, stores.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memDB) List(_ context.Context, f stores.Filter) ([]stores.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []stores.Store{}
	for _, s := range m.stores {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Plan != "" && s.Plan != f.Plan {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (m *memDB) Update(_ context.Context, id string, c stores.Changes) (*stores.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, stores.ErrNotFound
	}
	if c.Name != nil {
		s.Name = *c.Name
	}
	if c.Email != nil {
		s.Email = c.Email
	}
	if c.Phone != nil {
		s.Phone = c.Phone
	}
	if c.Address != nil {
		s.Address = c.Address
	}
	cp := *s
	return &cp, nil
}

func (m *memDB) UpdateSubscription(_ context.Context, id string, plan stores.Plan, endsAt time.Time) (*stores.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, stores.ErrNotFound
	}
	s.Plan = plan
	s.SubscriptionEndsAt = &endsAt
	s.Status = stores.StatusActive
	cp := *s
	return &cp, nil
}

func (m *memDB) UpdateStatus(_ context.Context, id string, status stores.Status) (*stores.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, stores.ErrNotFound
	}
	s.Status = status
	cp := *s
	return &cp, nil
}

func (m *memDB) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStoreDelete != nil {
		return m.failStoreDelete
	}
	if _, ok := m.stores[id]; !ok {
		return stores.ErrNotFound
	}
	delete(m.stores, id)
	for uid, u := range m.users {
		if u.StoreID != nil && *u.StoreID == id {
			delete(m.users, uid)
		}
	}
	return nil
}

func (m *memDB) SeedDefaults(context.Context, string) error {
	return m.failSeed
}

// users.Store, wrapped so its method set does not clash with stores.Repo.
type memUsers struct{ db *memDB }

func (u memUsers) GetActiveByID(_ context.Context, id string) (*users.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	usr, ok := u.db.users[id]
	if !ok || !usr.IsActive {
		return nil, users.ErrNotFound
	}
	return u.db.hydrate(usr), nil
}

func (m *memDB) hydrate(usr *users.User) *users.User {
	cp := *usr
	for _, r := range m.roles {
		if r.ID == cp.RoleID {
			role := *r
			cp.Role = &role
		}
	}
	if cp.StoreID != nil {
		if s, ok := m.stores[*cp.StoreID]; ok {
			st := *s
			cp.Store = &st
		}
	}
	return &cp
}

func (u memUsers) GetActiveByUsername(_ context.Context, username string) (*users.User, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	for _, usr := range u.db.users {
		if usr.Username == username && usr.IsActive {
			return u.db.hydrate(usr), nil
		}
	}
	return nil, users.ErrNotFound
}

func (u memUsers) UsernameExists(_ context.Context, username string) (bool, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	for _, usr := range u.db.users {
		if usr.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (u memUsers) EmailExists(_ context.Context, email string) (bool, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	for _, usr := range u.db.users {
		if usr.Email != nil && strings.EqualFold(*usr.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (u memUsers) SystemOwnerExists(context.Context) (bool, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	for _, usr := range u.db.users {
		if usr.RoleID == "role-owner" {
			return true, nil
		}
	}
	return false, nil
}

func (u memUsers) Create(_ context.Context, usr *users.User) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	if u.db.failUserCreate != nil {
		return u.db.failUserCreate
	}
	for _, existing := range u.db.users {
		if existing.Username == usr.Username {
			return users.ErrDuplicateUsername
		}
	}
	cp := *usr
	cp.Role, cp.Store = nil, nil
	u.db.users[usr.ID] = &cp
	return nil
}

func (u memUsers) Delete(_ context.Context, id string) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	delete(u.db.users, id)
	return nil
}

func (u memUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	if usr, ok := u.db.users[id]; ok {
		usr.LastLoginAt = &at
	}
	return nil
}

func (u memUsers) SetAccountExpiryForStore(_ context.Context, storeID string, expiresAt time.Time) (int64, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	var n int64
	for _, usr := range u.db.users {
		if usr.StoreID != nil && *usr.StoreID == storeID {
			e := expiresAt
			usr.AccountExpiresAt = &e
			n++
		}
	}
	return n, nil
}

func (u memUsers) UpdateProfile(context.Context, string, users.ProfileChanges) error {
	return nil
}

func (u memUsers) IDsByStore(_ context.Context, storeID string) ([]string, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	var ids []string
	for id, usr := range u.db.users {
		if usr.StoreID != nil && *usr.StoreID == storeID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (u memUsers) CountByStore(_ context.Context, storeID string) (int, error) {
	u.db.mu.Lock()
	defer u.db.mu.Unlock()
	n := 0
	for _, usr := range u.db.users {
		if usr.StoreID != nil && *usr.StoreID == storeID {
			n++
		}
	}
	return n, nil
}

// roles

func (m *memDB) GetBySlug(_ context.Context, slug string) (*roles.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[slug]
	if !ok {
		return nil, roles.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// Transactor

func (m *memDB) WithTx(_ context.Context, fn func(tx *storage.Tx) error) error {
	return fn(&storage.Tx{Users: memUsers{db: m}, Stores: m})
}

// addUser inserts a store member directly.
func (m *memDB) addUser(id, storeID, roleID, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sid := storeID
	m.users[id] = &users.User{ID: id, StoreID: &sid, RoleID: roleID, Username: username, IsActive: true}
}

// fakeProvider records identity-provider calls.
type fakeProvider struct {
	mu         sync.Mutex
	created    []string
	deleted    []string
	calls      int
	failDel    error
	failCreate error
}

func (p *fakeProvider) CreateUser(_ context.Context, u identity.NewUser) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failCreate != nil {
		return "", p.failCreate
	}
	id := fmt.Sprintf("idp-%d", len(p.created)+1)
	p.created = append(p.created, id)
	return id, nil
}

func (p *fakeProvider) DeleteUser(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failDel != nil {
		return p.failDel
	}
	p.deleted = append(p.deleted, id)
	return nil
}

func (p *fakeProvider) VerifyPassword(context.Context, string, string) (string, error) {
	return "", identity.ErrInvalidCredentials
}

func (p *fakeProvider) UpdatePassword(context.Context, string, string) error {
	return nil
}

func (p *fakeProvider) UpdateLogin(context.Context, string, string) error {
	return nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type memSink struct {
	mu      sync.Mutex
	entries []auditlog.Entry
}

func (s *memSink) Record(e auditlog.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *memSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Action)
	}
	return out
}

type memRevoker struct {
	mu     sync.Mutex
	stores []string
}

func (r *memRevoker) RevokeStore(_ context.Context, storeID string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores = append(r.stores, storeID)
	return nil
}

var errBoom = errors.New("boom")
