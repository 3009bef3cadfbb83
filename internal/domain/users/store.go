package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storedesk/internal/domain/roles"
	"storedesk/internal/domain/stores"
	"storedesk/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Store interface {
	GetActiveByID(ctx context.Context, id string) (*User, error)
	GetActiveByUsername(ctx context.Context, username string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	SystemOwnerExists(ctx context.Context) (bool, error)
	Create(ctx context.Context, u *User) error
	Delete(ctx context.Context, id string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	SetAccountExpiryForStore(ctx context.Context, storeID string, expiresAt time.Time) (int64, error)
	UpdateProfile(ctx context.Context, id string, c ProfileChanges) error
	CountByStore(ctx context.Context, storeID string) (int, error)
	IDsByStore(ctx context.Context, storeID string) ([]string, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

// identity with its role and (optional) store, loaded in a single round trip
const selectIdentity = `
  SELECT u.id, u.store_id, u.role_id, u.username, u.full_name, u.email, u.phone,
         u.is_active, u.account_expires_at, u.last_login_at, u.locale, u.theme,
         u.created_at, u.updated_at,
         r.id, r.slug, r.name, r.permissions,
         s.id, s.name, s.slug, s.owner_id, s.status, s.subscription_plan,
         s.trial_ends_at, s.subscription_ends_at, s.email, s.phone, s.address,
         s.created_at, s.updated_at
  FROM users u
  JOIN roles r ON r.id = u.role_id
  LEFT JOIN stores s ON s.id = u.store_id`

func scanIdentity(row pgx.Row) (*User, error) {
	var (
		u  User
		r  roles.Role
		st struct {
			id, name, slug, status, plan *string
			ownerID, email, phone, addr  *string
			trialEnds, subEnds           *time.Time
			createdAt, updatedAt         *time.Time
		}
	)
	err := row.Scan(
		&u.ID, &u.StoreID, &u.RoleID, &u.Username, &u.FullName, &u.Email, &u.Phone,
		&u.IsActive, &u.AccountExpiresAt, &u.LastLoginAt, &u.Locale, &u.Theme,
		&u.CreatedAt, &u.UpdatedAt,
		&r.ID, &r.Slug, &r.Name, &r.Permissions,
		&st.id, &st.name, &st.slug, &st.ownerID, &st.status, &st.plan,
		&st.trialEnds, &st.subEnds, &st.email, &st.phone, &st.addr,
		&st.createdAt, &st.updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	u.Role = &r
	if st.id != nil {
		u.Store = &stores.Store{
			ID:                 *st.id,
			Name:               deref(st.name),
			Slug:               deref(st.slug),
			OwnerID:            st.ownerID,
			Status:             stores.Status(deref(st.status)),
			Plan:               stores.Plan(deref(st.plan)),
			TrialEndsAt:        st.trialEnds,
			SubscriptionEndsAt: st.subEnds,
			Email:              st.email,
			Phone:              st.phone,
			Address:            st.addr,
		}
		if st.createdAt != nil {
			u.Store.CreatedAt = *st.createdAt
		}
		if st.updatedAt != nil {
			u.Store.UpdatedAt = *st.updatedAt
		}
	}
	return &u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *Repository) GetActiveByID(ctx context.Context, id string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	u, err := scanIdentity(r.db.QueryRow(ctx, selectIdentity+` WHERE u.id = $1 AND u.is_active = true`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, err
}

func (r *Repository) GetActiveByUsername(ctx context.Context, username string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	u, err := scanIdentity(r.db.QueryRow(ctx, selectIdentity+` WHERE u.username = $1 AND u.is_active = true`, username))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, err
}

func (r *Repository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var ok bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email)
}

func (r *Repository) SystemOwnerExists(ctx context.Context) (bool, error) {
	return r.exists(ctx, `
	  SELECT EXISTS (
	    SELECT 1 FROM users u JOIN roles r ON r.id = u.role_id WHERE r.slug = 'system_owner'
	  )`)
}

func (r *Repository) Create(ctx context.Context, u *User) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	  INSERT INTO users (id, store_id, role_id, username, full_name, email, phone,
	                     is_active, account_expires_at, locale, theme)
	  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	  RETURNING created_at, updated_at`

	if u.Locale == "" {
		u.Locale = LocaleArabic
	}
	if u.Theme == "" {
		u.Theme = ThemeLight
	}

	err := r.db.QueryRow(ctx, query,
		u.ID, u.StoreID, u.RoleID, u.Username, u.FullName, u.Email, u.Phone,
		u.IsActive, u.AccountExpiresAt, u.Locale, u.Theme,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return mapUniqueErr(err, "insert user")
	}
	return nil
}

func mapUniqueErr(err error, op string) error {
	constraint, ok := dbx.UniqueViolation(err)
	switch {
	case ok && strings.Contains(constraint, "username"):
		return ErrDuplicateUsername
	case ok && strings.Contains(constraint, "email"):
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

// SetAccountExpiryForStore aligns every identity of a store with the tenant's paid period.
func (r *Repository) SetAccountExpiryForStore(ctx context.Context, storeID string, expiresAt time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET account_expires_at = $2, updated_at = now() WHERE store_id = $1`,
		storeID, expiresAt)
	if err != nil {
		return 0, fmt.Errorf("propagate account expiry: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) UpdateProfile(ctx context.Context, id string, c ProfileChanges) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	  UPDATE users
	  SET full_name = COALESCE($2, full_name),
	      email = COALESCE($3, email),
	      phone = COALESCE($4, phone),
	      locale = COALESCE($5, locale),
	      theme = COALESCE($6, theme),
	      updated_at = now()
	  WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, c.FullName, c.Email, c.Phone, c.Locale, c.Theme)
	if err != nil {
		return mapUniqueErr(err, "update profile")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) CountByStore(ctx context.Context, storeID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM users WHERE store_id = $1`, storeID).Scan(&n)
	return n, err
}

func (r *Repository) IDsByStore(ctx context.Context, storeID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT id FROM users WHERE store_id = $1`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
