package stores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storedesk/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

// Repo is the persistence surface for tenant rows.
type Repo interface {
	Create(ctx context.Context, s *Store) error
	GetByID(ctx context.Context, id string) (*Store, error)
	List(ctx context.Context, f Filter) ([]Store, error)
	Update(ctx context.Context, id string, c Changes) (*Store, error)
	UpdateSubscription(ctx context.Context, id string, plan Plan, endsAt time.Time) (*Store, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Store, error)
	Delete(ctx context.Context, id string) error
	SeedDefaults(ctx context.Context, id string) error
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

const storeColumns = `id, name, slug, owner_id, status, subscription_plan, trial_ends_at,
	subscription_ends_at, email, phone, address, created_at, updated_at`

func scanStore(row pgx.Row) (*Store, error) {
	var s Store
	err := row.Scan(
		&s.ID, &s.Name, &s.Slug, &s.OwnerID, &s.Status, &s.Plan, &s.TrialEndsAt,
		&s.SubscriptionEndsAt, &s.Email, &s.Phone, &s.Address, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) Create(ctx context.Context, s *Store) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	  INSERT INTO stores (name, slug, owner_id, status, subscription_plan, trial_ends_at,
	                      subscription_ends_at, email, phone, address)
	  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	  RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		s.Name, s.Slug, s.OwnerID, s.Status, s.Plan, s.TrialEndsAt,
		s.SubscriptionEndsAt, s.Email, s.Phone, s.Address,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if _, ok := dbx.UniqueViolation(err); ok {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("insert store: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	s, err := scanStore(r.db.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get store: %w", err)
	}
	return s, err
}

func (r *Repository) List(ctx context.Context, f Filter) ([]Store, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Plan != "" {
		args = append(args, f.Plan)
		where = append(where, fmt.Sprintf("subscription_plan = $%d", len(args)))
	}

	query := `SELECT ` + storeColumns + ` FROM stores`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	out := []Store{}
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *Repository) Update(ctx context.Context, id string, c Changes) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	  UPDATE stores
	  SET name = COALESCE($2, name),
	      email = COALESCE($3, email),
	      phone = COALESCE($4, phone),
	      address = COALESCE($5, address),
	      updated_at = now()
	  WHERE id = $1
	  RETURNING ` + storeColumns

	s, err := scanStore(r.db.QueryRow(ctx, query, id, c.Name, c.Email, c.Phone, c.Address))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update store: %w", err)
	}
	return s, err
}

// UpdateSubscription sets the plan and end date and reactivates the store.
func (r *Repository) UpdateSubscription(ctx context.Context, id string, plan Plan, endsAt time.Time) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	  UPDATE stores
	  SET subscription_plan = $2,
	      subscription_ends_at = $3,
	      status = 'active',
	      updated_at = now()
	  WHERE id = $1
	  RETURNING ` + storeColumns

	s, err := scanStore(r.db.QueryRow(ctx, query, id, plan, endsAt))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return s, err
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `UPDATE stores SET status = $2, updated_at = now() WHERE id = $1 RETURNING ` + storeColumns

	s, err := scanStore(r.db.QueryRow(ctx, query, id, status))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("update store status: %w", err)
	}
	return s, err
}

// Delete removes the store; users and business rows go with it via ON DELETE CASCADE.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SeedDefaults(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if _, err := r.db.Exec(ctx, `SELECT seed_default_categories($1)`, id); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	if _, err := r.db.Exec(ctx, `SELECT seed_default_settings($1)`, id); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}
