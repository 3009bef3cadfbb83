package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storedesk/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

var QueryTimeoutDuration = time.Second * 5

// PgCredentials is the postgres-backed CredentialStore.
type PgCredentials struct {
	db dbx.Querier
}

func NewPgCredentials(db dbx.Querier) *PgCredentials {
	return &PgCredentials{db: db}
}

func (r *PgCredentials) Insert(ctx context.Context, c *Credential) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := r.db.Exec(ctx,
		`INSERT INTO credentials (user_id, login, password_hash) VALUES ($1, $2, $3)`,
		c.UserID, c.Login, c.PasswordHash)
	if err != nil {
		if _, ok := dbx.UniqueViolation(err); ok {
			return ErrLoginTaken
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

func (r *PgCredentials) Delete(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM credentials WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgCredentials) GetByLogin(ctx context.Context, login string) (*Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var c Credential
	err := r.db.QueryRow(ctx,
		`SELECT user_id, login, password_hash FROM credentials WHERE login = lower($1)`, login,
	).Scan(&c.UserID, &c.Login, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &c, nil
}

func (r *PgCredentials) UpdateHash(ctx context.Context, userID string, hash []byte) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`UPDATE credentials SET password_hash = $2, updated_at = now() WHERE user_id = $1`, userID, hash)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgCredentials) UpdateLogin(ctx context.Context, userID, login string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.db.Exec(ctx,
		`UPDATE credentials SET login = lower($2), updated_at = now() WHERE user_id = $1`, userID, login)
	if err != nil {
		if _, ok := dbx.UniqueViolation(err); ok {
			return ErrLoginTaken
		}
		return fmt.Errorf("update credential login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
