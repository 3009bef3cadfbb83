package storage

import (
	"context"
	"fmt"

	"storedesk/internal/domain/auditlog"
	"storedesk/internal/domain/roles"
	"storedesk/internal/domain/stores"
	"storedesk/internal/domain/users"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool   *pgxpool.Pool // required by WithTx and Ping
	Users  users.Store
	Stores stores.Repo
	Roles  roles.Store
	Audit  auditlog.Store
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		pool:   db,
		Users:  users.NewRepository(db),
		Stores: stores.NewRepository(db),
		Roles:  roles.NewRepository(db),
		Audit:  auditlog.NewRepository(db),
	}
}

// Tx is a tx-scoped set of repos for atomic units of work.
type Tx struct {
	Users  users.Store
	Stores stores.Repo
}

// WithTx runs fn inside a single transaction, committing only if fn returns nil.
func (c *Container) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	if err := fn(&Tx{
		Users:  users.NewRepository(tx),
		Stores: stores.NewRepository(tx),
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (c *Container) Ping(ctx context.Context) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil")
	}
	return c.pool.Ping(ctx)
}
