// Package auditlog persists the append-only audit trail.
package auditlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storedesk/internal/infra/dbx"
)

var QueryTimeoutDuration = time.Second * 5

var ErrInvalidEntry = errors.New("audit entry requires an action and entity type")

type Entry struct {
	ID         int64           `json:"id"`
	StoreID    *string         `json:"store_id"`
	UserID     *string         `json:"user_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   *string         `json:"entity_id"`
	OldData    json.RawMessage `json:"old_data,omitempty"`
	NewData    json.RawMessage `json:"new_data,omitempty"`
	IPAddress  string          `json:"ip_address,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Store interface {
	Append(ctx context.Context, e *Entry) error
	ListByStore(ctx context.Context, storeID string, limit, offset int) ([]Entry, error)
}

type Repository struct {
	db dbx.Querier
}

func NewRepository(db dbx.Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Append(ctx context.Context, e *Entry) error {
	if e.Action == "" || e.EntityType == "" {
		return ErrInvalidEntry
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
	  INSERT INTO audit_logs (store_id, user_id, action, entity_type, entity_id,
	                          old_data, new_data, ip_address, user_agent)
	  VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''))
	  RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		e.StoreID, e.UserID, e.Action, e.EntityType, e.EntityID,
		nullJSON(e.OldData), nullJSON(e.NewData), e.IPAddress, e.UserAgent,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func (r *Repository) ListByStore(ctx context.Context, storeID string, limit, offset int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.db.Query(ctx, `
	  SELECT id, store_id, user_id, action, entity_type, entity_id, old_data, new_data,
	         COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
	  FROM audit_logs
	  WHERE store_id = $1
	  ORDER BY created_at DESC, id DESC
	  LIMIT $2 OFFSET $3`, storeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e                Entry
			oldData, newData []byte
		)
		if err := rows.Scan(&e.ID, &e.StoreID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID,
			&oldData, &newData, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.OldData, e.NewData = oldData, newData
		out = append(out, e)
	}
	return out, rows.Err()
}
