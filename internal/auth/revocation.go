package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker tracks "issued-after" watermarks. A token minted before the
// watermark of its identity or its store is no longer honoured.
type Revoker interface {
	RevokeIdentity(ctx context.Context, identityID string, at time.Time) error
	RevokeStore(ctx context.Context, storeID string, at time.Time) error
	Revoked(ctx context.Context, identityID, storeID string, issuedAt time.Time) (bool, error)
}

const (
	identityKeyPrefix = "revoke:identity:"
	storeKeyPrefix    = "revoke:store:"
)

type RedisRevoker struct {
	client *redis.Client
	// watermarks only need to outlive the longest token they can reject
	ttl time.Duration
}

func NewRedisRevoker(client *redis.Client, ttl time.Duration) *RedisRevoker {
	return &RedisRevoker{client: client, ttl: ttl}
}

func (r *RedisRevoker) RevokeIdentity(ctx context.Context, identityID string, at time.Time) error {
	return r.set(ctx, identityKeyPrefix+identityID, at)
}

func (r *RedisRevoker) RevokeStore(ctx context.Context, storeID string, at time.Time) error {
	return r.set(ctx, storeKeyPrefix+storeID, at)
}

func (r *RedisRevoker) set(ctx context.Context, key string, at time.Time) error {
	if err := r.client.Set(ctx, key, at.Unix(), r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *RedisRevoker) Revoked(ctx context.Context, identityID, storeID string, issuedAt time.Time) (bool, error) {
	keys := []string{identityKeyPrefix + identityID}
	if storeID != "" {
		keys = append(keys, storeKeyPrefix+storeID)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("redis mget: %w", err)
	}

	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		mark, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		if Before(issuedAt, mark) {
			return true, nil
		}
	}
	return false, nil
}

// Before reports whether a token issued at issuedAt predates a unix-second watermark.
func Before(issuedAt time.Time, watermark int64) bool {
	return issuedAt.Unix() < watermark
}
