package nonce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/glimpsegive/glimpse-ledger/internal/errs"
)

type redisCmds interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps nonces as expiring keys; expiry is left to Redis.
type RedisStore struct {
	rdb    redisCmds
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a store on rdb (a *redis.Client satisfies it).
func NewRedisStore(rdb redisCmds) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: "glimpse:nonce:"}
}

// Put stores value unless it already exists.
func (s *RedisStore) Put(ctx context.Context, value string, ttl time.Duration) error {
	ok, err := s.rdb.SetNX(ctx, s.prefix+value, 1, ttl).Result()
	if err != nil {
		return fmt.Errorf("store nonce: %w", err)
	}
	if !ok {
		return fmt.Errorf("store nonce: %w", errs.ErrAlreadyExists)
	}
	return nil
}

// Consume removes value with GETDEL so only one caller can win.
func (s *RedisStore) Consume(ctx context.Context, value string) error {
	_, err := s.rdb.GetDel(ctx, s.prefix+value).Result()
	if errors.Is(err, redis.Nil) {
		return errs.ErrNonceInvalid
	}
	if err != nil {
		return fmt.Errorf("consume nonce: %w", err)
	}
	return nil
}
