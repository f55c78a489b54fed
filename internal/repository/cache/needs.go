// Package cache holds in-memory decorators for repositories whose rows are
// effectively immutable.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/gofrs/uuid/v5"

	"github.com/glimpsegive/glimpse-ledger/internal/repository"
)

// Needs caches slug to id resolution. A slug never changes its id once a
// vault has been derived from it, so entries only expire to bound memory.
type Needs struct {
	next repository.NeedRepository
	mem  *bigcache.BigCache
}

var _ repository.NeedRepository = (*Needs)(nil)

// NewNeeds wraps next with a bigcache of at most maxMB megabytes.
func NewNeeds(ctx context.Context, next repository.NeedRepository, ttl time.Duration, maxMB int) (*Needs, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 16
	cfg.MaxEntriesInWindow = 1024
	cfg.MaxEntrySize = 64
	cfg.HardMaxCacheSize = maxMB
	cfg.Verbose = false
	mem, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("need cache: %w", err)
	}
	return &Needs{next: next, mem: mem}, nil
}

// IDBySlug serves hits from memory and fills the cache on a miss.
// Lookup failures are not cached.
func (n *Needs) IDBySlug(ctx context.Context, slug string) (uuid.UUID, error) {
	b, err := n.mem.Get(slug)
	if err == nil {
		if id, perr := uuid.FromBytes(b); perr == nil {
			return id, nil
		}
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		return uuid.Nil, err
	}

	id, err := n.next.IDBySlug(ctx, slug)
	if err != nil {
		return uuid.Nil, err
	}
	_ = n.mem.Set(slug, id.Bytes())
	return id, nil
}

// Slugs is not cached.
func (n *Needs) Slugs(ctx context.Context) ([]string, error) { return n.next.Slugs(ctx) }

// Close releases the cache.
func (n *Needs) Close() error { return n.mem.Close() }
