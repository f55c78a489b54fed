package cache

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/glimpsegive/glimpse-ledger/internal/errs"
)

type countingNeeds struct {
	ids   map[string]uuid.UUID
	calls int
}

func (c *countingNeeds) IDBySlug(_ context.Context, slug string) (uuid.UUID, error) {
	c.calls++
	id, ok := c.ids[slug]
	if !ok {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

func (c *countingNeeds) Slugs(context.Context) ([]string, error) {
	return []string{"groceries"}, nil
}

func TestNeeds_CachesHits(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	next := &countingNeeds{ids: map[string]uuid.UUID{"groceries": id}}
	n, err := NewNeeds(context.Background(), next, time.Hour, 1)
	require.NoError(t, err)
	defer n.Close()

	for i := 0; i < 3; i++ {
		got, err := n.IDBySlug(context.Background(), "groceries")
		require.NoError(t, err)
		require.Equal(t, id, got)
	}
	require.Equal(t, 1, next.calls)
}

func TestNeeds_MissesAreNotCached(t *testing.T) {
	next := &countingNeeds{ids: map[string]uuid.UUID{}}
	n, err := NewNeeds(context.Background(), next, time.Hour, 1)
	require.NoError(t, err)
	defer n.Close()

	for i := 0; i < 2; i++ {
		_, err := n.IDBySlug(context.Background(), "yacht")
		require.ErrorIs(t, err, errs.ErrNotFound)
	}
	require.Equal(t, 2, next.calls)

	slugs, err := n.Slugs(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"groceries"}, slugs)
}
