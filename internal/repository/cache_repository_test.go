package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

func newCache(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	repo := NewCacheRepository(client, nil)
	t.Cleanup(func() { repo.Close() })
	return repo, srv
}

func TestCacheRepositorySetGet(t *testing.T) {
	repo, srv := newCache(t)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "dash:teacher", map[string]int{"students": 12}, time.Minute))

	var got map[string]int
	require.NoError(t, repo.Get(ctx, "dash:teacher", &got))
	assert.Equal(t, 12, got["students"])

	srv.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "dash:teacher", &got), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDeleteByPattern(t *testing.T) {
	repo, srv := newCache(t)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "dash:teacher", 1, 0))
	require.NoError(t, repo.Set(ctx, "dash:leaderboard:groups", 2, 0))
	require.NoError(t, repo.Set(ctx, "other", 3, 0))

	require.NoError(t, repo.DeleteByPattern(ctx, "dash:*"))

	assert.False(t, srv.Exists("dash:teacher"))
	assert.False(t, srv.Exists("dash:leaderboard:groups"))
	assert.True(t, srv.Exists("other"))
	assert.NoError(t, repo.Ping(ctx))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest int
	assert.ErrorIs(t, repo.Get(ctx, "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "*"))
	assert.NoError(t, repo.Close())
}
