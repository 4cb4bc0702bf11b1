package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingCacheRepo struct{}

func (failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection refused")
}

func TestCacheServiceDisabledAlwaysMisses(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)

	svc.Set(context.Background(), "dash:x", 1, 0)
	var out int
	assert.False(t, svc.Get(context.Background(), "dash:x", &out))
	assert.Zero(t, repo.sets)
	assert.False(t, svc.Enabled())

	var nilSvc *CacheService
	assert.False(t, nilSvc.Get(context.Background(), "dash:x", &out))
	assert.NoError(t, nilSvc.Invalidate(context.Background(), DashboardCachePattern))
}

func TestCacheServiceBackendErrorsFallThrough(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewCacheService(failingCacheRepo{}, NewMetricsService(), time.Minute, zap.New(core), true)

	loads := 0
	value, hit, err := cached(context.Background(), svc, "dash:y", func() (string, error) {
		loads++
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "fresh", value)
	assert.Equal(t, 1, loads)
	assert.Equal(t, 1, logs.FilterMessage("cache get failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("cache set failed").Len())

	assert.Error(t, svc.Invalidate(context.Background(), DashboardCachePattern))
}

func TestCachedDoesNotStoreFailures(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	_, _, err := cached(context.Background(), svc, "dash:z", func() (int, error) {
		return 0, errors.New("store down")
	})
	require.Error(t, err)
	assert.Zero(t, repo.sets)
}
