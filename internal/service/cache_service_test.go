package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-docs-api/internal/dto"
)

func TestCacheServiceReadThrough(t *testing.T) {
	repo := &mockCacheRepo{}
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var out dto.DashboardResponse
	hit, err := cache.Get(ctx, "dashboard:u1", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(ctx, "dashboard:u1", &dto.DashboardResponse{Totals: dto.StatusCounts{Total: 4}}, 0))
	hit, err = cache.Get(ctx, "dashboard:u1", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 4, out.Totals.Total)

	cache.InvalidateDashboards(ctx)
	assert.Equal(t, []string{"dashboard:*"}, repo.deleted)
	assert.Empty(t, repo.store)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.CacheMisses)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &mockCacheRepo{}
	cache := NewCacheService(repo, nil, 0, nil, false)
	require.NoError(t, cache.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.store)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	hit, err := nilCache.Get(context.Background(), "k", nil)
	assert.NoError(t, err)
	assert.False(t, hit)
	nilCache.InvalidateDashboards(context.Background())
}

func TestCacheServiceRememberLoadsOnce(t *testing.T) {
	repo := &mockCacheRepo{}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	loads := 0
	load := func(context.Context) (interface{}, error) {
		loads++
		return &dto.DashboardResponse{Totals: dto.StatusCounts{Total: 2}}, nil
	}

	var out dto.DashboardResponse
	value, hit, err := cache.Remember(context.Background(), DashboardKey("u1"), &out, 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, value.(*dto.DashboardResponse).Totals.Total)
	assert.Contains(t, repo.store, "dashboard:u1")

	_, hit, err = cache.Remember(context.Background(), DashboardKey("u1"), &out, 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, out.Totals.Total)
	assert.Equal(t, 1, loads)
}

func TestCacheServiceRememberWithoutCache(t *testing.T) {
	var cache *CacheService
	boom := errors.New("db down")
	_, hit, err := cache.Remember(context.Background(), "k", nil, 0, func(context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.False(t, hit)
	assert.ErrorIs(t, err, boom)
}
