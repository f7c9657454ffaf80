package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, time.Minute), mr
}

func ptr[T any](v T) *T { return &v }

func TestSetThenGet(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	shop := &model.Shop{ID: 7, OwnerUserID: 3, Name: "Hanoi Books", Lat: ptr(21.0285), Lng: ptr(105.8542)}
	require.NoError(t, c.Set(ctx, shop))
	assert.True(t, mr.Exists("shop:7"))

	got, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Hanoi Books", got.Name)
	require.True(t, got.HasCoordinates())
	assert.InDelta(t, 21.0285, *got.Lat, 1e-9)
}

func TestGet_CacheMiss(t *testing.T) {
	c, _ := setupTestRedis(t)

	got, err := c.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestGet_InvalidJSON(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("shop:1", "{not json"))

	_, err := c.Get(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestSet_AppliesTTL(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &model.Shop{ID: 2, Name: "x"}))
	assert.Equal(t, time.Minute, mr.TTL("shop:2"))

	mr.FastForward(2 * time.Minute)
	_, err := c.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &model.Shop{ID: 5, Name: "x"}))
	require.NoError(t, c.Delete(ctx, 5))
	assert.False(t, mr.Exists("shop:5"))
}

func TestGet_ServerDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Get(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
