package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/quochiep16/mini-e/internal/cache"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/quochiep16/mini-e/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingMerchantRepo struct {
	MerchantRepository
	gets int
}

func (r *countingMerchantRepo) Get(ctx context.Context, shopID uint) (*model.Shop, error) {
	r.gets++
	return r.MerchantRepository.Get(ctx, shopID)
}

func TestCachedMerchantRepository_ReadThrough(t *testing.T) {
	db := testutil.OpenDB(t)
	seed := testutil.NewSeeder(t, db)
	ctx := context.Background()
	shop := seed.Shop(9, "Saigon Tea", &hanoi.lat, &hanoi.lng)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	inner := &countingMerchantRepo{MerchantRepository: NewMerchantRepository(db)}
	repo := NewCachedMerchantRepository(inner, cache.NewRedisCache(rdb, time.Minute), slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 3; i++ {
		got, err := repo.Get(ctx, shop.ID)
		require.NoError(t, err)
		assert.Equal(t, "Saigon Tea", got.Name)
	}
	assert.Equal(t, 1, inner.gets)

	// a broken cache degrades to the database
	mr.Close()
	got, err := repo.Get(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, got.ID)
	assert.Equal(t, 2, inner.gets)

	_, err = repo.Get(ctx, 404)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	owned, err := repo.FindByOwner(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, owned.ID)
}
