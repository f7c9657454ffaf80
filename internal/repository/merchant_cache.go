package repository

import (
	"context"
	"errors"
	"log/slog"

	"github.com/quochiep16/mini-e/internal/cache"
	"github.com/quochiep16/mini-e/internal/model"
)

type cachedMerchantRepo struct {
	next   MerchantRepository
	cache  cache.ShopCache
	logger *slog.Logger
}

// NewCachedMerchantRepository reads shops through the cache. Cache failures
// are logged and fall back to the wrapped repository.
func NewCachedMerchantRepository(next MerchantRepository, c cache.ShopCache, logger *slog.Logger) MerchantRepository {
	return &cachedMerchantRepo{
		next:   next,
		cache:  c,
		logger: logger,
	}
}

func (r *cachedMerchantRepo) Get(ctx context.Context, shopID uint) (*model.Shop, error) {
	shop, err := r.cache.Get(ctx, shopID)
	if err == nil {
		return shop, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.WarnContext(ctx, "shop cache read failed", "shop_id", shopID, "err", err)
	}

	shop, err = r.next.Get(ctx, shopID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, shop); err != nil {
		r.logger.WarnContext(ctx, "shop cache write failed", "shop_id", shopID, "err", err)
	}
	return shop, nil
}

func (r *cachedMerchantRepo) FindByOwner(ctx context.Context, ownerUserID uint) (*model.Shop, error) {
	return r.next.FindByOwner(ctx, ownerUserID)
}
