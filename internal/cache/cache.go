package cache

import (
	"context"
	"errors"

	"github.com/quochiep16/mini-e/internal/model"
)

var ErrCacheMiss = errors.New("cache miss")

// ShopCache holds shop rows read by checkout grouping. Shops change rarely and
// are looked up once per cart group on every preview.
type ShopCache interface {
	Get(ctx context.Context, shopID uint) (*model.Shop, error)
	Set(ctx context.Context, shop *model.Shop) error
	Delete(ctx context.Context, shopID uint) error
}
