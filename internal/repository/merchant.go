package repository

import (
	"context"

	"github.com/quochiep16/mini-e/internal/model"
	"gorm.io/gorm"
)

// MerchantRepository reads shops, the merchants orders are grouped by.
type MerchantRepository interface {
	Get(ctx context.Context, shopID uint) (*model.Shop, error)
	FindByOwner(ctx context.Context, ownerUserID uint) (*model.Shop, error)
}

type merchantRepoImpl struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) MerchantRepository {
	return &merchantRepoImpl{
		db: db,
	}
}

func (r *merchantRepoImpl) Get(ctx context.Context, shopID uint) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).
		Where("id = ?", shopID).
		First(&shop).Error
	if err != nil {
		return nil, err
	}

	return &shop, nil
}

func (r *merchantRepoImpl) FindByOwner(ctx context.Context, ownerUserID uint) (*model.Shop, error) {
	var shop model.Shop
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		First(&shop).Error
	if err != nil {
		return nil, err
	}

	return &shop, nil
}
