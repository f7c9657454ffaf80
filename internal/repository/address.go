package repository

import (
	"context"

	"github.com/quochiep16/mini-e/internal/model"
	"gorm.io/gorm"
)

type AddressRepository interface {
	Get(ctx context.Context, userID, addressID uint) (*model.Address, error)
	GetDefault(ctx context.Context, userID uint) (*model.Address, error)
}

type addressRepoImpl struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepoImpl{
		db: db,
	}
}

func (r *addressRepoImpl) Get(ctx context.Context, userID, addressID uint) (*model.Address, error) {
	var addr model.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", addressID, userID).
		First(&addr).Error
	if err != nil {
		return nil, err
	}

	return &addr, nil
}

func (r *addressRepoImpl) GetDefault(ctx context.Context, userID uint) (*model.Address, error) {
	var addr model.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_default = ?", userID, true).
		Order("id DESC").
		First(&addr).Error
	if err != nil {
		return nil, err
	}

	return &addr, nil
}
