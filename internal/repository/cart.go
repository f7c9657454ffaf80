package repository

import (
	"context"
	"errors"

	"github.com/quochiep16/mini-e/internal/model"
	"gorm.io/gorm"
)

type CartRepository interface {
	GetLines(ctx context.Context, userID uint) ([]*model.CartItem, error)
	RemoveLines(ctx context.Context, tx *gorm.DB, userID uint, lineIDs []uint) (int64, error)
}

type cartRepoImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepoImpl{
		db: db,
	}
}

// GetLines returns the lines of the user's cart in insertion order. A user
// without a cart has no lines.
func (r *cartRepoImpl) GetLines(ctx context.Context, userID uint) ([]*model.CartItem, error) {
	var items []*model.CartItem
	err := r.db.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Order("cart_items.id").
		Find(&items).Error

	if err != nil {
		return nil, err
	}

	return items, nil
}

// RemoveLines deletes only lines that belong to the user's cart.
func (r *cartRepoImpl) RemoveLines(ctx context.Context, tx *gorm.DB, userID uint, lineIDs []uint) (int64, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}

	var cart model.Cart
	err := tx.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	result := tx.WithContext(ctx).
		Where("cart_id = ? AND id IN ?", cart.ID, lineIDs).
		Delete(&model.CartItem{})

	return result.RowsAffected, result.Error
}
