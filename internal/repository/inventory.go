package repository

import (
	"context"

	"github.com/quochiep16/mini-e/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository reads and decrements stock. Lock* take row locks that
// last until the surrounding transaction ends; rows are locked in id order so
// two checkouts over the same products cannot deadlock each other.
type InventoryRepository interface {
	LockProducts(ctx context.Context, tx *gorm.DB, productIDs []uint) (map[uint]*model.Product, error)
	LockVariants(ctx context.Context, tx *gorm.DB, variantIDs []uint) (map[uint]*model.ProductVariant, error)
	DecrementProduct(ctx context.Context, tx *gorm.DB, productID uint, qty int32) (bool, error)
	DecrementVariant(ctx context.Context, tx *gorm.DB, variantID uint, qty int32) (bool, error)
}

type inventoryRepoImpl struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepoImpl{
		db: db,
	}
}

func (r *inventoryRepoImpl) LockProducts(ctx context.Context, tx *gorm.DB, productIDs []uint) (map[uint]*model.Product, error) {
	out := make(map[uint]*model.Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	var products []*model.Product
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", productIDs).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (r *inventoryRepoImpl) LockVariants(ctx context.Context, tx *gorm.DB, variantIDs []uint) (map[uint]*model.ProductVariant, error) {
	out := make(map[uint]*model.ProductVariant, len(variantIDs))
	if len(variantIDs) == 0 {
		return out, nil
	}

	var variants []*model.ProductVariant
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", variantIDs).
		Order("id").
		Find(&variants).Error
	if err != nil {
		return nil, err
	}

	for _, v := range variants {
		out[v.ID] = v
	}
	return out, nil
}

// DecrementProduct reports false when the product has less than qty in stock
// or is not stock-tracked; nothing is written in that case.
func (r *inventoryRepoImpl) DecrementProduct(ctx context.Context, tx *gorm.DB, productID uint, qty int32) (bool, error) {
	result := tx.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock IS NOT NULL AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *inventoryRepoImpl) DecrementVariant(ctx context.Context, tx *gorm.DB, variantID uint, qty int32) (bool, error) {
	result := tx.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("id = ? AND stock >= ?", variantID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
