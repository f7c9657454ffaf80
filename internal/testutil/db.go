// Package testutil opens throwaway databases and seeds the catalog, cart and
// address rows that checkout reads.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/quochiep16/mini-e/internal/client"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// OpenDB returns a migrated sqlite database in the test's temp dir. The pool
// has a single connection, so code under test must not use the root handle
// while it holds a transaction.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := client.InitSqliteClient(filepath.Join(t.TempDir(), "mini-e.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func Ptr[T any](v T) *T { return &v }

type Seeder struct {
	t  *testing.T
	db *gorm.DB
}

func NewSeeder(t *testing.T, db *gorm.DB) *Seeder {
	return &Seeder{t: t, db: db}
}

func (s *Seeder) create(v interface{}) {
	s.t.Helper()
	require.NoError(s.t, s.db.Create(v).Error)
}

// Shop creates a shop owned by ownerID. Pass nil coordinates for a shop that
// has not configured its location.
func (s *Seeder) Shop(ownerID uint, name string, lat, lng *float64) *model.Shop {
	shop := &model.Shop{OwnerUserID: ownerID, Name: name, Lat: lat, Lng: lng}
	s.create(shop)
	return shop
}

// Product creates a product; nil stock means untracked.
func (s *Seeder) Product(shopID uint, title string, stock *int32) *model.Product {
	p := &model.Product{ShopID: shopID, Title: title, Stock: stock}
	s.create(p)
	return p
}

func (s *Seeder) Variant(productID uint, name, sku string, stock int32) *model.ProductVariant {
	v := &model.ProductVariant{ProductID: productID, Name: name, SKU: sku, Stock: stock}
	s.create(v)
	return v
}

func (s *Seeder) Address(userID uint, isDefault bool, lat, lng *float64) *model.Address {
	a := &model.Address{
		UserID:           userID,
		FullName:         "Nguyen Van A",
		Phone:            "0900000000",
		FormattedAddress: "1 Trang Tien, Hoan Kiem, Ha Noi",
		Lat:              lat,
		Lng:              lng,
		IsDefault:        isDefault,
	}
	s.create(a)
	return a
}

func (s *Seeder) Cart(userID uint) *model.Cart {
	s.t.Helper()
	var cart model.Cart
	require.NoError(s.t, s.db.Where(model.Cart{UserID: userID}).FirstOrCreate(&cart).Error)
	return &cart
}

// Line adds a cart line for the product at the given unit price.
func (s *Seeder) Line(userID uint, p *model.Product, v *model.ProductVariant, price string, qty int32) *model.CartItem {
	cart := s.Cart(userID)
	item := &model.CartItem{
		CartID:    cart.ID,
		ProductID: p.ID,
		Title:     p.Title,
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
	}
	if v != nil {
		item.VariantID = &v.ID
		item.VariantName = &v.Name
		item.Value1 = &v.Name
	}
	s.create(item)
	return item
}

func (s *Seeder) ProductStock(productID uint) *int32 {
	s.t.Helper()
	var p model.Product
	require.NoError(s.t, s.db.First(&p, productID).Error)
	return p.Stock
}

func (s *Seeder) VariantStock(variantID uint) int32 {
	s.t.Helper()
	var v model.ProductVariant
	require.NoError(s.t, s.db.First(&v, variantID).Error)
	return v.Stock
}

func (s *Seeder) CountRows(v interface{}) int64 {
	s.t.Helper()
	var n int64
	require.NoError(s.t, s.db.Model(v).Count(&n).Error)
	return n
}
