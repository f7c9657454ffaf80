package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tables below are owned by the catalog, shop, address and cart collaborators.
// Checkout only reads them, except for stock which it decrements.

type Shop struct {
	ID          uint     `gorm:"primaryKey"`
	OwnerUserID uint     `gorm:"uniqueIndex;not null"`
	Name        string   `gorm:"size:150;not null"`
	Lat         *float64 `gorm:"type:decimal(10,7)"`
	Lng         *float64 `gorm:"type:decimal(10,7)"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (s *Shop) HasCoordinates() bool {
	return s.Lat != nil && s.Lng != nil
}

type Product struct {
	ID     uint   `gorm:"primaryKey"`
	ShopID uint   `gorm:"index;not null"`
	Title  string `gorm:"size:255;not null"`
	// nil stock means the product is not stock-tracked
	Stock     *int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProductVariant struct {
	ID        uint   `gorm:"primaryKey"`
	ProductID uint   `gorm:"index;not null"`
	Name      string `gorm:"size:120;not null"`
	SKU       string `gorm:"size:60;uniqueIndex;not null"`
	Stock     int32  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Address struct {
	ID               uint     `gorm:"primaryKey"`
	UserID           uint     `gorm:"index;not null"`
	FullName         string   `gorm:"size:120;not null"`
	Phone            string   `gorm:"size:20;not null"`
	FormattedAddress string   `gorm:"size:300;not null"`
	PlaceID          *string  `gorm:"size:128"`
	Lat              *float64 `gorm:"type:decimal(10,7)"`
	Lng              *float64 `gorm:"type:decimal(10,7)"`
	IsDefault        bool     `gorm:"not null;default:false"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Cart struct {
	ID        uint       `gorm:"primaryKey"`
	UserID    uint       `gorm:"uniqueIndex;not null"`
	Items     []CartItem `gorm:"foreignKey:CartID"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartItem struct {
	ID          uint            `gorm:"primaryKey"`
	CartID      uint            `gorm:"index;not null"`
	ProductID   uint            `gorm:"not null"`
	VariantID   *uint           `gorm:"index"`
	Title       string          `gorm:"size:255;not null"`
	VariantName *string         `gorm:"size:255"`
	ImageURL    *string         `gorm:"size:500"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"` // unit price at add time
	Quantity    int32           `gorm:"not null;default:1"`
	Value1      *string         `gorm:"size:100"`
	Value2      *string         `gorm:"size:100"`
	Value3      *string         `gorm:"size:100"`
	Value4      *string         `gorm:"size:100"`
	Value5      *string         `gorm:"size:100"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DisplayName is the title, suffixed with the variant name when there is one.
func (i *CartItem) DisplayName() string {
	if i.VariantName != nil && *i.VariantName != "" {
		return i.Title + " - " + *i.VariantName
	}
	return i.Title
}

func (i *CartItem) OptionValues() []string {
	var values []string
	for _, v := range []*string{i.Value1, i.Value2, i.Value3, i.Value4, i.Value5} {
		if v == nil {
			values = append(values, "")
			continue
		}
		values = append(values, *v)
	}
	// trim trailing empties so snapshots stay compact
	for len(values) > 0 && values[len(values)-1] == "" {
		values = values[:len(values)-1]
	}
	return values
}
