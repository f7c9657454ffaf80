package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCOD   PaymentMethod = "COD"
	PaymentMethodVNPay PaymentMethod = "VNPAY"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPaid       OrderStatus = "PAID"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type ShippingStatus string

const (
	ShippingStatusPending   ShippingStatus = "PENDING"
	ShippingStatusPicked    ShippingStatus = "PICKED"
	ShippingStatusInTransit ShippingStatus = "IN_TRANSIT"
	ShippingStatusDelivered ShippingStatus = "DELIVERED"
	ShippingStatusReturned  ShippingStatus = "RETURNED"
	ShippingStatusCanceled  ShippingStatus = "CANCELED"
)

// AddressSnapshot is copied onto orders so later address book edits don't
// rewrite history.
type AddressSnapshot struct {
	FullName         string  `json:"full_name"`
	Phone            string  `json:"phone"`
	FormattedAddress string  `json:"formatted_address"`
	PlaceID          *string `json:"place_id,omitempty"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

type Order struct {
	ID                 string          `gorm:"primaryKey;size:36;not null" json:"id"`
	UserID             uint            `gorm:"index;not null" json:"user_id"`
	ShopID             uint            `gorm:"index;not null" json:"shop_id"`
	Code               string          `gorm:"size:32;uniqueIndex;not null" json:"code"`
	Status             OrderStatus     `gorm:"size:16;index;not null" json:"status"`
	PaymentStatus      PaymentStatus   `gorm:"size:16;not null" json:"payment_status"`
	ShippingStatus     ShippingStatus  `gorm:"size:16;not null" json:"shipping_status"`
	PaymentMethod      PaymentMethod   `gorm:"size:16;not null" json:"payment_method"`
	PaymentRef         *string         `gorm:"size:64" json:"payment_ref,omitempty"`
	PaymentSessionCode *string         `gorm:"size:32;index" json:"payment_session_code,omitempty"`
	AddressSnapshot    AddressSnapshot `gorm:"serializer:json;type:json;not null" json:"address"`
	DistanceKm         float64         `gorm:"not null;default:0" json:"distance_km"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Discount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"discount"`
	ShippingFee        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping_fee"`
	Total              decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Note               *string         `gorm:"size:255" json:"note,omitempty"`
	Items              []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID            string          `gorm:"primaryKey;size:36;not null" json:"id"`
	OrderID       string          `gorm:"size:36;index;not null" json:"order_id"`
	Position      int             `gorm:"not null;default:0" json:"-"`
	ProductID     uint            `gorm:"not null" json:"product_id"`
	VariantID     *uint           `json:"variant_id,omitempty"`
	NameSnapshot  string          `gorm:"size:220;not null" json:"name"`
	ImageSnapshot *string         `gorm:"size:500" json:"image,omitempty"`
	Price         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Quantity      int32           `gorm:"not null" json:"quantity"`
	TotalLine     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_line"`
	Value1        *string         `gorm:"size:100" json:"value1,omitempty"`
	Value2        *string         `gorm:"size:100" json:"value2,omitempty"`
	Value3        *string         `gorm:"size:100" json:"value3,omitempty"`
	Value4        *string         `gorm:"size:100" json:"value4,omitempty"`
	Value5        *string         `gorm:"size:100" json:"value5,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SetOptionValues spreads up to five option values over the value columns.
func (i *OrderItem) SetOptionValues(values []string) {
	cols := []**string{&i.Value1, &i.Value2, &i.Value3, &i.Value4, &i.Value5}
	for idx, col := range cols {
		if idx >= len(values) || values[idx] == "" {
			*col = nil
			continue
		}
		v := values[idx]
		*col = &v
	}
}

// OrderRef is what a checkout hands back per created order, and what a paid
// payment session keeps as its order list.
type OrderRef struct {
	OrderID string          `json:"order_id"`
	Code    string          `json:"code"`
	Total   decimal.Decimal `json:"total"`
}
