package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentSessionStatus string

const (
	PaymentSessionPending  PaymentSessionStatus = "PENDING"
	PaymentSessionPaid     PaymentSessionStatus = "PAID"
	PaymentSessionFailed   PaymentSessionStatus = "FAILED"
	PaymentSessionCanceled PaymentSessionStatus = "CANCELED"
)

func (s PaymentSessionStatus) IsTerminal() bool {
	return s != PaymentSessionPending
}

type CallbackChannel string

const (
	CallbackChannelReturn CallbackChannel = "RETURN"
	CallbackChannelIPN    CallbackChannel = "IPN"
)

const CheckoutSnapshotVersion = 1

// CheckoutSnapshot captures everything needed to create orders once a deferred
// payment succeeds, without reading the cart again.
type CheckoutSnapshot struct {
	Version     int             `json:"version"`
	Address     AddressSnapshot `json:"address"`
	CartLineIDs []uint          `json:"cart_line_ids"`
	Lines       []SnapshotLine  `json:"lines"`
	Shipping    []ShippingQuote `json:"shipping"`
	Note        *string         `json:"note,omitempty"`
}

type SnapshotLine struct {
	CartLineID uint            `json:"cart_line_id"`
	ProductID  uint            `json:"product_id"`
	VariantID  *uint           `json:"variant_id"`
	ShopID     uint            `json:"shop_id"`
	Name       string          `json:"name"`
	ImageURL   *string         `json:"image_url"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int32           `json:"quantity"`
	Values     []string        `json:"values,omitempty"`
}

// ShippingQuote pins the fee charged for one shop group at checkout time.
type ShippingQuote struct {
	ShopID     uint            `json:"shop_id"`
	DistanceKm float64         `json:"distance_km"`
	Fee        decimal.Decimal `json:"fee"`
}

const GatewayPayloadVersion = 1

// GatewayPayload is the verified callback as received from VNPay.
type GatewayPayload struct {
	Version           int             `json:"version"`
	Channel           CallbackChannel `json:"channel"`
	Amount            string          `json:"vnp_Amount"`
	BankCode          string          `json:"vnp_BankCode,omitempty"`
	BankTranNo        string          `json:"vnp_BankTranNo,omitempty"`
	CardType          string          `json:"vnp_CardType,omitempty"`
	OrderInfo         string          `json:"vnp_OrderInfo,omitempty"`
	PayDate           string          `json:"vnp_PayDate,omitempty"`
	ResponseCode      string          `json:"vnp_ResponseCode"`
	TmnCode           string          `json:"vnp_TmnCode"`
	TransactionNo     string          `json:"vnp_TransactionNo,omitempty"`
	TransactionStatus string          `json:"vnp_TransactionStatus,omitempty"`
	TxnRef            string          `json:"vnp_TxnRef"`
}

type PaymentSession struct {
	ID                  string               `gorm:"primaryKey;size:36;not null" json:"id"`
	UserID              uint                 `gorm:"index;not null" json:"user_id"`
	Code                string               `gorm:"size:32;uniqueIndex;not null" json:"code"` // vnp_TxnRef
	Amount              decimal.Decimal      `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency            string               `gorm:"size:6;not null" json:"currency"`
	Status              PaymentSessionStatus `gorm:"size:16;index;not null" json:"status"`
	Snapshot            CheckoutSnapshot     `gorm:"serializer:json;type:json;not null" json:"-"`
	Orders              []OrderRef           `gorm:"serializer:json;type:json" json:"orders"`
	PaymentRef          *string              `gorm:"size:64" json:"payment_ref,omitempty"`
	Payload             *GatewayPayload      `gorm:"serializer:json;type:json" json:"-"`
	NeedsReconciliation bool                 `gorm:"index;not null;default:false" json:"needs_reconciliation"`
	LastError           *string              `gorm:"size:255" json:"-"`
	SettledAt           *time.Time           `json:"settled_at,omitempty"`
	CreatedAt           time.Time            `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// PaymentEvent records each verified gateway callback.
type PaymentEvent struct {
	ID            string          `gorm:"primaryKey;size:36;not null"`
	Channel       CallbackChannel `gorm:"size:16;not null"`
	TrackingCode  string          `gorm:"size:32;index;not null"`
	ResponseCode  string          `gorm:"size:8"`
	TransactionNo string          `gorm:"size:64"`
	Outcome       string          `gorm:"size:32;not null"`
	CreatedAt     time.Time
}
