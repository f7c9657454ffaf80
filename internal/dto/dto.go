package dto

import (
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/shopspring/decimal"
)

type PreviewRequest struct {
	AddressID *uint  `json:"address_id"`
	ItemIDs   []uint `json:"item_ids"`
}

type CheckoutRequest struct {
	AddressID     *uint               `json:"address_id"`
	ItemIDs       []uint              `json:"item_ids"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	Note          *string             `json:"note"`
	BankCode      string              `json:"bank_code"`
}

type QuoteAddress struct {
	ID               uint   `json:"id"`
	FullName         string `json:"full_name"`
	Phone            string `json:"phone"`
	FormattedAddress string `json:"formatted_address"`
}

type QuoteShop struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type QuoteLine struct {
	CartLineID uint            `json:"cart_line_id"`
	ProductID  uint            `json:"product_id"`
	VariantID  *uint           `json:"variant_id,omitempty"`
	Name       string          `json:"name"`
	ImageURL   *string         `json:"image_url,omitempty"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int32           `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type QuoteGroup struct {
	Shop        QuoteShop       `json:"shop"`
	Items       []QuoteLine     `json:"items"`
	DistanceKm  float64         `json:"distance_km"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
}

type QuoteSummary struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
}

type Quote struct {
	Address QuoteAddress `json:"address"`
	Groups  []QuoteGroup `json:"groups"`
	Summary QuoteSummary `json:"summary"`
}

type SessionInfo struct {
	Code                string                     `json:"code"`
	Amount              decimal.Decimal            `json:"amount"`
	Currency            string                     `json:"currency"`
	Status              model.PaymentSessionStatus `json:"status"`
	Orders              []model.OrderRef           `json:"orders,omitempty"`
	NeedsReconciliation bool                       `json:"needs_reconciliation,omitempty"`
}

// CheckoutResponse carries Orders for COD and Session plus PaymentURL for
// VNPAY.
type CheckoutResponse struct {
	Orders     []model.OrderRef `json:"orders,omitempty"`
	Session    *SessionInfo     `json:"session,omitempty"`
	PaymentURL string           `json:"payment_url,omitempty"`
}

type OrderPage struct {
	Items []*model.Order `json:"items"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
	Total int64          `json:"total"`
}

type UpdateShippingRequest struct {
	ShippingStatus model.ShippingStatus `json:"shipping_status"`
}

// IPNResponse is the body VNPay expects back from the IPN endpoint.
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}
