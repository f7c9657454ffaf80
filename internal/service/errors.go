package service

import "errors"

var (
	ErrEmptyCart                 = errors.New("cart is empty")
	ErrLineNotFound              = errors.New("cart line not found")
	ErrNoAddressAvailable        = errors.New("no delivery address selected and no default address")
	ErrAddressMissingCoordinates = errors.New("delivery address has no coordinates")
	ErrMerchantNotConfigured     = errors.New("shop has no configured location")
	ErrProductNotFound           = errors.New("product not found")
	ErrUnsupportedPaymentMethod  = errors.New("unsupported payment method")
	ErrNoteTooLong               = errors.New("note exceeds 255 characters")

	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrCodeGenerationExhausted = errors.New("could not generate a unique order code")

	ErrSignatureInvalid       = errors.New("invalid callback signature")
	ErrAmountMismatch         = errors.New("callback amount does not match session amount")
	ErrSessionNotFound        = errors.New("payment session not found")
	ErrSessionClosed          = errors.New("payment session is closed")
	ErrSessionBusy            = errors.New("payment session is being finalized")
	ErrReconciliationRequired = errors.New("payment received but orders could not be created")

	ErrOrderNotFound     = errors.New("order not found")
	ErrShopNotFound      = errors.New("user has no shop")
	ErrInvalidTransition = errors.New("invalid status transition")
)
