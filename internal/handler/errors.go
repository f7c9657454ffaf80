package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/quochiep16/mini-e/internal/service"
)

var statusByError = []struct {
	err    error
	status int
}{
	{service.ErrEmptyCart, http.StatusBadRequest},
	{service.ErrLineNotFound, http.StatusBadRequest},
	{service.ErrNoAddressAvailable, http.StatusBadRequest},
	{service.ErrAddressMissingCoordinates, http.StatusBadRequest},
	{service.ErrMerchantNotConfigured, http.StatusBadRequest},
	{service.ErrProductNotFound, http.StatusBadRequest},
	{service.ErrUnsupportedPaymentMethod, http.StatusBadRequest},
	{service.ErrNoteTooLong, http.StatusBadRequest},
	{service.ErrSignatureInvalid, http.StatusBadRequest},
	{service.ErrAmountMismatch, http.StatusBadRequest},

	{service.ErrSessionNotFound, http.StatusNotFound},
	{service.ErrOrderNotFound, http.StatusNotFound},
	{service.ErrShopNotFound, http.StatusForbidden},

	{service.ErrInsufficientStock, http.StatusConflict},
	{service.ErrCodeGenerationExhausted, http.StatusConflict},
	{service.ErrSessionClosed, http.StatusConflict},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrReconciliationRequired, http.StatusConflict},

	{service.ErrSessionBusy, http.StatusServiceUnavailable},
}

// toHTTPError maps service sentinels to HTTP statuses. Anything unmapped is
// returned as is and ends up a 500.
func toHTTPError(err error) error {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return echo.NewHTTPError(m.status, m.err.Error()).SetInternal(err)
		}
	}
	return err
}
