package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/quochiep16/mini-e/internal/dto"
	"github.com/quochiep16/mini-e/internal/middleware"
	"github.com/quochiep16/mini-e/internal/service"
)

// MerchantHandler serves the shop owner's side of an order.
type MerchantHandler struct {
	orderService service.OrderService
}

func NewMerchantHandler(orderService service.OrderService) *MerchantHandler {
	return &MerchantHandler{
		orderService: orderService,
	}
}

func (h *MerchantHandler) UpdateShipping(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateShippingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.ShippingStatus == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "shipping_status is required")
	}

	order, err := h.orderService.UpdateShopShipping(ctx, middleware.UserID(c), c.Param("id"), req.ShippingStatus)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, order)
}
