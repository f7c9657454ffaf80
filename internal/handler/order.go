package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/quochiep16/mini-e/internal/middleware"
	"github.com/quochiep16/mini-e/internal/service"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func (h *OrderHandler) ListMine(c echo.Context) error {
	ctx := c.Request().Context()

	var page, limit int
	err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "page and limit must be integers")
	}

	result, err := h.orderService.ListMine(ctx, middleware.UserID(c), page, limit)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *OrderHandler) GetMine(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.orderService.GetMine(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ConfirmReceived(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.orderService.ConfirmReceived(ctx, middleware.UserID(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, order)
}
