package handler

import (
	"bytes"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/quochiep16/mini-e/internal/dto"
	"github.com/quochiep16/mini-e/internal/middleware"
	"github.com/quochiep16/mini-e/internal/model"
	"github.com/quochiep16/mini-e/internal/service"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

func NewPaymentHandler(paymentService service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{.Title}}</title>
	<style>
		body {
			font-family: Arial, sans-serif;
			text-align: center;
			margin-top: 80px;
		}
		.code {
			font-family: monospace;
		}
	</style>
</head>
<body>
	<h2>{{.Title}}</h2>
	<p>{{.Message}}</p>
	{{if .Code}}<p>Payment <span class="code">{{.Code}}</span></p>{{end}}
	{{range .Orders}}<p>Order <span class="code">{{.Code}}</span>: {{.Total}}</p>{{end}}
	<p><a href="/">Back to the shop</a></p>
</body>
</html>
`))

type resultView struct {
	Title   string
	Message string
	Code    string
	Orders  []model.OrderRef
}

// VNPayReturn handles the buyer's browser coming back from the gateway.
// Failures are shown to the buyer rather than hidden.
func (h *PaymentHandler) VNPayReturn(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.paymentService.HandleCallback(ctx, model.CallbackChannelReturn, c.QueryParams())
	if wantsJSON(c) {
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, result)
	}

	status := http.StatusOK
	view := resultView{Code: c.QueryParam("vnp_TxnRef")}
	switch {
	case err == nil && result.Status == model.PaymentSessionPaid:
		view.Title = "Payment successful"
		view.Message = "Your orders have been placed."
		view.Orders = result.Orders
	case err == nil:
		view.Title = "Payment not completed"
		view.Message = "The payment was not completed. Nothing was charged for these items."
	case errors.Is(err, service.ErrReconciliationRequired):
		status = http.StatusConflict
		view.Title = "Payment received"
		view.Message = "We received your payment but could not create the orders. Our team will contact you."
	default:
		if he, ok := toHTTPError(err).(*echo.HTTPError); ok {
			status = he.Code
		} else {
			status = http.StatusInternalServerError
		}
		view.Title = "Payment could not be confirmed"
		view.Message = userMessage(err)
	}

	var buf bytes.Buffer
	if err := resultPage.Execute(&buf, view); err != nil {
		return err
	}
	return c.HTMLBlob(status, buf.Bytes())
}

// VNPayIPN answers the gateway's server-to-server notification. The reply is
// always 200; the outcome travels in RspCode.
func (h *PaymentHandler) VNPayIPN(c echo.Context) error {
	ctx := c.Request().Context()

	_, err := h.paymentService.HandleCallback(ctx, model.CallbackChannelIPN, c.QueryParams())
	if err != nil && !errors.Is(err, service.ErrSignatureInvalid) {
		h.logger.WarnContext(ctx, "vnpay ipn not confirmed", "tracking_code", c.QueryParam("vnp_TxnRef"), "err", err)
	}

	return c.JSON(http.StatusOK, ipnResponse(err))
}

func ipnResponse(err error) dto.IPNResponse {
	switch {
	case err == nil:
		return dto.IPNResponse{RspCode: "00", Message: "Confirm Success"}
	case errors.Is(err, service.ErrReconciliationRequired):
		// acknowledged so the gateway stops retrying; the session is flagged
		return dto.IPNResponse{RspCode: "00", Message: "Confirm Success"}
	case errors.Is(err, service.ErrSessionNotFound):
		return dto.IPNResponse{RspCode: "01", Message: "Order not found"}
	case errors.Is(err, service.ErrSessionClosed):
		return dto.IPNResponse{RspCode: "02", Message: "Order already confirmed"}
	case errors.Is(err, service.ErrAmountMismatch):
		return dto.IPNResponse{RspCode: "04", Message: "Invalid amount"}
	case errors.Is(err, service.ErrSignatureInvalid):
		return dto.IPNResponse{RspCode: "97", Message: "Invalid signature"}
	default:
		return dto.IPNResponse{RspCode: "99", Message: "Unknown error"}
	}
}

func (h *PaymentHandler) GetSession(c echo.Context) error {
	ctx := c.Request().Context()

	session, err := h.paymentService.GetSession(ctx, middleware.UserID(c), c.Param("code"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, &dto.SessionInfo{
		Code:                session.Code,
		Amount:              session.Amount,
		Currency:            session.Currency,
		Status:              session.Status,
		Orders:              session.Orders,
		NeedsReconciliation: session.NeedsReconciliation,
	})
}

func (h *PaymentHandler) CancelSession(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.paymentService.CancelSession(ctx, middleware.UserID(c), c.Param("code")); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": string(model.PaymentSessionCanceled),
	})
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func userMessage(err error) string {
	if he, ok := toHTTPError(err).(*echo.HTTPError); ok {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return "Something went wrong. Please try again later."
}
