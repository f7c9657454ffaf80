package server

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/quochiep16/mini-e/internal/handler"
	"github.com/quochiep16/mini-e/internal/metrics"
	authmw "github.com/quochiep16/mini-e/internal/middleware"
	"github.com/quochiep16/mini-e/internal/service"
)

type Server struct {
	echo            *echo.Echo
	auth            echo.MiddlewareFunc
	gatherer        prometheus.Gatherer
	checkoutHandler *handler.CheckoutHandler
	paymentHandler  *handler.PaymentHandler
	orderHandler    *handler.OrderHandler
	merchantHandler *handler.MerchantHandler
}

type Deps struct {
	Logger          *slog.Logger
	AuthSecret      string
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	CheckoutService service.CheckoutService
	PaymentService  service.PaymentService
	OrderService    service.OrderService
}

func NewServer(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(deps.Metrics.Middleware())

	s := &Server{
		echo:            e,
		auth:            authmw.AuthMiddleware([]byte(deps.AuthSecret)),
		gatherer:        deps.Gatherer,
		checkoutHandler: handler.NewCheckoutHandler(deps.CheckoutService),
		paymentHandler:  handler.NewPaymentHandler(deps.PaymentService, deps.Logger),
		orderHandler:    handler.NewOrderHandler(deps.OrderService),
		merchantHandler: handler.NewMerchantHandler(deps.OrderService),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler(s.gatherer)))

	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- vnpay callbacks (signed, no user auth) --------
	vnpay := api.Group("/payments/vnpay")
	vnpay.GET("/return", s.paymentHandler.VNPayReturn)
	vnpay.GET("/ipn", s.paymentHandler.VNPayIPN)

	// -------- buyer --------
	checkout := api.Group("/checkout", s.auth)
	checkout.POST("/preview", s.checkoutHandler.Preview)
	checkout.POST("", s.checkoutHandler.Checkout)

	sessions := api.Group("/payments/sessions", s.auth)
	sessions.GET("/:code", s.paymentHandler.GetSession)
	sessions.POST("/:code/cancel", s.paymentHandler.CancelSession)

	orders := api.Group("/orders", s.auth)
	orders.GET("", s.orderHandler.ListMine)
	orders.GET("/:id", s.orderHandler.GetMine)
	orders.POST("/:id/confirm-received", s.orderHandler.ConfirmReceived)

	// -------- shop owner --------
	shop := api.Group("/shop", s.auth)
	shop.PATCH("/orders/:id/shipping", s.merchantHandler.UpdateShipping)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
