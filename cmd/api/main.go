package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/quochiep16/mini-e/internal/cache"
	"github.com/quochiep16/mini-e/internal/client"
	"github.com/quochiep16/mini-e/internal/config"
	"github.com/quochiep16/mini-e/internal/logging"
	"github.com/quochiep16/mini-e/internal/metrics"
	"github.com/quochiep16/mini-e/internal/repository"
	"github.com/quochiep16/mini-e/internal/server"
	"github.com/quochiep16/mini-e/internal/service"
	"github.com/quochiep16/mini-e/internal/shipping"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Log)
	fatal := func(msg string, err error) {
		logger.Error(msg, "err", err)
		os.Exit(1)
	}

	if cfg.Auth.Secret == "" {
		fatal("missing config", errors.New("JWT_SECRET is required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := client.InitDB(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		fatal("init database", err)
	}

	vnpayClient, err := client.NewVNPayClient(&cfg.VNPay)
	if err != nil {
		fatal("init vnpay client", err)
	}

	fees, err := shipping.NewFeeTable(&cfg.Shipping)
	if err != nil {
		fatal("parse shipping fee table", err)
	}

	merchantRepo := repository.NewMerchantRepository(db)
	rdb, err := client.InitRedisClient(ctx, &cfg.Redis)
	if err != nil {
		fatal("init redis", err)
	}
	if rdb != nil {
		defer rdb.Close()
		merchantRepo = repository.NewCachedMerchantRepository(merchantRepo, cache.NewRedisCache(rdb, cfg.Redis.ShopTTL), logger)
		logger.Info("shop cache enabled", "addr", cfg.Redis.Addr)
	}

	cartRepo := repository.NewCartRepository(db)
	productRepo := repository.NewProductRepository(db)
	addressRepo := repository.NewAddressRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	sessionRepo := repository.NewPaymentSessionRepository(db)
	eventRepo := repository.NewPaymentEventRepository(db)

	m := metrics.New(prometheus.DefaultRegisterer)
	materializer := service.NewOrderMaterializer(orderRepo, inventoryRepo)

	checkoutService := service.NewCheckoutService(
		db, logger, m, vnpayClient, fees, cfg.VNPay.Currency,
		cartRepo,
		productRepo,
		merchantRepo,
		addressRepo,
		sessionRepo,
		materializer,
	)
	paymentService := service.NewPaymentService(
		db, logger, m, vnpayClient,
		cfg.Payment.LockTimeout,
		cfg.Payment.SessionTTL,
		cartRepo,
		sessionRepo,
		eventRepo,
		materializer,
	)
	orderService := service.NewOrderService(db, logger, orderRepo, merchantRepo)

	if cfg.Payment.SessionTTL > 0 && cfg.Payment.SweepInterval > 0 {
		sweeper := service.NewSessionSweeper(paymentService, cfg.Payment.SweepInterval, logger)
		go sweeper.Run(ctx)
	}

	srv := server.NewServer(server.Deps{
		Logger:          logger,
		AuthSecret:      cfg.Auth.Secret,
		Metrics:         m,
		Gatherer:        prometheus.DefaultGatherer,
		CheckoutService: checkoutService,
		PaymentService:  paymentService,
		OrderService:    orderService,
	})

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	logger.Info("starting HTTP server", "addr", serverAddr, "environment", cfg.Environment.Name)
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("HTTP server error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("signal received, starting graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		fatal("HTTP server shutdown error", err)
	}
}
