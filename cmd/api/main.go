package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lamnguyen-dev/pharmapos-backend/api/routes"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/allocator"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/batches"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/ledger"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/orders"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/payments"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/products"
	"github.com/lamnguyen-dev/pharmapos-backend/internal/returns"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/db"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/gateway"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/logger"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/metrics"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/migrate"
	"github.com/lamnguyen-dev/pharmapos-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, dbClient, logg); err != nil {
		logg.Error(context.Background(), "failed to run boot migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	inventoryMetrics := metrics.NewInventoryMetrics(prometheus.DefaultRegisterer)

	gatewayClient, err := gateway.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	batchRepo := batches.NewRepository(conn)
	ledgerRepo := ledger.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	returnRepo := returns.NewRepository(conn)

	allocSvc, err := allocator.NewService(batchRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create allocator", err)
		os.Exit(1)
	}
	batchSvc, err := batches.NewService(batchRepo, productRepo, ledgerRepo, dbClient, inventoryMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create batch service", err)
		os.Exit(1)
	}
	ledgerSvc, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	productSvc, err := products.NewService(productRepo, ledgerRepo, dbClient, redisClient, cfg.Cache.ProductListTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}
	orderSvc, err := orders.NewService(
		orderRepo,
		productRepo,
		allocSvc,
		ledgerRepo,
		dbClient,
		orders.NewCodeGenerator(cfg.Orders.CodePrefix),
		cfg.Orders.AllocationRetries,
		inventoryMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}
	returnSvc, err := returns.NewService(
		returnRepo,
		orderRepo,
		batchRepo,
		productRepo,
		allocSvc,
		ledgerRepo,
		dbClient,
		cfg.Orders.AllocationRetries,
		inventoryMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create returns service", err)
		os.Exit(1)
	}
	paymentSvc, err := payments.NewService(gatewayClient, orderSvc, inventoryMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, routes.Services{
			Products: productSvc,
			Batches:  batchSvc,
			Ledger:   ledgerSvc,
			Orders:   orderSvc,
			Returns:  returnSvc,
			Payments: paymentSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
