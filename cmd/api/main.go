package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/amosgichamba/teabroker-backend/api/routes"
	"github.com/amosgichamba/teabroker-backend/internal/assignments"
	"github.com/amosgichamba/teabroker-backend/internal/contacts"
	"github.com/amosgichamba/teabroker-backend/internal/history"
	"github.com/amosgichamba/teabroker-backend/internal/shipments"
	"github.com/amosgichamba/teabroker-backend/internal/stocks"
	"github.com/amosgichamba/teabroker-backend/internal/users"
	"github.com/amosgichamba/teabroker-backend/pkg/config"
	"github.com/amosgichamba/teabroker-backend/pkg/db"
	"github.com/amosgichamba/teabroker-backend/pkg/logger"
	"github.com/amosgichamba/teabroker-backend/pkg/metrics"
	"github.com/amosgichamba/teabroker-backend/pkg/migrate"
	"github.com/amosgichamba/teabroker-backend/pkg/redis"
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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
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

	gormDB := dbClient.DB()
	maxAttempts := cfg.DB.TxMaxAttempts

	stockRepo := stocks.NewRepository(gormDB)
	stockService, err := stocks.NewService(dbClient, stockRepo, maxAttempts)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}
	stockImporter, err := stocks.NewImporter(dbClient, stockRepo, cfg.Import, maxAttempts)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock importer", err)
		os.Exit(1)
	}
	stockExporter, err := stocks.NewExporter(stockRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock exporter", err)
		os.Exit(1)
	}
	assignmentService, err := assignments.NewService(dbClient, assignments.NewRepository(gormDB), maxAttempts)
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment service", err)
		os.Exit(1)
	}
	shipmentService, err := shipments.NewService(dbClient, shipments.NewRepository(gormDB), maxAttempts)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipment service", err)
		os.Exit(1)
	}
	userService, err := users.NewService(users.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}
	contactService, err := contacts.NewService(contacts.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create contact service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Idempotency:   redisClient,
			Registry:      registry,
			HTTPMetrics:   httpMetrics,
			StockService:  stockService,
			StockImporter: stockImporter,
			StockExporter: stockExporter,
			Assignments:   assignmentService,
			Shipments:     shipmentService,
			History:       history.NewRepository(gormDB),
			Users:         userService,
			Contacts:      contactService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
