package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/innkeeplabs/innkeep-backend/api/routes"
	"github.com/innkeeplabs/innkeep-backend/internal/availability"
	"github.com/innkeeplabs/innkeep-backend/internal/catalog"
	"github.com/innkeeplabs/innkeep-backend/internal/inventory"
	"github.com/innkeeplabs/innkeep-backend/internal/reservation"
	"github.com/innkeeplabs/innkeep-backend/pkg/config"
	"github.com/innkeeplabs/innkeep-backend/pkg/db"
	"github.com/innkeeplabs/innkeep-backend/pkg/keylock"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
	"github.com/innkeeplabs/innkeep-backend/pkg/migrate"
	"github.com/innkeeplabs/innkeep-backend/pkg/outbox"
	"github.com/innkeeplabs/innkeep-backend/pkg/redis"
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	locks := keylock.NewRegistry(
		keylock.WithWait(cfg.Reservations.LockWait),
		keylock.WithRetries(cfg.Reservations.LockRetries),
	)

	availabilityService, err := availability.NewService(
		availability.NewRepository(dbClient.DB()),
		redisClient,
		logg,
		cfg.Reservations.CacheTTL,
		cfg.Reservations.MaxStayNights,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create availability service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), dbClient, locks, outboxService, availabilityService)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.NewRepository(dbClient.DB()), dbClient, locks, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	reservationService, err := reservation.NewService(
		reservation.NewRepository(dbClient.DB()),
		dbClient,
		catalog.NewRepository(dbClient.DB()),
		inventoryService,
		locks,
		outboxService,
		availabilityService,
		logg,
		cfg.Reservations,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			catalogService,
			reservationService,
			inventoryService,
			availabilityService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
