package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/innkeeplabs/innkeep-backend/internal/availability"
	"github.com/innkeeplabs/innkeep-backend/internal/catalog"
	"github.com/innkeeplabs/innkeep-backend/internal/cron"
	"github.com/innkeeplabs/innkeep-backend/internal/inventory"
	"github.com/innkeeplabs/innkeep-backend/internal/reservation"
	"github.com/innkeeplabs/innkeep-backend/pkg/config"
	"github.com/innkeeplabs/innkeep-backend/pkg/db"
	"github.com/innkeeplabs/innkeep-backend/pkg/keylock"
	"github.com/innkeeplabs/innkeep-backend/pkg/logger"
	"github.com/innkeeplabs/innkeep-backend/pkg/metrics"
	"github.com/innkeeplabs/innkeep-backend/pkg/migrate"
	"github.com/innkeeplabs/innkeep-backend/pkg/outbox"
	"github.com/innkeeplabs/innkeep-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)
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

	inventoryService, err := inventory.NewService(inventory.NewRepository(dbClient.DB()), dbClient, locks, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	reservationRepo := reservation.NewRepository(dbClient.DB())
	reservationService, err := reservation.NewService(
		reservationRepo,
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

	holdExpiry, err := cron.NewHoldExpiryJob(cron.HoldExpiryJobParams{
		Logger:  logg,
		Sweeper: reservationService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create hold expiry job", err)
		os.Exit(1)
	}

	slotReconcile, err := cron.NewSlotReconcileJob(cron.SlotReconcileJobParams{
		Logger:      logg,
		Slots:       reservationRepo,
		Coordinator: reservationService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create slot reconcile job", err)
		os.Exit(1)
	}

	stockCompaction, err := cron.NewStockCompactionJob(cron.StockCompactionJobParams{
		Logger:    logg,
		Resources: inventory.NewRepository(dbClient.DB()),
		Compactor: inventoryService,
		Keep:      cfg.Reservations.CompactionKeep,
		Batch:     cfg.Reservations.CompactionBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stock compaction job", err)
		os.Exit(1)
	}

	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(holdExpiry, slotReconcile, stockCompaction, outboxRetention)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
