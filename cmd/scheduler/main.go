/**
 * @description
 * This is the entry point for the accrual scheduler, a non-HTTP, long-running
 * process that applies interest to savings accounts on a cron schedule. The
 * accrual operation itself is not idempotent, so exactly one scheduler
 * instance should run against a given database.
 */
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"

	"github.com/oakline/ledger-service/internal/app"
	"github.com/oakline/ledger-service/internal/config"
	"github.com/oakline/ledger-service/internal/store"
	ledgerrabbit "github.com/oakline/ledger-service/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	if err := store.EnsureSchema(ctx, dbpool); err != nil {
		logger.Error("schema bootstrap failed", "error", err)
		os.Exit(1)
	}

	repository := store.NewPostgresRepository(dbpool)

	var producer ledgerrabbit.Publisher = &ledgerrabbit.EventProducerFallback{}
	if cfg.RabbitMQURL != "" {
		if eventProducer, err := ledgerrabbit.NewEventProducer(cfg.RabbitMQURL); err != nil {
			logger.Warn("rabbitmq producer unavailable; using fallback", "error", err)
		} else {
			defer eventProducer.Close()
			producer = eventProducer
		}
	}

	fraudScreen := app.NewFraudScreen(repository, producer, cfg.FraudLargeAmountThreshold)
	ledgerService := app.NewService(repository, fraudScreen, producer)

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	if _, err := c.AddFunc(cfg.InterestAccrualSchedule, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		count, err := ledgerService.AccrueInterest(jobCtx)
		if err != nil {
			logger.Error("interest accrual failed", "error", err, "accounts_credited", count)
			return
		}
		logger.Info("interest accrual complete", "accounts_credited", count)
	}); err != nil {
		logger.Error("failed to schedule interest accrual job", "error", err)
		os.Exit(1)
	}
	logger.Info("scheduled interest accrual job", "schedule", cfg.InterestAccrualSchedule)

	c.Start()
	logger.Info("scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping scheduler")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("scheduler stopped gracefully")
}
