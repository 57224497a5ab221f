package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/minho-cho/card-billing-backend/internal/api/rest"
	"github.com/minho-cho/card-billing-backend/internal/infrastructure/config"
	"github.com/minho-cho/card-billing-backend/internal/infrastructure/database"
	"github.com/minho-cho/card-billing-backend/internal/infrastructure/metrics"
	"github.com/minho-cho/card-billing-backend/internal/service/billing"
	"github.com/minho-cho/card-billing-backend/internal/service/ledger"
	"github.com/minho-cho/card-billing-backend/internal/service/posting"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewConnectionPool(ctx, &cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	billRepo := database.NewBillRepository(pool)
	cardRepo := database.NewCardRepository(pool)
	userRepo := database.NewUserRepository(pool)
	txnRepo := database.NewTransactionRepository(pool)

	registry := metrics.NewRegistry(prometheus.DefaultRegisterer)

	ledgerSvc := ledger.NewService(billRepo, zapLogger)
	postingSvc := posting.NewService(cardRepo, ledgerSvc, registry, zapLogger)
	scheduler := billing.NewScheduler(cardRepo, billRepo, ledgerSvc, registry, zapLogger)

	if cfg.Billing.SchedulerEnabled {
		if err := scheduler.Start(); err != nil {
			zapLogger.Fatal("failed to start billing scheduler", zap.Error(err))
		}
		defer scheduler.Stop()
	}

	handlers := rest.NewHandlers(billRepo, userRepo, txnRepo, postingSvc, scheduler, slogLogger)
	server := rest.NewServer(&cfg.Server, handlers, slogLogger)

	if err := server.Start(ctx); err != nil {
		zapLogger.Fatal("server error", zap.Error(err))
	}

	zapLogger.Info("shutdown complete")
}

func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
