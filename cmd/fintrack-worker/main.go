package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	memmirror "fintrack/internal/sheets/memory"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentWorker,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)

	logger.Info("Starting fintrack-worker", applog.FieldOperation, applog.OpStartup)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.WithComponent(applog.ComponentStorage).Error("Failed to initialize SQLite repository",
			applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sheetsLog := logger.WithComponent(applog.ComponentSheets)
	var mirror sheets.LedgerMirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(ctx, cfg.MirrorSheetPrefix)
		if err != nil {
			sheetsLog.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		sheetsLog.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = memmirror.New()
		sheetsLog.Warn("No GOOGLE_SPREADSHEET_ID provided, mirroring to memory only")
	}

	amqpLog := logger.WithComponent(applog.ComponentAMQP)
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		amqpLog.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	w := worker.NewMirrorWorker(repo, mirror, 30*time.Second)

	amqpLog.Info("Consuming ledger events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumeLedgerChanged(ctx, w.HandleLedgerChanged); err != nil && !errors.Is(err, context.Canceled) {
		amqpLog.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
