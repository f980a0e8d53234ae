package main

import (
	"context"
	"errors"
	"os"
	"time"
	_ "time/tzdata"

	"inorbit/internal/amqp"
	"inorbit/internal/cli"
	"inorbit/internal/config"
	"inorbit/internal/locale"
	"inorbit/internal/log"
	"inorbit/internal/ports"
	"inorbit/internal/services"
	"inorbit/internal/sheets"
	gsheet "inorbit/internal/sheets/google"
	memmirror "inorbit/internal/sheets/memory"
	"inorbit/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting inorbit-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the worker")
		os.Exit(1)
	}

	f, err := locale.Load(cfg.Timezone)
	if err != nil {
		logger.Error("Invalid timezone", log.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	// Reconcile reads the shared SQLite database; the memory backend lives
	// in the server process only.
	var store ports.CompletionReader
	if cfg.DataBackend == config.BackendSQLite {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		store = repo
	} else {
		logger.Info("Reconcile disabled for non-SQLite backend", "backend", cfg.DataBackend)
	}

	var mirror sheets.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = memmirror.New()
		logger.Info("Google Sheets disabled, mirroring in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	mw := worker.NewMirrorWorker(mirror, store, f)
	processor := services.NewSyncProcessor(mw, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		RunOnStart:   store != nil,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Warn("Sync processor stop", log.FieldError, err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close", log.FieldError, err)
		}
	})

	if store != nil {
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start sync processor", log.FieldError, err)
		}
	}

	go func() {
		err := amqpClient.Consume(ctx, mw.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
