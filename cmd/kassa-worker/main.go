package main

import (
	"context"
	"errors"
	"os"
	"time"

	"kassa/internal/amqp"
	"kassa/internal/cli"
	klog "kassa/internal/log"
	"kassa/internal/localstore"
	gsheet "kassa/internal/sheets/google"
	"kassa/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, klog.ComponentWorker)

	if err := cfg.ValidateExport(); err != nil {
		cli.Fatal(logger, "Export configuration invalid", err)
	}

	logger.Info("Starting kassa-worker")

	ctx := context.Background()
	backend, err := cli.OpenStore(ctx, logger, cfg)
	if err != nil {
		cli.Fatal(logger, "Failed to open store", err, "backend", cfg.DataBackend)
	}

	local, err := localstore.Open(cfg.LocalStorePath)
	if err != nil {
		cli.Fatal(logger, "Failed to open local store", err, "path", cfg.LocalStorePath)
	}
	app := cli.NewApp(backend.Store, local, nil, cfg.CacheTTL)

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	exporter := worker.NewExportWorker(app.Dashboard, sheetsClient)

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("Failed to close AMQP client", "error", err)
		}
		if err := backend.Cleanup(); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	})

	logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue)
	if err := amqpClient.Consume(runCtx, exporter.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Consumer stopped", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("Worker stopped gracefully")
}
