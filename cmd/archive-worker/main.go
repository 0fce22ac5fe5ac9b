package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"housetrend/internal/amqp"
	"housetrend/internal/cli"
	applog "housetrend/internal/log"
	gsheet "housetrend/internal/sheets/google"
	"housetrend/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting archive-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.ArchiveEnabled() {
		logger.Error("SQLITE_DB_PATH is required by the archive worker")
		os.Exit(1)
	}
	if !cfg.MirrorEnabled() {
		logger.Error("GOOGLE_SPREADSHEET_ID is required by the archive worker")
		os.Exit(1)
	}

	archive := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer archive.Close()

	mirror, err := gsheet.NewFromOptions(context.Background(), gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		OAuth:           gsheet.OAuthClient{ClientFile: cfg.GoogleOAuthClientFile, ClientJSON: cfg.GoogleOAuthClientJSON},
		TokenFile:       cfg.GoogleOAuthTokenFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer events.Close()
	} else {
		logger.Info("AMQP disabled, relying on the periodic scan", "interval", cfg.SyncInterval)
	}

	w := worker.NewArchiveWorker(archive, mirror, cfg.SyncBatchSize)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// missed while the worker was down
	logger.Info("Performing startup sync check...")
	if err := w.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if events != nil {
		g.Go(func() error {
			return events.ConsumeSnapshotSaved(gctx, w.HandleSnapshotSaved)
		})
	}
	g.Go(func() error {
		return w.RunPeriodic(gctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Archive worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Archive worker stopped")
}
