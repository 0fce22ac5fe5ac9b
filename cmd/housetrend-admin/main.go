package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"housetrend/internal/amqp"
	"housetrend/internal/backend"
	"housetrend/internal/cli"
	"housetrend/internal/core"
	"housetrend/internal/datasync"
	apphttp "housetrend/internal/http"
	applog "housetrend/internal/log"
	"housetrend/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentAdmin)
	cfg := cli.LoadAndValidateConfig(logger)

	bcfg, err := backend.FromAppConfig(cfg, true)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	stores, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := append(stores.Options(), datasync.WithLogger(logger))

	var snapshots *services.SnapshotService
	archive, err := cli.OpenArchive(cfg)
	if err != nil {
		logger.Error("Failed to open snapshot archive", applog.FieldError, err)
		os.Exit(1)
	}
	if archive != nil {
		var publisher services.SnapshotPublisher
		if cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				// saves stay archived; the worker's periodic scan mirrors them
				logger.Warn("AMQP unavailable, snapshot events disabled", applog.FieldError, err)
			} else {
				publisher = client
			}
		}
		snapshots = services.NewSnapshotService(archive, publisher)
		opts = append(opts, datasync.WithRecorder(snapshots))
		logger.Info("Snapshot archive enabled", "path", cfg.SQLiteDBPath, "events", publisher != nil)
	}

	engine := datasync.New(core.NewStore(), opts...)
	adminOpts := apphttp.AdminOptions{
		Options: apphttp.Options{
			Addr:           ":" + cfg.AdminPort,
			Engine:         engine,
			Logger:         logger,
			RequestTimeout: cfg.RequestTimeout,
		},
		RemoteConfig: stores.RemoteConfig,
		EnvRemote:    cfg.Remote(),
	}
	if snapshots != nil {
		adminOpts.History = snapshots
		adminOpts.Ready = archive.Ping
	}
	srv := apphttp.NewAdminServer(adminOpts)

	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	source := srv.Reload(loadCtx)
	cancel()
	logger.Info("Document loaded", applog.FieldSource, source,
		applog.FieldRecords, len(engine.Store().Records()), "remote", engine.RemoteEnabled())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if snapshots != nil {
			if err := snapshots.Close(); err != nil {
				logger.Error("Failed to close snapshot service", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting housetrend admin", "port", cfg.AdminPort, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.AdminPort)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
