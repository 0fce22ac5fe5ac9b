package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"housetrend/internal/backend"
	"housetrend/internal/cli"
	"housetrend/internal/core"
	"housetrend/internal/datasync"
	apphttp "housetrend/internal/http"
	applog "housetrend/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	bcfg, err := backend.FromAppConfig(cfg, false)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	stores, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	engine := datasync.New(core.NewStore(), append(stores.Options(), datasync.WithLogger(logger))...)
	srv := apphttp.NewViewerServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		Engine:         engine,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	loadCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	source := srv.Reload(loadCtx)
	cancel()
	logger.Info("Document loaded", applog.FieldSource, source,
		applog.FieldRecords, len(engine.Store().Records()), "remote", engine.RemoteEnabled())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting housetrend viewer", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.ReloadInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.ReloadInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					rctx, cancel := context.WithTimeout(gctx, 30*time.Second)
					src := srv.Reload(rctx)
					cancel()
					logger.Debug("Periodic reload", applog.FieldSource, src)
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
