package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"housetrend/internal/backend"
	"housetrend/internal/cli"
	"housetrend/internal/config"
	"housetrend/internal/core"
	"housetrend/internal/datasync"
	applog "housetrend/internal/log"
	"housetrend/internal/services"
	"housetrend/internal/storage"
)

// env is what every subcommand runs against. Tests replace it.
type env struct {
	cfg    *config.Config
	logger *applog.Logger
	stdout io.Writer
	stderr io.Writer
}

func newEnv() (*env, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lc := applog.DefaultConfig()
	lc.Component = applog.ComponentCLI
	// logs go to stderr so stdout stays pipeable
	lc.Output = os.Stderr
	lc.Level = slog.LevelWarn
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		lc.Level = cli.ParseLevel(v)
	}
	return &env{cfg: cfg, logger: applog.New(lc), stdout: os.Stdout, stderr: os.Stderr}, nil
}

// session is a loaded engine plus the archive when saves are recorded.
type session struct {
	engine  *datasync.Engine
	source  datasync.Source
	archive *storage.SQLiteRepository
	stores  *backend.Result
}

func (s *session) Close() error {
	if s.archive != nil {
		return s.archive.Close()
	}
	return nil
}

// open loads the document the same way the admin server does. record wires
// the snapshot archive so saves show up in the history.
func (e *env) open(ctx context.Context, record bool) (*session, error) {
	bcfg, err := backend.FromAppConfig(e.cfg, true)
	if err != nil {
		return nil, err
	}
	stores, err := backend.NewFactory(e.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	s := &session{stores: stores}
	opts := append(stores.Options(), datasync.WithLogger(e.logger))
	if record && e.cfg.ArchiveEnabled() {
		archive, err := storage.NewSQLiteRepository(e.cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot archive: %w", err)
		}
		s.archive = archive
		opts = append(opts, datasync.WithRecorder(services.NewSnapshotService(archive, nil)))
	}
	s.engine = datasync.New(core.NewStore(), opts...)

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	s.source = s.engine.Load(loadCtx)
	return s, nil
}

func (e *env) errorf(format string, args ...any) {
	fmt.Fprintf(e.stderr, "Error: "+format+"\n", args...)
}

func stderrOf(e *env) io.Writer {
	if e == nil || e.stderr == nil {
		return os.Stderr
	}
	return e.stderr
}
