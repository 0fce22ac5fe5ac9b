package backend

import (
	"context"
	"fmt"

	"housetrend/internal/datasync"
	"housetrend/internal/docstore"
	"housetrend/internal/docstore/github"
	"housetrend/internal/docstore/local"
	"housetrend/internal/docstore/memory"
	applog "housetrend/internal/log"
	"housetrend/internal/remoteconf"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var res *Result
	switch config.Type {
	case LocalBackend:
		res = &Result{
			Local: local.NewFile(config.DataFile),
			Sink:  local.NewDownloadDir(config.DownloadDir),
		}
		f.logger.InfoContext(ctx, "Using local file backend",
			"data_file", config.DataFile, "download_dir", config.DownloadDir)
	case MemoryBackend:
		store := memory.NewFromFile(config.DataFile)
		res = &Result{Local: store, Sink: store}
		f.logger.InfoContext(ctx, "Using memory backend", "seed_file", config.DataFile)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.UseRemoteStore || config.RemoteConfigFile != "" {
		res.RemoteConfig = remoteconf.NewStore(config.RemoteConfigFile)
	}
	res.Remote = f.remoteFunc(config, res.RemoteConfig)
	return res, nil
}

// remoteFunc resolves the remote on every call so a config saved from the
// admin page takes effect without a restart.
func (f *DefaultFactory) remoteFunc(config Config, store *remoteconf.Store) datasync.RemoteFunc {
	return func() docstore.Versioned {
		cfg := ResolveRemote(config.Remote, store, f.logger)
		if !cfg.Complete() {
			return nil
		}
		return github.New(cfg, config.HTTPClient, github.WithLogger(f.logger))
	}
}

// ResolveRemote overlays the saved remote config on the environment one. A
// nil store gives the environment config as is.
func ResolveRemote(env remoteconf.Config, store *remoteconf.Store, logger *applog.Logger) remoteconf.Config {
	if store == nil {
		return env
	}
	saved, err := store.Load()
	if err != nil {
		if logger != nil {
			logger.Warn("Failed to load saved remote config", applog.FieldError, err, "path", store.Path())
		}
		return env
	}
	return saved.Overlay(env)
}
