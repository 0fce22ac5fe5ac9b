package backend

import (
	"context"
	"net/http"

	"housetrend/internal/datasync"
	"housetrend/internal/docstore"
	"housetrend/internal/remoteconf"
)

// Result holds the document stores the sync engine is wired with.
type Result struct {
	// Local is read when the remote is unavailable.
	Local docstore.Reader
	// Sink receives saves that cannot reach the remote.
	Sink docstore.Downloader
	// Remote resolves the remote store from the current remote config.
	Remote datasync.RemoteFunc
	// RemoteConfig is the durable remote config store, nil when remote
	// settings come from the environment only.
	RemoteConfig *remoteconf.Store
}

// Options returns the engine options for r.
func (r *Result) Options() []datasync.Option {
	return []datasync.Option{
		datasync.WithRemote(r.Remote),
		datasync.WithLocal(r.Local),
		datasync.WithDownloader(r.Sink),
	}
}

// Factory creates document backends based on configuration
type Factory interface {
	// CreateBackend creates the document stores for the provided config
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Local file backend
	DataFile    string
	DownloadDir string

	// Remote repository given by the environment
	Remote remoteconf.Config
	// Durable remote config file. Empty disables the durable store unless
	// UseRemoteStore is set, in which case the XDG default path is used.
	RemoteConfigFile string
	UseRemoteStore   bool

	// HTTPClient used for the remote; nil uses the client default.
	HTTPClient *http.Client
}

// BackendType represents the type of backend
type BackendType string

const (
	LocalBackend  BackendType = "local"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case LocalBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
