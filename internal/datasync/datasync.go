// Package datasync loads the record store from the best available source and
// saves it back, falling back from the remote repository to local files.
package datasync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"housetrend/internal/core"
	"housetrend/internal/docstore"
	applog "housetrend/internal/log"
)

// Source is where a load ended up taking the document from.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceLocal    Source = "local"
	SourceDefaults Source = "defaults"
)

// Snapshot sources as recorded in the archive.
const (
	SavedToRemote   = "github"
	SavedToDownload = "download"
)

// RemoteFunc returns the remote store for the current remote config, or nil
// when the config is incomplete and remote mode is off.
type RemoteFunc func() docstore.Versioned

// versioner is implemented by remotes that can read the version token
// without decoding the document.
type versioner interface {
	Version(ctx context.Context) (string, error)
}

// Snapshot describes one save for the archive.
type Snapshot struct {
	Source   string
	Version  string
	Records  int
	Document []byte
	SavedAt  time.Time
}

// Recorder archives saves. Its failures never fail a save.
type Recorder interface {
	RecordSnapshot(ctx context.Context, s Snapshot) error
}

// SaveResult reports what a save did. Remote is the outcome of the remote
// write alone; Downloaded is true when the document went to the download
// sink instead. Err is the remote failure, or the sink failure when there
// was no remote to try.
type SaveResult struct {
	Remote     bool
	Downloaded bool
	Location   string
	Version    string
	Err        error
}

// Conflict reports whether the remote write lost to a concurrent update.
func (r SaveResult) Conflict() bool {
	return errors.Is(r.Err, docstore.ErrVersionConflict)
}

type Engine struct {
	store    *core.Store
	remote   RemoteFunc
	local    docstore.Reader
	sink     docstore.Downloader
	recorder Recorder
	logger   *applog.Logger
	now      func() time.Time
}

type Option func(*Engine)

// WithRemote enables the remote repository store.
func WithRemote(fn RemoteFunc) Option {
	return func(e *Engine) { e.remote = fn }
}

// WithLocal sets the local document file read when the remote fails.
func WithLocal(r docstore.Reader) Option {
	return func(e *Engine) { e.local = r }
}

// WithDownloader sets where saves go when they cannot reach the remote.
func WithDownloader(d docstore.Downloader) Option {
	return func(e *Engine) { e.sink = d }
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

func WithLogger(l *applog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(store *core.Store, opts ...Option) *Engine {
	e := &Engine{store: store, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = applog.Discard()
	}
	e.logger = e.logger.WithComponent(applog.ComponentSync)
	return e
}

func (e *Engine) Store() *core.Store { return e.store }

// RemoteEnabled reports whether a complete remote config is present.
func (e *Engine) RemoteEnabled() bool {
	return e.remoteStore() != nil
}

func (e *Engine) remoteStore() docstore.Versioned {
	if e.remote == nil {
		return nil
	}
	return e.remote()
}

// Load fills the store from the remote file, then the local file, then
// defaults. It never fails; it reports where the data came from.
func (e *Engine) Load(ctx context.Context) Source {
	if remote := e.remoteStore(); remote != nil {
		doc, version, err := remote.Fetch(ctx)
		if err == nil {
			e.store.Replace(doc)
			e.logger.InfoContext(ctx, "Loaded document from remote",
				applog.FieldVersion, version, applog.FieldRecords, len(doc.TransactionData))
			return SourceRemote
		}
		e.logger.WarnContext(ctx, "Remote load failed, falling back to local file", applog.FieldError, err)
	}

	if e.local != nil {
		doc, err := e.local.Read(ctx)
		if err == nil {
			e.store.Replace(doc)
			e.logger.InfoContext(ctx, "Loaded document from local file", applog.FieldRecords, len(doc.TransactionData))
			return SourceLocal
		}
		e.logger.WarnContext(ctx, "Local load failed, using defaults", applog.FieldError, err)
	}

	e.store.Replace(core.Document{})
	return SourceDefaults
}

// Save writes the store's document to the remote when configured, otherwise
// or on failure it hands the document to the download sink.
func (e *Engine) Save(ctx context.Context) SaveResult {
	doc := e.store.Snapshot()
	var res SaveResult

	if remote := e.remoteStore(); remote != nil {
		version, err := e.put(ctx, remote, doc)
		if err == nil {
			res.Remote = true
			res.Version = version
			e.logger.InfoContext(ctx, "Saved document to remote",
				applog.FieldVersion, version, applog.FieldRecords, len(doc.TransactionData))
			e.record(ctx, SavedToRemote, version, doc)
			return res
		}
		res.Err = err
		e.logger.WarnContext(ctx, "Remote save failed, downloading instead",
			applog.FieldError, err, "conflict", res.Conflict())
	}

	if e.sink == nil {
		if res.Err == nil {
			res.Err = errors.New("no save target configured")
		}
		return res
	}
	loc, err := e.sink.Download(ctx, doc)
	if err != nil {
		e.logger.ErrorContext(ctx, "Download failed", applog.FieldError, err)
		if res.Err == nil {
			res.Err = fmt.Errorf("download: %w", err)
		}
		return res
	}
	res.Downloaded = true
	res.Location = loc
	e.logger.InfoContext(ctx, "Document downloaded", applog.FieldLocation, loc)
	e.record(ctx, SavedToDownload, "", doc)
	return res
}

func (e *Engine) put(ctx context.Context, remote docstore.Versioned, doc core.Document) (string, error) {
	version, err := currentVersion(ctx, remote)
	if errors.Is(err, docstore.ErrNotFound) {
		version, err = "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read remote version: %w", err)
	}
	return remote.Put(ctx, doc, version)
}

func currentVersion(ctx context.Context, remote docstore.Versioned) (string, error) {
	if v, ok := remote.(versioner); ok {
		return v.Version(ctx)
	}
	_, version, err := remote.Fetch(ctx)
	return version, err
}

func (e *Engine) record(ctx context.Context, source, version string, doc core.Document) {
	if e.recorder == nil {
		return
	}
	raw, err := doc.Encode()
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to encode snapshot", applog.FieldError, err)
		return
	}
	err = e.recorder.RecordSnapshot(ctx, Snapshot{
		Source:   source,
		Version:  version,
		Records:  len(doc.TransactionData),
		Document: raw,
		SavedAt:  e.now(),
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to record snapshot", applog.FieldError, err, applog.FieldSource, source)
	}
}
