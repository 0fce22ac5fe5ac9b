package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"housetrend/internal/cache"
	"housetrend/internal/core"
	"housetrend/internal/datasync"
	applog "housetrend/internal/log"
	"housetrend/internal/middleware/ratelimit"
	"housetrend/internal/middleware/security"
	"housetrend/internal/middleware/trace"
	"housetrend/internal/remoteconf"
	"housetrend/internal/stats"
	"housetrend/internal/storage"
	appweb "housetrend/web"
)

var errTemplatesMissing = errors.New("templates not loaded")

// Options configures both servers.
type Options struct {
	Addr           string
	Engine         *datasync.Engine
	Logger         *applog.Logger
	RequestTimeout time.Duration
	// Ready reports whether the dependencies are usable; nil means ready.
	Ready func(ctx context.Context) error
}

// HistoryReader lists archived saves for the admin page.
type HistoryReader interface {
	History(ctx context.Context, limit int) ([]storage.Snapshot, error)
}

// AdminOptions adds the admin-only dependencies.
type AdminOptions struct {
	Options
	// RemoteConfig persists the remote settings edited on the admin page.
	RemoteConfig *remoteconf.Store
	// EnvRemote is the environment remote config the saved one overlays.
	EnvRemote  remoteconf.Config
	History    HistoryReader
	SessionTTL time.Duration
}

type Server struct {
	http.Server
	templates *template.Template
	engine    *datasync.Engine
	store     *core.Store
	logger    *applog.Logger
	ready     func(ctx context.Context) error
	started   time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	caches   *cache.Manager

	summaries *cache.LRUCache[stats.Summary]
	groups    *cache.LRUCache[[]stats.Group]

	// admin only
	sessions     *sessions
	remoteConfig *remoteconf.Store
	envRemote    remoteconf.Config
	history      HistoryReader

	source       atomic.Value // datasync.Source
	shutdownOnce sync.Once
}

// NewViewerServer serves the public dashboard.
func NewViewerServer(opts Options) *Server {
	s, mux := newServer(opts, nil)
	s.routeViewer(mux)
	return s
}

// NewAdminServer serves the password-gated admin panel.
func NewAdminServer(opts AdminOptions) *Server {
	s, mux := newServer(opts.Options, newSessions(opts.SessionTTL))
	s.remoteConfig = opts.RemoteConfig
	s.envRemote = opts.EnvRemote
	s.history = opts.History
	s.routeAdmin(mux)
	return s
}

func newServer(opts Options, sess *sessions) (*Server, *http.ServeMux) {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	if opts.Engine == nil {
		opts.Engine = datasync.New(core.NewStore())
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	s := &Server{
		engine:    opts.Engine,
		store:     opts.Engine.Store(),
		logger:    logger.WithComponent(applog.ComponentHTTP),
		ready:     opts.Ready,
		started:   time.Now(),
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:  security.NewDetector(logger),
		caches:    cache.NewManager(logger),
		summaries: cache.NewLRUCache[stats.Summary](100, 5*time.Minute),
		groups:    cache.NewLRUCache[[]stats.Group](100, 5*time.Minute),
		sessions:  sess,
	}
	s.source.Store(datasync.SourceDefaults)
	s.caches.Register(s.summaries)
	s.caches.Register(s.groups)
	s.caches.StartCleanup(10 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
		t = nil
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
			WarnContext(r.Context(), "Rate limit exceeded", applog.FieldClientIP, s.detector.ExtractClientIP(r))
		w.Header().Set("Retry-After", "60")
		ErrorResponse(http.StatusTooManyRequests, "请求过于频繁，请稍后再试").Write(w)
	})
	var h http.Handler = http.TimeoutHandler(mux, timeout, "请求超时")
	if sess != nil {
		h = sess.LoadAndSave(h)
	}
	h = limited(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(h)
	h = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, mux
}

var templateFuncs = template.FuncMap{
	"measure": func(m core.Measure) string { return m.String() },
	"when":    formatTime,
}

// Reload loads the document again through the sync engine and remembers
// where it came from.
func (s *Server) Reload(ctx context.Context) datasync.Source {
	src := s.engine.Load(ctx)
	s.source.Store(src)
	return src
}

// Source is where the last Reload took the document from.
func (s *Server) Source() datasync.Source {
	return s.source.Load().(datasync.Source)
}

// Shutdown stops the background routines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		if s.sessions != nil {
			s.sessions.stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// summary returns the cached statistics of the filtered selection.
func (s *Server) summary(f stats.Filter) stats.Summary {
	key := cache.Key(s.store.Version(), f.Key())
	return s.summaries.GetOrCompute(key, func() stats.Summary {
		return stats.Summarize(f.Apply(s.store.Records()))
	})
}

// chartGroups returns the cached chart series of the filtered selection.
func (s *Server) chartGroups(f stats.Filter) []stats.Group {
	key := cache.Key(s.store.Version(), f.Key())
	return s.groups.GetOrCompute(key, func() []stats.Group {
		return stats.GroupForChart(f.Apply(s.store.Records()))
	})
}
