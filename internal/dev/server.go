package dev

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/alvori-dev/alvori/internal/bundle"
	"github.com/alvori-dev/alvori/internal/config"
	"github.com/alvori-dev/alvori/internal/jsrender"
)

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Loader loads server bundles. Defaults to the embedded JS runtime.
	Loader RendererLoader

	// Renderer renders pages in ssr mode instead of a compiled server
	// bundle. An *entry.Entry satisfies it.
	Renderer Renderer

	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer

	// ShutdownTimeout bounds graceful shutdown. Defaults to 5s.
	ShutdownTimeout time.Duration
}

// Server is the development server.
type Server struct {
	config   *config.Config
	options  ServerOptions
	log      *slog.Logger
	metrics  *Metrics
	client   *bundle.Compiler
	server   *bundle.Compiler
	coord    *Coordinator
	handlers *Handlers
	watcher  *Watcher
	reload   *ReloadServer

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates the compilers and handlers for cfg.
func NewServer(options ServerOptions) (*Server, error) {
	cfg := options.Config
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}
	if options.ShutdownTimeout == 0 {
		options.ShutdownTimeout = 5 * time.Second
	}

	s := &Server{
		config:  cfg,
		options: options,
		log:     log.With("component", "dev"),
		metrics: NewMetrics(),
	}
	if cfg.HotReload() {
		s.reload = NewReloadServer(s.metrics)
	}

	clientOpts := bundle.ClientOptions(cfg, true)
	if s.reload != nil {
		clientOpts.Banner = ClientScript
	}
	client, err := bundle.New(clientOpts)
	if err != nil {
		return nil, err
	}
	s.client = client

	coordOpts := CoordinatorOptions{
		Logger:  log,
		Metrics: s.metrics,
		OnBuild: s.onBuild,
		Loader:  options.Loader,
	}

	switch {
	case cfg.IsSSR() && options.Renderer != nil:
		s.coord = NewRendererCoordinator(client, options.Renderer, coordOpts)
	case cfg.IsSSR():
		server, err := bundle.New(bundle.ServerOptions(cfg, true))
		if err != nil {
			client.Close()
			return nil, err
		}
		s.server = server
		if coordOpts.Loader == nil {
			coordOpts.Loader = s.loadBundle
		}
		s.coord = NewSSRCoordinator(client, server, coordOpts)
	default:
		s.coord = NewSPACoordinator(client, coordOpts)
	}

	s.handlers = NewHandlers(s.coord, HandlerOptions{
		SSR:        cfg.IsSSR(),
		PublicPath: cfg.Dev.PublicPath,
		Logger:     log,
		Metrics:    s.metrics,
		Tracer:     options.Tracer,
	})

	s.watcher = NewWatcher(WatcherConfig{
		Template: cfg.TemplatePath(),
		Paths:    []string{filepath.Join(cfg.PublicDir(), "favicon"), filepath.Join(cfg.PublicDir(), "manifest.json")},
	})
	s.watcher.OnChange(s.onFileChange)

	return s, nil
}

func (s *Server) loadBundle(src []byte) (Renderer, error) {
	b, err := jsrender.Load(ServerBundleFile, src, jsrender.Options{Logger: s.log})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Coordinator returns the build coordinator.
func (s *Server) Coordinator() *Coordinator {
	return s.coord
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Router returns the HTTP handler of the dev server.
func (s *Server) Router() http.Handler {
	public := s.config.PublicDir()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/manifest.json", staticFile(filepath.Join(public, "manifest.json")))
	r.Get("/favicon.ico", staticFile(filepath.Join(public, "favicon.ico")))
	r.Get("/assets/*", staticDir(s.config.AssetsDir()))
	r.Get("/favicon/*", staticDir(filepath.Join(public, "favicon")))
	if s.reload != nil {
		r.Get(ReloadPath, s.reload.HandleWebSocket)
	}
	r.Method(http.MethodGet, MetricsPath, s.metrics.Handler())
	r.Get(s.handlers.PublicPath()+"*", s.handlers.ServeHTTP)

	return r
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.DevAddress())
	if err != nil {
		s.close()
		return err
	}
	s.log.Info("App listening on port " + s.config.DevURL())
	return s.Serve(ctx, ln)
}

// Serve runs the compilers, the file watcher and the HTTP server on ln.
// It returns nil after a graceful shutdown and the first fatal error
// otherwise.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.close()

	httpServer := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.coord.Run(gctx)
	})
	g.Go(func() error {
		return s.watcher.Start(gctx)
	})
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if s.reload != nil {
			s.reload.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Stop shuts the HTTP server down immediately.
func (s *Server) Stop() {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer != nil {
		httpServer.Close()
	}
}

func (s *Server) close() {
	s.watcher.Stop()
	s.client.Close()
	if s.server != nil {
		s.server.Close()
	}
}

// onBuild forwards build outcomes to connected browsers.
func (s *Server) onBuild(res bundle.Result) {
	if !res.OK() {
		s.log.Error("build failed", "compiler", res.Compiler, "errors", len(res.Errors))
		if s.reload != nil {
			msgs := make([]string, len(res.Errors))
			for i, m := range res.Errors {
				msgs[i] = m.String()
			}
			s.reload.NotifyError(strings.Join(msgs, "\n"))
		}
		return
	}

	s.log.Info("built", "compiler", res.Compiler, "duration", res.Duration.Round(time.Millisecond))
	if s.reload != nil && s.coord.Ready() {
		s.reload.NotifyReload()
		s.log.Debug("reloaded browsers", "clients", s.reload.ClientCount())
	}
}

func (s *Server) onFileChange(change Change) {
	switch change.Type {
	case ChangeTemplate:
		if s.reload != nil {
			s.reload.NotifyContentChanged()
		}
		s.log.Info("HTML template updated", "file", change.Path)
		go s.client.Rebuild()
	case ChangeAsset:
		s.log.Info("file changed", "file", change.Path)
		if s.reload != nil {
			s.reload.NotifyReload()
		}
	}
}
