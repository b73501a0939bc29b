package dev

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/alvori-dev/alvori/internal/bundle"
	"github.com/alvori-dev/alvori/pkg/entry"
	"github.com/alvori-dev/alvori/pkg/render"
)

// Artifact names taken out of the build output.
const (
	TemplateFile     = bundle.DefaultTemplateName
	ServerBundleFile = bundle.ServerBundleFile
)

// Compiler is a bundler that can run in watch mode.
type Compiler interface {
	Watch(ctx context.Context, onDone func(bundle.Result)) error
}

// Renderer renders one request on the server.
type Renderer interface {
	Render(ctx context.Context, rc entry.RenderContext) (*entry.Instance, error)
}

// RendererLoader turns a compiled server bundle into a Renderer.
type RendererLoader func(bundle []byte) (Renderer, error)

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	// Loader is required in ssr mode.
	Loader RendererLoader

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *Metrics

	// OnBuild is called after each build has been applied.
	OnBuild func(bundle.Result)
}

// Coordinator runs the compilers and publishes the artifacts of the last
// successful build of each.
type Coordinator struct {
	client Compiler
	server Compiler
	ssr    bool
	opts   CoordinatorOptions
	log    *slog.Logger

	assets *Store
	gate   *Gate

	mu       sync.RWMutex
	template *render.Template
	renderer Renderer
}

// NewSPACoordinator coordinates a single client compiler.
func NewSPACoordinator(client Compiler, opts CoordinatorOptions) *Coordinator {
	return newCoordinator(client, nil, false, opts)
}

// NewSSRCoordinator coordinates a client and a server compiler.
func NewSSRCoordinator(client, server Compiler, opts CoordinatorOptions) *Coordinator {
	return newCoordinator(client, server, true, opts)
}

// NewRendererCoordinator coordinates a client compiler for server
// rendering through a fixed renderer, such as an *entry.Entry written in
// Go. No server bundle is compiled.
func NewRendererCoordinator(client Compiler, r Renderer, opts CoordinatorOptions) *Coordinator {
	c := newCoordinator(client, nil, true, opts)
	c.renderer = r
	return c
}

func newCoordinator(client, server Compiler, ssr bool, opts CoordinatorOptions) *Coordinator {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{
		client: client,
		server: server,
		ssr:    ssr,
		opts:   opts,
		log:    log.With("component", "coordinator"),
		assets: NewStore(),
		gate:   NewGate(),
	}
}

// SSR reports whether pages are rendered on the server.
func (c *Coordinator) SSR() bool {
	return c.ssr
}

// Run starts every compiler and blocks until ctx is done or a compiler
// fails to watch. That failure is returned.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.client.Watch(ctx, c.applyClient)
	})
	if c.server != nil {
		g.Go(func() error {
			return c.server.Watch(ctx, c.applyServer)
		})
	}
	return g.Wait()
}

// Wait blocks until the first complete set of artifacts is available.
func (c *Coordinator) Wait(ctx context.Context) error {
	return c.gate.Wait(ctx)
}

// Ready reports whether the gate is open.
func (c *Coordinator) Ready() bool {
	return c.gate.IsOpen()
}

// Template returns the cached HTML shell, or nil before the first build.
func (c *Coordinator) Template() *render.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.template
}

// Renderer returns the cached server renderer, or nil.
func (c *Coordinator) Renderer() Renderer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.renderer
}

// Snapshot returns the template and renderer of the same publication.
func (c *Coordinator) Snapshot() (*render.Template, Renderer) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.template, c.renderer
}

// Asset returns a compiled client file.
func (c *Coordinator) Asset(path string) ([]byte, bool) {
	return c.assets.Read(path)
}

// Assets returns the client asset store.
func (c *Coordinator) Assets() *Store {
	return c.assets
}

func (c *Coordinator) report(res bundle.Result) bool {
	for _, m := range res.Errors {
		c.log.Error("build error", "compiler", res.Compiler, "error", m.String())
	}
	for _, m := range res.Warnings {
		c.log.Warn("build warning", "compiler", res.Compiler, "warning", m.String())
	}
	c.opts.Metrics.observeBuild(res)
	return res.OK()
}

func (c *Coordinator) applyClient(res bundle.Result) {
	if c.report(res) {
		c.assets.Replace(res.Files)
		if data, ok := c.assets.Take(TemplateFile); ok {
			t := render.Parse(string(data))
			c.mu.Lock()
			c.template = t
			c.mu.Unlock()
		} else {
			c.log.Warn("client build produced no template", "compiler", res.Compiler, "file", TemplateFile)
		}
		c.log.Debug("client build applied", "compiler", res.Compiler, "files", len(res.Files), "duration", res.Duration)
		c.maybeOpen()
	}
	c.notify(res)
}

func (c *Coordinator) applyServer(res bundle.Result) {
	if c.report(res) {
		c.loadRenderer(res)
		c.maybeOpen()
	}
	c.notify(res)
}

func (c *Coordinator) loadRenderer(res bundle.Result) {
	f, ok := res.File(ServerBundleFile)
	if !ok {
		c.log.Error("server build produced no bundle", "compiler", res.Compiler, "file", ServerBundleFile)
		return
	}
	if c.opts.Loader == nil {
		c.log.Error("no renderer loader configured", "compiler", res.Compiler)
		return
	}
	r, err := c.opts.Loader(f.Contents)
	if err != nil {
		c.log.Error("server bundle could not be loaded", "compiler", res.Compiler, "error", err)
		return
	}
	c.mu.Lock()
	c.renderer = r
	c.mu.Unlock()
}

func (c *Coordinator) maybeOpen() {
	c.mu.RLock()
	ready := c.template != nil && (!c.ssr || c.renderer != nil)
	c.mu.RUnlock()
	if ready && !c.gate.IsOpen() {
		c.gate.Open()
		c.log.Info("dev build ready")
	}
}

func (c *Coordinator) notify(res bundle.Result) {
	if c.opts.OnBuild != nil {
		c.opts.OnBuild(res)
	}
}
