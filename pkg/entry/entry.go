package entry

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/alvori-dev/alvori/pkg/render"
)

// Side is the execution side of a bootstrap.
type Side int

const (
	// SideServer renders HTML for a request.
	SideServer Side = iota

	// SideClient runs in the browser.
	SideClient
)

// String returns "server" or "client".
func (s Side) String() string {
	if s == SideClient {
		return "client"
	}
	return "server"
}

// Detect returns the execution side: SideServer when there is no window.
func Detect(w Window) Side {
	if w == nil {
		return SideServer
	}
	return SideClient
}

// RenderContext is the per-render context handed to the application.
type RenderContext struct {
	// URL is the request URI.
	URL string

	// Extra carries fields the application attaches during the render.
	Extra map[string]any
}

func (rc *RenderContext) clone() *RenderContext {
	c := &RenderContext{URL: rc.URL}
	if rc.Extra != nil {
		c.Extra = make(map[string]any, len(rc.Extra))
		for k, v := range rc.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// App is a UI framework application object.
type App interface {
	// Use installs a plugin.
	Use(p Plugin)

	// RenderToString serializes the application to HTML.
	RenderToString(ctx context.Context) (string, error)
}

// Plugin extends an App.
type Plugin interface {
	Install(app App)
}

// Router is the routing plugin.
type Router interface {
	Plugin

	// Resolve navigates to url.
	Resolve(ctx context.Context, url string) error

	// CurrentRouteName returns the name of the resolved route.
	CurrentRouteName() string
}

// MetaPlugin manages document metadata.
type MetaPlugin interface {
	Plugin

	// Data returns the rendered metadata, or nil when nothing was set.
	Data() *render.Meta
}

// Factory creates application objects.
type Factory interface {
	// NewSSRApp creates an application that can be hydrated on the client.
	NewSSRApp() App

	// NewApp creates a client-only application.
	NewApp() App
}

// Dispatch selects how boot entries run.
type Dispatch int

const (
	// Sequential runs each boot entry after the previous one returned.
	Sequential Dispatch = iota

	// Concurrent starts all boot entries at once.
	Concurrent
)

// Entry assembles application instances.
type Entry struct {
	// Factory creates the application object. Required.
	Factory Factory

	// NewRouter creates the router for one instance.
	NewRouter func() Router

	// NewMeta creates the metadata plugin for one instance.
	NewMeta func() MetaPlugin

	// Boot is the ordered list of boot entries.
	Boot []BootEntry

	// Registry resolves boot entry paths.
	Registry *Registry

	// Env holds the MODE and PWA switches.
	Env Env

	// Window is the browser environment; nil on the server.
	Window Window

	// Dispatch selects sequential (default) or concurrent boot entries.
	Dispatch Dispatch

	// Logger receives background failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Instance is one assembled application.
type Instance struct {
	App    App
	Router Router
	Meta   MetaPlugin

	// Context is the rendering context the instance was created for,
	// including fields the application attached to it. Nil when Create
	// was called without one.
	Context *RenderContext

	boot *bootRun
}

// MetaData returns the metadata of the instance, or nil.
func (i *Instance) MetaData() *render.Meta {
	if i == nil || i.Meta == nil {
		return nil
	}
	return i.Meta.Data()
}

// RouteName returns the current route name, or "" without a router.
func (i *Instance) RouteName() string {
	if i == nil || i.Router == nil {
		return ""
	}
	return i.Router.CurrentRouteName()
}

// Wait blocks until every boot entry has finished and returns their
// joined errors, or the context error.
func (i *Instance) Wait(ctx context.Context) error {
	if i == nil || i.boot == nil {
		return nil
	}
	select {
	case <-i.boot.done:
		return i.boot.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ErrNoRouter is returned by Render when the entry has no router.
var ErrNoRouter = errors.New("entry: no router configured")

// Create assembles an application instance. rc may be nil. Boot entries
// run in the background; use Instance.Wait to wait for them.
func (e *Entry) Create(ctx context.Context, rc *RenderContext) *Instance {
	side := Detect(e.Window)

	var app App
	if side == SideServer {
		app = e.Factory.NewSSRApp()
	} else {
		app = e.Factory.NewApp()
		e.manageServiceWorker(ctx)
	}

	inst := &Instance{App: app, Context: rc}
	if e.NewRouter != nil {
		inst.Router = e.NewRouter()
		app.Use(inst.Router)
	}
	if e.NewMeta != nil {
		inst.Meta = e.NewMeta()
		app.Use(inst.Meta)
	}

	inst.boot = e.startBoot(ctx, side, inst, rc)
	return inst
}

// Render creates an instance for rc, resolves rc.URL and waits for the
// boot entries. Boot entry failures are logged, not returned.
func (e *Entry) Render(ctx context.Context, rc RenderContext) (*Instance, error) {
	inst := e.Create(ctx, &rc)
	if inst.Router == nil {
		return nil, ErrNoRouter
	}
	if err := inst.Router.Resolve(ctx, rc.URL); err != nil {
		return nil, err
	}
	if err := inst.Wait(ctx); err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return inst, nil
}

func (e *Entry) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

type bootRun struct {
	done chan struct{}
	err  error
}

func (e *Entry) startBoot(ctx context.Context, side Side, inst *Instance, rc *RenderContext) *bootRun {
	run := &bootRun{done: make(chan struct{})}
	if len(e.Boot) == 0 {
		close(run.done)
		return run
	}

	base := BootContext{
		App:    inst.App,
		Router: inst.Router,
		IsSSR:  side == SideServer,
	}

	go func() {
		defer close(run.done)

		errs := make([]error, len(e.Boot))
		if e.Dispatch == Concurrent {
			var wg sync.WaitGroup
			for i, be := range e.Boot {
				wg.Add(1)
				go func(i int, be BootEntry) {
					defer wg.Done()
					errs[i] = e.bootOne(ctx, side, be, base, rc)
				}(i, be)
			}
			wg.Wait()
		} else {
			for i, be := range e.Boot {
				errs[i] = e.bootOne(ctx, side, be, base, rc)
			}
		}
		run.err = errors.Join(errs...)
	}()

	return run
}
