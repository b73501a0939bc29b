package entry

import "context"

// Service worker modules registered by production PWA builds, in order.
const (
	RegisterServiceWorkerModule = "registerServiceWorker"
	CustomServiceWorkerModule   = "customServiceWorker"
)

// Window is the subset of the browser environment the bootstrap uses.
type Window interface {
	// DocumentURI returns the URI of the current document.
	DocumentURI() string

	// ServiceWorker returns nil when service workers are unsupported.
	ServiceWorker() ServiceWorkerContainer

	// Caches returns nil when cache storage is unavailable.
	Caches() CacheStorage
}

// ServiceWorkerContainer mirrors navigator.serviceWorker.
type ServiceWorkerContainer interface {
	Register(ctx context.Context, module string) error
	Registrations(ctx context.Context) ([]Registration, error)
}

// Registration is one service worker registration.
type Registration interface {
	Unregister(ctx context.Context) error
}

// CacheStorage mirrors window.caches.
type CacheStorage interface {
	Keys(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) (bool, error)
}

// Env carries the MODE and PWA build switches.
type Env struct {
	Mode string
	PWA  string
}

// ProductionPWA reports a production build with PWA enabled.
func (e Env) ProductionPWA() bool {
	return e.Mode == "production" && e.PWA != "" && e.PWA != "undefined" && e.PWA != "false"
}

// Development reports a development build.
func (e Env) Development() bool {
	return e.Mode == "development"
}

func (e *Entry) manageServiceWorker(ctx context.Context) {
	switch {
	case e.Env.ProductionPWA():
		sw := e.Window.ServiceWorker()
		if sw == nil {
			return
		}
		go func() {
			for _, module := range []string{RegisterServiceWorkerModule, CustomServiceWorkerModule} {
				if err := sw.Register(ctx, module); err != nil {
					e.logger().Debug("service worker registration failed", "module", module, "error", err)
					return
				}
			}
		}()
	case e.Env.Development():
		go e.clearServiceWorkers(ctx)
	}
}

// clearServiceWorkers unregisters every service worker and deletes every
// cache. Failures are logged and skipped.
func (e *Entry) clearServiceWorkers(ctx context.Context) {
	log := e.logger()

	if sw := e.Window.ServiceWorker(); sw != nil {
		regs, err := sw.Registrations(ctx)
		if err != nil {
			log.Debug("listing service workers failed", "error", err)
		}
		for _, reg := range regs {
			if err := reg.Unregister(ctx); err != nil {
				log.Debug("unregistering service worker failed", "error", err)
			}
		}
	}

	caches := e.Window.Caches()
	if caches == nil {
		return
	}
	keys, err := caches.Keys(ctx)
	if err != nil {
		log.Debug("listing caches failed", "error", err)
		return
	}
	for _, key := range keys {
		if _, err := caches.Delete(ctx, key); err != nil {
			log.Debug("deleting cache failed", "cache", key, "error", err)
		}
	}
}
