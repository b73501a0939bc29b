// Package entry is the bootstrap entry point of an alvori application.
//
// An Entry holds everything needed to assemble one application instance:
// the UI framework factory, router and metadata plugin constructors, the
// environment switches and the ordered list of boot entries. Create runs
// the same bootstrap on both execution sides:
//
//   - the side is detected from the Window: no window means server
//   - the server creates a hydratable application, the client a plain one
//   - on the client, production PWA builds register the service worker
//     modules in the background; development builds unregister every
//     service worker and clear cache storage instead
//   - the router and metadata plugins are installed
//   - boot entries are dispatched in the background, in list order
//
// Create returns before boot entries finish. Instance.Wait blocks until
// they have.
//
// # Boot entries
//
// A boot entry names a function in a Registry. The registry replaces
// loading modules by path:
//
//	reg := entry.NewRegistry()
//	reg.Register("axios", func(ctx context.Context, bc entry.BootContext) error {
//	    bc.App.Use(httpClient)
//	    return nil
//	})
//
// Entries given as a bare name load on both sides. Entries given as an
// object load on a side unless that side's flag is present and false:
//
//	"boot": ["axios", {"path": "analytics", "server": false}]
//
// # Server rendering
//
// Entry.Render creates an instance for a request URL, resolves the route
// and waits for boot entries before the application is serialized. Its
// signature matches dev.Renderer, so an Entry can be handed to the dev
// server (dev.ServerOptions.Renderer) to render pages in Go instead of
// through a compiled server bundle.
package entry
