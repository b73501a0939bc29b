// Package jsrender runs a compiled server bundle.
//
// The server bundle is an IIFE that assigns its exports to the global
// __alvori_server:
//
//	default(ctx)         -> {app, router, meta} or a promise of it
//	renderToString(app)  -> string or a promise of it
//
// Every render gets a fresh JavaScript runtime, so state never leaks
// between requests. The returned instance keeps its runtime until the
// application has been serialized and must be used from one goroutine.
package jsrender
