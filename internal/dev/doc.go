// Package dev provides the development server.
//
// The server compiles the application with esbuild in watch mode, keeps
// the output in memory and answers page requests from the latest
// successful build:
//
//   - spa mode: one client compiler; pages get the compiled HTML shell
//     verbatim
//   - ssr mode: a client and a server compiler; pages are rendered by the
//     server bundle and spliced into the shell
//
// # Architecture
//
//   - Coordinator: runs the compilers, caches the shell and renderer of the
//     last good build and opens the readiness Gate once both exist
//   - Store: in-memory compiled assets of the client build
//   - Handlers: page, asset and static file routes
//   - Watcher: polls the HTML template and public files
//   - ReloadServer: notifies browsers over WebSocket
//
// Requests that arrive before the first successful build wait on the gate.
// A failed rebuild keeps serving the previous build.
//
// # Usage
//
//	srv, err := dev.NewServer(dev.ServerOptions{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// # Hot Reload Protocol
//
// The browser connects to /__alvori/ws via WebSocket. Messages are
// JSON-encoded:
//
//	{"type": "reload"}                // full page reload after a client rebuild
//	{"type": "content-changed"}       // the HTML template changed
//	{"type": "error", "error": "..."} // shows the error overlay
package dev
