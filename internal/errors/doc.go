// Package errors provides structured, coded errors for the alvori CLI
// and dev server.
//
// Every error carries a stable code (e.g. "E121"), a category and a short
// message taken from the registry. Call sites attach what they know:
//
//	return errors.New("E121").
//	    WithLocation(msg.File, msg.Line, msg.Column).
//	    WithDetail(msg.Text).
//	    Wrap(err)
//
// Format renders the error for a terminal, including the offending source
// lines when a location is known. PrintError writes it to stderr; set
// NO_COLOR to get plain text.
//
// # Code ranges
//
//	E100-E119  configuration
//	E120-E129  bundling and build
//	E130-E139  rendering and boot entries
//	E140-E149  publishing
package errors
