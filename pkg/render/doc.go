// Package render splices server-rendered markup into an HTML shell.
//
// A shell is an ordinary HTML document produced by the bundler. Parse
// locates a fixed set of named slots in it once:
//
//	<html{HTMLAttrs} ...>
//	<head>{Head} ... {HeadEnd}</head>
//	<body{BodyAttrs} ...>
//	<div id="app">{App}</div>
//	... {BodyEnd}</body>
//
// Execute then writes the shell with each value inserted at its slot.
// Insertion positions are fixed at parse time, so values never interact:
// rendered markup that happens to contain "</body>" or "<head>" is not
// scanned again, and the order in which values are supplied is irrelevant.
//
// # Usage
//
//	tpl := render.Parse(indexHTML)
//	values := render.Values{render.SlotApp: appHTML}.WithMeta(meta)
//	err := tpl.Execute(w, values)
//
// Markers are matched on their first occurrence. A value whose slot is
// absent from the shell is dropped.
package render
