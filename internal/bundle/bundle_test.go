package bundle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alvori-dev/alvori/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "main.js"), `import { greet } from "./greet.js";
console.log(greet(process.env.MODE));
`)
	writeFile(t, filepath.Join(dir, "src", "greet.js"), `export function greet(m) { return "hello " + m; }
`)
	writeFile(t, filepath.Join(dir, "src", "style.css"), `body { color: red; }
`)
	writeFile(t, filepath.Join(dir, "public", "index.html"), `<!DOCTYPE html>
<html>
<head><title>t</title></head>
<body><div id="app"></div></body>
</html>
`)
	return dir
}

func TestBuild_InMemory(t *testing.T) {
	dir := newProject(t)

	c, err := New(Options{
		Name:        "client",
		EntryPoints: []string{"src/main.js"},
		Outdir:      "dist",
		WorkingDir:  dir,
		PublicPath:  "/",
		Define:      map[string]string{"process.env.MODE": `"development"`},
		Banner:      "/* banner */",
		Template:    "public/index.html",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	res := c.Build(context.Background())
	if !res.OK() {
		t.Fatalf("Build() errors = %v", res.Errors)
	}
	if res.Compiler != "client" {
		t.Errorf("Compiler = %q", res.Compiler)
	}

	js, ok := res.File("main.js")
	if !ok {
		t.Fatalf("main.js not emitted; files = %v", paths(res.Files))
	}
	if !strings.HasPrefix(string(js.Contents), "/* banner */") {
		t.Errorf("banner missing: %q", js.Contents[:20])
	}
	if !strings.Contains(string(js.Contents), `"development"`) {
		t.Error("define not applied")
	}

	html, ok := res.File("index.html")
	if !ok {
		t.Fatal("index.html not emitted")
	}
	if !strings.Contains(string(html.Contents), `<script defer src="/main.js"></script></head>`) {
		t.Errorf("shell = %s", html.Contents)
	}

	if _, err := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(err) {
		t.Error("output should not be written to disk")
	}
}

func TestBuild_Error(t *testing.T) {
	dir := newProject(t)
	writeFile(t, filepath.Join(dir, "src", "broken.js"), "import x from './nope.js';\n")

	c, err := New(Options{
		Name:        "client",
		EntryPoints: []string{"src/broken.js"},
		Outdir:      "dist",
		WorkingDir:  dir,
		Template:    "public/index.html",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	res := c.Build(context.Background())
	if res.OK() {
		t.Fatal("expected build errors")
	}
	if _, ok := res.File("index.html"); ok {
		t.Error("failed builds should not emit a shell")
	}
	// 1-based column of the import path
	if m := res.Errors[0]; m.File != "src/broken.js" || m.Line != 1 || m.Column != 15 {
		t.Errorf("error location = %+v", m)
	}

	err = res.Err()
	if !errors.HasCode(err, "E121") {
		t.Fatalf("Err() = %v, want E121", err)
	}
	ae, ok := err.(*errors.AlvoriError)
	if !ok || ae.Location == nil {
		t.Fatalf("Err() = %#v, want a located error", err)
	}
	if ae.Location.File != filepath.Join(dir, "src", "broken.js") {
		t.Errorf("Location.File = %q", ae.Location.File)
	}
	if len(ae.Context) == 0 || !strings.Contains(ae.Context[0], "./nope.js") {
		t.Errorf("Context = %q", ae.Context)
	}
	if !strings.Contains(ae.Format(), "^") {
		t.Error("formatted error should mark the column")
	}
}

func TestBuild_MissingTemplate(t *testing.T) {
	dir := newProject(t)

	c, err := New(Options{
		Name:        "client",
		EntryPoints: []string{"src/main.js"},
		Outdir:      "dist",
		WorkingDir:  dir,
		Template:    "public/missing.html",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	res := c.Build(context.Background())
	if res.OK() {
		t.Fatal("missing template should fail the build")
	}
}

func TestBuild_ServerBundleIIFE(t *testing.T) {
	dir := newProject(t)
	writeFile(t, filepath.Join(dir, "src", "server.js"), `export default function (ctx) { return ctx.url; }
`)

	c, err := New(Options{
		Name:        "server",
		EntryPoints: []string{"src/server.js"},
		Outdir:      "dist",
		EntryNames:  "server-bundle",
		WorkingDir:  dir,
		Platform:    PlatformNeutral,
		GlobalName:  "__alvori_server",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	res := c.Build(context.Background())
	if !res.OK() {
		t.Fatalf("errors = %v", res.Errors)
	}
	f, ok := res.File("server-bundle.js")
	if !ok {
		t.Fatalf("files = %v", paths(res.Files))
	}
	if !strings.Contains(string(f.Contents), "__alvori_server") {
		t.Error("global name missing from IIFE output")
	}
}

func TestNew_NoEntryPoints(t *testing.T) {
	_, err := New(Options{Name: "client", WorkingDir: t.TempDir()})
	if !errors.HasCode(err, "E120") {
		t.Errorf("New() = %v, want E120", err)
	}
}

func TestWatch_RebuildsOnChange(t *testing.T) {
	dir := newProject(t)

	c, err := New(Options{
		Name:        "client",
		EntryPoints: []string{"src/main.js"},
		Outdir:      "dist",
		WorkingDir:  dir,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 8)
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx, func(r Result) { results <- r }) }()

	next := func() Result {
		select {
		case r := <-results:
			return r
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for build")
		}
		return Result{}
	}

	if r := next(); !r.OK() {
		t.Fatalf("initial build errors = %v", r.Errors)
	}

	// The explicit rebuild is delivered the same way as watch rebuilds.
	writeFile(t, filepath.Join(dir, "src", "greet.js"), `export function greet(m) { return "bye " + m; }
`)
	c.Rebuild()
	r := next()
	f, _ := r.File("main.js")
	if !strings.Contains(string(f.Contents), "bye") {
		t.Errorf("rebuild did not pick up change: %s", f.Contents)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() = %v", err)
	}
}

func TestShell(t *testing.T) {
	files := []File{{Path: "app.js"}, {Path: "app.css"}, {Path: "app.js.map"}}

	got := Shell("<html><head></head><body></body></html>", "/base/", files)
	want := `<html><head><link rel="stylesheet" href="/base/app.css"><script defer src="/base/app.js"></script></head><body></body></html>`
	if got != want {
		t.Errorf("Shell() = %s", got)
	}

	got = Shell("<body></body>", "", files)
	if !strings.HasPrefix(got, `<body><link rel="stylesheet" href="/app.css">`) {
		t.Errorf("no head: %s", got)
	}

	if got := Shell("<p>", "/", nil); got != "<p>" {
		t.Errorf("no files: %s", got)
	}
}

func TestMessage_String(t *testing.T) {
	m := Message{Text: "boom", File: "a.js", Line: 3, Column: 4}
	if m.String() != "a.js:3:4: boom" {
		t.Errorf("String() = %q", m.String())
	}
	if (Message{Text: "boom"}).String() != "boom" {
		t.Error("message without file should be its text")
	}
}

func paths(files []File) []string {
	var out []string
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}
