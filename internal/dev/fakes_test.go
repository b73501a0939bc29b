package dev

import (
	"context"
	"testing"
	"time"

	"github.com/alvori-dev/alvori/internal/bundle"
	"github.com/alvori-dev/alvori/pkg/entry"
	"github.com/alvori-dev/alvori/pkg/render"
)

const shell = `<!DOCTYPE html>
<html>
<head><title>app</title></head>
<body>
<div id="app"></div>
</body>
</html>
`

type emission struct {
	res  bundle.Result
	done chan struct{}
}

// fakeCompiler delivers results pushed with emit to its watch callback.
type fakeCompiler struct {
	results chan emission
	err     error
}

func newFakeCompiler() *fakeCompiler {
	return &fakeCompiler{results: make(chan emission)}
}

func (f *fakeCompiler) Watch(ctx context.Context, onDone func(bundle.Result)) error {
	if f.err != nil {
		return f.err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-f.results:
			onDone(e.res)
			close(e.done)
		}
	}
}

// emit blocks until the result has been applied.
func (f *fakeCompiler) emit(t *testing.T, res bundle.Result) {
	t.Helper()
	e := emission{res: res, done: make(chan struct{})}
	select {
	case f.results <- e:
	case <-time.After(2 * time.Second):
		t.Fatal("compiler is not watching")
	}
	<-e.done
}

func clientResult(html string) bundle.Result {
	return bundle.Result{
		Compiler: "client",
		Files: []bundle.File{
			{Path: TemplateFile, Contents: []byte(html)},
			{Path: "main.js", Contents: []byte("console.log(1)")},
		},
	}
}

func failedResult(compiler string) bundle.Result {
	return bundle.Result{
		Compiler: compiler,
		Errors:   []bundle.Message{{Text: "Unexpected token", File: "src/app.js", Line: 3, Column: 1}},
	}
}

func serverResult() bundle.Result {
	return bundle.Result{
		Compiler: "server",
		Files:    []bundle.File{{Path: ServerBundleFile, Contents: []byte("bundle")}},
	}
}

type fakeApp struct {
	html string
	err  error
}

func (a fakeApp) Use(p entry.Plugin) { p.Install(a) }

func (a fakeApp) RenderToString(context.Context) (string, error) {
	return a.html, a.err
}

type fakeRouter struct{ name string }

func (fakeRouter) Install(entry.App)                     {}
func (fakeRouter) Resolve(context.Context, string) error { return nil }
func (r fakeRouter) CurrentRouteName() string            { return r.name }

type fakeMeta struct{ data *render.Meta }

func (fakeMeta) Install(entry.App)    {}
func (m fakeMeta) Data() *render.Meta { return m.data }

// fakeRenderer renders "<p>URL</p>" unless configured otherwise.
type fakeRenderer struct {
	route     string
	meta      *render.Meta
	err       error
	renderErr error
}

func (r *fakeRenderer) Render(ctx context.Context, rc entry.RenderContext) (*entry.Instance, error) {
	if r.err != nil {
		return nil, r.err
	}
	route := r.route
	if route == "" {
		route = "home"
	}
	inst := &entry.Instance{
		App:    fakeApp{html: "<p>" + rc.URL + "</p>", err: r.renderErr},
		Router: fakeRouter{name: route},
	}
	if r.meta != nil {
		inst.Meta = fakeMeta{data: r.meta}
	}
	return inst, nil
}

type fakeSource struct {
	gate     *Gate
	tmpl     *render.Template
	renderer Renderer
	assets   map[string][]byte
}

func (s *fakeSource) Wait(ctx context.Context) error {
	if s.gate == nil {
		return nil
	}
	return s.gate.Wait(ctx)
}

func (s *fakeSource) Snapshot() (*render.Template, Renderer) {
	return s.tmpl, s.renderer
}

func (s *fakeSource) Asset(path string) ([]byte, bool) {
	data, ok := s.assets[path]
	return data, ok
}
