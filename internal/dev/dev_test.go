package dev

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/alvori-dev/alvori/internal/bundle"
	"github.com/alvori-dev/alvori/pkg/render"
)

func TestGate(t *testing.T) {
	g := NewGate()
	if g.IsOpen() {
		t.Fatal("new gate should be closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() on closed gate = %v", err)
	}

	released := make(chan struct{})
	go func() {
		g.Wait(context.Background())
		close(released)
	}()

	g.Open()
	g.Open() // idempotent

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
	if !g.IsOpen() {
		t.Error("gate should be open")
	}
	if err := g.Wait(context.Background()); err != nil {
		t.Errorf("Wait() on open gate = %v", err)
	}
	select {
	case <-g.Done():
	default:
		t.Error("Done() should be closed")
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	s.Replace([]bundle.File{
		{Path: "index.html", Contents: []byte("<html>")},
		{Path: "main.js", Contents: []byte("js")},
	})

	if data, ok := s.Read("/main.js"); !ok || string(data) != "js" {
		t.Errorf("Read(/main.js) = %q, %v", data, ok)
	}
	if data, ok := s.Take("index.html"); !ok || string(data) != "<html>" {
		t.Errorf("Take() = %q, %v", data, ok)
	}
	if _, ok := s.Read("index.html"); ok {
		t.Error("Take should remove the file")
	}
	if got := s.Paths(); len(got) != 1 || got[0] != "main.js" {
		t.Errorf("Paths() = %v", got)
	}

	s.Replace(nil)
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Replace(nil)", s.Len())
	}
}

func startCoordinator(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestCoordinator_SPA_RequestsWaitForFirstBuild(t *testing.T) {
	client := newFakeCompiler()
	coord := NewSPACoordinator(client, CoordinatorOptions{})
	startCoordinator(t, coord)

	srv := httptest.NewServer(NewHandlers(coord, HandlerOptions{}))
	defer srv.Close()

	type response struct {
		status int
		body   string
		ctype  string
	}
	got := make(chan response, 1)
	go func() {
		resp, err := http.Get(srv.URL + "/")
		if err != nil {
			t.Error(err)
			close(got)
			return
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		got <- response{resp.StatusCode, string(body), resp.Header.Get("Content-Type")}
	}()

	select {
	case <-got:
		t.Fatal("request answered before the first build")
	case <-time.After(50 * time.Millisecond):
	}

	client.emit(t, clientResult(shell))

	select {
	case r := <-got:
		if r.status != http.StatusOK {
			t.Errorf("status = %d", r.status)
		}
		if r.body != shell {
			t.Errorf("body not verbatim:\n%s", r.body)
		}
		if r.ctype != "text/html" {
			t.Errorf("Content-Type = %q", r.ctype)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request not released after build")
	}
}

func TestCoordinator_FailedBuildKeepsArtifacts(t *testing.T) {
	client := newFakeCompiler()
	var builds []bundle.Result
	coord := NewSPACoordinator(client, CoordinatorOptions{
		OnBuild: func(res bundle.Result) { builds = append(builds, res) },
	})
	startCoordinator(t, coord)

	client.emit(t, clientResult(shell))
	client.emit(t, failedResult("client"))

	if tmpl := coord.Template(); tmpl == nil || tmpl.Source() != shell {
		t.Fatal("failed build should keep the previous template")
	}
	if _, ok := coord.Asset("main.js"); !ok {
		t.Error("failed build should keep the previous assets")
	}
	if _, ok := coord.Asset(TemplateFile); ok {
		t.Error("the template should not be served as an asset")
	}
	if len(builds) != 2 || builds[1].OK() {
		t.Errorf("OnBuild calls = %d", len(builds))
	}

	client.emit(t, clientResult("<html>v2</html>"))
	if coord.Template().Source() != "<html>v2</html>" {
		t.Error("successful build should replace the template")
	}
}

func TestCoordinator_FailedFirstBuildKeepsGateClosed(t *testing.T) {
	client := newFakeCompiler()
	coord := NewSPACoordinator(client, CoordinatorOptions{})
	startCoordinator(t, coord)

	client.emit(t, failedResult("client"))
	if coord.Ready() {
		t.Error("gate should stay closed after a failed first build")
	}
}

func TestCoordinator_SSR_NeedsBothArtifacts(t *testing.T) {
	client, server := newFakeCompiler(), newFakeCompiler()
	renderer := &fakeRenderer{}
	var loaded []string
	coord := NewSSRCoordinator(client, server, CoordinatorOptions{
		Loader: func(src []byte) (Renderer, error) {
			loaded = append(loaded, string(src))
			if string(src) == "broken" {
				return nil, errors.New("syntax error")
			}
			return renderer, nil
		},
	})
	startCoordinator(t, coord)

	server.emit(t, serverResult())
	if coord.Ready() {
		t.Fatal("gate opened without template")
	}
	client.emit(t, clientResult(shell))
	if !coord.Ready() {
		t.Fatal("gate should open once template and renderer exist")
	}

	server.emit(t, bundle.Result{Compiler: "server", Files: []bundle.File{{Path: ServerBundleFile, Contents: []byte("broken")}}})
	if coord.Renderer() != Renderer(renderer) {
		t.Error("unloadable bundle should keep the previous renderer")
	}
	if len(loaded) != 2 {
		t.Errorf("loader calls = %v", loaded)
	}

	tmpl, r := coord.Snapshot()
	if tmpl == nil || r == nil {
		t.Error("Snapshot() should return both artifacts")
	}
}

func TestCoordinator_RunReturnsWatchError(t *testing.T) {
	client := newFakeCompiler()
	server := &fakeCompiler{err: errors.New("watch failed")}
	coord := NewSSRCoordinator(client, server, CoordinatorOptions{})

	if err := coord.Run(context.Background()); err == nil || err.Error() != "watch failed" {
		t.Errorf("Run() = %v", err)
	}
}

func TestCoordinator_Metrics(t *testing.T) {
	m := NewMetrics()
	client := newFakeCompiler()
	coord := NewSPACoordinator(client, CoordinatorOptions{Metrics: m})
	startCoordinator(t, coord)

	client.emit(t, clientResult(shell))
	client.emit(t, failedResult("client"))

	if got := testutil.ToFloat64(m.buildsTotal.WithLabelValues("client", "success")); got != 1 {
		t.Errorf("success builds = %v", got)
	}
	if got := testutil.ToFloat64(m.buildsTotal.WithLabelValues("client", "failure")); got != 1 {
		t.Errorf("failed builds = %v", got)
	}
}

func ssrSource(r *fakeRenderer) *fakeSource {
	return &fakeSource{tmpl: render.Parse(shell), renderer: r}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_SSR(t *testing.T) {
	meta := &render.Meta{HTMLAttr: `lang="en"`, Head: "<meta name=x>", BodyAttr: `class="dark"`, Body: "<script>s</script>"}
	h := NewHandlers(ssrSource(&fakeRenderer{meta: meta}), HandlerOptions{SSR: true})

	rec := get(t, h, "/about?x=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`<html lang="en">`,
		`<head><meta name=x><title>`,
		`<body class="dark">`,
		`<div id="app"><p>/about?x=1</p></div>`,
		"<script>s</script></body>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestHandlers_SSR_NotFoundRoute(t *testing.T) {
	h := NewHandlers(ssrSource(&fakeRenderer{route: NotFoundRoute}), HandlerOptions{SSR: true})

	rec := get(t, h, "/nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<p>/nope</p>") {
		t.Errorf("404 page should still be rendered: %s", rec.Body.String())
	}
}

func TestHandlers_SSR_Failures(t *testing.T) {
	tests := map[string]*fakeSource{
		"render":    ssrSource(&fakeRenderer{err: errors.New("boom")}),
		"serialize": ssrSource(&fakeRenderer{renderErr: errors.New("boom")}),
		"no bundle": {tmpl: render.Parse(shell)},
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			rec := get(t, NewHandlers(src, HandlerOptions{SSR: true}), "/")
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d", rec.Code)
			}
			if rec.Body.String() != InternalErrorBody {
				t.Errorf("body = %q", rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestHandlers_ServesCompiledAssets(t *testing.T) {
	src := &fakeSource{
		tmpl:   render.Parse(shell),
		assets: map[string][]byte{"main.js": []byte("console.log(1)")},
	}
	h := NewHandlers(src, HandlerOptions{})

	rec := get(t, h, "/main.js")
	if rec.Code != http.StatusOK || rec.Body.String() != "console.log(1)" {
		t.Errorf("asset = %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "javascript") {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = get(t, h, "/some/route")
	if rec.Body.String() != shell {
		t.Error("unknown paths should get the SPA shell")
	}
}

func TestHandlers_AssetsBelowPublicPath(t *testing.T) {
	src := &fakeSource{
		tmpl:   render.Parse(shell),
		assets: map[string][]byte{"main.js": []byte("console.log(1)")},
	}
	h := NewHandlers(src, HandlerOptions{PublicPath: "/app"})
	if h.PublicPath() != "/app/" {
		t.Errorf("PublicPath() = %q", h.PublicPath())
	}

	rec := get(t, h, "/app/main.js")
	if rec.Body.String() != "console.log(1)" {
		t.Errorf("asset body = %q", rec.Body.String())
	}
	if rec := get(t, h, "/main.js"); rec.Body.String() != shell {
		t.Error("assets outside the public path should not be served")
	}
}

func TestHandlers_ContextEndsWhileWaiting(t *testing.T) {
	h := NewHandlers(&fakeSource{gate: NewGate()}, HandlerOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandlers_RenderSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer tp.Shutdown(context.Background())

	m := NewMetrics()
	h := NewHandlers(ssrSource(&fakeRenderer{route: NotFoundRoute}), HandlerOptions{
		SSR:     true,
		Metrics: m,
		Tracer:  tp.Tracer("test"),
	})
	get(t, h, "/gone")

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "alvori.render" {
		t.Errorf("span name = %q", span.Name())
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs["http.url"].AsString() != "/gone" {
		t.Errorf("http.url = %v", attrs["http.url"])
	}
	if attrs["alvori.route"].AsString() != "404" {
		t.Errorf("alvori.route = %v", attrs["alvori.route"])
	}
	if attrs["http.status_code"].AsInt64() != 404 {
		t.Errorf("http.status_code = %v", attrs["http.status_code"])
	}

	if got := testutil.ToFloat64(m.rendersTotal.WithLabelValues("404")); got != 1 {
		t.Errorf("renders_total{status=404} = %v", got)
	}
}

func TestHandlers_ConcurrentRequests(t *testing.T) {
	h := NewHandlers(ssrSource(&fakeRenderer{}), HandlerOptions{SSR: true})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rec := get(t, h, "/x"); rec.Code != http.StatusOK {
				t.Errorf("status = %d", rec.Code)
			}
		}()
	}
	wg.Wait()
}

func TestStaticRelPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"logo.png", "logo.png", true},
		{"img/logo.png", "img/logo.png", true},
		{"", "", false},
		{"../secret", "", false},
		{"img/../../secret", "", false},
		{"./logo.png", "", false},
		{"/etc/passwd", "", false},
		{"img\\logo.png", "", false},
		{"a\x00b", "", false},
	}
	for _, tt := range tests {
		got, ok := staticRelPath(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("staticRelPath(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
