package dev

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alvori-dev/alvori/pkg/entry"
	"github.com/alvori-dev/alvori/pkg/render"
)

// Response bodies of the page handlers.
const (
	InternalErrorBody = "500 | Internal Server Error"
	UnavailableBody   = "503 | Service Unavailable"
)

// NotFoundRoute is the route name that turns a render into a 404.
const NotFoundRoute = "404"

const tracerName = "github.com/alvori-dev/alvori/internal/dev"

// errNoRenderer is reported when a page is requested without a loaded
// server bundle.
var errNoRenderer = errors.New("dev: no server renderer loaded")

// Source provides the artifacts the handlers serve.
type Source interface {
	Wait(ctx context.Context) error
	Snapshot() (*render.Template, Renderer)
	Asset(path string) ([]byte, bool)
}

// HandlerOptions configures Handlers.
type HandlerOptions struct {
	// SSR selects server rendering for pages.
	SSR bool

	// PublicPath is the URL prefix of compiled assets. Defaults to "/".
	PublicPath string

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics may be nil.
	Metrics *Metrics

	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer
}

// Handlers serves compiled assets and pages.
type Handlers struct {
	src        Source
	ssr        bool
	publicPath string
	log        *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

// NewHandlers creates the page and asset handlers.
func NewHandlers(src Source, opts HandlerOptions) *Handlers {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Handlers{
		src:        src,
		ssr:        opts.SSR,
		publicPath: normalizePublicPath(opts.PublicPath),
		log:        log.With("component", "handlers"),
		metrics:    opts.Metrics,
		tracer:     tracer,
	}
}

// ServeHTTP serves a compiled asset when one matches the path, and the
// page otherwise. Requests wait for the first successful build.
func (h *Handlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.wait(w, r) {
		return
	}
	if h.serveAsset(w, r) {
		return
	}
	if h.ssr {
		h.serveSSR(w, r)
	} else {
		h.serveSPA(w, r)
	}
}

// Page serves the page without the asset lookup.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	if !h.wait(w, r) {
		return
	}
	if h.ssr {
		h.serveSSR(w, r)
	} else {
		h.serveSPA(w, r)
	}
}

func (h *Handlers) wait(w http.ResponseWriter, r *http.Request) bool {
	start := time.Now()
	err := h.src.Wait(r.Context())
	h.metrics.observeGateWait(time.Since(start))
	if err != nil {
		h.log.Debug("request abandoned before first build", "url", r.RequestURI, "error", err)
		writeText(w, http.StatusServiceUnavailable, UnavailableBody)
		h.metrics.observeResponse(http.StatusServiceUnavailable)
		return false
	}
	return true
}

// PublicPath returns the URL prefix the handlers are mounted at.
func (h *Handlers) PublicPath() string {
	return h.publicPath
}

// serveAsset looks the path up relative to the public path, the way the
// bundler names its output.
func (h *Handlers) serveAsset(w http.ResponseWriter, r *http.Request) bool {
	name, ok := strings.CutPrefix(r.URL.Path, h.publicPath)
	if !ok || name == "" {
		return false
	}
	data, ok := h.src.Asset(name)
	if !ok {
		return false
	}
	noStore(w)
	w.Header().Set("Content-Type", contentType(name))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
	return true
}

func (h *Handlers) serveSPA(w http.ResponseWriter, r *http.Request) {
	tmpl, _ := h.src.Snapshot()
	if tmpl == nil {
		h.fail(w, r, errors.New("dev: no template loaded"))
		return
	}
	noStore(w)
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, tmpl.Source())
	h.metrics.observeResponse(http.StatusOK)
}

func (h *Handlers) serveSSR(w http.ResponseWriter, r *http.Request) {
	url := r.RequestURI
	ctx, span := h.tracer.Start(r.Context(), "alvori.render",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.url", url)),
	)
	defer span.End()

	start := time.Now()
	status, body, route, err := h.render(ctx, url)
	h.metrics.observeRender(time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Int("http.status_code", http.StatusInternalServerError))
		h.fail(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("alvori.route", route),
		attribute.Int("http.status_code", status),
	)
	span.SetStatus(codes.Ok, "")

	noStore(w)
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	io.WriteString(w, body)
	h.metrics.observeResponse(status)
}

// render produces the status, page body and route name for url.
func (h *Handlers) render(ctx context.Context, url string) (status int, body, route string, err error) {
	tmpl, renderer := h.src.Snapshot()
	if renderer == nil || tmpl == nil {
		return 0, "", "", errNoRenderer
	}

	inst, err := renderer.Render(ctx, entry.RenderContext{URL: url})
	if err != nil {
		return 0, "", "", err
	}
	html, err := inst.App.RenderToString(ctx)
	if err != nil {
		return 0, "", "", err
	}

	route = inst.RouteName()
	status = http.StatusOK
	if route == NotFoundRoute {
		status = http.StatusNotFound
	}

	values := render.Values{render.SlotApp: html}.WithMeta(inst.MetaData())
	return status, tmpl.Render(values), route, nil
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("render failed", "url", r.RequestURI, "error", err)
	writeText(w, http.StatusInternalServerError, InternalErrorBody)
	h.metrics.observeResponse(http.StatusInternalServerError)
}

func normalizePublicPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
