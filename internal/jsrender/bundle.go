package jsrender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dop251/goja"

	"github.com/alvori-dev/alvori/internal/bundle"
	alvorierrors "github.com/alvori-dev/alvori/internal/errors"
	"github.com/alvori-dev/alvori/pkg/entry"
	"github.com/alvori-dev/alvori/pkg/render"
)

// GlobalName is the global the server bundle assigns its exports to.
const GlobalName = bundle.ServerGlobalName

// ErrPending is returned when a promise is still pending after the job
// queue has drained.
var ErrPending = errors.New("jsrender: promise did not settle")

// Options configures a Bundle.
type Options struct {
	// Logger receives console output of the bundle. Defaults to slog.Default().
	Logger *slog.Logger
}

// Bundle is a compiled server bundle.
type Bundle struct {
	name string
	prog *goja.Program
	log  *slog.Logger
}

// Load compiles src. The bundle is executed once to check its exports.
func Load(name string, src []byte, opts Options) (*Bundle, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	prog, err := goja.Compile(name, string(src), false)
	if err != nil {
		return nil, alvorierrors.New("E122").WithDetail(name).Wrap(err)
	}

	b := &Bundle{name: name, prog: prog, log: log.With("component", "jsrender", "bundle", name)}
	if _, err := b.start(context.Background()); err != nil {
		return nil, alvorierrors.New("E122").WithDetail(name).Wrap(err)
	}
	return b, nil
}

// Loader returns a function loading bundles with opts.
func Loader(opts Options) func(src []byte) (*Bundle, error) {
	return func(src []byte) (*Bundle, error) {
		return Load(bundle.ServerBundleFile, src, opts)
	}
}

// runtime is one execution of the bundle program.
type runtime struct {
	vm             *goja.Runtime
	create         goja.Callable
	renderToString goja.Callable
}

func (b *Bundle) start(ctx context.Context) (*runtime, error) {
	vm := goja.New()
	installConsole(vm, b.log)

	if err := guard(ctx, vm, func() error {
		_, err := vm.RunProgram(b.prog)
		return err
	}); err != nil {
		return nil, err
	}

	exports := vm.Get(GlobalName)
	if exports == nil || goja.IsUndefined(exports) || goja.IsNull(exports) {
		return nil, fmt.Errorf("global %s is not defined", GlobalName)
	}
	obj := exports.ToObject(vm)

	create, ok := goja.AssertFunction(obj.Get("default"))
	if !ok {
		return nil, fmt.Errorf("%s.default is not a function", GlobalName)
	}
	rts, ok := goja.AssertFunction(obj.Get("renderToString"))
	if !ok {
		return nil, fmt.Errorf("%s.renderToString is not a function", GlobalName)
	}
	return &runtime{vm: vm, create: create, renderToString: rts}, nil
}

// Render runs the bundle's default export for rc in a fresh runtime.
func (b *Bundle) Render(ctx context.Context, rc entry.RenderContext) (*entry.Instance, error) {
	rt, err := b.start(ctx)
	if err != nil {
		return nil, alvorierrors.New("E130").WithDetail(rc.URL).Wrap(err)
	}

	arg := rt.vm.NewObject()
	arg.Set("url", rc.URL)
	for k, v := range rc.Extra {
		arg.Set(k, v)
	}

	res, err := rt.call(ctx, rt.create, goja.Undefined(), arg)
	if err != nil {
		return nil, alvorierrors.New("E130").WithDetail(rc.URL).Wrap(err)
	}
	if res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return nil, alvorierrors.New("E130").WithDetail(rc.URL + ": default export returned nothing")
	}

	obj := res.ToObject(rt.vm)
	inst := &entry.Instance{
		App:     &jsApp{rt: rt, value: obj.Get("app")},
		Router:  &jsRouter{vm: rt.vm, value: obj.Get("router")},
		Context: augmented(arg, rc),
	}
	if meta := obj.Get("meta"); meta != nil && !goja.IsUndefined(meta) && !goja.IsNull(meta) {
		inst.Meta = &jsMeta{vm: rt.vm, value: meta}
	}
	return inst, nil
}

// augmented reads the context object back after the bundle ran: the
// application may have replaced the url or attached fields.
func augmented(arg *goja.Object, rc entry.RenderContext) *entry.RenderContext {
	out := &entry.RenderContext{URL: rc.URL}
	for _, k := range arg.Keys() {
		v := arg.Get(k)
		if k == "url" {
			out.URL = v.String()
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]any)
		}
		out.Extra[k] = v.Export()
	}
	return out
}

// call invokes fn and settles its result.
func (rt *runtime) call(ctx context.Context, fn goja.Callable, this goja.Value, args ...goja.Value) (goja.Value, error) {
	var res goja.Value
	err := guard(ctx, rt.vm, func() error {
		var err error
		res, err = fn(this, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return settle(res)
}

// guard runs fn, interrupting the runtime when ctx ends.
func guard(ctx context.Context, vm *goja.Runtime, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer func() {
		if !stop() {
			vm.ClearInterrupt()
		}
	}()

	err := fn()
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
	}
	return err
}

// settle unwraps a promise. The job queue has already run when a call
// from Go returns, so a pending promise never settles.
func settle(v goja.Value) (goja.Value, error) {
	if v == nil {
		return v, nil
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return p.Result(), nil
	case goja.PromiseStateRejected:
		return nil, rejection(p.Result())
	default:
		return nil, ErrPending
	}
}

func rejection(v goja.Value) error {
	if v == nil || goja.IsUndefined(v) {
		return errors.New("promise rejected")
	}
	if obj, ok := v.(*goja.Object); ok {
		if stack := obj.Get("stack"); stack != nil && !goja.IsUndefined(stack) {
			return errors.New(stack.String())
		}
	}
	return errors.New(v.String())
}

type jsApp struct {
	rt    *runtime
	value goja.Value
}

// Use installs a Go plugin on the bundle application.
func (a *jsApp) Use(p entry.Plugin) {
	p.Install(a)
}

func (a *jsApp) RenderToString(ctx context.Context) (string, error) {
	res, err := a.rt.call(ctx, a.rt.renderToString, goja.Undefined(), a.value)
	if err != nil {
		return "", alvorierrors.New("E130").Wrap(err)
	}
	if res == nil || goja.IsUndefined(res) {
		return "", nil
	}
	return res.String(), nil
}

type jsRouter struct {
	vm    *goja.Runtime
	value goja.Value
}

func (r *jsRouter) Install(entry.App) {}

// Resolve is a no-op: the bundle navigates before its default export
// settles.
func (r *jsRouter) Resolve(context.Context, string) error { return nil }

// CurrentRouteName reads currentRoute.value.name, falling back to the
// unwrapped _value of the ref.
func (r *jsRouter) CurrentRouteName() string {
	route := get(r.vm, r.value, "currentRoute")
	if route == nil {
		return ""
	}
	current := get(r.vm, route, "value")
	if current == nil {
		current = get(r.vm, route, "_value")
	}
	if name := get(r.vm, current, "name"); name != nil {
		return name.String()
	}
	return ""
}

type jsMeta struct {
	vm    *goja.Runtime
	value goja.Value
}

func (m *jsMeta) Install(entry.App) {}

func (m *jsMeta) Data() *render.Meta {
	data := get(m.vm, m.value, "data")
	if data == nil {
		return nil
	}
	str := func(key string) string {
		if v := get(m.vm, data, key); v != nil {
			return v.String()
		}
		return ""
	}
	return &render.Meta{
		HTMLAttr: str("htmlAttr"),
		Head:     str("head"),
		BodyAttr: str("bodyAttr"),
		Body:     str("body"),
	}
}

// get returns v[key], or nil when v or the property is undefined or null.
func get(vm *goja.Runtime, v goja.Value, key string) goja.Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	prop := v.ToObject(vm).Get(key)
	if prop == nil || goja.IsUndefined(prop) || goja.IsNull(prop) {
		return nil
	}
	return prop
}

func installConsole(vm *goja.Runtime, log *slog.Logger) {
	console := vm.NewObject()
	bind := func(level slog.Level) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			log.Log(context.Background(), level, strings.Join(parts, " "))
			return goja.Undefined()
		}
	}
	console.Set("log", bind(slog.LevelInfo))
	console.Set("info", bind(slog.LevelInfo))
	console.Set("debug", bind(slog.LevelDebug))
	console.Set("warn", bind(slog.LevelWarn))
	console.Set("error", bind(slog.LevelError))
	vm.Set("console", console)
}
