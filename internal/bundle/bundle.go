package bundle

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/alvori-dev/alvori/internal/errors"
)

// Platform selects the esbuild platform.
type Platform string

const (
	PlatformBrowser Platform = "browser"
	PlatformNeutral Platform = "neutral"
)

// Format selects the output module format.
type Format string

const (
	FormatIIFE Format = "iife"
	FormatESM  Format = "esm"
)

// DefaultTemplateName is the output path of the generated HTML shell.
const DefaultTemplateName = "index.html"

// Options configures a Compiler.
type Options struct {
	// Name identifies the compiler in logs and metrics.
	Name string

	// EntryPoints are the source entry files.
	EntryPoints []string

	// Outdir is the output directory. Output file paths are relative to it.
	Outdir string

	// EntryNames is the esbuild output name pattern, e.g. "[name]-[hash]".
	EntryNames string

	// PublicPath prefixes asset URLs and injected tags.
	PublicPath string

	// WorkingDir resolves relative paths. Defaults to the process directory.
	WorkingDir string

	// Platform defaults to PlatformBrowser.
	Platform Platform

	// Format defaults to FormatIIFE.
	Format Format

	// GlobalName is the IIFE global the bundle exports are assigned to.
	GlobalName string

	// Define substitutes global identifiers with constant expressions.
	Define map[string]string

	// Banner is prepended to every emitted JavaScript file.
	Banner string

	// Minify enables whitespace, identifier and syntax minification.
	Minify bool

	// Sourcemap emits linked source maps.
	Sourcemap bool

	// Template is the path of the HTML shell template.
	Template string

	// TemplateName is the output path of the generated shell.
	TemplateName string
}

// Message is a build error or warning.
type Message struct {
	Text   string
	File   string
	Line   int
	Column int
}

// String formats the message as "file:line:col: text", with 1-based
// lines and columns.
func (m Message) String() string {
	if m.File == "" {
		return m.Text
	}
	var b strings.Builder
	b.WriteString(m.File)
	if m.Line > 0 {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(m.Line))
		b.WriteString(":")
		b.WriteString(strconv.Itoa(m.Column))
	}
	b.WriteString(": ")
	b.WriteString(m.Text)
	return b.String()
}

// File is one emitted output file.
type File struct {
	// Path is relative to the output directory, in slash form.
	Path     string
	Contents []byte
}

// Result is the outcome of one build.
type Result struct {
	// Compiler is the name of the compiler that produced the result.
	Compiler string

	// WorkingDir is the directory message file names are relative to.
	WorkingDir string

	Errors   []Message
	Warnings []Message
	Files    []File
	Duration time.Duration
}

// OK reports a build without errors.
func (r Result) OK() bool {
	return len(r.Errors) == 0
}

// File returns the emitted file at path.
func (r Result) File(path string) (File, bool) {
	for _, f := range r.Files {
		if f.Path == path {
			return f, true
		}
	}
	return File{}, false
}

// Compiler is an esbuild build context with in-memory output.
type Compiler struct {
	opts   Options
	outdir string
	ctx    api.BuildContext

	mu     sync.Mutex
	onDone func(Result)
	start  time.Time
	last   Result
}

// New creates a compiler. Invalid options are reported as E120.
func New(opts Options) (*Compiler, error) {
	if opts.Platform == "" {
		opts.Platform = PlatformBrowser
	}
	if opts.Format == "" {
		opts.Format = FormatIIFE
	}
	if opts.TemplateName == "" {
		opts.TemplateName = DefaultTemplateName
	}
	if opts.WorkingDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.New("E120").WithDetail(opts.Name).Wrap(err)
		}
		opts.WorkingDir = wd
	}
	if len(opts.EntryPoints) == 0 {
		return nil, errors.New("E120").WithDetail(opts.Name + ": no entry points")
	}

	outdir := opts.Outdir
	if !filepath.IsAbs(outdir) {
		outdir = filepath.Join(opts.WorkingDir, outdir)
	}

	c := &Compiler{opts: opts, outdir: outdir}

	ctx, cerr := api.Context(c.buildOptions())
	if cerr != nil {
		msgs := convertMessages(cerr.Errors)
		detail := opts.Name
		if len(msgs) > 0 {
			detail += ": " + msgs[0].String()
		}
		return nil, errors.New("E120").WithDetail(detail)
	}
	c.ctx = ctx
	return c, nil
}

// Name returns the compiler name.
func (c *Compiler) Name() string {
	return c.opts.Name
}

func (c *Compiler) buildOptions() api.BuildOptions {
	o := api.BuildOptions{
		EntryPoints:       c.opts.EntryPoints,
		Bundle:            true,
		Write:             false,
		Outdir:            c.outdir,
		EntryNames:        c.opts.EntryNames,
		PublicPath:        c.opts.PublicPath,
		AbsWorkingDir:     c.opts.WorkingDir,
		GlobalName:        c.opts.GlobalName,
		Define:            c.opts.Define,
		MinifyWhitespace:  c.opts.Minify,
		MinifyIdentifiers: c.opts.Minify,
		MinifySyntax:      c.opts.Minify,
		LogLevel:          api.LogLevelSilent,
		Loader: map[string]api.Loader{
			".png":   api.LoaderFile,
			".jpg":   api.LoaderFile,
			".svg":   api.LoaderFile,
			".woff":  api.LoaderFile,
			".woff2": api.LoaderFile,
		},
		Plugins: []api.Plugin{{
			Name:  "alvori-on-end",
			Setup: c.setup,
		}},
	}

	switch c.opts.Platform {
	case PlatformNeutral:
		o.Platform = api.PlatformNeutral
		o.MainFields = []string{"module", "main"}
	default:
		o.Platform = api.PlatformBrowser
	}

	switch c.opts.Format {
	case FormatESM:
		o.Format = api.FormatESModule
	default:
		o.Format = api.FormatIIFE
	}

	if c.opts.Banner != "" {
		o.Banner = map[string]string{"js": c.opts.Banner}
	}
	if c.opts.Sourcemap {
		o.Sourcemap = api.SourceMapLinked
	}

	return o
}

func (c *Compiler) setup(build api.PluginBuild) {
	build.OnStart(func() (api.OnStartResult, error) {
		c.mu.Lock()
		c.start = time.Now()
		c.mu.Unlock()
		return api.OnStartResult{}, nil
	})
	build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
		res := c.convert(result)

		c.mu.Lock()
		res.Duration = time.Since(c.start)
		c.last = res
		onDone := c.onDone
		c.mu.Unlock()

		if onDone != nil {
			onDone(res)
		}
		return api.OnEndResult{}, nil
	})
}

func (c *Compiler) convert(result *api.BuildResult) Result {
	res := Result{
		Compiler:   c.opts.Name,
		WorkingDir: c.opts.WorkingDir,
		Errors:     convertMessages(result.Errors),
		Warnings:   convertMessages(result.Warnings),
	}

	for _, of := range result.OutputFiles {
		rel, err := filepath.Rel(c.outdir, of.Path)
		if err != nil {
			rel = filepath.Base(of.Path)
		}
		res.Files = append(res.Files, File{
			Path:     filepath.ToSlash(rel),
			Contents: of.Contents,
		})
	}

	if res.OK() && c.opts.Template != "" {
		shell, err := c.shell(res.Files)
		if err != nil {
			res.Errors = append(res.Errors, Message{Text: err.Error(), File: c.opts.Template})
		} else {
			res.Files = append(res.Files, File{Path: c.opts.TemplateName, Contents: []byte(shell)})
		}
	}

	return res
}

func (c *Compiler) shell(files []File) (string, error) {
	path := c.opts.Template
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.opts.WorkingDir, path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Shell(string(src), c.opts.PublicPath, files), nil
}

// Watch rebuilds on every source change and calls onDone after each
// build, starting with the initial one. It blocks until ctx is done.
func (c *Compiler) Watch(ctx context.Context, onDone func(Result)) error {
	c.mu.Lock()
	c.onDone = onDone
	c.mu.Unlock()

	if err := c.ctx.Watch(api.WatchOptions{}); err != nil {
		return errors.New("E120").WithDetail(c.opts.Name).Wrap(err)
	}

	<-ctx.Done()
	return nil
}

// Rebuild runs a build now and returns its result. In watch mode the
// result is also delivered to the watch callback.
func (c *Compiler) Rebuild() Result {
	c.ctx.Rebuild()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Build runs a single build, cancelled with ctx.
func (c *Compiler) Build(ctx context.Context) Result {
	stop := context.AfterFunc(ctx, c.ctx.Cancel)
	defer stop()

	res := c.Rebuild()
	if err := ctx.Err(); err != nil && res.OK() {
		res.Errors = append(res.Errors, Message{Text: err.Error()})
	}
	return res
}

// Close releases the build context and stops watching.
func (c *Compiler) Close() {
	c.ctx.Dispose()
}

// Err converts a failed result into an E121 error, or returns nil. The
// error points at the source of the first message.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	first := r.Errors[0]
	detail := first.String()
	if n := len(r.Errors); n > 1 {
		detail += " (and " + strconv.Itoa(n-1) + " more)"
	}
	err := errors.New("E121").WithDetail(r.Compiler + ": " + detail)
	if first.File != "" {
		file := first.File
		if !filepath.IsAbs(file) && r.WorkingDir != "" {
			file = filepath.Join(r.WorkingDir, file)
		}
		err.WithLocation(file, first.Line, first.Column)
	}
	return err
}

func convertMessages(msgs []api.Message) []Message {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		msg := Message{Text: m.Text}
		if m.Location != nil {
			msg.File = m.Location.File
			msg.Line = m.Location.Line
			// esbuild columns are 0-based
			msg.Column = m.Location.Column + 1
		}
		out = append(out, msg)
	}
	return out
}

// sortedPaths returns the paths of files with ext, sorted.
func sortedPaths(files []File, ext string) []string {
	var paths []string
	for _, f := range files {
		if strings.HasSuffix(f.Path, ext) {
			paths = append(paths, f.Path)
		}
	}
	sort.Strings(paths)
	return paths
}
