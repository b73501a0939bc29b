package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alvori-dev/alvori/internal/bundle"
	"github.com/alvori-dev/alvori/internal/config"
	"github.com/alvori-dev/alvori/internal/errors"
)

// ManifestFile is the name of the asset manifest in the output directory.
const ManifestFile = "asset-manifest.json"

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Output is the output directory.
	Output string

	// Manifest maps output paths to content hashes.
	Manifest map[string]string

	// ClientSize is the size of the emitted JavaScript in bytes.
	ClientSize int64

	// CSSSize is the size of the emitted CSS in bytes.
	CSSSize int64

	// ServerSize is the size of the server bundle in bytes (ssr mode).
	ServerSize int64

	// Warnings are the bundler warnings of all compilers.
	Warnings []bundle.Message
}

// Options configures the builder.
type Options struct {
	// Minify enables minification.
	Minify bool

	// SourceMaps enables source map generation.
	SourceMaps bool

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder handles production builds.
type Builder struct {
	config  *config.Config
	options Options
}

// New creates a new builder. The build runs with MODE=production unless
// MODE was set in the environment.
func New(cfg *config.Config, options Options) *Builder {
	cfg = cfg.ForProduction()

	// Apply config defaults to options
	if !options.Minify && cfg.Build.Minify {
		options.Minify = true
	}
	if !options.SourceMaps && cfg.Build.SourceMaps {
		options.SourceMaps = true
	}

	return &Builder{
		config:  cfg,
		options: options,
	}
}

// Build performs a production build.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	start := time.Now()
	outputDir := b.config.OutputDir()
	result := &Result{
		Output:   outputDir,
		Manifest: make(map[string]string),
	}

	// Clean output directory
	b.progress("Cleaning output directory...")
	if err := os.RemoveAll(outputDir); err != nil {
		return nil, errors.New("E121").WithDetail("cleaning " + outputDir).Wrap(err)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.New("E121").WithDetail("creating " + outputDir).Wrap(err)
	}

	b.progress("Bundling client...")
	clientOpts := bundle.ClientOptions(b.config, false)
	clientOpts.Minify = b.options.Minify
	clientOpts.Sourcemap = b.options.SourceMaps
	files, err := b.compile(ctx, clientOpts, result)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		switch {
		case strings.HasSuffix(f.Path, ".js"):
			result.ClientSize += int64(len(f.Contents))
		case strings.HasSuffix(f.Path, ".css"):
			result.CSSSize += int64(len(f.Contents))
		}
	}
	if err := writeFiles(outputDir, files, result.Manifest); err != nil {
		return nil, err
	}

	if b.config.IsSSR() {
		b.progress("Bundling server...")
		serverOpts := bundle.ServerOptions(b.config, false)
		serverOpts.Minify = b.options.Minify
		files, err := b.compile(ctx, serverOpts, result)
		if err != nil {
			return nil, err
		}
		if f, ok := (bundle.Result{Files: files}).File(bundle.ServerBundleFile); ok {
			result.ServerSize = int64(len(f.Contents))
		}
		if err := writeFiles(outputDir, files, result.Manifest); err != nil {
			return nil, err
		}
	}

	// Copy static assets
	b.progress("Copying static assets...")
	if err := b.copyDir(b.config.PublicDir(), outputDir, result.Manifest); err != nil {
		return nil, err
	}
	if err := b.copyDir(b.config.AssetsDir(), filepath.Join(outputDir, "assets"), result.Manifest); err != nil {
		return nil, err
	}

	// Write manifest
	b.progress("Writing manifest...")
	if err := b.writeManifest(outputDir, result.Manifest); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

// compile runs a one-shot build of opts.
func (b *Builder) compile(ctx context.Context, opts bundle.Options, result *Result) ([]bundle.File, error) {
	c, err := bundle.New(opts)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	res := c.Build(ctx)
	result.Warnings = append(result.Warnings, res.Warnings...)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Files, nil
}

// writeFiles writes bundler output below dir and records content hashes.
func writeFiles(dir string, files []bundle.File, manifest map[string]string) error {
	for _, f := range files {
		dest := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return errors.New("E121").Wrap(err)
		}
		if err := os.WriteFile(dest, f.Contents, 0644); err != nil {
			return errors.New("E121").Wrap(err)
		}
		manifest[f.Path] = hashBytes(f.Contents)
	}
	return nil
}

// copyDir copies the files of srcDir to destDir. The HTML template is
// skipped: the build emits its own shell.
func (b *Builder) copyDir(srcDir, destDir string, manifest map[string]string) error {
	if _, err := os.Stat(srcDir); os.IsNotExist(err) {
		return nil
	}
	outputDir := b.config.OutputDir()
	template := filepath.Clean(b.config.TemplatePath())

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Clean(path) == template {
			return nil
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(destDir, relPath)

		// Ensure destination directory exists
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return errors.New("E121").Wrap(err)
		}
		if err := copyFile(path, destPath); err != nil {
			return errors.New("E121").WithDetail("copying " + relPath).Wrap(err)
		}

		hash, err := hashFile(destPath)
		if err != nil {
			return err
		}
		key, _ := filepath.Rel(outputDir, destPath)
		manifest[filepath.ToSlash(key)] = hash
		return nil
	})
}

// writeManifest writes the asset manifest.
func (b *Builder) writeManifest(outputDir string, manifest map[string]string) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(outputDir, ManifestFile)
	return os.WriteFile(manifestPath, data, 0644)
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

// hashFile returns the short SHA256 hash of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil))[:16], nil
}

// copyFile copies a file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.config.OutputDir())
}
