package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alvori-dev/alvori/internal/build"
	"github.com/alvori-dev/alvori/internal/config"
	"github.com/alvori-dev/alvori/internal/publish"
)

func buildCmd() *cobra.Command {
	var (
		output     string
		mode       string
		minify     bool
		sourceMaps bool
		publishOut bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build for production",
		Long: `Build the application for production deployment.

This command:
  • Bundles and minifies the client with hashed file names
  • Bundles the server renderer (ssr mode)
  • Writes the HTML shell with script and stylesheet tags
  • Copies public files and raw assets
  • Generates the asset manifest

With --publish the output is uploaded to the S3 bucket configured
under "publish" in alvori.json.

Examples:
  alvori build
  alvori build --output=public_html
  BUILD_MODE=ssr alvori build --publish`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), output, mode, minify, sourceMaps, publishOut)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from alvori.json)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Build mode: spa or ssr (default from BUILD_MODE)")
	cmd.Flags().BoolVar(&minify, "minify", true, "Minify output")
	cmd.Flags().BoolVar(&sourceMaps, "sourcemaps", false, "Generate source maps")
	cmd.Flags().BoolVar(&publishOut, "publish", false, "Upload the output to S3")

	return cmd
}

func runBuild(ctx context.Context, output, mode string, minify, sourceMaps, publishOut bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Apply command-line overrides
	if output != "" {
		cfg.Build.Output = output
	}
	if mode != "" {
		cfg.Mode = config.BuildMode(mode)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Build.Minify = minify

	fmt.Printf("  Building for production (%s)...\n", cfg.Mode)
	fmt.Println()

	builder := build.New(cfg, build.Options{
		Minify:     minify,
		SourceMaps: sourceMaps,
		OnProgress: func(step string) {
			info(step)
		},
	})

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		warn("%s", w)
	}

	fmt.Println()
	success("Build complete in %s", result.Duration.Round(1000000))
	fmt.Println()
	fmt.Println("  Output:")
	fmt.Printf("    %s/\n", relOutput(cfg))
	fmt.Printf("    ├── index.html\n")
	fmt.Printf("    ├── client js       (%s)\n", formatBytes(result.ClientSize))
	if result.CSSSize > 0 {
		fmt.Printf("    ├── client css      (%s)\n", formatBytes(result.CSSSize))
	}
	if cfg.IsSSR() {
		fmt.Printf("    ├── server-bundle.js (%s)\n", formatBytes(result.ServerSize))
	}
	fmt.Printf("    ├── assets/\n")
	fmt.Printf("    └── %s\n", build.ManifestFile)
	fmt.Println()

	if !publishOut {
		return nil
	}

	info("Publishing to s3://%s/%s", cfg.Publish.Bucket, cfg.Publish.Prefix)
	client, err := publish.NewClient(ctx, cfg.Publish.Region)
	if err != nil {
		return err
	}
	uploader, err := publish.NewUploader(client, cfg.Publish, publish.Options{})
	if err != nil {
		return err
	}
	n, err := uploader.Upload(ctx, result.Output)
	if err != nil {
		errorMsg("Uploaded %d files before failing", n)
		return err
	}
	success("Published %d files", n)
	return nil
}

func relOutput(cfg *config.Config) string {
	if rel, err := filepath.Rel(cfg.Dir(), cfg.OutputDir()); err == nil {
		return rel
	}
	return cfg.OutputDir()
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
