package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alvori-dev/alvori/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗┬  ┬  ┬┌─┐┬─┐┬
  ╠═╣│  └┐┌┘│ │├┬┘│
  ╩ ╩┴─┘ └┘ └─┘┴└─┴
`

func main() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		errors.DisableColors()
	}
	if err := rootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "alvori",
		Short: "Development server and build tool for JavaScript applications",
		Long: `Alvori bundles, serves and builds single-page and server-rendered
JavaScript applications.

  • In-memory bundling with esbuild
  • SPA or SSR development server with live reload
  • Boot entries and PWA service worker handling
  • Production builds with an asset manifest
  • Publishing to S3`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		devCmd(),
		buildCmd(),
		versionCmd(),
	)
	return root
}

// printBanner prints the Alvori ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
