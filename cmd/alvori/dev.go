package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alvori-dev/alvori/internal/config"
	"github.com/alvori-dev/alvori/internal/dev"
)

func devCmd() *cobra.Command {
	var (
		port    int
		mode    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Start the development server with live reload.

The client (and, in ssr mode, the server) bundle is rebuilt in memory
on every change; connected browsers reload after each successful build.

Environment:
  BUILD_MODE   spa (default) or ssr
  PORT         port to listen on (default 3000)
  MODE         value of process.env.MODE (default development)
  PWA          enables service worker registration in production

Examples:
  alvori dev
  alvori dev --port=8080
  BUILD_MODE=ssr alvori dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDev(cmd.Context(), port, mode, verbose)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from PORT or alvori.json)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Build mode: spa or ssr (default from BUILD_MODE)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	return cmd
}

func runDev(ctx context.Context, port int, mode string, verbose bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Flags override the environment
	if port > 0 {
		cfg.Dev.Port = port
	}
	if mode != "" {
		cfg.Mode = config.BuildMode(mode)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	printBanner()
	fmt.Printf("  dev (%s)\n", cfg.Mode)
	fmt.Println()
	if !cfg.HotReload() {
		warn("Live reload is disabled")
	}

	server, err := dev.NewServer(dev.ServerOptions{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	ctx, stop := cancelOnSignal(ctx, sig, os.Stdout)
	defer stop()

	return server.Start(ctx)
}

// cancelOnSignal returns a context canceled when a value arrives on sig.
// The shutdown notice is only written for a received signal, so a server
// that fails to start exits without it.
func cancelOnSignal(parent context.Context, sig <-chan os.Signal, out io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-sig:
			fmt.Fprint(out, "\n\n  Shutting down...\n")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// loadConfig loads alvori.json and applies environment overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}
