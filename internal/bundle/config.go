package bundle

import "github.com/alvori-dev/alvori/internal/config"

// Server bundle naming shared with the renderer.
const (
	ServerGlobalName = "__alvori_server"
	ServerBundleName = "server-bundle"
	ServerBundleFile = ServerBundleName + ".js"
)

// ClientOptions returns the client compiler options for cfg. Dev builds
// keep stable file names and emit source maps; production builds hash
// names and follow the build section of the config.
func ClientOptions(cfg *config.Config, dev bool) Options {
	o := Options{
		Name:        "client",
		EntryPoints: []string{cfg.Paths.ClientEntry},
		WorkingDir:  cfg.Dir(),
		PublicPath:  cfg.Dev.PublicPath,
		Platform:    PlatformBrowser,
		Format:      FormatIIFE,
		Define:      cfg.Defines(),
		Template:    cfg.TemplatePath(),
	}
	if dev {
		o.Outdir = cfg.DevOutputDir()
		o.EntryNames = "[name]"
		o.Sourcemap = true
	} else {
		o.Outdir = cfg.OutputDir()
		o.EntryNames = "[name]-[hash]"
		o.Minify = cfg.Build.Minify
		o.Sourcemap = cfg.Build.SourceMaps
	}
	return o
}

// ServerOptions returns the server compiler options for cfg.
func ServerOptions(cfg *config.Config, dev bool) Options {
	o := Options{
		Name:        "server",
		EntryPoints: []string{cfg.Paths.ServerEntry},
		WorkingDir:  cfg.Dir(),
		EntryNames:  ServerBundleName,
		PublicPath:  cfg.Dev.PublicPath,
		Platform:    PlatformNeutral,
		Format:      FormatIIFE,
		GlobalName:  ServerGlobalName,
		Define:      cfg.Defines(),
	}
	if dev {
		o.Outdir = cfg.DevOutputDir()
	} else {
		o.Outdir = cfg.OutputDir()
		o.Minify = cfg.Build.Minify
	}
	return o
}
