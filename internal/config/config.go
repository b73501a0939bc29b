package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/alvori-dev/alvori/internal/errors"
	"github.com/alvori-dev/alvori/pkg/entry"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "alvori.json"

	// DefaultPort is the default development server port.
	DefaultPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default production build output directory.
	DefaultOutput = "dist"

	// DefaultDevOutput is the virtual output directory of dev builds.
	DefaultDevOutput = "dist/dev"
)

// Values of MODE.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// BuildMode selects how HTML is produced.
type BuildMode string

const (
	// ModeSPA serves a static HTML shell and renders on the client.
	ModeSPA BuildMode = "spa"

	// ModeSSR renders every request on the server.
	ModeSSR BuildMode = "ssr"
)

// Config represents the alvori.json configuration plus environment
// overrides.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Mode is the build mode (spa or ssr).
	Mode BuildMode `json:"mode,omitempty"`

	// Paths contains project paths.
	Paths PathsConfig `json:"paths,omitempty"`

	// Dev contains development server configuration.
	Dev DevConfig `json:"dev,omitempty"`

	// Build contains production build configuration.
	Build BuildConfig `json:"build,omitempty"`

	// Boot is the ordered list of boot entries.
	Boot []entry.BootEntry `json:"boot,omitempty"`

	// Publish contains S3 publishing configuration.
	Publish PublishConfig `json:"publish,omitempty"`

	// Env holds values read from the process environment. It is never
	// read from alvori.json.
	Env EnvConfig `json:"-"`

	configPath string
	dir        string
}

// PathsConfig contains project file locations, relative to the project root.
type PathsConfig struct {
	// Template is the HTML shell containing <div id="app"></div>.
	Template string `json:"template,omitempty"`

	// Public is the directory with manifest.json, favicon.ico and favicon/.
	Public string `json:"public,omitempty"`

	// Assets is the raw assets directory served under /assets.
	Assets string `json:"assets,omitempty"`

	// ClientEntry is the client bundle entry point.
	ClientEntry string `json:"clientEntry,omitempty"`

	// ServerEntry is the server bundle entry point (ssr mode).
	ServerEntry string `json:"serverEntry,omitempty"`
}

// DevConfig contains development server settings.
type DevConfig struct {
	// Port is the port to run the dev server on.
	Port int `json:"port,omitempty"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// PublicPath is the URL prefix of compiled assets and HTML routes.
	PublicPath string `json:"publicPath,omitempty"`

	// Output is the virtual output directory of dev builds.
	Output string `json:"output,omitempty"`

	// HotReload enables the live-reload socket.
	HotReload *bool `json:"hotReload,omitempty"`

	// Define contains extra compile-time constants.
	Define map[string]string `json:"define,omitempty"`
}

// BuildConfig contains production build settings.
type BuildConfig struct {
	// Output is the output directory for builds.
	Output string `json:"output,omitempty"`

	// Minify enables minification.
	Minify bool `json:"minify,omitempty"`

	// SourceMaps enables source map generation.
	SourceMaps bool `json:"sourceMaps,omitempty"`
}

// PublishConfig configures uploading a production build to S3.
type PublishConfig struct {
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	Region string `json:"region,omitempty"`
}

// EnvConfig holds the environment switches read by the bootstrap
// entry point.
type EnvConfig struct {
	// Mode is MODE: development or production.
	Mode string

	// ModeSet reports that MODE came from the environment rather than
	// the default.
	ModeSet bool

	// PWA is the raw PWA value.
	PWA string
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Mode: ModeSPA,
		Paths: PathsConfig{
			Template:    "public/index.html",
			Public:      "public",
			Assets:      "src/assets",
			ClientEntry: "src/entries/client.js",
			ServerEntry: "src/entries/server.js",
		},
		Dev: DevConfig{
			Port:       DefaultPort,
			Host:       DefaultHost,
			PublicPath: "/",
			Output:     DefaultDevOutput,
		},
		Build: BuildConfig{
			Output: DefaultOutput,
			Minify: true,
		},
		Env: EnvConfig{
			Mode: EnvDevelopment,
		},
	}
}

// Load reads configuration from alvori.json in the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E110").
				WithDetail("No alvori.json found in " + filepath.Dir(path)).
				WithSuggestion("Create alvori.json at the project root")
		}
		return nil, errors.New("E100").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E100").
			WithDetail("Failed to parse alvori.json: " + err.Error()).
			WithSuggestion("Check that alvori.json is valid JSON")
	}

	cfg.configPath = path
	cfg.dir = filepath.Dir(path)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a default configuration rooted at dir, used when a
// project has no alvori.json.
func Default(dir string) *Config {
	cfg := New()
	cfg.dir = dir
	return cfg
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	defaults := New()

	if c.Mode == "" {
		c.Mode = defaults.Mode
	}
	c.Mode = BuildMode(strings.ToLower(string(c.Mode)))

	if c.Paths.Template == "" {
		c.Paths.Template = defaults.Paths.Template
	}
	if c.Paths.Public == "" {
		c.Paths.Public = defaults.Paths.Public
	}
	if c.Paths.Assets == "" {
		c.Paths.Assets = defaults.Paths.Assets
	}
	if c.Paths.ClientEntry == "" {
		c.Paths.ClientEntry = defaults.Paths.ClientEntry
	}
	if c.Paths.ServerEntry == "" {
		c.Paths.ServerEntry = defaults.Paths.ServerEntry
	}

	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.PublicPath == "" {
		c.Dev.PublicPath = "/"
	}
	if !strings.HasSuffix(c.Dev.PublicPath, "/") {
		c.Dev.PublicPath += "/"
	}
	if c.Dev.Output == "" {
		c.Dev.Output = DefaultDevOutput
	}

	if c.Build.Output == "" {
		c.Build.Output = DefaultOutput
	}

	if c.Env.Mode == "" {
		c.Env.Mode = defaults.Env.Mode
	}
}

// ApplyEnv overrides the configuration from environment variables looked
// up with lookup (normally os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("BUILD_MODE"); ok && v != "" {
		c.Mode = BuildMode(strings.ToLower(strings.TrimSpace(v)))
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.New("E102").
				WithDetail("PORT=" + v + " is not a number").
				Wrap(err)
		}
		c.Dev.Port = port
	}
	if v, ok := lookup("MODE"); ok && v != "" {
		c.Env.Mode = v
		c.Env.ModeSet = true
	}
	if v, ok := lookup("PWA"); ok {
		c.Env.PWA = v
	}
	return c.Validate()
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSPA, ModeSSR:
	default:
		return errors.New("E101").
			WithDetail("Got mode " + strconv.Quote(string(c.Mode))).
			WithSuggestion("Set BUILD_MODE=spa or BUILD_MODE=ssr")
	}
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("E102")
	}
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project root directory.
func (c *Config) Dir() string {
	return c.dir
}

// IsSSR reports whether the project is built in ssr mode.
func (c *Config) IsSSR() bool {
	return c.Mode == ModeSSR
}

// HotReload reports whether the live-reload socket is enabled. It
// defaults to true.
func (c *Config) HotReload() bool {
	return c.Dev.HotReload == nil || *c.Dev.HotReload
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the URL the dev server is reachable at.
func (c *Config) DevURL() string {
	return "http://localhost:" + strconv.Itoa(c.Dev.Port)
}

// Resolve returns path resolved against the project root.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.dir, path)
}

// TemplatePath returns the absolute path of the HTML shell template.
func (c *Config) TemplatePath() string { return c.Resolve(c.Paths.Template) }

// PublicDir returns the absolute path of the public directory.
func (c *Config) PublicDir() string { return c.Resolve(c.Paths.Public) }

// AssetsDir returns the absolute path of the raw assets directory.
func (c *Config) AssetsDir() string { return c.Resolve(c.Paths.Assets) }

// DevOutputDir returns the absolute virtual output directory of dev builds.
func (c *Config) DevOutputDir() string { return c.Resolve(c.Dev.Output) }

// OutputDir returns the absolute production build output directory.
func (c *Config) OutputDir() string { return c.Resolve(c.Build.Output) }

// ForProduction returns a copy of c for a production build: MODE
// defaults to production unless it was set in the environment.
func (c *Config) ForProduction() *Config {
	p := *c
	if !p.Env.ModeSet {
		p.Env.Mode = EnvProduction
	}
	return &p
}

// Defines returns the compile-time constants shared by client and server
// bundles. Values are JavaScript expressions.
func (c *Config) Defines() map[string]string {
	defines := map[string]string{
		"process.env.MODE":       strconv.Quote(c.Env.Mode),
		"process.env.BUILD_MODE": strconv.Quote(string(c.Mode)),
		"process.env.PWA":        strconv.Quote(pwaDefine(c.Env.PWA)),
		"__ALVORI_BOOT__":        c.bootDefine(),
	}
	for k, v := range c.Dev.Define {
		defines[k] = v
	}
	return defines
}

func pwaDefine(v string) string {
	if v == "" {
		return "undefined"
	}
	return v
}

func (c *Config) bootDefine() string {
	boot := c.Boot
	if boot == nil {
		boot = []entry.BootEntry{}
	}
	data, err := json.Marshal(boot)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing alvori.json, or an error if not found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E110").
				WithDetail("No alvori.json found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working
// directory. Without an alvori.json the defaults are returned, rooted at
// the working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		if errors.HasCode(err, "E110") {
			return Default(wd), nil
		}
		return nil, err
	}

	return Load(root)
}
