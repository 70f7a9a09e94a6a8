package config

import (
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/vango-dev/marketplace/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file in the home
	// directory.
	ConfigFileName = "marketplace.json"

	// DefaultHomeDir is the home directory, relative to the user's home.
	DefaultHomeDir = ".marketplace"

	// DefaultInstallDir is where plugins are installed, relative to home.
	DefaultInstallDir = "installed-plugins"

	// DefaultAddr is the listen address of `marketplace serve`.
	DefaultAddr = "127.0.0.1:8420"

	// DefaultTimeout bounds a single remote catalog fetch.
	DefaultTimeout = "30s"

	// DefaultDebounce is how long serve waits for manifest writes to settle.
	DefaultDebounce = "200ms"

	// BuiltinSource names the catalog compiled into the binary.
	BuiltinSource = "builtin"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "MARKETPLACE"
)

// Config represents marketplace.json.
type Config struct {
	// InstallDir is the install directory. Relative paths are resolved
	// against the home directory.
	InstallDir string `json:"installDir,omitempty"`

	// Catalog configures where the plugin catalog is loaded from.
	Catalog CatalogConfig `json:"catalog"`

	// Serve configures the HTTP API.
	Serve ServeConfig `json:"serve"`

	// Log configures logging.
	Log LogConfig `json:"log"`

	configPath string
	home       string
}

// CatalogConfig lists catalog sources.
type CatalogConfig struct {
	// Sources are loaded in order after the built-in catalog. Each is a
	// file path, an http(s) URL or an s3://bucket/key URL.
	Sources []string `json:"sources,omitempty"`

	// DisableBuiltin skips the catalog compiled into the binary.
	DisableBuiltin bool `json:"disableBuiltin,omitempty"`

	// Timeout bounds a single remote fetch (e.g., "30s").
	Timeout string `json:"timeout,omitempty"`

	// S3 configures s3:// sources.
	S3 S3Config `json:"s3,omitempty"`
}

// S3Config configures access to S3 catalog sources.
type S3Config struct {
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty"`
}

// ServeConfig configures `marketplace serve`.
type ServeConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`

	// Watch reloads the manifest when other processes change it.
	Watch *bool `json:"watch,omitempty"`

	// Debounce is the manifest watch debounce (e.g., "200ms").
	Debounce string `json:"debounce,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Empty uses the command's
	// default.
	Level string `json:"level,omitempty"`

	// Format is text or json.
	Format string `json:"format,omitempty"`
}

// envOverrides are the MARKETPLACE_* environment variables. Keys come from
// field names; an envconfig tag would also match the unprefixed variable.
type envOverrides struct {
	Catalog    []string
	InstallDir string `split_words:"true"`
	Addr       string
	LogLevel   string `split_words:"true"`
	LogFormat  string `split_words:"true"`
	S3Region   string `split_words:"true"`
	S3Endpoint string `split_words:"true"`
}

// New creates a new Config with default values.
func New() *Config {
	watch := true
	return &Config{
		InstallDir: DefaultInstallDir,
		Catalog: CatalogConfig{
			Timeout: DefaultTimeout,
		},
		Serve: ServeConfig{
			Addr:     DefaultAddr,
			Watch:    &watch,
			Debounce: DefaultDebounce,
		},
		Log: LogConfig{
			Format: "text",
		},
	}
}

// ResolveHome returns the home directory: flag if set, else
// MARKETPLACE_HOME, else ~/.marketplace.
func ResolveHome(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	var env struct {
		Home string
	}
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return "", errors.New(errors.CodeInvalidConfigValue).Wrap(err)
	}
	if env.Home != "" {
		return filepath.Abs(env.Home)
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New(errors.CodeInvalidConfig).
			WithDetail("Could not determine the user home directory").
			WithSuggestion("Set MARKETPLACE_HOME or pass --home").
			Wrap(err)
	}
	return filepath.Join(userHome, DefaultHomeDir), nil
}

// Load reads home/marketplace.json, falling back to defaults when the file
// does not exist, and applies MARKETPLACE_* environment overrides.
func Load(home string) (*Config, error) {
	cfg, err := LoadFile(filepath.Join(home, ConfigFileName))
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	cfg.configPath = path
	cfg.home = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig).
			WithDetail("Failed to parse " + path + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.applyDefaults()
	return cfg, nil
}

// ApplyEnv overlays MARKETPLACE_* environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return errors.New(errors.CodeInvalidConfigValue).
			WithDetail("Invalid " + EnvPrefix + "_* environment variable").
			Wrap(err)
	}

	if len(env.Catalog) > 0 {
		c.Catalog.Sources = WorkingDirSources(env.Catalog)
	}
	if env.InstallDir != "" {
		c.InstallDir = env.InstallDir
	}
	if env.Addr != "" {
		c.Serve.Addr = env.Addr
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Log.Format = env.LogFormat
	}
	if env.S3Region != "" {
		c.Catalog.S3.Region = env.S3Region
	}
	if env.S3Endpoint != "" {
		c.Catalog.S3.Endpoint = env.S3Endpoint
	}
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New(errors.CodeInvalidConfig).Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New(errors.CodeFilesystem).Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeFilesystem).Wrap(err)
	}

	c.configPath = path
	c.home = filepath.Dir(path)
	return nil
}

// Path returns the path of the configuration file.
func (c *Config) Path() string {
	return c.configPath
}

// Home returns the home directory.
func (c *Config) Home() string {
	return c.home
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.InstallDir == "" {
		c.InstallDir = DefaultInstallDir
	}
	if c.Catalog.Timeout == "" {
		c.Catalog.Timeout = DefaultTimeout
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultAddr
	}
	if c.Serve.Watch == nil {
		watch := true
		c.Serve.Watch = &watch
	}
	if c.Serve.Debounce == "" {
		c.Serve.Debounce = DefaultDebounce
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Log.Level != "" {
		if _, err := ParseLevel(c.Log.Level); err != nil {
			return err
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return errors.New(errors.CodeInvalidConfigValue).
			WithDetailf("log.format must be text or json, got %q", c.Log.Format)
	}

	if _, _, err := net.SplitHostPort(c.Serve.Addr); err != nil {
		return errors.New(errors.CodeInvalidConfigValue).
			WithDetailf("serve.addr %q is not a host:port address", c.Serve.Addr)
	}
	if d, err := time.ParseDuration(c.Serve.Debounce); err != nil || d <= 0 {
		return errors.New(errors.CodeInvalidConfigValue).
			WithDetailf("serve.debounce %q must be a positive duration", c.Serve.Debounce)
	}
	if d, err := time.ParseDuration(c.Catalog.Timeout); err != nil || d <= 0 {
		return errors.New(errors.CodeInvalidConfigValue).
			WithDetailf("catalog.timeout %q must be a positive duration", c.Catalog.Timeout)
	}

	for i, src := range c.Catalog.Sources {
		if strings.TrimSpace(src) == "" {
			return errors.New(errors.CodeInvalidConfigValue).
				WithDetailf("catalog.sources[%d] is empty", i)
		}
	}
	if c.Catalog.DisableBuiltin && len(c.Catalog.Sources) == 0 {
		return errors.New(errors.CodeInvalidConfigValue).
			WithDetail("catalog.disableBuiltin is set but no catalog sources are configured").
			WithSuggestion("Add a source to catalog.sources or pass --catalog")
	}
	return nil
}

// InstallPath returns the absolute install directory.
func (c *Config) InstallPath() string {
	if filepath.IsAbs(c.InstallDir) {
		return c.InstallDir
	}
	return filepath.Join(c.home, c.InstallDir)
}

// CatalogSources returns every source to load, in order.
func (c *Config) CatalogSources() []string {
	var out []string
	if !c.Catalog.DisableBuiltin {
		out = append(out, BuiltinSource)
	}
	for _, src := range c.Catalog.Sources {
		if isLocalRelative(src) {
			src = filepath.Join(c.home, src)
		}
		out = append(out, src)
	}
	return out
}

// WorkingDirSources makes relative file sources absolute against the
// current directory. Sources given on the command line or in the
// environment use it so they are not later resolved against home.
func WorkingDirSources(sources []string) []string {
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		if isLocalRelative(src) {
			if abs, err := filepath.Abs(src); err == nil {
				src = abs
			}
		}
		out = append(out, src)
	}
	return out
}

func isLocalRelative(src string) bool {
	return strings.TrimSpace(src) != "" && src != BuiltinSource && !strings.Contains(src, "://") && !filepath.IsAbs(src)
}

// FetchTimeout returns the parsed catalog timeout.
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Catalog.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}

// WatchDebounce returns the parsed serve debounce.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Serve.Debounce)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultDebounce)
	}
	return d
}

// WatchEnabled reports whether serve should watch the manifest.
func (c *Config) WatchEnabled() bool {
	return c.Serve.Watch == nil || *c.Serve.Watch
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.New(errors.CodeInvalidConfigValue).
		WithDetailf("log.level must be debug, info, warn or error, got %q", s)
}
