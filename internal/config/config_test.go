package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/marketplace/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.InstallDir != DefaultInstallDir {
		t.Errorf("InstallDir = %q, want %q", cfg.InstallDir, DefaultInstallDir)
	}
	if cfg.Serve.Addr != DefaultAddr {
		t.Errorf("Serve.Addr = %q, want %q", cfg.Serve.Addr, DefaultAddr)
	}
	if !cfg.WatchEnabled() {
		t.Error("watch should default to enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()

	cfg, err := Load(home)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Home() != home {
		t.Errorf("Home() = %q, want %q", cfg.Home(), home)
	}
	if want := filepath.Join(home, DefaultInstallDir); cfg.InstallPath() != want {
		t.Errorf("InstallPath() = %q, want %q", cfg.InstallPath(), want)
	}
	if got := cfg.CatalogSources(); !reflect.DeepEqual(got, []string{BuiltinSource}) {
		t.Errorf("CatalogSources() = %v", got)
	}
}

func TestLoad(t *testing.T) {
	home := t.TempDir()
	configJSON := `{
  "installDir": "/opt/plugins",
  "catalog": {
    "sources": ["extra.yaml", "https://example.com/catalog.json"],
    "timeout": "5s",
    "s3": {"region": "eu-west-1", "pathStyle": true}
  },
  "serve": {"addr": ":9000", "watch": false},
  "log": {"level": "debug", "format": "json"}
}
`
	if err := os.WriteFile(filepath.Join(home, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(home)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.InstallPath() != "/opt/plugins" {
		t.Errorf("InstallPath() = %q", cfg.InstallPath())
	}
	if cfg.FetchTimeout() != 5*time.Second {
		t.Errorf("FetchTimeout() = %v", cfg.FetchTimeout())
	}
	if cfg.Serve.Addr != ":9000" || cfg.WatchEnabled() {
		t.Errorf("Serve = %+v", cfg.Serve)
	}
	if cfg.Serve.Debounce != DefaultDebounce {
		t.Errorf("Serve.Debounce = %q, want default", cfg.Serve.Debounce)
	}
	if !cfg.Catalog.S3.PathStyle || cfg.Catalog.S3.Region != "eu-west-1" {
		t.Errorf("S3 = %+v", cfg.Catalog.S3)
	}

	want := []string{BuiltinSource, filepath.Join(home, "extra.yaml"), "https://example.com/catalog.json"}
	if got := cfg.CatalogSources(); !reflect.DeepEqual(got, want) {
		t.Errorf("CatalogSources() = %v, want %v", got, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, ConfigFileName), []byte("{oops"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(home)
	if !errors.HasCode(err, errors.CodeInvalidConfig) {
		t.Fatalf("Load() error = %v, want E120", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MARKETPLACE_CATALOG", "s3://bucket/a.json,/tmp/b.yaml")
	t.Setenv("MARKETPLACE_ADDR", "0.0.0.0:80")
	t.Setenv("MARKETPLACE_LOG_LEVEL", "info")
	t.Setenv("MARKETPLACE_S3_ENDPOINT", "http://localhost:9000")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := []string{"s3://bucket/a.json", "/tmp/b.yaml"}; !reflect.DeepEqual(cfg.Catalog.Sources, want) {
		t.Errorf("Catalog.Sources = %v, want %v", cfg.Catalog.Sources, want)
	}
	if cfg.Serve.Addr != "0.0.0.0:80" {
		t.Errorf("Serve.Addr = %q", cfg.Serve.Addr)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.Catalog.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("S3.Endpoint = %q", cfg.Catalog.S3.Endpoint)
	}
}

func TestApplyEnv_RelativeSourceUsesWorkingDir(t *testing.T) {
	wd := chdir(t, t.TempDir())
	home := t.TempDir()
	t.Setenv("MARKETPLACE_CATALOG", "team.yaml")

	cfg, err := Load(home)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{BuiltinSource, filepath.Join(wd, "team.yaml")}
	if got := cfg.CatalogSources(); !reflect.DeepEqual(got, want) {
		t.Errorf("CatalogSources() = %v, want %v", got, want)
	}
}

func TestWorkingDirSources(t *testing.T) {
	wd := chdir(t, t.TempDir())

	got := WorkingDirSources([]string{"team.yaml", "sub/extra.json", "/abs/c.yaml", BuiltinSource, "s3://bucket/c.json", " "})
	want := []string{
		filepath.Join(wd, "team.yaml"),
		filepath.Join(wd, "sub", "extra.json"),
		"/abs/c.yaml",
		BuiltinSource,
		"s3://bucket/c.json",
		" ",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("WorkingDirSources() = %v, want %v", got, want)
	}
}

// chdir switches to dir for the rest of the test and returns the working
// directory as the process sees it.
func chdir(t *testing.T, dir string) string {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	return wd
}

func TestResolveHome(t *testing.T) {
	flag := t.TempDir()
	got, err := ResolveHome(flag)
	if err != nil || got != flag {
		t.Errorf("ResolveHome(flag) = %q, %v", got, err)
	}

	env := t.TempDir()
	t.Setenv("MARKETPLACE_HOME", env)
	got, err = ResolveHome("")
	if err != nil || got != env {
		t.Errorf("ResolveHome(env) = %q, %v", got, err)
	}

	t.Setenv("MARKETPLACE_HOME", "")
	t.Setenv("HOME", flag)
	got, err = ResolveHome("")
	if err != nil || got != filepath.Join(flag, DefaultHomeDir) {
		t.Errorf("ResolveHome(default) = %q, %v", got, err)
	}
}

func TestSave(t *testing.T) {
	home := t.TempDir()
	cfg, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Catalog.Sources = []string{"team.json"}
	cfg.Log.Level = "error"

	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(home, ConfigFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(data), "}\n") {
		t.Error("config file should end with a newline")
	}

	reloaded, err := Load(home)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(reloaded.Catalog.Sources, []string{"team.json"}) || reloaded.Log.Level != "error" {
		t.Errorf("reloaded = %+v", reloaded)
	}
}

func TestSave_NoPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad addr", func(c *Config) { c.Serve.Addr = "localhost" }},
		{"bad timeout", func(c *Config) { c.Catalog.Timeout = "soon" }},
		{"zero debounce", func(c *Config) { c.Serve.Debounce = "0s" }},
		{"empty source", func(c *Config) { c.Catalog.Sources = []string{" "} }},
		{"no sources at all", func(c *Config) { c.Catalog.DisableBuiltin = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.HasCode(err, errors.CodeInvalidConfigValue) {
				t.Errorf("Validate() = %v, want E121", err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", " warn ", "warning", "error"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q) error = %v", s, err)
		}
	}
	if _, err := ParseLevel("trace"); err == nil {
		t.Error("ParseLevel(trace) should fail")
	}
}
