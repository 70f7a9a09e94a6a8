package installer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/marketplace/internal/errors"
	"github.com/vango-dev/marketplace/internal/registry"
	"github.com/vango-dev/marketplace/internal/telemetry"
)

// ManifestFile is the name of the manifest inside the install directory.
const ManifestFile = "manifest.json"

// Catalog is the read side of the registry the installer needs.
type Catalog interface {
	Lookup(namespace, name string) (*registry.Entry, bool)
}

// Config is the per-plugin configuration.
type Config struct {
	Enabled  bool           `json:"enabled"`
	Settings map[string]any `json:"settings"`
}

// Plugin is an installed plugin as recorded in the manifest.
type Plugin struct {
	Metadata    registry.Metadata `json:"metadata"`
	Config      Config            `json:"config"`
	InstalledAt time.Time         `json:"installedAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Path        string            `json:"path"`
}

// Key returns the plugin's "namespace/name" manifest key.
func (p *Plugin) Key() string {
	return registry.Key(p.Metadata.Namespace, p.Metadata.Name)
}

// Version returns the installed version.
func (p *Plugin) Version() string {
	return p.Metadata.Version
}

func (p *Plugin) clone() *Plugin {
	c := *p
	c.Metadata.Keywords = append([]string(nil), p.Metadata.Keywords...)
	c.Config.Settings = make(map[string]any, len(p.Config.Settings))
	for k, v := range p.Config.Settings {
		c.Config.Settings[k] = v
	}
	return &c
}

// Result is the outcome of an installer operation. Expected failures
// (not found, already installed, bad version) are results with OK false
// and a code; only I/O failures are returned as errors.
type Result struct {
	OK      bool   `json:"ok"`
	Plugin  string `json:"plugin"`
	Version string `json:"version,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`

	// Changed is false when the operation succeeded without touching
	// state, such as updating a plugin that is already at the latest
	// version.
	Changed bool `json:"changed"`
}

// Err returns nil for a successful result and a coded error otherwise.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return errors.New(r.Code).WithDetail(r.Message)
}

func succeeded(key, version, msg string) Result {
	return Result{OK: true, Plugin: key, Version: version, Message: msg, Changed: true}
}

func noChange(key, version, msg string) Result {
	return Result{OK: true, Plugin: key, Version: version, Message: msg}
}

func rejected(key, code, msg string) Result {
	return Result{Plugin: key, Code: code, Message: msg}
}

// Outdated describes an installed plugin with a newer catalog version.
type Outdated struct {
	Plugin    string `json:"plugin"`
	Installed string `json:"installed"`
	Latest    string `json:"latest"`
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the logger. Nil uses slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(in *Installer) {
		if logger != nil {
			in.logger = logger
		}
	}
}

// WithClock sets the time source for install and update timestamps.
func WithClock(now func() time.Time) Option {
	return func(in *Installer) {
		if now != nil {
			in.now = now
		}
	}
}

// WithMetrics records operations on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(in *Installer) {
		in.metrics = m
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(in *Installer) {
		in.tracer = tracer
	}
}

// OnChange registers fn to be called after every state change.
// Callbacks run synchronously, outside the installer lock.
func OnChange(fn func(Event)) Option {
	return func(in *Installer) {
		if fn != nil {
			in.listeners = append(in.listeners, fn)
		}
	}
}

// Installer is the persistent record of installed plugins. Every mutation
// is written through to the manifest before the call returns.
type Installer struct {
	mu      sync.Mutex
	dir     string
	catalog Catalog
	plugins map[string]*Plugin

	// lastSum is the checksum of the manifest as last read or written.
	lastSum [32]byte

	logger    *slog.Logger
	now       func() time.Time
	metrics   *telemetry.Metrics
	tracer    trace.Tracer
	listeners []func(Event)
}

// New creates an Installer rooted at dir, creating the directory if needed
// and loading dir/manifest.json when present.
func New(dir string, catalog Catalog, opts ...Option) (*Installer, error) {
	in := &Installer{
		dir:     filepath.Clean(dir),
		catalog: catalog,
		plugins: make(map[string]*Plugin),
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.tracer == nil {
		in.tracer = telemetry.Tracer()
	}

	if err := os.MkdirAll(in.dir, 0755); err != nil {
		return nil, errors.New(errors.CodeFilesystem).
			WithDetailf("Could not create install directory %s", in.dir).
			Wrap(err)
	}

	plugins, sum, err := readManifest(in.manifestPath())
	if err != nil {
		return nil, err
	}
	in.plugins = plugins
	in.lastSum = sum
	in.metrics.SetInstalled(len(in.plugins))

	in.logger.Debug("installer ready", "dir", in.dir, "installed", len(in.plugins))
	return in, nil
}

// Dir returns the install directory.
func (in *Installer) Dir() string {
	return in.dir
}

func (in *Installer) manifestPath() string {
	return filepath.Join(in.dir, ManifestFile)
}

func (in *Installer) pluginDir(namespace, name string) string {
	return filepath.Join(in.dir, namespace, name)
}

// List returns every installed plugin sorted by key.
func (in *Installer) List() []*Plugin {
	in.mu.Lock()
	defer in.mu.Unlock()

	keys := make([]string, 0, len(in.plugins))
	for k := range in.plugins {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*Plugin, 0, len(keys))
	for _, k := range keys {
		out = append(out, in.plugins[k].clone())
	}
	return out
}

// IsInstalled reports whether namespace/name is installed.
func (in *Installer) IsInstalled(namespace, name string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	_, ok := in.plugins[registry.Key(namespace, name)]
	return ok
}

// Get returns a copy of the installed plugin.
func (in *Installer) Get(namespace, name string) (*Plugin, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	p, ok := in.plugins[registry.Key(namespace, name)]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// Len returns the number of installed plugins.
func (in *Installer) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.plugins)
}

// Outdated lists installed plugins whose catalog has a newer version.
func (in *Installer) Outdated() []Outdated {
	var out []Outdated
	for _, p := range in.List() {
		entry, found := in.catalog.Lookup(p.Metadata.Namespace, p.Metadata.Name)
		if !found {
			continue
		}
		if registry.CompareVersions(p.Version(), entry.LatestVersion) < 0 {
			out = append(out, Outdated{
				Plugin:    p.Key(),
				Installed: p.Version(),
				Latest:    entry.LatestVersion,
			})
		}
	}
	return out
}

// operation runs fn under the installer lock inside a span, recording
// metrics and notifying listeners when the state changed.
func (in *Installer) operation(ctx context.Context, op string, kind EventType, key string, fn func(ctx context.Context) (Result, error)) (Result, error) {
	start := time.Now()
	ctx, span := telemetry.StartOperation(ctx, in.tracer, op, key)

	in.mu.Lock()
	res, err := fn(ctx)
	installed := len(in.plugins)
	in.mu.Unlock()

	outcome := telemetry.OutcomeSuccess
	switch {
	case err != nil:
		outcome = telemetry.OutcomeError
		in.logger.Error("operation failed", "op", op, "plugin", key, "error", err)
	case !res.OK:
		outcome = telemetry.OutcomeRejected
		in.logger.Debug("operation rejected", "op", op, "plugin", key, "code", res.Code, "reason", res.Message)
	case !res.Changed:
		outcome = telemetry.OutcomeUnchanged
		in.logger.Debug("operation made no changes", "op", op, "plugin", key)
	default:
		in.logger.Info("operation complete", "op", op, "plugin", key, "version", res.Version)
	}

	in.metrics.ObserveOperation(op, outcome, time.Since(start))
	in.metrics.SetInstalled(installed)
	telemetry.EndOperation(span, outcome, res.Code, err)

	if err == nil && res.OK && res.Changed {
		in.emit(newEvent(kind, key, res.Version, in.now()))
	}
	return res, err
}

func (in *Installer) emit(ev Event) {
	for _, fn := range in.listeners {
		fn(ev)
	}
}
