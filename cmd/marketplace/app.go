package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/marketplace/internal/config"
	"github.com/vango-dev/marketplace/internal/installer"
	"github.com/vango-dev/marketplace/internal/registry"
)

// app is the state a command works on: configuration, the loaded catalog
// and the installer for the configured install directory.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *registry.Registry
	installer *installer.Installer
}

// openOptions tune how open builds the app.
type openOptions struct {
	level     slog.Level
	installer []installer.Option
}

// open loads configuration, the catalog and the installed state. Commands
// log at warn unless --verbose or log.level says otherwise.
func (g *globalOptions) open(cmd *cobra.Command) (*app, error) {
	return g.openWith(cmd, openOptions{level: slog.LevelWarn})
}

func (g *globalOptions) openWith(cmd *cobra.Command, opts openOptions) (*app, error) {
	home, err := config.ResolveHome(g.home)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(home)
	if err != nil {
		return nil, err
	}
	cfg.Catalog.Sources = append(cfg.Catalog.Sources, config.WorkingDirSources(g.catalogs)...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := opts.level
	if cfg.Log.Level != "" {
		level, _ = config.ParseLevel(cfg.Log.Level)
	}
	if g.verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(cmd.ErrOrStderr(), level, cfg.Log.Format)
	slog.SetDefault(logger)

	reg, err := loadCatalog(cmd, cfg, logger)
	if err != nil {
		return nil, err
	}

	instOpts := append([]installer.Option{installer.WithLogger(logger)}, opts.installer...)
	inst, err := installer.New(cfg.InstallPath(), reg, instOpts...)
	if err != nil {
		return nil, err
	}

	logger.Debug("marketplace ready",
		"home", cfg.Home(),
		"install_dir", inst.Dir(),
		"catalog", reg.Len(),
		"installed", inst.Len(),
	)
	return &app{cfg: cfg, logger: logger, registry: reg, installer: inst}, nil
}

// loadCatalog builds a registry from every configured source, in order.
func loadCatalog(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*registry.Registry, error) {
	srcOpts := registry.SourceOptions{
		Timeout:     cfg.FetchTimeout(),
		S3Region:    cfg.Catalog.S3.Region,
		S3Endpoint:  cfg.Catalog.S3.Endpoint,
		S3PathStyle: cfg.Catalog.S3.PathStyle,
		Logger:      logger,
	}

	var sources []registry.Source
	for _, spec := range cfg.CatalogSources() {
		src, err := registry.ParseSource(spec, srcOpts)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return registry.Load(cmd.Context(), logger, sources...)
}

// newLogger creates the process logger on w.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// parseRef parses the single plugin reference a command takes. A missing
// or malformed reference prints usage and fails before anything is
// loaded.
func parseRef(cmd *cobra.Command, args []string, usageLine string) (registry.Ref, error) {
	if len(args) == 0 {
		return registry.Ref{}, usage(cmd.ErrOrStderr(), usageLine)
	}
	ref, err := registry.ParseRef(args[0])
	if err != nil {
		w := cmd.ErrOrStderr()
		io.WriteString(w, "\n")
		failure(w, "Invalid plugin reference. Use format: namespace/name")
		io.WriteString(w, "\n")
		return registry.Ref{}, errFailed
	}
	return ref, nil
}

// parseIdentity is parseRef for commands that do not accept a version.
func parseIdentity(cmd *cobra.Command, args []string, usageLine string) (registry.Identity, error) {
	ref, err := parseRef(cmd, args, usageLine)
	if err != nil {
		return registry.Identity{}, err
	}
	if ref.Version != "" {
		w := cmd.ErrOrStderr()
		io.WriteString(w, "\n")
		failure(w, "%s does not take a version", cmd.Name())
		io.WriteString(w, "\n")
		return registry.Identity{}, errFailed
	}
	return ref.Identity, nil
}

// report prints a result and returns errFailed when it failed.
func report(cmd *cobra.Command, res installer.Result) error {
	if res.OK {
		success(cmd.OutOrStdout(), "%s", res.Message)
		return nil
	}
	failure(cmd.ErrOrStderr(), "%s", res.Message)
	return errFailed
}
