package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/marketplace/internal/installer"
	"github.com/vango-dev/marketplace/internal/server"
	"github.com/vango-dev/marketplace/internal/telemetry"
)

func serveCmd(g *globalOptions) *cobra.Command {
	var (
		addr    string
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the marketplace HTTP API",
		Long: `Serve the catalog and installed plugins over HTTP.

Endpoints:
  GET    /api/v1/plugins?q=&category=&featured=&page=&per_page=
  GET    /api/v1/plugins/{namespace}/{name}
  GET    /api/v1/installed[/{namespace}/{name}]
  POST   /api/v1/installed/{namespace}/{name}?version=
  DELETE /api/v1/installed/{namespace}/{name}
  POST   /api/v1/installed/{namespace}/{name}/update
  PATCH  /api/v1/installed/{namespace}/{name}/config
  GET    /api/v1/events   (WebSocket)
  GET    /metrics

Changes made by other marketplace commands are picked up by watching
the manifest.

Examples:
  marketplace serve
  marketplace serve --addr 0.0.0.0:8420`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, addr, noWatch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from marketplace.json)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload the manifest on external changes")

	return cmd
}

func runServe(cmd *cobra.Command, g *globalOptions, addr string, noWatch bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewMetrics()
	var hub *server.EventHub

	a, err := g.openWith(cmd, openOptions{
		level: slog.LevelInfo,
		installer: []installer.Option{
			installer.WithMetrics(metrics),
			installer.OnChange(func(ev installer.Event) { hub.Publish(ev) }),
		},
	})
	if err != nil {
		return err
	}
	hub = server.NewEventHub(a.logger, metrics)
	metrics.SetInstalled(a.installer.Len())

	if addr == "" {
		addr = a.cfg.Serve.Addr
	}

	if a.cfg.WatchEnabled() && !noWatch {
		watcher, err := installer.NewWatcher(a.installer, a.cfg.WatchDebounce(), a.logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	srv := server.New(server.Options{
		Registry:  a.registry,
		Installer: a.installer,
		Events:    hub,
		Metrics:   metrics,
		Logger:    a.logger,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	success(out, "Serving %d plugins on http://%s", a.registry.Len(), addr)
	fmt.Fprintf(out, "  %s\n\n", dim("Press Ctrl+C to stop"))

	return srv.ListenAndServe(ctx, addr)
}
